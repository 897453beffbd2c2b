package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/history"
	"github.com/fyrsmithlabs/textpack/internal/logging"
	"github.com/fyrsmithlabs/textpack/internal/profile"
)

const defaultHistoryLimit = 50

// handleHealth reports "ok" unless a registered check fails.
func (s *Server) handleHealth(c echo.Context) error {
	resp := HealthResponse{Status: "ok"}
	if len(s.checks) > 0 {
		resp.Checks = make(map[string]string, len(s.checks))
	}

	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.checks[name](c.Request().Context()); err != nil {
			resp.Status = "degraded"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, resp)
}

func (s *Server) handleCompress(c echo.Context) error {
	var req CompressRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid compress request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	opts, err := s.options(req.OptionsRequest)
	if err != nil {
		s.prom.observe("compress", err)
		return err
	}

	ctx := withProfile(c.Request().Context(), req.Profile)
	res, err := s.svc.Compress(ctx, req.Text, opts)
	s.prom.observe("compress", err)
	if err != nil {
		return statusError(err)
	}
	s.prom.observeResult(res.OriginalSize, res.CompressedSize, res.Ratio)

	resp := CompressResponse{Result: res}
	if s.history != nil && res.OriginalSize > 0 {
		rec := history.NewRecord(req.Text, res, opts, s.now())
		if err := s.history.Append(ctx, rec); err != nil {
			s.logger.Warn(ctx, "failed to record history", zap.Error(err))
		} else {
			resp.HistoryID = rec.ID
		}
	}

	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleDecompress(c echo.Context) error {
	var req DecompressRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid decompress request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	out, err := s.svc.Decompress(c.Request().Context(), req.Payload, req.Mappings)
	s.prom.observe("decompress", err)
	if err != nil {
		return statusError(err)
	}
	return c.JSON(http.StatusOK, DecompressResponse{Decompressed: out, Success: true})
}

func (s *Server) handleBatch(c echo.Context) error {
	var req BatchRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn(c.Request().Context(), "invalid batch request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Texts) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "texts field is required")
	}
	if limit := s.config.MaxBatchItems; limit > 0 && len(req.Texts) > limit {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge,
			fmt.Sprintf("batch has %d items, limit is %d", len(req.Texts), limit))
	}

	opts, err := s.options(req.OptionsRequest)
	if err != nil {
		s.prom.observe("batch", err)
		return err
	}

	res := s.svc.BatchCompress(withProfile(c.Request().Context(), req.Profile), req.Texts, opts)
	for _, item := range res.Results {
		if item.Success {
			s.prom.observeResult(item.OriginalSize, item.CompressedSize, item.Ratio)
		}
	}
	s.prom.observe("batch", nil)
	return c.JSON(http.StatusOK, res)
}

func (s *Server) handleListProfiles(c echo.Context) error {
	resp := ProfilesResponse{
		Domains:  compression.Domains(),
		Profiles: []*profile.Profile{},
	}
	if s.profiles != nil {
		resp.Profiles = s.profiles.List()
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetProfile(c echo.Context) error {
	if s.profiles == nil {
		return echo.NewHTTPError(http.StatusNotFound, "profiles are not configured")
	}
	p, err := s.profiles.Get(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (s *Server) handleHistory(c echo.Context) error {
	if s.history == nil {
		return echo.NewHTTPError(http.StatusNotFound, "history is not enabled")
	}

	limit := defaultHistoryLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a positive integer")
		}
		limit = n
	}

	records, err := s.history.List(limit)
	if err != nil {
		return fmt.Errorf("listing history: %w", err)
	}
	if records == nil {
		records = []history.Record{}
	}
	return c.JSON(http.StatusOK, HistoryResponse{Records: records})
}

// options resolves request fields into engine options. A named profile's
// patterns come before any inline patterns.
func (s *Server) options(req OptionsRequest) (compression.Options, error) {
	fileType, err := compression.ParseFileType(req.FileType)
	if err != nil {
		return compression.Options{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	patterns := req.DomainPatterns
	if req.Profile != "" {
		if s.profiles == nil {
			return compression.Options{}, echo.NewHTTPError(http.StatusBadRequest, "profiles are not configured")
		}
		p, err := s.profiles.Get(req.Profile)
		if err != nil {
			return compression.Options{}, echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		patterns = append(p.Table(), patterns...)
	}

	return compression.Options{
		FileType:        fileType,
		Domain:          req.Domain,
		DomainPatterns:  patterns,
		AlgorithmParams: req.AlgorithmParams,
	}, nil
}

// withProfile tags log lines with a profile id that already resolved.
func withProfile(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return logging.WithProfileID(ctx, id)
}

// statusError maps service errors onto HTTP errors.
func statusError(err error) error {
	switch {
	case errors.Is(err, compression.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, compression.ErrEmptyInput.Error())
	case compression.IsValidationError(err):
		return echo.NewHTTPError(http.StatusBadRequest, compression.AsValidationError(err).Error())
	case errors.Is(err, profile.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		return err
	}
}
