package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/history"
	"github.com/fyrsmithlabs/textpack/internal/logging"
	"github.com/fyrsmithlabs/textpack/internal/profile"
)

func testConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.RateLimit = 0
	cfg.MaxBatchItems = 5
	return cfg
}

func setupTestServer(t *testing.T, cfg *Config, opts ...Option) (*Server, *logging.TestLogger) {
	t.Helper()
	logger := logging.NewTestLogger()
	svc, err := compression.NewService(compression.NewDefaultConfig(), logger.Logger)
	require.NoError(t, err)

	if cfg == nil {
		cfg = testConfig()
	}
	server, err := NewServer(svc, logger.Logger, cfg, opts...)
	require.NoError(t, err)
	return server, logger
}

func doJSON(t *testing.T, s *Server, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func testRegistry(t *testing.T) *profile.Registry {
	t.Helper()
	reg := profile.NewRegistry("", nil)
	require.NoError(t, reg.Add(&profile.Profile{
		ID:       "legal",
		Name:     "Legal",
		Patterns: compression.PatternTable{{From: "plaintiff", To: 'ж'}, {From: "defendant", To: 'ф'}},
	}))
	return reg
}

func TestNewServer(t *testing.T) {
	logger := logging.NewTestLogger()
	svc, err := compression.NewService(compression.NewDefaultConfig(), logger.Logger)
	require.NoError(t, err)

	t.Run("uses defaults when config is nil", func(t *testing.T) {
		server, err := NewServer(svc, logger.Logger, nil)
		require.NoError(t, err)
		assert.Equal(t, "127.0.0.1", server.config.Host)
		assert.Equal(t, 8080, server.config.Port)
	})

	t.Run("returns error when logger is nil", func(t *testing.T) {
		_, err := NewServer(svc, nil, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "logger is required")
	})

	t.Run("returns error when service is nil", func(t *testing.T) {
		_, err := NewServer(nil, logger.Logger, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "compression service cannot be nil")
	})

	t.Run("rejects negative rate", func(t *testing.T) {
		cfg := testConfig()
		cfg.RateLimit = -1
		_, err := NewServer(svc, logger.Logger, cfg)
		assert.Error(t, err)
	})
}

func TestHandleHealth(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		rec := doJSON(t, server, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp HealthResponse
		decode(t, rec, &resp)
		assert.Equal(t, "ok", resp.Status)
		assert.Empty(t, resp.Checks)
	})

	t.Run("degraded", func(t *testing.T) {
		server, _ := setupTestServer(t, nil,
			WithHealthCheck("telemetry", func(context.Context) error { return errors.New("exporter down") }),
			WithHealthCheck("profiles", func(context.Context) error { return nil }),
		)
		rec := doJSON(t, server, http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

		var resp HealthResponse
		decode(t, rec, &resp)
		assert.Equal(t, "degraded", resp.Status)
		assert.Equal(t, map[string]string{"telemetry": "exporter down", "profiles": "ok"}, resp.Checks)
	})
}

func TestHandleCompress(t *testing.T) {
	t.Run("compresses text", func(t *testing.T) {
		server, logger := setupTestServer(t, nil)
		text := "the weather in the north is better than there"
		rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: text})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res compression.Result
		decode(t, rec, &res)
		assert.True(t, res.Reversible)
		assert.NotEmpty(t, res.Steps)
		assert.Equal(t, text, compression.Decode(res.Compressed, res.Mappings))
		logger.AssertRedacted(t)
	})

	t.Run("empty text yields zero result", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: "   "})
		require.Equal(t, http.StatusOK, rec.Code)

		var res compression.Result
		decode(t, rec, &res)
		assert.Zero(t, res.OriginalSize)
		assert.Zero(t, res.Ratio)
	})

	t.Run("uses named profile", func(t *testing.T) {
		server, _ := setupTestServer(t, nil, WithProfiles(testRegistry(t)))
		text := "the plaintiff sued the defendant"
		rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{
			Text:           text,
			OptionsRequest: OptionsRequest{Profile: "legal"},
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var res compression.Result
		decode(t, rec, &res)
		require.NotNil(t, res.Mappings)
		assert.Len(t, res.Mappings.Domain, 2)
		assert.Equal(t, text, compression.Decode(res.Compressed, res.Mappings))
	})

	t.Run("records history", func(t *testing.T) {
		store, err := history.NewStore(filepath.Join(t.TempDir(), "history.jsonl"), 0, nil)
		require.NoError(t, err)
		server, _ := setupTestServer(t, nil, WithHistory(store))

		rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: "hello there world"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			HistoryID string `json:"historyId"`
		}
		decode(t, rec, &resp)
		assert.NotEmpty(t, resp.HistoryID)

		records, err := store.List(0)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, resp.HistoryID, records[0].ID)
		assert.Equal(t, "hello there world", records[0].OriginalText)
	})

	errorCases := []struct {
		name   string
		body   interface{}
		opts   []Option
		status int
		errMsg string
	}{
		{name: "malformed json", body: `{"text":`, status: http.StatusBadRequest, errMsg: "invalid request body"},
		{name: "bad file type", body: CompressRequest{Text: "abc", OptionsRequest: OptionsRequest{FileType: "audio"}}, status: http.StatusBadRequest, errMsg: "fileType"},
		{name: "unknown domain", body: CompressRequest{Text: "abc", OptionsRequest: OptionsRequest{Domain: "legal"}}, status: http.StatusBadRequest, errMsg: "unknown domain"},
		{name: "reserved pattern code", body: `{"text":"abc","domainPatterns":{"abc":"†"}}`, status: http.StatusBadRequest, errMsg: "reserved"},
		{name: "profiles not configured", body: CompressRequest{Text: "abc", OptionsRequest: OptionsRequest{Profile: "legal"}}, status: http.StatusBadRequest, errMsg: "not configured"},
		{
			name:   "unknown profile",
			body:   CompressRequest{Text: "abc", OptionsRequest: OptionsRequest{Profile: "chemistry"}},
			opts:   []Option{WithProfiles(testRegistry(t))},
			status: http.StatusNotFound,
			errMsg: "profile not found",
		},
	}

	for _, tt := range errorCases {
		t.Run(tt.name, func(t *testing.T) {
			server, _ := setupTestServer(t, nil, tt.opts...)
			rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp ErrorResponse
			decode(t, rec, &resp)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Error, tt.errMsg)
		})
	}
}

func TestHandleDecompress(t *testing.T) {
	server, _ := setupTestServer(t, nil)
	text := "information about the nation and the station"

	rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: text})
	require.Equal(t, http.StatusOK, rec.Code)
	var res compression.Result
	decode(t, rec, &res)

	t.Run("with mappings", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/decompress", DecompressRequest{Payload: res.Compressed, Mappings: res.Mappings})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var resp DecompressResponse
		decode(t, rec, &resp)
		assert.True(t, resp.Success)
		assert.True(t, resp.Lossless)
		assert.Equal(t, text, resp.Text)
	})

	t.Run("without mappings", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/decompress", DecompressRequest{Payload: "3×a†"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp DecompressResponse
		decode(t, rec, &resp)
		assert.False(t, resp.Lossless)
		assert.Equal(t, "aaathe", resp.Text)
	})

	t.Run("empty payload", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/decompress", DecompressRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"success":false,"error":"empty input"}`, rec.Body.String())
	})
}

func TestHandleBatch(t *testing.T) {
	server, _ := setupTestServer(t, nil)

	t.Run("isolates failures", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/batch", BatchRequest{Texts: []string{"the first one", "", "the last one"}})
		require.Equal(t, http.StatusOK, rec.Code)

		var res compression.BatchResult
		decode(t, rec, &res)
		require.Len(t, res.Results, 3)
		assert.True(t, res.Results[0].Success)
		assert.False(t, res.Results[1].Success)
		assert.Equal(t, "empty input", res.Results[1].Error)
		assert.True(t, res.Results[2].Success)
	})

	t.Run("requires texts", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/batch", BatchRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("limits items", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/batch", BatchRequest{Texts: make([]string, 6)})
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestHandleProfiles(t *testing.T) {
	t.Run("without registry", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/v1/profiles", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp ProfilesResponse
		decode(t, rec, &resp)
		assert.Equal(t, compression.Domains(), resp.Domains)
		assert.Empty(t, resp.Profiles)

		rec = doJSON(t, server, http.MethodGet, "/api/v1/profiles/legal", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("with registry", func(t *testing.T) {
		server, _ := setupTestServer(t, nil, WithProfiles(testRegistry(t)))

		rec := doJSON(t, server, http.MethodGet, "/api/v1/profiles", nil)
		var resp ProfilesResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Profiles, 1)
		assert.Equal(t, "legal", resp.Profiles[0].ID)

		rec = doJSON(t, server, http.MethodGet, "/api/v1/profiles/legal", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"patterns":{"plaintiff":"ж","defendant":"ф"}`)

		rec = doJSON(t, server, http.MethodGet, "/api/v1/profiles/other", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHandleHistory(t *testing.T) {
	t.Run("not enabled", func(t *testing.T) {
		server, _ := setupTestServer(t, nil)
		rec := doJSON(t, server, http.MethodGet, "/api/v1/history", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	store, err := history.NewStore(filepath.Join(t.TempDir(), "history.jsonl"), 0, nil)
	require.NoError(t, err)
	server, _ := setupTestServer(t, nil, WithHistory(store))
	for _, text := range []string{"one thing", "two things", "three things"} {
		rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: text})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	t.Run("limit", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/v1/history?limit=2", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp HistoryResponse
		decode(t, rec, &resp)
		require.Len(t, resp.Records, 2)
		assert.Equal(t, "three things", resp.Records[0].OriginalText)
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := doJSON(t, server, http.MethodGet, "/api/v1/history?limit=zero", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPrometheusEndpoint(t *testing.T) {
	server, _ := setupTestServer(t, nil)
	doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: "the same the same the same"})
	doJSON(t, server, http.MethodPost, "/api/v1/decompress", DecompressRequest{})

	rec := doJSON(t, server, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, `textpack_operations_total{operation="compress",outcome="success"} 1`)
	assert.Contains(t, body, `textpack_operations_total{operation="decompress",outcome="error"} 1`)
	assert.Contains(t, body, "textpack_compression_ratio_percent_count 1")
	assert.Contains(t, body, "go_goroutines")
}

func TestMetricsEndpointDisabled(t *testing.T) {
	server, _ := setupTestServer(t, nil, WithoutMetricsEndpoint())
	rec := doJSON(t, server, http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestID(t *testing.T) {
	server, logger := setupTestServer(t, nil)

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{name: "valid id is kept", incoming: "req-123.abc", keep: true},
		{name: "unsafe id is replaced", incoming: "bad id\n", keep: false},
		{name: "missing id is generated", incoming: "", keep: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger.Reset()
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.incoming != "" {
				req.Header.Set(echo.HeaderXRequestID, tt.incoming)
			}
			rec := httptest.NewRecorder()
			server.Handler().ServeHTTP(rec, req)

			got := rec.Header().Get(echo.HeaderXRequestID)
			if tt.keep {
				assert.Equal(t, tt.incoming, got)
			} else {
				assert.NotEqual(t, tt.incoming, got)
				assert.NoError(t, logging.ValidateID(got, "request id"))
			}
			logger.AssertField(t, "http request", "request.id", got)
		})
	}
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = 0.001
	cfg.RateBurst = 1
	server, _ := setupTestServer(t, cfg)

	first := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, server, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.JSONEq(t, `{"success":false,"error":"rate limit exceeded"}`, second.Body.String())
}

func TestBodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.BodyLimit = "1K"
	server, _ := setupTestServer(t, cfg)

	rec := doJSON(t, server, http.MethodPost, "/api/v1/compress", CompressRequest{Text: strings.Repeat("x", 4096)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestNotFoundUsesErrorResponse(t *testing.T) {
	server, _ := setupTestServer(t, nil)
	rec := doJSON(t, server, http.MethodGet, "/api/v2/compress", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"Not Found"}`, rec.Body.String())
}

func TestHTTPMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	server, _ := setupTestServer(t, nil, WithMeter(mp.Meter(httpInstrumentationName)))

	doJSON(t, server, http.MethodGet, "/health", nil)
	doJSON(t, server, http.MethodGet, "/api/v1/profiles/missing", nil)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	endpoints := map[string]int64{}
	var names []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			names = append(names, m.Name)
			if m.Name != "textpack.http.requests_total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				endpoint, _ := dp.Attributes.Value("endpoint")
				status, _ := dp.Attributes.Value("status")
				if endpoint.AsString() == "/api/v1/profiles/:id" {
					assert.Equal(t, int64(http.StatusNotFound), status.AsInt64())
				}
				endpoints[endpoint.AsString()] += dp.Value
			}
		}
	}

	assert.Contains(t, names, "textpack.http.request_duration_seconds")
	assert.Contains(t, names, "textpack.http.response_size_bytes")
	assert.Equal(t, int64(1), endpoints["/health"])
	assert.Equal(t, int64(1), endpoints["/api/v1/profiles/:id"])
}
