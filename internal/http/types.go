package http

import (
	"github.com/fyrsmithlabs/textpack/internal/compression"
	"github.com/fyrsmithlabs/textpack/internal/history"
	"github.com/fyrsmithlabs/textpack/internal/profile"
)

// OptionsRequest carries the per-call compression options.
type OptionsRequest struct {
	FileType        string                   `json:"fileType,omitempty"`
	Domain          string                   `json:"domain,omitempty"`
	DomainPatterns  compression.PatternTable `json:"domainPatterns,omitempty"`
	Profile         string                   `json:"profile,omitempty"`
	AlgorithmParams string                   `json:"algorithmParams,omitempty"`
}

// CompressRequest is the request body for POST /api/v1/compress.
type CompressRequest struct {
	Text string `json:"text"`
	OptionsRequest
}

// CompressResponse is the response body for POST /api/v1/compress.
type CompressResponse struct {
	*compression.Result
	HistoryID string `json:"historyId,omitempty"`
}

// DecompressRequest is the request body for POST /api/v1/decompress.
type DecompressRequest struct {
	Payload  string                `json:"payload"`
	Mappings *compression.Mappings `json:"mappings,omitempty"`
}

// DecompressResponse is the response body for POST /api/v1/decompress.
type DecompressResponse struct {
	*compression.Decompressed
	Success bool `json:"success"`
}

// BatchRequest is the request body for POST /api/v1/batch.
type BatchRequest struct {
	Texts []string `json:"texts"`
	OptionsRequest
}

// ProfilesResponse is the response body for GET /api/v1/profiles.
type ProfilesResponse struct {
	Domains  []string           `json:"domains"`
	Profiles []*profile.Profile `json:"profiles"`
}

// HistoryResponse is the response body for GET /api/v1/history.
type HistoryResponse struct {
	Records []history.Record `json:"records"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}
