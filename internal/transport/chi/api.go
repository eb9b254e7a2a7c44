package chi

import (
	"encoding/json"

	"github.com/kailas-cloud/peerdex/internal/domain/ingest"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
)

// ErrorResponseCode is the machine-readable error code returned to clients.
type ErrorResponseCode string

// Error codes.
const (
	ErrorResponseCodeBadRequest        ErrorResponseCode = "bad_request"
	ErrorResponseCodeValidationFailed  ErrorResponseCode = "validation_failed"
	ErrorResponseCodeInvalidPagination ErrorResponseCode = "invalid_pagination"
	ErrorResponseCodeCompanyNotFound   ErrorResponseCode = "company_not_found"
	ErrorResponseCodeUnauthorized      ErrorResponseCode = "unauthorized"
	ErrorResponseCodeIndexUnavailable  ErrorResponseCode = "index_unavailable"
	ErrorResponseCodeInternalError     ErrorResponseCode = "internal_error"
)

// Response headers.
const (
	HeaderStrategy = "X-Peerdex-Strategy"
	HeaderPage     = "X-Peerdex-Page"
	HeaderSize     = "X-Peerdex-Size"
	HeaderDegraded = "X-Peerdex-Degraded"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorResponseCode `json:"code"`
	Message string            `json:"message"`
}

// MessageResponse is a plain message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// SimilarityParams are the pagination query parameters of the similarity endpoints.
type SimilarityParams struct {
	Page *int `form:"page,omitempty" json:"page,omitempty"`
	Size *int `form:"size,omitempty" json:"size,omitempty"`
}

// SimilarityResponse mirrors the engine search response so existing clients keep working.
type SimilarityResponse struct {
	Hits HitsEnvelope `json:"hits"`
}

// HitsEnvelope is the "hits" object of the engine response.
type HitsEnvelope struct {
	Total    TotalHits    `json:"total"`
	MaxScore *float64     `json:"max_score"`
	Hits     []result.Hit `json:"hits"`
}

// TotalHits is the engine total hit count.
type TotalHits struct {
	Value    int64  `json:"value"`
	Relation string `json:"relation"`
}

// StatusResponse reports index readiness and background ingestion.
type StatusResponse struct {
	Ready     bool             `json:"ready"`
	Message   string           `json:"message,omitempty"`
	Index     json.RawMessage  `json:"index,omitempty"`
	Ingestion *ingest.Snapshot `json:"ingestion,omitempty"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func pageToResponse(p result.Page) SimilarityResponse {
	hits := p.Hits()
	if hits == nil {
		hits = []result.Hit{}
	}
	return SimilarityResponse{Hits: HitsEnvelope{
		Total:    TotalHits{Value: p.Total(), Relation: p.Relation()},
		MaxScore: p.MaxScore(),
		Hits:     hits,
	}}
}
