package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/domain"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/request"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/result"
	"github.com/kailas-cloud/peerdex/internal/domain/similarity/strategy"
	logpkg "github.com/kailas-cloud/peerdex/internal/logger"
	healthuc "github.com/kailas-cloud/peerdex/internal/usecase/health"
	statusuc "github.com/kailas-cloud/peerdex/internal/usecase/status"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Similarity runs one similarity strategy.
type Similarity interface {
	Similar(ctx context.Context, s strategy.Strategy, req request.Request) (result.Page, error)
}

// StatusReporter reports index readiness.
type StatusReporter interface {
	Status(ctx context.Context) statusuc.Report
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Settings controls pagination defaults and failure reporting.
type Settings struct {
	DefaultPageSize int
	MaxPageSize     int
	// StrictErrors answers 503 when the similarity query fails after the seed was found.
	StrictErrors bool
}

// Server implements ServerInterface.
type Server struct {
	similarity    Similarity
	status        StatusReporter
	health        HealthChecker
	settings      Settings
	logger        *zap.Logger
	errorHandlers []errorHandler
}

var _ ServerInterface = (*Server)(nil)

// NewServer creates an HTTP API server.
func NewServer(
	similarity Similarity,
	status StatusReporter,
	health HealthChecker,
	settings Settings,
	logger *zap.Logger,
) *Server {
	if settings.DefaultPageSize <= 0 {
		settings.DefaultPageSize = request.DefaultSize
	}
	if settings.MaxPageSize <= 0 {
		settings.MaxPageSize = request.MaxSize
	}
	s := &Server{
		similarity: similarity,
		status:     status,
		health:     health,
		settings:   settings,
		logger:     logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrSeedNotFound, http.StatusNotFound, ErrorResponseCodeCompanyNotFound),
		sentinelHandler(domain.ErrInvalidPagination, http.StatusBadRequest, ErrorResponseCodeInvalidPagination),
		sentinelHandler(domain.ErrInvalidCompanyID, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidStrategy, http.StatusBadRequest, ErrorResponseCodeValidationFailed),
		sentinelHandler(domain.ErrIndexUnavailable, http.StatusServiceUnavailable, ErrorResponseCodeIndexUnavailable),
	}
	return s
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, MessageResponse{Message: "API is working!"})
}

// GetStatus handles GET /status. It always answers 200; readiness is in the body.
func (s *Server) GetStatus(w http.ResponseWriter, r *http.Request) {
	report := s.status.Status(r.Context())
	writeJSON(w, http.StatusOK, StatusResponse{
		Ready:     report.Ready,
		Message:   report.Message,
		Index:     report.Index,
		Ingestion: report.Ingestion,
	})
}

// TfIdfSimilarity handles GET /tf_idf_similarity/{companyId}.
func (s *Server) TfIdfSimilarity(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams) {
	s.similar(w, r, strategy.TFIDF, companyID, params)
}

// SemanticSimilarity handles GET /semantic_similarity/{companyId}.
func (s *Server) SemanticSimilarity(w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams) {
	s.similar(w, r, strategy.Semantic, companyID, params)
}

// DenseVectorSimilarity handles GET /dense_vector_similarity/{companyId}.
func (s *Server) DenseVectorSimilarity(
	w http.ResponseWriter, r *http.Request, companyID int64, params SimilarityParams,
) {
	s.similar(w, r, strategy.DenseVector, companyID, params)
}

func (s *Server) similar(
	w http.ResponseWriter, r *http.Request,
	st strategy.Strategy, companyID int64, params SimilarityParams,
) {
	req, err := request.New(
		companyID,
		derefInt(params.Page, request.DefaultPage),
		derefInt(params.Size, s.settings.DefaultPageSize),
		s.settings.MaxPageSize,
	)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	page, err := s.similarity.Similar(r.Context(), st, req)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	if page.Failed() {
		if s.settings.StrictErrors {
			writeError(w, http.StatusServiceUnavailable, ErrorResponseCodeIndexUnavailable,
				domain.ErrIndexUnavailable.Error())
			return
		}
		w.Header().Set(HeaderDegraded, string(page.Failure()))
	}

	w.Header().Set(HeaderStrategy, st.String())
	w.Header().Set(HeaderPage, strconv.Itoa(req.Page()))
	w.Header().Set(HeaderSize, strconv.Itoa(req.Size()))
	writeJSON(w, http.StatusOK, pageToResponse(page))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// ParamErrorHandler answers 400 for parameters that failed to bind.
func ParamErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	var pe *InvalidParamFormatError
	if errors.As(err, &pe) {
		writeError(w, http.StatusBadRequest, ErrorResponseCodeValidationFailed, "invalid parameter: "+pe.ParamName)
		return
	}
	writeError(w, http.StatusBadRequest, ErrorResponseCodeBadRequest, "invalid request")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorResponseCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrSeedNotFound,
		domain.ErrInvalidPagination,
		domain.ErrInvalidCompanyID,
		domain.ErrInvalidStrategy,
		domain.ErrIndexUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorResponseCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContextOr(r.Context(), s.logger)
	log.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorResponseCodeInternalError, "internal error")
}

func derefInt(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}
