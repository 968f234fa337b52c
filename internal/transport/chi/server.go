package chi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
	domusage "github.com/kailas-cloud/arbitro/internal/domain/usage"
	healthuc "github.com/kailas-cloud/arbitro/internal/usecase/health"
	"github.com/kailas-cloud/arbitro/internal/usecase/selection"
)

const maxBodyBytes = 1 << 20

// PageLocator finds the page of a document containing a fragment.
type PageLocator interface {
	Locate(ctx context.Context, fragmentText, documentRef string) domlocate.Result
}

// ChatAsker answers chat queries.
type ChatAsker interface {
	Ask(ctx context.Context, req domchat.Request) (domchat.Response, error)
}

// SelectionBoard tracks per-session fragment selections.
type SelectionBoard interface {
	Select(sessionID string, f fragment.Fragment) (selection.Ticket, error)
	Current(sessionID string) (selection.View, error)
}

// HealthChecker aggregates component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// UsageReporter reports chat model token usage.
type UsageReporter interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the arbitro HTTP API.
type Server struct {
	locator       PageLocator
	pages         domain.PageExporter
	chat          ChatAsker
	board         SelectionBoard
	health        HealthChecker
	usage         UsageReporter
	metrics       http.Handler
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server. chat may be nil when the chat endpoint is disabled.
func NewServer(
	locator PageLocator,
	pages domain.PageExporter,
	chat ChatAsker,
	board SelectionBoard,
	health HealthChecker,
	usage UsageReporter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		locator: locator,
		pages:   pages,
		chat:    chat,
		board:   board,
		health:  health,
		usage:   usage,
		metrics: promhttp.Handler(),
		logger:  logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidFragment, http.StatusBadRequest, ErrorCodeInvalidFragment),
		sentinelHandler(domain.ErrPageOutOfRange, http.StatusBadRequest, ErrorCodePageOutOfRange),
		sentinelHandler(domain.ErrRefNotAllowed, http.StatusForbidden, ErrorCodeRefNotAllowed),
		sentinelHandler(domain.ErrSessionNotFound, http.StatusNotFound, ErrorCodeSessionNotFound),
		sentinelHandler(domain.ErrLLMBudgetExceeded, http.StatusTooManyRequests, ErrorCodeLLMBudgetExceeded),
		sentinelHandler(domain.ErrDocumentTooLarge, http.StatusRequestEntityTooLarge, ErrorCodeDocumentTooLarge),
		sentinelHandler(domain.ErrDocumentUnavailable, http.StatusBadGateway, ErrorCodeDocumentUnavailable),
		sentinelHandler(domain.ErrUpstream, http.StatusBadGateway, ErrorCodeUpstreamError),
		sentinelHandler(domain.ErrLLMProviderError, http.StatusBadGateway, ErrorCodeLLMProviderError),
		sentinelHandler(domain.ErrNotImplemented, http.StatusNotImplemented, ErrorCodeNotImplemented),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", s.Chat)
		r.Post("/locate", s.LocatePost)
		r.Get("/locate", s.LocateGet)
		r.Get("/documents/page", s.DocumentPage)
		r.Put("/sessions/{session}/selection", s.PutSelection)
		r.Get("/sessions/{session}/selection", s.GetSelection)
		r.Get("/usage", s.GetUsage)
	})
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
	s.metrics.ServeHTTP(w, r)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	var rangeErr *domain.PageOutOfRangeError
	if errors.As(err, &rangeErr) {
		return rangeErr.Error()
	}

	sentinels := []error{
		domain.ErrInvalidRequest,
		domain.ErrInvalidFragment,
		domain.ErrRefNotAllowed,
		domain.ErrSessionNotFound,
		domain.ErrLLMBudgetExceeded,
		domain.ErrDocumentTooLarge,
		domain.ErrDocumentUnavailable,
		domain.ErrUpstream,
		domain.ErrLLMProviderError,
		domain.ErrNotImplemented,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}
