package chi

import "time"

// ErrorCode is a machine-readable error identifier.
type ErrorCode string

// Error codes returned in ErrorResponse.
const (
	ErrorCodeBadRequest          ErrorCode = "bad_request"
	ErrorCodeUnauthorized        ErrorCode = "unauthorized"
	ErrorCodeValidationFailed    ErrorCode = "validation_failed"
	ErrorCodeInvalidFragment     ErrorCode = "invalid_fragment"
	ErrorCodeDocumentUnavailable ErrorCode = "document_unavailable"
	ErrorCodeDocumentTooLarge    ErrorCode = "document_too_large"
	ErrorCodeRefNotAllowed       ErrorCode = "ref_not_allowed"
	ErrorCodePageOutOfRange      ErrorCode = "page_out_of_range"
	ErrorCodeSessionNotFound     ErrorCode = "session_not_found"
	ErrorCodeUpstreamError       ErrorCode = "upstream_error"
	ErrorCodeLLMProviderError    ErrorCode = "llm_provider_error"
	ErrorCodeNotImplemented      ErrorCode = "not_implemented"
	ErrorCodeLLMBudgetExceeded   ErrorCode = "llm_budget_exceeded"
	ErrorCodeInternalError       ErrorCode = "internal_error"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// Fragment is a rule snippet as exchanged with the UI.
type Fragment struct {
	Texto  string  `json:"texto"`
	PDFURL string  `json:"pdf_url"`
	Nombre string  `json:"nombre"`
	Score  float64 `json:"score"`
	Pagina *int    `json:"pagina,omitempty"`
}

// ChatMessage is one turn of the client-held transcript.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Query   string        `json:"query"`
	History []ChatMessage `json:"history"`
}

// ChatResponse is the answer with its supporting fragments.
type ChatResponse struct {
	Answer    string     `json:"answer"`
	Fragments []Fragment `json:"fragments"`
}

// LocateRequest is the body of POST /api/locate.
type LocateRequest struct {
	Texto  string `json:"texto"`
	PDFURL string `json:"pdf_url"`
}

// LocateResponse is the located page.
type LocateResponse struct {
	Page         int  `json:"page"`
	Matched      bool `json:"matched"`
	PagesScanned int  `json:"pages_scanned"`
}

// SelectionTicket acknowledges an accepted selection.
type SelectionTicket struct {
	SelectionID string `json:"selection_id"`
	Generation  uint64 `json:"generation"`
}

// SelectionView is the applied selection of a session.
type SelectionView struct {
	SelectionID string `json:"selection_id"`
	Generation  uint64 `json:"generation"`
	Status      string `json:"status"`
	Page        *int   `json:"page,omitempty"`
	Matched     bool   `json:"matched"`
	PDFURL      string `json:"pdf_url"`
	Nombre      string `json:"nombre,omitempty"`
}

// HealthResponse reports component health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// UsageMetrics is chat model consumption within a window.
type UsageMetrics struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
}

// BudgetStatus is the token allowance within a window.
type BudgetStatus struct {
	TokensLimit     int64      `json:"tokens_limit"`
	TokensRemaining int64      `json:"tokens_remaining"`
	IsExhausted     bool       `json:"is_exhausted"`
	ResetsAt        *time.Time `json:"resets_at,omitempty"`
}

// UsageResponse is returned by GET /api/usage.
type UsageResponse struct {
	Period        string       `json:"period"`
	Model         string       `json:"model,omitempty"`
	PeriodStartAt time.Time    `json:"period_start_at"`
	PeriodEndAt   time.Time    `json:"period_end_at"`
	Usage         UsageMetrics `json:"usage"`
	Budget        BudgetStatus `json:"budget"`
}
