package chi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/arbitro/internal/domain"
	domusage "github.com/kailas-cloud/arbitro/internal/domain/usage"
)

// GetUsage handles GET /api/usage?period=day|month.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	if s.usage == nil {
		s.handleDomainError(w, fmt.Errorf("usage: %w", domain.ErrNotImplemented))
		return
	}

	var raw string
	if err := runtime.BindQueryParameter("form", true, false, "period", r.URL.Query(), &raw); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	period := domusage.PeriodDay
	if raw != "" {
		period = domusage.Period(raw)
		if !period.IsValid() {
			s.handleDomainError(w, fmt.Errorf("%w: period must be day or month", domain.ErrInvalidRequest))
			return
		}
	}

	report := s.usage.GetReport(r.Context(), period)
	writeJSON(w, http.StatusOK, toUsageResponse(report))
}

func toUsageResponse(report domusage.Report) UsageResponse {
	b := report.Budget()
	resp := UsageResponse{
		Period:        string(report.Period()),
		Model:         report.Model(),
		PeriodStartAt: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEndAt:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Usage: UsageMetrics{
			Requests: report.Requests(),
			Tokens:   report.Tokens(),
		},
		Budget: BudgetStatus{
			TokensLimit:     b.Limit(),
			TokensRemaining: b.Remaining(),
			IsExhausted:     b.Exhausted(),
		},
	}
	if b.ResetsAt() > 0 {
		resetsAt := time.UnixMilli(b.ResetsAt()).UTC()
		resp.Budget.ResetsAt = &resetsAt
	}
	return resp
}
