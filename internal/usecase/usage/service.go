package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/arbitro/internal/domain/usage"
)

// Service handles chat model usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when chat is disabled or unbudgeted.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// GetReport builds a usage report for the current window of the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()

	var start, end time.Time
	var limit, tokens, requests int64
	var model string

	if period == domusage.PeriodMonth {
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			tokens, requests = s.br.MonthlyUsage()
		}
	} else {
		period = domusage.PeriodDay
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 0, 1)
		if s.br != nil {
			limit = s.br.DailyLimit()
			tokens, requests = s.br.DailyUsage()
		}
	}
	if s.br != nil {
		model = s.br.Model()
	}

	b := domusage.NewBudget(limit, tokens, end.UnixMilli())
	return domusage.NewReport(period, start.UnixMilli(), end.UnixMilli(), model, requests, tokens, b)
}
