package usage

import (
	"context"
	"testing"
	"time"

	domusage "github.com/kailas-cloud/arbitro/internal/domain/usage"
)

// --- Mock ---

type mockBudgetReader struct {
	dailyLimit, monthlyLimit       int64
	dailyTokens, dailyRequests     int64
	monthlyTokens, monthlyRequests int64
}

func (m *mockBudgetReader) Model() string       { return "gpt-4o-mini" }
func (m *mockBudgetReader) DailyLimit() int64   { return m.dailyLimit }
func (m *mockBudgetReader) MonthlyLimit() int64 { return m.monthlyLimit }
func (m *mockBudgetReader) DailyUsage() (int64, int64) {
	return m.dailyTokens, m.dailyRequests
}

func (m *mockBudgetReader) MonthlyUsage() (int64, int64) {
	return m.monthlyTokens, m.monthlyRequests
}

func fixedService(br BudgetReader, now time.Time) *Service {
	s := New(br)
	s.now = func() time.Time { return now }
	return s
}

// --- Tests ---

func TestGetReport_DailyPeriod(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 30, 0, 0, time.UTC)
	br := &mockBudgetReader{dailyLimit: 10000, dailyTokens: 3000, dailyRequests: 12, monthlyLimit: 100000}
	r := fixedService(br, now).GetReport(context.Background(), domusage.PeriodDay)

	if r.Period() != domusage.PeriodDay {
		t.Errorf("expected period %q, got %q", domusage.PeriodDay, r.Period())
	}
	dayStart := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != dayStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", dayStart.UnixMilli(), r.PeriodStart())
	}
	if r.PeriodEnd() != dayStart.Add(24*time.Hour).UnixMilli() {
		t.Errorf("unexpected period end %d", r.PeriodEnd())
	}
	if r.Budget().Limit() != 10000 || r.Budget().Remaining() != 7000 {
		t.Errorf("budget = %d/%d", r.Budget().Remaining(), r.Budget().Limit())
	}
	if r.Budget().Exhausted() {
		t.Error("budget should not be exhausted")
	}
	if r.Tokens() != 3000 || r.Requests() != 12 {
		t.Errorf("tokens = %d, requests = %d", r.Tokens(), r.Requests())
	}
	if r.Model() != "gpt-4o-mini" {
		t.Errorf("model = %q", r.Model())
	}
}

func TestGetReport_MonthlyPeriod(t *testing.T) {
	now := time.Date(2026, 12, 20, 8, 0, 0, 0, time.UTC)
	br := &mockBudgetReader{monthlyLimit: 100000, monthlyTokens: 80000}
	r := fixedService(br, now).GetReport(context.Background(), domusage.PeriodMonth)

	monthStart := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodStart() != monthStart.UnixMilli() {
		t.Errorf("expected period start %d, got %d", monthStart.UnixMilli(), r.PeriodStart())
	}
	nextYear := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	if r.PeriodEnd() != nextYear.UnixMilli() || r.Budget().ResetsAt() != nextYear.UnixMilli() {
		t.Errorf("period end = %d, resets at = %d", r.PeriodEnd(), r.Budget().ResetsAt())
	}
	if r.Budget().Remaining() != 20000 {
		t.Errorf("remaining = %d", r.Budget().Remaining())
	}
}

func TestGetReport_UnknownPeriodFallsBackToDay(t *testing.T) {
	r := New(&mockBudgetReader{}).GetReport(context.Background(), domusage.Period("total"))
	if r.Period() != domusage.PeriodDay {
		t.Errorf("period = %q, want day", r.Period())
	}
}

func TestGetReport_NilBudgetReader(t *testing.T) {
	r := New(nil).GetReport(context.Background(), domusage.PeriodDay)
	if r.Budget().Limit() != 0 || r.Budget().Remaining() != domusage.Unlimited {
		t.Errorf("budget = %d/%d", r.Budget().Remaining(), r.Budget().Limit())
	}
	if r.Budget().Exhausted() {
		t.Error("nil budget reader should not be exhausted")
	}
}

func TestGetReport_Exhausted(t *testing.T) {
	br := &mockBudgetReader{dailyLimit: 5000, dailyTokens: 5000}
	r := New(br).GetReport(context.Background(), domusage.PeriodDay)
	if !r.Budget().Exhausted() {
		t.Error("budget should be exhausted when remaining is 0")
	}
}
