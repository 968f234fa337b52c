package usage

// Period is the budget accounting window.
type Period string

// Period constants. Windows are calendar days and months in UTC.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// IsValid checks if the period is supported.
func (p Period) IsValid() bool {
	return p == PeriodDay || p == PeriodMonth
}

// Unlimited is reported as the remaining allowance of a budget without a limit.
const Unlimited int64 = -1

// Budget is a snapshot of a token allowance.
type Budget struct {
	limit     int64
	remaining int64
	resetsAt  int64 // unix millis
}

// NewBudget derives the remaining allowance from a limit and the tokens used.
// A zero limit means unlimited.
func NewBudget(limit, used, resetsAt int64) Budget {
	remaining := Unlimited
	if limit > 0 {
		remaining = max(limit-used, 0)
	}
	return Budget{limit: limit, remaining: remaining, resetsAt: resetsAt}
}

// Limit returns the token cap, 0 when unlimited.
func (b Budget) Limit() int64 { return b.limit }

// Remaining returns the tokens left, or Unlimited.
func (b Budget) Remaining() int64 { return b.remaining }

// Exhausted reports whether a limited budget is spent.
func (b Budget) Exhausted() bool { return b.limit > 0 && b.remaining == 0 }

// ResetsAt returns when the window rolls over (unix millis).
func (b Budget) ResetsAt() int64 { return b.resetsAt }

// Report is chat model usage over one accounting window.
type Report struct {
	period      Period
	periodStart int64
	periodEnd   int64
	model       string
	requests    int64
	tokens      int64
	budget      Budget
}

// NewReport creates a usage report.
func NewReport(period Period, start, end int64, model string, requests, tokens int64, b Budget) Report {
	return Report{
		period:      period,
		periodStart: start,
		periodEnd:   end,
		model:       model,
		requests:    requests,
		tokens:      tokens,
		budget:      b,
	}
}

// Period returns the accounting window.
func (r *Report) Period() Period { return r.period }

// PeriodStart returns the window start (unix millis).
func (r *Report) PeriodStart() int64 { return r.periodStart }

// PeriodEnd returns the window end (unix millis).
func (r *Report) PeriodEnd() int64 { return r.periodEnd }

// Model returns the chat model the usage was recorded for.
func (r *Report) Model() string { return r.model }

// Requests returns the completion requests made in the window since startup.
func (r *Report) Requests() int64 { return r.requests }

// Tokens returns the tokens consumed in the window.
func (r *Report) Tokens() int64 { return r.tokens }

// Budget returns the allowance snapshot.
func (r *Report) Budget() Budget { return r.budget }
