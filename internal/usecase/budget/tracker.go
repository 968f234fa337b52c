package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

// KeyPrefix namespaces persisted budget counters.
const KeyPrefix = "arbitro:budget:"

// Action defines behavior when the token budget is exceeded.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request.
	ActionReject Action = "reject"
)

// IsValid checks if the action is supported.
func (a Action) IsValid() bool {
	return a == ActionWarn || a == ActionReject
}

// Tracker enforces daily and monthly token limits for one chat model.
// Check reads in-memory counters only; Record updates memory first and then
// writes through to the store, if one is attached.
type Tracker struct {
	mu             sync.Mutex
	dailyUsed      int64
	monthlyUsed    int64
	dailyRequests  int64
	monthRequests  int64
	dailyLimit     int64
	monthlyLimit   int64
	action         Action
	model          string
	lastDayReset   time.Time
	lastMonthReset time.Time
	now            func() time.Time
	store          Store
	logger         *zap.Logger
}

// NewTracker creates a tracker. A zero limit disables that window.
func NewTracker(model string, dailyLimit, monthlyLimit int64, action Action, logger *zap.Logger) *Tracker {
	t := &Tracker{
		dailyLimit:   dailyLimit,
		monthlyLimit: monthlyLimit,
		action:       action,
		model:        model,
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
	now := t.now()
	t.lastDayReset = truncateToDay(now)
	t.lastMonthReset = truncateToMonth(now)
	return t
}

// WithStore attaches a persistence store and loads the current counters.
func (t *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	t.store = store
	t.load(ctx)
	return t
}

func (t *Tracker) load(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	if val, err := t.store.Get(ctx, t.dailyKey(now)); err == nil {
		t.dailyUsed = val
	} else {
		t.logger.Warn("Failed to load daily token budget", zap.Error(err))
	}
	if val, err := t.store.Get(ctx, t.monthlyKey(now)); err == nil {
		t.monthlyUsed = val
	} else {
		t.logger.Warn("Failed to load monthly token budget", zap.Error(err))
	}

	t.logger.Info("Token budget loaded",
		zap.String("model", t.model),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
}

func (t *Tracker) dailyKey(now time.Time) string {
	return fmt.Sprintf("%s%s:daily:%s", KeyPrefix, t.model, now.Format("2006-01-02"))
}

func (t *Tracker) monthlyKey(now time.Time) string {
	return fmt.Sprintf("%s%s:monthly:%s", KeyPrefix, t.model, now.Format("2006-01"))
}

// Check returns ErrLLMBudgetExceeded when a window is spent and the action is reject.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetIfNeeded()

	dailyExceeded := t.dailyLimit > 0 && t.dailyUsed >= t.dailyLimit
	monthlyExceeded := t.monthlyLimit > 0 && t.monthlyUsed >= t.monthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	metrics.LLMBudgetExceededTotal.WithLabelValues(t.model, string(t.action)).Inc()
	if t.action == ActionReject {
		return domain.ErrLLMBudgetExceeded
	}

	t.logger.Warn("Token budget exceeded",
		zap.String("model", t.model),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.dailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.monthlyLimit),
	)
	return nil
}

// Record registers the tokens consumed by one completion.
func (t *Tracker) Record(tokens int64) {
	t.mu.Lock()
	t.resetIfNeeded()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	t.dailyRequests++
	t.monthRequests++
	store := t.store
	now := t.now()
	dailyKey, monthlyKey := t.dailyKey(now), t.monthlyKey(now)
	t.mu.Unlock()

	if store == nil || tokens == 0 {
		return
	}

	// Detached from the request context.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		t.logger.Warn("Failed to persist daily token budget", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		t.logger.Warn("Failed to persist monthly token budget", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// Model returns the chat model the budget applies to.
func (t *Tracker) Model() string { return t.model }

// DailyLimit returns the daily token cap.
func (t *Tracker) DailyLimit() int64 { return t.dailyLimit }

// MonthlyLimit returns the monthly token cap.
func (t *Tracker) MonthlyLimit() int64 { return t.monthlyLimit }

// DailyUsage returns tokens and requests counted today.
func (t *Tracker) DailyUsage() (tokens, requests int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.dailyUsed, t.dailyRequests
}

// MonthlyUsage returns tokens and requests counted this month.
func (t *Tracker) MonthlyUsage() (tokens, requests int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.resetIfNeeded()
	return t.monthlyUsed, t.monthRequests
}

// resetIfNeeded zeroes counters when the day or month rolls over.
func (t *Tracker) resetIfNeeded() {
	now := t.now()
	today := truncateToDay(now)
	thisMonth := truncateToMonth(now)

	if today.After(t.lastDayReset) {
		t.dailyUsed = 0
		t.dailyRequests = 0
		t.lastDayReset = today
	}
	if thisMonth.After(t.lastMonthReset) {
		t.monthlyUsed = 0
		t.monthRequests = 0
		t.lastMonthReset = thisMonth
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
