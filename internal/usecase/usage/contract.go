package usage

// BudgetReader provides read-only access to token budget state.
type BudgetReader interface {
	Model() string
	DailyLimit() int64
	MonthlyLimit() int64
	DailyUsage() (tokens, requests int64)
	MonthlyUsage() (tokens, requests int64)
}
