package budget

import "context"

// Store persists budget counters so limits survive restarts and are shared by replicas.
type Store interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}
