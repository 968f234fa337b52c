package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kailas-cloud/arbitro/internal/db"
)

// store is the consumer interface for budget counters.
type store interface {
	db.CounterStore
	Expire(ctx context.Context, key string, ttl time.Duration) error
}

// Store persists token budget counters with INCRBY and expires each window's key.
type Store struct {
	store    store
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store.
// Daily keys should outlive a day (48h) and monthly keys a month (62 days).
func New(s store, dailyTTL, monthTTL time.Duration) *Store {
	return &Store{store: s, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds val to a counter. The TTL is set when the key is created.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	n, err := s.store.IncrBy(ctx, key, val)
	if err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}
	if n != val {
		return nil
	}
	if err := s.store.Expire(ctx, key, s.ttlForKey(key)); err != nil {
		return fmt.Errorf("budget EXPIRE %s: %w", key, err)
	}
	return nil
}

// Get returns a counter value, 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	val, err := s.store.GetInt(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}
	return val, nil
}

func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
