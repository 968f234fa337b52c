package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/arbitro/internal/db"
)

// IncrBy adds delta to an integer key and returns the new value.
func (s *Store) IncrBy(ctx context.Context, key string, delta int64) (int64, error) {
	cmd := s.b().Incrby().Key(key).Increment(delta).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpIncrBy, Err: err}
	}
	return n, nil
}

// GetInt reads an integer key.
func (s *Store) GetInt(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Get().Key(key).Build()
	n, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, db.ErrKeyNotFound
		}
		return 0, &db.Error{Op: db.OpGet, Err: err}
	}
	return n, nil
}
