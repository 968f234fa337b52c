package pagecache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/db"
)

// DefaultKeyPrefix namespaces page text hashes in a shared store.
const DefaultKeyPrefix = "arbitro:pages:"

// store is the consumer interface for the redis-backed cache (ISP).
type store interface {
	db.HashStore
	db.KeyStore
}

// Redis keeps one hash per document: field = page number, value = raw page text.
type Redis struct {
	store  store
	prefix string
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedis creates a redis-backed cache. ttl <= 0 disables expiry.
func NewRedis(s store, prefix string, ttl time.Duration, logger *zap.Logger) *Redis {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Redis{store: s, prefix: prefix, ttl: ttl, logger: logger}
}

// Pages returns the cached pages of a document, or nil when absent.
func (r *Redis) Pages(ctx context.Context, docID string) (map[int]string, error) {
	key := r.key(docID)
	fields, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	if len(fields) == 0 {
		return nil, nil
	}

	pages := make(map[int]string, len(fields))
	for f, text := range fields {
		page, err := strconv.Atoi(f)
		if err != nil || page < 1 {
			r.logger.Warn("Ignoring malformed page cache field", zap.String("key", key), zap.String("field", f))
			continue
		}
		pages[page] = text
	}
	return pages, nil
}

// SavePages adds pages to the document hash and refreshes its TTL.
func (r *Redis) SavePages(ctx context.Context, docID string, pages map[int]string) error {
	if len(pages) == 0 {
		return nil
	}

	fields := make(map[string]string, len(pages))
	for page, text := range pages {
		fields[strconv.Itoa(page)] = text
	}

	key := r.key(docID)
	if err := r.store.HSet(ctx, key, fields); err != nil {
		return fmt.Errorf("save pages: %w", err)
	}
	if r.ttl > 0 {
		if err := r.store.Expire(ctx, key, r.ttl); err != nil {
			return fmt.Errorf("set pages ttl: %w", err)
		}
	}
	return nil
}

// Invalidate deletes every document hash whose identity starts with refPrefix.
func (r *Redis) Invalidate(ctx context.Context, refPrefix string) (int, error) {
	keys, err := r.store.Scan(ctx, r.prefix+escapeGlob(refPrefix)+"*")
	if err != nil {
		return 0, fmt.Errorf("scan pages: %w", err)
	}
	if len(keys) == 0 {
		return 0, nil
	}
	if err := r.store.Del(ctx, keys...); err != nil {
		return 0, fmt.Errorf("delete pages: %w", err)
	}
	return len(keys), nil
}

func (r *Redis) key(docID string) string {
	return r.prefix + docID
}

// escapeGlob quotes the characters SCAN MATCH treats as pattern syntax.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}
