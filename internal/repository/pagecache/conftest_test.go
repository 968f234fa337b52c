package pagecache

import (
	"context"
	"strings"
	"time"
)

// mockStore is an in-memory stand-in for the hash and key commands.
type mockStore struct {
	hashes map[string]map[string]string
	ttls   map[string]time.Duration

	hgetErr error
	hsetErr error
	scanErr error

	scanPatterns []string
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: make(map[string]map[string]string),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if m.hsetErr != nil {
		return m.hsetErr
	}
	h, ok := m.hashes[key]
	if !ok {
		h = make(map[string]string)
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	if m.hgetErr != nil {
		return nil, m.hgetErr
	}
	out := make(map[string]string, len(m.hashes[key]))
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
		delete(m.ttls, k)
	}
	return nil
}

// Scan supports the "<escaped literal>*" patterns the cache issues.
func (m *mockStore) Scan(_ context.Context, pattern string) ([]string, error) {
	m.scanPatterns = append(m.scanPatterns, pattern)
	if m.scanErr != nil {
		return nil, m.scanErr
	}
	var keys []string
	for k := range m.hashes {
		if globPrefix(pattern, k) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (m *mockStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	m.ttls[key] = ttl
	return nil
}

func globPrefix(pattern, key string) bool {
	if !strings.HasSuffix(pattern, "*") {
		return false
	}
	lit := unescapeGlob(strings.TrimSuffix(pattern, "*"))
	return strings.HasPrefix(key, lit)
}

func unescapeGlob(s string) string {
	var b strings.Builder
	escaped := false
	for _, c := range s {
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		b.WriteRune(c)
	}
	return b.String()
}
