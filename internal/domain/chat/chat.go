package chat

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
)

// Role is the author of a conversation turn.
type Role string

// Role constants.
const (
	User      Role = "user"
	Assistant Role = "assistant"
)

// IsValid checks if the role is one of the supported values.
func (r Role) IsValid() bool {
	return r == User || r == Assistant
}

// Message is a single conversation turn supplied by the client.
type Message struct {
	Role    Role
	Content string
}

// Request is a chat query with the prior conversation.
type Request struct {
	query   string
	history []Message
}

// NewRequest validates and creates a Request.
func NewRequest(query string, history []Message) (Request, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return Request{}, fmt.Errorf("%w: query is required", domain.ErrInvalidRequest)
	}
	for i, m := range history {
		if !m.Role.IsValid() {
			return Request{}, fmt.Errorf("%w: history[%d]: unknown role %q", domain.ErrInvalidRequest, i, m.Role)
		}
	}
	h := make([]Message, len(history))
	copy(h, history)
	return Request{query: query, history: h}, nil
}

// Query returns the trimmed user query.
func (r *Request) Query() string { return r.query }

// History returns the prior conversation turns, oldest first.
func (r *Request) History() []Message { return r.history }

// RecentHistory returns at most n of the latest turns. n <= 0 returns all of them.
func (r *Request) RecentHistory(n int) []Message {
	if n <= 0 || len(r.history) <= n {
		return r.history
	}
	return r.history[len(r.history)-n:]
}

// Response is the answer with its supporting fragments.
type Response struct {
	Answer    string
	Fragments []fragment.Fragment
}
