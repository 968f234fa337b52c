package chat

import (
	"errors"
	"testing"

	"github.com/kailas-cloud/arbitro/internal/domain"
)

func TestNewRequest_Valid(t *testing.T) {
	history := []Message{
		{Role: User, Content: "¿Qué es fuera de juego?"},
		{Role: Assistant, Content: "Regla 11."},
	}
	req, err := NewRequest("  ¿Y un saque de banda?  ", history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Query() != "¿Y un saque de banda?" {
		t.Errorf("Query() = %q", req.Query())
	}
	if len(req.History()) != 2 {
		t.Errorf("History() len = %d", len(req.History()))
	}

	history[0].Content = "mutated"
	if req.History()[0].Content == "mutated" {
		t.Error("NewRequest must copy history")
	}
}

func TestNewRequest_Invalid(t *testing.T) {
	if _, err := NewRequest("   ", nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("blank query: expected ErrInvalidRequest, got %v", err)
	}
	if _, err := NewRequest("q", []Message{{Role: "system", Content: "x"}}); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Errorf("unknown role: expected ErrInvalidRequest, got %v", err)
	}
}

func TestRecentHistory(t *testing.T) {
	history := []Message{
		{Role: User, Content: "1"},
		{Role: Assistant, Content: "2"},
		{Role: User, Content: "3"},
	}
	req, _ := NewRequest("q", history)

	if got := req.RecentHistory(2); len(got) != 2 || got[0].Content != "2" {
		t.Errorf("RecentHistory(2) = %v", got)
	}
	if got := req.RecentHistory(0); len(got) != 3 {
		t.Errorf("RecentHistory(0) len = %d", len(got))
	}
	if got := req.RecentHistory(10); len(got) != 3 {
		t.Errorf("RecentHistory(10) len = %d", len(got))
	}
}
