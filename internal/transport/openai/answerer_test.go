package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterLocateMetrics()
	os.Exit(m.Run())
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func completion(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 30, "completion_tokens": 12, "total_tokens": 42},
	}
}

func newTestAnswerer(url string, maxHistory int) *Answerer {
	return NewAnswerer(&Config{
		APIKey:     "test-key",
		BaseURL:    url,
		Model:      "test-model",
		MaxHistory: maxHistory,
		Logger:     zap.NewNop(),
	})
}

func mustRequest(t *testing.T, query string, history []chat.Message) chat.Request {
	t.Helper()
	req, err := chat.NewRequest(query, history)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	return req
}

func TestAnswerer_Answer(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("  Es fuera de juego.  "))
	}))
	defer server.Close()

	frag, _ := fragment.New("Un jugador está en posición de fuera de juego si...", "reglas.pdf", "Regla 11", 0.9)
	req := mustRequest(t, "¿Qué es el fuera de juego?", []chat.Message{
		{Role: chat.User, Content: "hola"},
		{Role: chat.Assistant, Content: "¿en qué puedo ayudarte?"},
	})

	answer, err := newTestAnswerer(server.URL, 0).Answer(context.Background(), req, []fragment.Fragment{frag})
	if err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if answer != "Es fuera de juego." {
		t.Errorf("answer = %q", answer)
	}

	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	roles := make([]string, len(got.Messages))
	for i, m := range got.Messages {
		roles[i] = m.Role
	}
	want := []string{"system", "system", "user", "assistant", "user"}
	if strings.Join(roles, ",") != strings.Join(want, ",") {
		t.Fatalf("roles = %v, want %v", roles, want)
	}
	if got.Messages[0].Content != DefaultSystemPrompt {
		t.Errorf("unexpected system prompt: %q", got.Messages[0].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "[1] Regla 11") {
		t.Errorf("fragment context missing: %q", got.Messages[1].Content)
	}
	if got.Messages[4].Content != "¿Qué es el fuera de juego?" {
		t.Errorf("last message = %q", got.Messages[4].Content)
	}
}

func TestAnswerer_BoundsHistory(t *testing.T) {
	var got chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("ok"))
	}))
	defer server.Close()

	history := []chat.Message{
		{Role: chat.User, Content: "uno"},
		{Role: chat.Assistant, Content: "dos"},
		{Role: chat.User, Content: "tres"},
	}
	req := mustRequest(t, "cuatro", history)

	if _, err := newTestAnswerer(server.URL, 1).Answer(context.Background(), req, nil); err != nil {
		t.Fatalf("Answer failed: %v", err)
	}
	if len(got.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(got.Messages))
	}
	if got.Messages[2].Content != "tres" {
		t.Errorf("expected only the latest turn, got %q", got.Messages[2].Content)
	}
	if !strings.Contains(got.Messages[1].Content, "No se encontraron") {
		t.Errorf("unexpected empty context: %q", got.Messages[1].Content)
	}
}

func TestAnswerer_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"message": "rate limit exceeded",
				"type":    "rate_limit_error",
			},
		})
	}))
	defer server.Close()

	_, err := newTestAnswerer(server.URL, 0).Answer(context.Background(), mustRequest(t, "hola", nil), nil)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "rate limit exceeded") {
		t.Errorf("expected provider message in error, got %v", err)
	}
}

func TestAnswerer_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "x", "choices": []any{}})
	}))
	defer server.Close()

	_, err := newTestAnswerer(server.URL, 0).Answer(context.Background(), mustRequest(t, "hola", nil), nil)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
}

func TestAnswerer_HealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": []any{}})
	}))
	defer server.Close()

	if err := newTestAnswerer(server.URL, 0).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestParseAPIError_Detail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"model not found"}`))
	}))
	defer server.Close()

	_, err := newTestAnswerer(server.URL, 0).Answer(context.Background(), mustRequest(t, "hola", nil), nil)
	if !errors.Is(err, domain.ErrLLMProviderError) {
		t.Fatalf("expected ErrLLMProviderError, got %v", err)
	}
	if !strings.Contains(err.Error(), "400") {
		t.Errorf("expected status in error, got %v", err)
	}
}

type fakeBudget struct {
	err      error
	recorded []int64
}

func (b *fakeBudget) Check(context.Context) error { return b.err }
func (b *fakeBudget) Record(tokens int64)         { b.recorded = append(b.recorded, tokens) }

func TestAnswerer_RecordsTokenUsage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("Saque de meta."))
	}))
	defer server.Close()

	budget := &fakeBudget{}
	a := newTestAnswerer(server.URL, 0)
	a.budget = budget

	if _, err := a.Answer(context.Background(), mustRequest(t, "hola", nil), nil); err != nil {
		t.Fatalf("Answer: %v", err)
	}
	if len(budget.recorded) != 1 || budget.recorded[0] != 42 {
		t.Errorf("recorded = %v, want [42]", budget.recorded)
	}
}

func TestAnswerer_BudgetExceeded(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(completion("x"))
	}))
	defer server.Close()

	a := newTestAnswerer(server.URL, 0)
	a.budget = &fakeBudget{err: domain.ErrLLMBudgetExceeded}

	_, err := a.Answer(context.Background(), mustRequest(t, "hola", nil), nil)
	if !errors.Is(err, domain.ErrLLMBudgetExceeded) {
		t.Fatalf("expected ErrLLMBudgetExceeded, got %v", err)
	}
	if calls != 0 {
		t.Errorf("provider called %d times, want 0", calls)
	}
}
