package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

// DefaultSystemPrompt instructs the model to answer only from the supplied rules.
const DefaultSystemPrompt = "Eres un asistente experto en el reglamento de fútbol. " +
	"Responde en español usando únicamente los fragmentos del reglamento proporcionados. " +
	"Si los fragmentos no contienen la respuesta, dilo claramente."

// TokenBudget gates completions on a token allowance and counts what they consume.
type TokenBudget interface {
	Check(ctx context.Context) error
	Record(tokens int64)
}

// Answerer generates chat answers using an OpenAI-compatible chat completion API.
type Answerer struct {
	client       *openai.Client
	model        string
	systemPrompt string
	maxHistory   int
	temperature  float32
	budget       TokenBudget
	logger       *zap.Logger
}

// Config holds the chat provider settings.
type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	MaxHistory   int
	Temperature  float32
	Budget       TokenBudget // optional
	Logger       *zap.Logger
}

// NewAnswerer creates an OpenAI-compatible chat provider.
func NewAnswerer(cfg *Config) *Answerer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	prompt := cfg.SystemPrompt
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}

	return &Answerer{
		client:       openai.NewClientWithConfig(clientCfg),
		model:        cfg.Model,
		systemPrompt: prompt,
		maxHistory:   cfg.MaxHistory,
		temperature:  cfg.Temperature,
		budget:       cfg.Budget,
		logger:       cfg.Logger,
	}
}

// Answer generates a reply to the request grounded on the retrieved fragments.
func (a *Answerer) Answer(ctx context.Context, req chat.Request, fragments []fragment.Fragment) (string, error) {
	if a.budget != nil {
		if err := a.budget.Check(ctx); err != nil {
			metrics.LLMRequestsTotal.WithLabelValues(a.model, "budget_exceeded").Inc()
			return "", fmt.Errorf("chat completion: %w", err)
		}
	}

	start := time.Now()

	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       a.model,
		Messages:    a.buildMessages(req, fragments),
		Temperature: a.temperature,
	})

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(a.model, "error").Inc()
		return "", parseAPIError(err)
	}
	if a.budget != nil {
		a.budget.Record(int64(resp.Usage.TotalTokens))
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.LLMRequestsTotal.WithLabelValues(a.model, "error").Inc()
		return "", fmt.Errorf("empty chat completion response: %w", domain.ErrLLMProviderError)
	}

	metrics.LLMRequestsTotal.WithLabelValues(a.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(a.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(a.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(a.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	a.logger.Debug("Chat completion finished",
		zap.String("model", a.model),
		zap.Int("fragments", len(fragments)),
		zap.Int("total_tokens", resp.Usage.TotalTokens),
		zap.Duration("latency", duration),
	)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (a *Answerer) HealthCheck(ctx context.Context) error {
	if _, err := a.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func (a *Answerer) buildMessages(req chat.Request, fragments []fragment.Fragment) []openai.ChatCompletionMessage {
	history := req.RecentHistory(a.maxHistory)

	msgs := make([]openai.ChatCompletionMessage, 0, len(history)+3)
	msgs = append(msgs,
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: a.systemPrompt},
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: contextBlock(fragments)},
	)
	for _, m := range history {
		role := openai.ChatMessageRoleUser
		if m.Role == chat.Assistant {
			role = openai.ChatMessageRoleAssistant
		}
		msgs = append(msgs, openai.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	return append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: req.Query()})
}

// contextBlock renders the fragments as numbered excerpts.
func contextBlock(fragments []fragment.Fragment) string {
	if len(fragments) == 0 {
		return "No se encontraron fragmentos relevantes del reglamento."
	}

	var b strings.Builder
	b.WriteString("Fragmentos del reglamento:\n")
	for i, f := range fragments {
		name := f.DisplayName()
		if name == "" {
			name = f.DocumentRef()
		}
		fmt.Fprintf(&b, "\n[%d] %s\n%s\n", i+1, name, strings.TrimSpace(f.Text()))
	}
	return b.String()
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrLLMProviderError

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("chat completion: %w: %w", wrap, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("chat API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("chat API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("chat API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("chat request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
