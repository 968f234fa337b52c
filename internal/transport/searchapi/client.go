package searchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
)

const maxErrorBody = 512

// Client retrieves rule fragments from the search backend.
type Client struct {
	url    string
	topK   int
	http   *http.Client
	logger *zap.Logger
}

// Config holds the search backend settings.
type Config struct {
	URL     string
	TopK    int
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a search backend client.
func New(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		url:    cfg.URL,
		topK:   cfg.TopK,
		http:   &http.Client{Timeout: timeout},
		logger: logger,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k,omitempty"`
}

type searchResponse struct {
	Fragments []fragmentDTO `json:"fragments"`
}

type fragmentDTO struct {
	Texto  string  `json:"texto"`
	PDFURL string  `json:"pdf_url"`
	Nombre string  `json:"nombre"`
	Score  float64 `json:"score"`
}

// Retrieve returns the fragments most relevant to the query.
// Malformed fragments are skipped and logged.
func (c *Client) Retrieve(ctx context.Context, query string) ([]fragment.Fragment, error) {
	body, err := json.Marshal(searchRequest{Query: query, TopK: c.topK})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("search request: %w: %w", domain.ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("search backend returned %d: %s: %w",
			resp.StatusCode, bytes.TrimSpace(msg), domain.ErrUpstream)
	}

	var out searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w: %w", domain.ErrUpstream, err)
	}

	fragments := make([]fragment.Fragment, 0, len(out.Fragments))
	for i, dto := range out.Fragments {
		f, err := fragment.New(dto.Texto, dto.PDFURL, dto.Nombre, dto.Score)
		if err != nil {
			c.logger.Warn("Skipping malformed search fragment", zap.Int("index", i), zap.Error(err))
			continue
		}
		fragments = append(fragments, f)
	}
	return fragments, nil
}
