package pdf

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/kailas-cloud/arbitro/internal/domain"
	"github.com/kailas-cloud/arbitro/internal/metrics"
)

// LocalKeyPrefix prefixes the identity of documents read from the local documents root.
const LocalKeyPrefix = "file:"

var (
	_ domain.DocumentOpener = (*Source)(nil)
	_ domain.PageExporter   = (*Source)(nil)
)

var disableConfigDir sync.Once

// Config holds document retrieval settings.
type Config struct {
	RootDir       string   // local documents root; empty disables local references
	AllowedHosts  []string // empty allows any host
	FetchTimeout  time.Duration
	MaxBytes      int64
	RetryAttempts uint
	RetryDelay    time.Duration
	TempDir       string // spool directory for text extraction; empty uses os.TempDir
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Source opens PDF documents from http(s) URLs or from the local documents root.
type Source struct {
	cfg    Config
	client *http.Client
	logger *zap.Logger
}

// NewSource creates a document source.
func NewSource(cfg Config) *Source {
	disableConfigDir.Do(api.DisableConfigDir)

	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 64 << 20
	}
	if cfg.RetryAttempts == 0 {
		cfg.RetryAttempts = 1
	}
	if cfg.RootDir != "" {
		if abs, err := filepath.Abs(cfg.RootDir); err == nil {
			cfg.RootDir = abs
		}
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{cfg: cfg, client: client, logger: logger}
}

// LocalKey returns the identity prefix shared by every version of a local file.
func LocalKey(absPath string) string {
	return LocalKeyPrefix + filepath.Clean(absPath)
}

// Open retrieves and parses the referenced PDF. The returned Document should be closed.
func (s *Source) Open(ctx context.Context, ref string) (domain.Document, error) {
	data, key, err := s.load(ctx, ref)
	if err != nil {
		return nil, err
	}

	pctx, err := parse(data)
	if err != nil {
		return nil, err
	}

	return &Document{
		id:        key + "#" + fingerprint(data),
		ref:       ref,
		pageCount: pctx.PageCount,
		tempDir:   s.cfg.TempDir,
		data:      data,
	}, nil
}

// ExportPage writes the given page of the referenced PDF as a standalone single-page PDF.
func (s *Source) ExportPage(ctx context.Context, ref string, page int, w io.Writer) error {
	data, _, err := s.load(ctx, ref)
	if err != nil {
		return err
	}

	pctx, err := parse(data)
	if err != nil {
		return err
	}
	if page < 1 || page > pctx.PageCount {
		return domain.NewPageOutOfRange(page, pctx.PageCount)
	}

	var buf bytes.Buffer
	if err := api.Trim(bytes.NewReader(data), &buf, []string{strconv.Itoa(page)}, newConfiguration()); err != nil {
		return fmt.Errorf("%w: trim to page %d: %w", domain.ErrDocumentUnavailable, page, err)
	}
	if _, err := buf.WriteTo(w); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	return nil
}

// load returns the document bytes and its reference key.
func (s *Source) load(ctx context.Context, ref string) ([]byte, string, error) {
	u, err := url.Parse(ref)
	if err == nil {
		switch u.Scheme {
		case "http", "https":
			return s.fetch(ctx, u)
		case "file":
			return s.readFile(u.Path)
		}
	}
	return s.readFile(ref)
}

func (s *Source) fetch(ctx context.Context, u *url.URL) ([]byte, string, error) {
	if len(s.cfg.AllowedHosts) > 0 && !slices.Contains(s.cfg.AllowedHosts, u.Hostname()) {
		return nil, "", fmt.Errorf("%w: host %q", domain.ErrRefNotAllowed, u.Hostname())
	}

	var data []byte
	err := retry.Do(
		func() error {
			b, err := s.get(ctx, u.String())
			if err != nil {
				return err
			}
			data = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(s.cfg.RetryAttempts),
		retry.Delay(s.cfg.RetryDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			s.logger.Debug("Retrying document fetch",
				zap.String("url", u.Redacted()), zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		metrics.DocumentFetchTotal.WithLabelValues("http", "error").Inc()
		if errors.Is(err, domain.ErrDocumentTooLarge) || errors.Is(err, domain.ErrDocumentUnavailable) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("%w: %w", domain.ErrDocumentUnavailable, err)
	}

	metrics.DocumentFetchTotal.WithLabelValues("http", "ok").Inc()
	return data, u.String(), nil
}

func (s *Source) get(ctx context.Context, rawURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("%w: %w", domain.ErrDocumentUnavailable, err))
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("%w: status %d", domain.ErrDocumentUnavailable, resp.StatusCode)
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return nil, err
		}
		return nil, retry.Unrecoverable(err)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.cfg.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read document body: %w", err)
	}
	if int64(len(data)) > s.cfg.MaxBytes {
		return nil, retry.Unrecoverable(
			fmt.Errorf("%w: more than %d bytes", domain.ErrDocumentTooLarge, s.cfg.MaxBytes))
	}
	return data, nil
}

func (s *Source) readFile(ref string) ([]byte, string, error) {
	path, err := s.resolveLocal(ref)
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		metrics.DocumentFetchTotal.WithLabelValues("file", "error").Inc()
		return nil, "", fmt.Errorf("%w: %w", domain.ErrDocumentUnavailable, err)
	}
	if info.Size() > s.cfg.MaxBytes {
		metrics.DocumentFetchTotal.WithLabelValues("file", "error").Inc()
		return nil, "", fmt.Errorf("%w: %d bytes", domain.ErrDocumentTooLarge, info.Size())
	}

	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		metrics.DocumentFetchTotal.WithLabelValues("file", "error").Inc()
		return nil, "", fmt.Errorf("%w: %w", domain.ErrDocumentUnavailable, err)
	}

	metrics.DocumentFetchTotal.WithLabelValues("file", "ok").Inc()
	return data, LocalKey(path), nil
}

// resolveLocal maps a reference onto an absolute path inside the documents root.
func (s *Source) resolveLocal(ref string) (string, error) {
	if s.cfg.RootDir == "" {
		return "", fmt.Errorf("%w: local documents are disabled", domain.ErrRefNotAllowed)
	}

	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.RootDir, path)
	}
	path = filepath.Clean(path)

	rel, err := filepath.Rel(s.cfg.RootDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q is outside the documents root", domain.ErrRefNotAllowed, ref)
	}
	return path, nil
}

func parse(data []byte) (*model.Context, error) {
	pctx, err := api.ReadContext(bytes.NewReader(data), newConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %w", domain.ErrDocumentUnavailable, err)
	}
	if err := api.ValidateContext(pctx); err != nil {
		return nil, fmt.Errorf("%w: validate pdf: %w", domain.ErrDocumentUnavailable, err)
	}
	return pctx, nil
}

func newConfiguration() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

func fingerprint(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:8])
}
