package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
	domusage "github.com/kailas-cloud/arbitro/internal/domain/usage"
	healthuc "github.com/kailas-cloud/arbitro/internal/usecase/health"
	"github.com/kailas-cloud/arbitro/internal/usecase/selection"
)

// --- Mock locator ---

type mockLocator struct {
	result  domlocate.Result
	gotText string
	gotRef  string
	calls   int
}

func (m *mockLocator) Locate(_ context.Context, text, ref string) domlocate.Result {
	m.calls++
	m.gotText = text
	m.gotRef = ref
	return m.result
}

// --- Mock page exporter ---

type mockExporter struct {
	body    string
	err     error
	gotRef  string
	gotPage int
}

func (m *mockExporter) ExportPage(_ context.Context, ref string, page int, w io.Writer) error {
	m.gotRef = ref
	m.gotPage = page
	if m.err != nil {
		return m.err
	}
	_, err := io.WriteString(w, m.body)
	return err
}

// --- Mock chat ---

type mockChat struct {
	resp   domchat.Response
	err    error
	gotReq domchat.Request
}

func (m *mockChat) Ask(_ context.Context, req domchat.Request) (domchat.Response, error) {
	m.gotReq = req
	return m.resp, m.err
}

// --- Mock selection board ---

type mockBoard struct {
	ticket      selection.Ticket
	view        selection.View
	selectErr   error
	currentErr  error
	gotSession  string
	gotFragment fragment.Fragment
}

func (m *mockBoard) Select(sessionID string, f fragment.Fragment) (selection.Ticket, error) {
	m.gotSession = sessionID
	m.gotFragment = f
	return m.ticket, m.selectErr
}

func (m *mockBoard) Current(sessionID string) (selection.View, error) {
	m.gotSession = sessionID
	return m.view, m.currentErr
}

// --- Mock health ---

type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

// --- Mock usage ---

type mockUsage struct {
	report    domusage.Report
	gotPeriod domusage.Period
}

func (m *mockUsage) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	m.gotPeriod = period
	return m.report
}

// --- Helpers ---

type testDeps struct {
	locator  *mockLocator
	exporter *mockExporter
	chat     *mockChat
	board    *mockBoard
	health   *mockHealth
	usage    *mockUsage
}

func newTestDeps() *testDeps {
	return &testDeps{
		locator:  &mockLocator{result: domlocate.Found(3, 3)},
		exporter: &mockExporter{body: "%PDF-1.7"},
		chat:     &mockChat{},
		board:    &mockBoard{},
		health: &mockHealth{report: healthuc.Report{
			Status: healthuc.Healthy,
			Checks: map[string]healthuc.CheckResult{},
		}},
		usage: &mockUsage{},
	}
}

func (d *testDeps) router(withChat bool) http.Handler {
	var asker ChatAsker
	if withChat {
		asker = d.chat
	}
	srv := NewServer(d.locator, d.exporter, asker, d.board, d.health, d.usage, zap.NewNop())
	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}
