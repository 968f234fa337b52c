package metrics

import "github.com/prometheus/client_golang/prometheus"

// Locator, document and chat Prometheus metrics.
var (
	LocateTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "locate_total",
			Help:      "Total number of fragment locate calls",
		},
		[]string{"mode", "outcome"},
	)

	LocateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arbitro",
			Name:      "locate_duration_seconds",
			Help:      "Fragment locate duration in seconds",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"mode"},
	)

	LocatePagesScanned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "arbitro",
			Name:      "locate_pages_scanned",
			Help:      "Number of pages examined per locate call",
			Buckets:   []float64{1, 2, 5, 10, 25, 50, 100, 250, 500},
		},
	)

	PageDecodeErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "page_decode_errors_total",
			Help:      "Total page text decode failures",
		},
	)

	PageCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "page_cache_total",
			Help:      "Page text cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DocumentFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "document_fetch_total",
			Help:      "Total document retrievals",
		},
		[]string{"source", "status"}, // source: "http" / "file"
	)

	SelectionResultsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "selection_results_total",
			Help:      "Background selection locates by fate",
		},
		[]string{"result"}, // "applied" / "dropped"
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "llm_requests_total",
			Help:      "Total number of chat completion requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arbitro",
			Name:      "llm_request_duration_seconds",
			Help:      "Chat completion request duration in seconds",
			Buckets:   []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40},
		},
		[]string{"model"},
	)

	LLMTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arbitro",
			Name:      "llm_tokens_total",
			Help:      "Total chat completion tokens consumed",
		},
		[]string{"model", "type"},
	)
)

// LLMBudgetExceededTotal counts requests that hit a spent token budget.
var LLMBudgetExceededTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "arbitro",
		Name:      "llm_budget_exceeded_total",
		Help:      "Chat requests made while the token budget was exceeded",
	},
	[]string{"model", "action"}, // action: "warn" / "reject"
)

var locateMetricsRegistered bool

// RegisterLocateMetrics registers locator, document and chat metrics. Must be called once from main.
func RegisterLocateMetrics() {
	if locateMetricsRegistered {
		return
	}
	prometheus.MustRegister(LocateTotal)
	prometheus.MustRegister(LocateDuration)
	prometheus.MustRegister(LocatePagesScanned)
	prometheus.MustRegister(PageDecodeErrorsTotal)
	prometheus.MustRegister(PageCacheTotal)
	prometheus.MustRegister(DocumentFetchTotal)
	prometheus.MustRegister(SelectionResultsTotal)
	prometheus.MustRegister(LLMRequestsTotal)
	prometheus.MustRegister(LLMRequestDuration)
	prometheus.MustRegister(LLMTokensTotal)
	prometheus.MustRegister(LLMBudgetExceededTotal)
	locateMetricsRegistered = true
}
