package locate

// FallbackPage is returned when no page matches or the document cannot be read.
const FallbackPage = 1

// Outcome classifies how a locate call ended.
type Outcome string

// Outcome constants.
const (
	Matched       Outcome = "matched"
	NoMatch       Outcome = "no_match"
	EmptyDocument Outcome = "empty_document"
	LoadError     Outcome = "load_error"
	// Canceled means the scan stopped early because its context ended.
	Canceled Outcome = "canceled"
)

// Result is the outcome of a locate call. It always carries a valid page.
type Result struct {
	page         int
	outcome      Outcome
	pagesScanned int
}

// Found creates a result for a matching page.
func Found(page, pagesScanned int) Result {
	return Result{page: page, outcome: Matched, pagesScanned: pagesScanned}
}

// Fallback creates a result pointing at FallbackPage.
func Fallback(outcome Outcome, pagesScanned int) Result {
	return Result{page: FallbackPage, outcome: outcome, pagesScanned: pagesScanned}
}

// Page returns the 1-based page number.
func (r Result) Page() int { return r.page }

// Outcome returns how the search ended.
func (r Result) Outcome() Outcome { return r.outcome }

// Matched reports whether a page actually contained the needle.
func (r Result) Matched() bool { return r.outcome == Matched }

// PagesScanned returns the number of pages whose text was examined.
func (r Result) PagesScanned() int { return r.pagesScanned }
