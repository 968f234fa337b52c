package chi

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/oapi-codegen/runtime"
)

// DocumentPage handles GET /api/documents/page?pdf_url=&page=.
// The page is rendered into memory first so a failure still yields a JSON error.
func (s *Server) DocumentPage(w http.ResponseWriter, r *http.Request) {
	var (
		pdfURL string
		page   int
	)
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "pdf_url", q, &pdfURL); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "page", q, &page); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if err := s.pages.ExportPage(r.Context(), pdfURL, page, &buf); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("Content-Disposition", "inline; filename=\"page-"+strconv.Itoa(page)+".pdf\"")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
