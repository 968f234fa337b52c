package chi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/arbitro/internal/domain"
	domlocate "github.com/kailas-cloud/arbitro/internal/domain/locate"
)

// LocatePost handles POST /api/locate.
func (s *Server) LocatePost(w http.ResponseWriter, r *http.Request) {
	var body LocateRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	s.locate(w, r, body.Texto, body.PDFURL)
}

// LocateGet handles GET /api/locate?texto=&pdf_url=.
func (s *Server) LocateGet(w http.ResponseWriter, r *http.Request) {
	var texto, pdfURL string
	q := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, true, "texto", q, &texto); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, true, "pdf_url", q, &pdfURL); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}
	s.locate(w, r, texto, pdfURL)
}

// locate rejects blank input up front: the locator itself treats an empty
// needle as matching every page.
func (s *Server) locate(w http.ResponseWriter, r *http.Request, text, ref string) {
	if strings.TrimSpace(text) == "" {
		s.handleDomainError(w, fmt.Errorf("%w: texto is required", domain.ErrInvalidRequest))
		return
	}
	if strings.TrimSpace(ref) == "" {
		s.handleDomainError(w, fmt.Errorf("%w: pdf_url is required", domain.ErrInvalidRequest))
		return
	}

	res := s.locator.Locate(r.Context(), text, ref)
	writeJSON(w, http.StatusOK, toLocateResponse(res))
}

func toLocateResponse(res domlocate.Result) LocateResponse {
	return LocateResponse{
		Page:         res.Page(),
		Matched:      res.Matched(),
		PagesScanned: res.PagesScanned(),
	}
}
