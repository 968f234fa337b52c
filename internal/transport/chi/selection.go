package chi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
	"github.com/kailas-cloud/arbitro/internal/usecase/selection"
)

func sessionParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	var session string
	err := runtime.BindStyledParameterWithOptions("simple", "session", chi.URLParam(r, "session"), &session,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid format for parameter session: "+err.Error())
		return "", false
	}
	return session, true
}

// PutSelection handles PUT /api/sessions/{session}/selection.
func (s *Server) PutSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionParam(w, r)
	if !ok {
		return
	}

	var body Fragment
	if !decodeJSON(w, r, &body) {
		return
	}
	f, err := fragment.New(body.Texto, body.PDFURL, body.Nombre, body.Score)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	ticket, err := s.board.Select(session, f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, SelectionTicket{
		SelectionID: ticket.SelectionID,
		Generation:  ticket.Generation,
	})
}

// GetSelection handles GET /api/sessions/{session}/selection.
func (s *Server) GetSelection(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionParam(w, r)
	if !ok {
		return
	}

	view, err := s.board.Current(session)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSelectionView(view))
}

func toSelectionView(v selection.View) SelectionView {
	out := SelectionView{
		SelectionID: v.SelectionID,
		Generation:  v.Generation,
		Status:      string(v.Status),
		Matched:     v.Matched,
		PDFURL:      v.DocumentRef,
		Nombre:      v.DisplayName,
	}
	if v.Status == selection.Ready {
		page := v.Page
		out.Page = &page
	}
	return out
}
