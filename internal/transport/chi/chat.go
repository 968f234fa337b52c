package chi

import (
	"net/http"

	"github.com/kailas-cloud/arbitro/internal/domain"
	domchat "github.com/kailas-cloud/arbitro/internal/domain/chat"
	"github.com/kailas-cloud/arbitro/internal/domain/fragment"
)

// Chat handles POST /api/chat.
func (s *Server) Chat(w http.ResponseWriter, r *http.Request) {
	if s.chat == nil {
		s.handleDomainError(w, domain.ErrNotImplemented)
		return
	}

	var body ChatRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	history := make([]domchat.Message, 0, len(body.History))
	for _, m := range body.History {
		history = append(history, domchat.Message{Role: domchat.Role(m.Role), Content: m.Content})
	}
	req, err := domchat.NewRequest(body.Query, history)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	resp, err := s.chat.Ask(r.Context(), req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	fragments := make([]Fragment, 0, len(resp.Fragments))
	for i := range resp.Fragments {
		fragments = append(fragments, toFragment(&resp.Fragments[i]))
	}
	writeJSON(w, http.StatusOK, ChatResponse{Answer: resp.Answer, Fragments: fragments})
}

func toFragment(f *fragment.Fragment) Fragment {
	out := Fragment{
		Texto:  f.Text(),
		PDFURL: f.DocumentRef(),
		Nombre: f.DisplayName(),
		Score:  f.Score(),
	}
	if p := f.Page(); p > 0 {
		out.Pagina = &p
	}
	return out
}
