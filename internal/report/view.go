package report

import (
	"github.com/dharsanguruparan/AgentDesk/internal/autosave"
	"github.com/dharsanguruparan/AgentDesk/internal/form"
	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

// ClientView is one client row as the form shows it.
type ClientView struct {
	model.Client
	Expanded bool                `json:"expanded"`
	Errors   []string            `json:"errors,omitempty"`
	Progress form.RecordProgress `json:"progress"`
}

// View is everything needed to draw the form.
type View struct {
	Identity   string             `json:"identity"`
	Header     model.ReportHeader `json:"header"`
	Clients    []ClientView       `json:"clients"`
	Completion int                `json:"completion"`
	Autosave   autosave.Status    `json:"autosave"`
}

// View returns a consistent copy of the form state.
func (s *Store) View() View {
	status := s.autosave.Status()

	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		Identity:   s.deps.Identity,
		Header:     s.header,
		Clients:    make([]ClientView, 0, len(s.clients)),
		Completion: form.Completion(s.header, s.clients, ClientSchema),
		Autosave:   status,
	}
	for _, c := range s.clients {
		v.Clients = append(v.Clients, ClientView{
			Client:   c,
			Expanded: s.expanded[c.ID],
			Errors:   append([]string(nil), s.errors[c.ID]...),
			Progress: form.RecordCompletion(c, ClientSchema),
		})
	}
	return v
}
