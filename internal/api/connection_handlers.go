package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dharsanguruparan/AgentDesk/internal/connection"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
)

// connections builds a Manager reporting into the admin's open session, if
// any.
func (s *Server) connections(r *http.Request) *connection.Manager {
	var notifier notify.Notifier = notify.Discard{}
	id, _ := s.identityOf(r)
	if sess, err := s.deps.Sessions.Get(id); err == nil {
		notifier = sess.Inbox
	}
	return connection.NewManager(s.deps.Gateway, notifier, s.log)
}

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	list, err := s.connections(r).List(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

type createConnectionRequest struct {
	ViewerEmail string `json:"viewerEmail"`
	AgentName   string `json:"agentName"`
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var req createConnectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	conn, err := s.connections(r).Create(r.Context(), req.ViewerEmail, req.AgentName)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, conn)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.connections(r).Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
