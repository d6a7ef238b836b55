package api

import (
	"errors"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/translate"
)

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session.Session)

// identityOf resolves the caller's agent identity from the token e-mail.
func (s *Server) identityOf(r *http.Request) (identity, email string) {
	claims := auth.GetUser(r.Context())
	return s.deps.Resolver.Resolve(claims.Email), claims.Email
}

// withSession looks up the caller's open session.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, _ := s.identityOf(r)
		sess, err := s.deps.Sessions.Get(id)
		if err != nil {
			respondError(w, err)
			return
		}
		h(w, r, sess)
	}
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	id, email := s.identityOf(r)
	sess, restored := s.deps.Sessions.Open(r.Context(), id, email)
	respondJSON(w, http.StatusOK, map[string]any{
		"restored": restored,
		"report":   sess.Store.View(),
	})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	id, _ := s.identityOf(r)
	if err := s.deps.Sessions.Close(id); err != nil {
		respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respondJSON(w, http.StatusOK, sess.Store.View())
}

// sortedFields applies field updates in a stable order so a failure part way
// through is reproducible.
func sortedFields(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) handleHeader(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	var fields map[string]string
	if err := decodeJSON(w, r, &fields); err != nil {
		respondError(w, err)
		return
	}
	for _, name := range sortedFields(fields) {
		if err := sess.Store.SetHeaderField(name, fields[name]); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, sess.Store.View())
}

func (s *Server) handleAddClient(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	c := sess.Store.AddClient()
	respondJSON(w, http.StatusCreated, map[string]any{"id": c.ID, "report": sess.Store.View()})
}

func (s *Server) handleUpdateClient(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	id := chi.URLParam(r, "id")
	var fields map[string]string
	if err := decodeJSON(w, r, &fields); err != nil {
		respondError(w, err)
		return
	}
	for _, name := range sortedFields(fields) {
		if err := sess.Store.UpdateClientField(id, name, fields[name]); err != nil {
			respondError(w, err)
			return
		}
	}
	respondJSON(w, http.StatusOK, sess.Store.View())
}

func (s *Server) handleRemoveClient(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Store.RemoveClient(chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Store.View())
}

func (s *Server) handleToggleClient(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Store.ToggleClient(chi.URLParam(r, "id")); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Store.View())
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := sess.Store.SaveNow(r.Context()); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, sess.Store.Status())
}

type submitResponse struct {
	Text        string    `json:"text"`
	GeneratedAt time.Time `json:"generatedAt"`
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	rep, err := sess.Store.Submit(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, submitResponse{Text: rep.Text, GeneratedAt: rep.GeneratedAt})
}

type translateRequest struct {
	Text string `json:"text"`
}

type translateResponse struct {
	Text       string `json:"text"`
	Translated bool   `json:"translated"`
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if s.deps.Translator == nil {
		respondError(w, errUnavailable)
		return
	}
	var req translateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, err)
		return
	}
	out, err := s.deps.Translator.Translate(r.Context(), req.Text)
	switch {
	case errors.Is(err, translate.ErrNothingToTranslate):
		sess.Inbox.Notify(notify.Error("Nothing to translate", "Please generate a report first"))
		respondJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
		return
	case err != nil:
		// The placeholder text is still shown to the user.
		s.log.Warn("translate failed", zap.String("identity", sess.Store.Identity()), zap.Error(err))
		respondJSON(w, http.StatusOK, translateResponse{Text: out})
		return
	}
	sess.Inbox.Notify(notify.Info("Translation complete", "Report has been translated to Chinese"))
	respondJSON(w, http.StatusOK, translateResponse{Text: out, Translated: true})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	respondJSON(w, http.StatusOK, sess.Inbox.Drain())
}
