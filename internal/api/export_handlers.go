package api

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/auth"
	"github.com/dharsanguruparan/AgentDesk/internal/notify"
	"github.com/dharsanguruparan/AgentDesk/internal/queue"
	"github.com/dharsanguruparan/AgentDesk/internal/s3storage"
	"github.com/dharsanguruparan/AgentDesk/internal/session"
	"github.com/dharsanguruparan/AgentDesk/internal/signing"
)

type exportResponse struct {
	ObjectKey   string    `json:"objectKey"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// handleExport validates and saves the report, then queues the archive and
// e-mail job with the validated state. The download link works once the
// worker has run.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if s.deps.Queue == nil || s.deps.Signer == nil {
		respondError(w, errUnavailable)
		return
	}
	rep, err := sess.Store.Submit(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	identity := sess.Store.Identity()
	now := s.now()
	payload := queue.ExportPayload{
		Identity:    identity,
		ObjectKey:   s3storage.ExportKey(identity, now, "txt"),
		RequestedBy: auth.GetUser(r.Context()).Email,
		RequestedAt: now.UTC(),
		Report:      rep.Snapshot,
	}
	if err := queue.EnqueueExport(r.Context(), s.deps.Queue, payload); err != nil {
		s.log.Error("enqueue export failed", zap.String("identity", identity), zap.Error(err))
		sess.Inbox.Notify(notify.Error("Export Failed", "Could not queue the report export. Please try again."))
		respondError(w, err)
		return
	}
	q := s.deps.Signer.Query(identity, payload.ObjectKey, s.cfg.SignedURLTTL)
	sess.Inbox.Notify(notify.Info("Export Queued", "Your report is being archived and sent"))
	respondJSON(w, http.StatusAccepted, exportResponse{
		ObjectKey:   payload.ObjectKey,
		DownloadURL: s.cfg.PublicURL + "/exports/download?" + q.Encode(),
		ExpiresAt:   now.Add(s.cfg.SignedURLTTL).UTC(),
	})
}

// handleDownload serves an archived export to whoever holds a valid signed
// link.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exports == nil || s.deps.Signer == nil {
		respondError(w, errUnavailable)
		return
	}
	link, err := s.deps.Signer.Verify(r.URL.Query())
	if err != nil {
		respondError(w, err)
		return
	}
	if !s3storage.OwnedBy(link.ObjectKey, link.Identity) {
		respondError(w, signing.ErrBadSignature)
		return
	}
	data, err := s.deps.Exports.Download(r.Context(), link.ObjectKey)
	if err != nil {
		s.log.Warn("export download failed", zap.String("object_key", link.ObjectKey), zap.Error(err))
		respondJSON(w, http.StatusNotFound, errorBody{Error: "export not available yet"})
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="agent-report.txt"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
