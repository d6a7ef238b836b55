package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/dharsanguruparan/AgentDesk/internal/email"
	"github.com/dharsanguruparan/AgentDesk/internal/form"
	"github.com/dharsanguruparan/AgentDesk/internal/queue"
	"github.com/dharsanguruparan/AgentDesk/internal/report"
)

// Archive stores rendered exports.
type Archive interface {
	Upload(ctx context.Context, objectKey string, data []byte, contentType string) error
}

// Processor is plugged into the asynq worker loop.
type Processor struct {
	archive    Archive
	mailer     email.Sender
	recipients []string
	log        *zap.Logger
	now        func() time.Time
}

// NewProcessor constructs a worker processor. With no recipients the report
// is archived but not mailed.
func NewProcessor(archive Archive, mailer email.Sender, recipients []string, log *zap.Logger) *Processor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Processor{archive: archive, mailer: mailer, recipients: recipients, log: log, now: time.Now}
}

// Handler registers the export job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.ExportReportTask, p.handleExport)
	return mux
}

func (p *Processor) handleExport(ctx context.Context, task *asynq.Task) error {
	payload, err := queue.ParseExportPayload(task)
	if err != nil {
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return p.Export(ctx, payload)
}

// Export archives and mails the report carried by payload. A report that
// does not pass validation is never archived.
func (p *Processor) Export(ctx context.Context, payload queue.ExportPayload) error {
	log := p.log.With(zap.String("identity", payload.Identity), zap.String("object_key", payload.ObjectKey))
	failure := func(err error) error {
		log.Error("export failed", zap.Error(err))
		return err
	}

	snap := payload.Report
	if len(snap.Clients) == 0 {
		return failure(fmt.Errorf("%w: export for %s carries no report", asynq.SkipRetry, payload.Identity))
	}
	if errs := form.Validate(snap.Clients, report.ClientSchema); len(errs) > 0 {
		verr := &report.ValidationError{Errors: errs}
		return failure(fmt.Errorf("%w: export for %s: %v", asynq.SkipRetry, payload.Identity, verr))
	}

	at := payload.RequestedAt
	if at.IsZero() {
		at = p.now()
	}
	text := report.RenderText(snap, at)
	if err := p.archive.Upload(ctx, payload.ObjectKey, []byte(text), "text/plain; charset=utf-8"); err != nil {
		return failure(err)
	}

	if len(p.recipients) > 0 && p.mailer != nil {
		html, err := report.RenderHTML(snap, at)
		if err != nil {
			return failure(err)
		}
		msg := email.Message{
			To:      p.recipients,
			Subject: fmt.Sprintf("Agent Report - %s - %s", snap.AgentName, at.Format(report.DateLayout)),
			HTML:    html,
			Text:    text,
		}
		if _, err := p.mailer.Send(ctx, msg); err != nil {
			return failure(err)
		}
	}
	log.Info("report exported", zap.Int("bytes", len(text)), zap.Int("clients", len(snap.Clients)))
	return nil
}
