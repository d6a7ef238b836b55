package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

const (
	// ExportReportTask is scheduled each time an agent exports a submitted
	// report.
	ExportReportTask = "report:export"
)

// ExportPayload carries the validated report to archive and the key to store
// it under. The worker renders Report as is and never re-reads the saved
// draft.
type ExportPayload struct {
	Identity    string               `json:"identity"`
	ObjectKey   string               `json:"object_key"`
	RequestedBy string               `json:"requested_by"`
	RequestedAt time.Time            `json:"requested_at"`
	Report      model.ReportSnapshot `json:"report"`
}

// Enqueuer is the part of *asynq.Client the API uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// NewExportTask builds the asynq task for payload.
func NewExportTask(payload ExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	return asynq.NewTask(ExportReportTask, data), nil
}

// ParseExportPayload decodes a task payload.
func ParseExportPayload(task *asynq.Task) (ExportPayload, error) {
	var payload ExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return ExportPayload{}, fmt.Errorf("decode payload: %w", err)
	}
	return payload, nil
}

// EnqueueExport enqueues a report export job.
func EnqueueExport(ctx context.Context, client Enqueuer, payload ExportPayload) error {
	task, err := NewExportTask(payload)
	if err != nil {
		return err
	}
	if _, err := client.EnqueueContext(ctx, task, asynq.MaxRetry(5), asynq.Timeout(2*time.Minute)); err != nil {
		return fmt.Errorf("enqueue export task: %w", err)
	}
	return nil
}
