package queue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/AgentDesk/internal/model"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(_ context.Context, task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{ID: "t1", Type: task.Type()}, nil
}

func TestEnqueueExport(t *testing.T) {
	f := &fakeEnqueuer{}
	payload := ExportPayload{
		Identity:    "JHE",
		ObjectKey:   "exports/JHE/x.txt",
		RequestedBy: "jhe@example.com",
		RequestedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		Report: model.ReportSnapshot{
			ReportHeader: model.ReportHeader{AgentName: "JHE", Deposits: 1500.5},
			Clients:      []model.Client{{ID: "c1", ShopID: "S-9", ConversationSummary: "Met", PlanForTomorrow: "Call"}},
			Identity:     "JHE",
			LastModified: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		},
	}
	require.NoError(t, EnqueueExport(context.Background(), f, payload))
	require.Len(t, f.tasks, 1)
	assert.Equal(t, ExportReportTask, f.tasks[0].Type())

	got, err := ParseExportPayload(f.tasks[0])
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestEnqueueExportError(t *testing.T) {
	f := &fakeEnqueuer{err: errors.New("redis down")}
	err := EnqueueExport(context.Background(), f, ExportPayload{Identity: "JHE"})
	assert.ErrorContains(t, err, "enqueue export task")
}

func TestParseExportPayloadRejectsGarbage(t *testing.T) {
	_, err := ParseExportPayload(asynq.NewTask(ExportReportTask, []byte("{")))
	assert.Error(t, err)
}
