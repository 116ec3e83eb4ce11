package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	client "github.com/mamadbah2/hpp/pkg/clients/whatsapp"
)

type recordingClient struct {
	sent []client.SendTextMessageRequest
	err  error
}

func (c *recordingClient) SendTextMessage(_ context.Context, req client.SendTextMessageRequest) (*client.SendTextMessageResponse, error) {
	c.sent = append(c.sent, req)
	return &client.SendTextMessageResponse{}, c.err
}

var runAt = time.Date(2026, 6, 30, 1, 0, 0, 0, time.UTC)

func TestNotifier_NotifySnapshotRun(t *testing.T) {
	rc := &recordingClient{}
	n := NewNotifier(rc, "224600000000", zap.NewNop())

	n.NotifySnapshotRun(context.Background(), &models.SnapshotRunReport{
		TotalTenants:     2,
		TotalRecipes:     5,
		SnapshotsCreated: 4,
		SnapshotsFailed:  1,
		ExecutionTimeMs:  1500,
		Timestamp:        runAt,
		Errors:           []models.JobError{{Context: "tenant=t1 recipe=r2", Message: "validation: total mismatch"}},
	}, nil)

	require.Len(t, rc.sent, 1)
	assert.Equal(t, "224600000000", rc.sent[0].To)
	body := rc.sent[0].Body
	assert.Contains(t, body, "HPP snapshots 2026-06-30")
	assert.Contains(t, body, "Created: 4")
	assert.Contains(t, body, "Failed: 1")
	assert.Contains(t, body, "Duration: 1.5s")
	assert.Contains(t, body, "- tenant=t1 recipe=r2: validation: total mismatch")
}

func TestNotifier_SendFailureIsSwallowed(t *testing.T) {
	rc := &recordingClient{err: errors.New("unreachable")}
	n := NewNotifier(rc, "1", nil)

	assert.NotPanics(t, func() {
		n.NotifyArchivalRun(context.Background(), nil, errors.New("fetch aged snapshots: timeout"))
	})
	require.Len(t, rc.sent, 1)
	assert.Contains(t, rc.sent[0].Body, "FAILED")
}

func TestNotifier_NilIsNoop(t *testing.T) {
	var n *Notifier
	assert.NotPanics(t, func() {
		n.NotifySnapshotRun(context.Background(), nil, nil)
		n.NotifyArchivalRun(context.Background(), nil, nil)
	})
}

func TestFormatArchivalRun(t *testing.T) {
	oldest := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	errs := []models.BatchError{{Batch: 0, Error: "verify archive: timeout"}}
	for i := 1; i <= 6; i++ {
		errs = append(errs, models.BatchError{Batch: i, Error: "bulk write exception"})
	}

	body := FormatArchivalRun(&models.ArchivalReport{
		SnapshotsArchived:     300,
		BatchesProcessed:      3,
		OldestDate:            &oldest,
		RemainingOldSnapshots: 600,
		TotalInArchive:        1200,
		IntegrityStatus:       models.IntegrityWarning,
		Timestamp:             runAt,
		Errors:                errs,
	}, nil)

	assert.Contains(t, body, "HPP archival 2026-06-30 [WARNING]")
	assert.Contains(t, body, "Archived: 300 in 3 batches")
	assert.Contains(t, body, "Oldest: 2024-03-01")
	assert.Contains(t, body, "- run: verify archive: timeout")
	assert.Contains(t, body, "- batch 4: bulk write exception")
	assert.NotContains(t, body, "- batch 5:")
	assert.Contains(t, body, "... and 2 more errors")
}

func TestFormatSnapshotRun_Warning(t *testing.T) {
	body := FormatSnapshotRun(&models.SnapshotRunReport{Timestamp: runAt, Warning: "run took 4m30s"}, nil)
	assert.Contains(t, body, "Warning: run took 4m30s")
}
