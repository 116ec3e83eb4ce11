package archival

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	"github.com/mamadbah2/hpp/internal/pacing"
)

// ErrFetchAged is returned when the aged snapshots cannot be listed.
var ErrFetchAged = errors.New("fetch aged snapshots")

// LiveStore is the hot snapshot store as seen by the archival engine.
type LiveStore interface {
	FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.Snapshot, error)
	CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)
}

// ColdStore receives archived snapshots. UpsertArchived must be idempotent on
// the snapshot ID so a row copied twice is stored once.
type ColdStore interface {
	UpsertArchived(ctx context.Context, rows []models.ArchivedSnapshot) error
	CountArchived(ctx context.Context) (int64, error)
}

// Config controls batch size, pacing and the retention horizon.
type Config struct {
	BatchSize      int
	BatchDelay     time.Duration
	RetentionYears int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:      100,
		BatchDelay:     200 * time.Millisecond,
		RetentionYears: 1,
	}
}

// Engine moves aged snapshots from the live store to the cold store.
type Engine struct {
	live   LiveStore
	cold   ColdStore
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine wires an archival engine.
func NewEngine(live LiveStore, cold ColdStore, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaults.BatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	if cfg.RetentionYears <= 0 {
		cfg.RetentionYears = defaults.RetentionYears
	}
	return &Engine{live: live, cold: cold, cfg: cfg, logger: logger, now: time.Now}
}

// WithClock overrides the time source, mainly for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Cutoff returns the date before which snapshots are eligible for archival.
func (e *Engine) Cutoff() time.Time {
	return e.now().UTC().AddDate(-e.cfg.RetentionYears, 0, 0)
}

// Run performs one archival pass. Only a failure to list aged snapshots is
// returned as an error; batch and verification problems land in the report.
func (e *Engine) Run(ctx context.Context) (*models.ArchivalReport, error) {
	start := e.now()
	cutoff := e.Cutoff()
	e.logger.Info("starting snapshot archival", zap.Time("cutoff", cutoff))

	aged, err := e.live.FindOlderThan(ctx, cutoff)
	if err != nil {
		e.logger.Error("failed to fetch aged snapshots", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchAged, err)
	}

	report := &models.ArchivalReport{IntegrityStatus: models.IntegrityPass}

	if len(aged) == 0 {
		if total, err := e.cold.CountArchived(ctx); err == nil {
			report.TotalInArchive = total
		} else {
			e.logger.Debug("archive count unavailable", zap.Error(err))
		}
		e.finish(report, start)
		e.logger.Info("no snapshots eligible for archival")
		return report, nil
	}

	oldest := aged[0].SnapshotDate
	report.OldestDate = &oldest

	batches := pacing.Chunk(aged, e.cfg.BatchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := pacing.Wait(ctx, e.cfg.BatchDelay); err != nil {
				e.logger.Warn("archival cancelled between batches", zap.Int("batch", i+1), zap.Error(err))
				report.Errors = append(report.Errors, models.BatchError{Batch: 0, Error: fmt.Sprintf("run cancelled before batch %d: %v", i+1, err)})
				break
			}
		}

		moved, err := e.moveBatch(ctx, batch)
		if err != nil {
			e.logger.Warn("archival batch failed", zap.Int("batch", i+1), zap.Int("size", len(batch)), zap.Error(err))
			report.Errors = append(report.Errors, models.BatchError{Batch: i + 1, Error: err.Error()})
			continue
		}

		report.SnapshotsArchived += moved
		report.BatchesProcessed++
		e.logger.Debug("archival batch completed", zap.Int("batch", i+1), zap.Int("of", len(batches)), zap.Int("moved", moved))
	}

	e.verify(ctx, cutoff, report)
	e.finish(report, start)

	e.logger.Info("snapshot archival completed",
		zap.Int("snapshots_archived", report.SnapshotsArchived),
		zap.Int("batches_processed", report.BatchesProcessed),
		zap.Int64("remaining_old_snapshots", report.RemainingOldSnapshots),
		zap.Int64("total_in_archive", report.TotalInArchive),
		zap.String("integrity_status", report.IntegrityStatus),
		zap.Int("errors", len(report.Errors)))

	return report, nil
}

// moveBatch copies a batch into the cold store and then removes it from the
// live store. The delete is skipped when the copy fails so no row is lost.
func (e *Engine) moveBatch(ctx context.Context, batch []models.Snapshot) (int, error) {
	archivedAt := e.now().UTC()
	rows := make([]models.ArchivedSnapshot, len(batch))
	ids := make([]string, len(batch))
	for i, snap := range batch {
		rows[i] = models.ArchivedSnapshot{Snapshot: snap, ArchivedAt: archivedAt}
		ids[i] = snap.ID
	}

	if err := e.cold.UpsertArchived(ctx, rows); err != nil {
		return 0, fmt.Errorf("insert into archive: %w", err)
	}

	deleted, err := e.live.DeleteByIDs(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete from live store: %w", err)
	}
	if int(deleted) != len(ids) {
		e.logger.Warn("live delete removed fewer rows than archived",
			zap.Int64("deleted", deleted),
			zap.Int("expected", len(ids)))
	}

	return len(batch), nil
}

func (e *Engine) verify(ctx context.Context, cutoff time.Time, report *models.ArchivalReport) {
	remaining, err := e.live.CountOlderThan(ctx, cutoff)
	if err != nil {
		report.IntegrityStatus = models.IntegrityWarning
		report.Errors = append(report.Errors, models.BatchError{Batch: 0, Error: "verify live store: " + err.Error()})
	} else {
		report.RemainingOldSnapshots = remaining
		if remaining > 0 {
			report.IntegrityStatus = models.IntegrityWarning
			e.logger.Warn("aged snapshots remain after archival", zap.Int64("remaining", remaining))
		}
	}

	total, err := e.cold.CountArchived(ctx)
	if err != nil {
		report.IntegrityStatus = models.IntegrityWarning
		report.Errors = append(report.Errors, models.BatchError{Batch: 0, Error: "verify archive: " + err.Error()})
		return
	}
	report.TotalInArchive = total
}

func (e *Engine) finish(report *models.ArchivalReport, start time.Time) {
	report.ExecutionTimeMs = e.now().Sub(start).Milliseconds()
	report.Timestamp = e.now().UTC()
}
