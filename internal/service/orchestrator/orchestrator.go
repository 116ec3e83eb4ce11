package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	"github.com/mamadbah2/hpp/internal/pacing"
	"github.com/mamadbah2/hpp/internal/service/snapshot"
)

// ErrFetchTenants is returned when the tenant list itself cannot be loaded.
var ErrFetchTenants = errors.New("fetch tenants with active recipes")

// RecipeLister enumerates the work of a snapshot run.
type RecipeLister interface {
	ListTenantsWithActiveRecipes(ctx context.Context) ([]string, error)
	ListActiveRecipes(ctx context.Context, tenantID string) ([]models.Recipe, error)
}

// SnapshotCreator builds one snapshot for a recipe already loaded by the run.
type SnapshotCreator interface {
	CreateSnapshotFor(ctx context.Context, recipe models.Recipe, sellingPrice *float64) snapshot.Result
}

// Config controls batching and the soft execution-time warning.
type Config struct {
	TenantBatchSize int
	BatchDelay      time.Duration
	WarnThreshold   time.Duration
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		TenantBatchSize: 10,
		BatchDelay:      100 * time.Millisecond,
		WarnThreshold:   4 * time.Minute,
	}
}

// Orchestrator runs the snapshot builder over every tenant and recipe.
type Orchestrator struct {
	recipes RecipeLister
	builder SnapshotCreator
	cfg     Config
	logger  *zap.Logger
	now     func() time.Time
}

// New wires an orchestrator. Non-positive batch sizes fall back to defaults.
func New(recipes RecipeLister, builder SnapshotCreator, cfg Config, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TenantBatchSize <= 0 {
		cfg.TenantBatchSize = DefaultConfig().TenantBatchSize
	}
	if cfg.BatchDelay < 0 {
		cfg.BatchDelay = 0
	}
	return &Orchestrator{
		recipes: recipes,
		builder: builder,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// Run executes one full snapshot run. Only a failure to enumerate tenants is
// returned as an error; everything else lands in the report.
func (o *Orchestrator) Run(ctx context.Context) (*models.SnapshotRunReport, error) {
	start := o.now()
	o.logger.Info("starting hpp snapshot run", zap.Time("started_at", start))

	tenants, err := o.recipes.ListTenantsWithActiveRecipes(ctx)
	if err != nil {
		o.logger.Error("failed to enumerate tenants", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrFetchTenants, err)
	}

	report := &models.SnapshotRunReport{
		TotalTenants: len(tenants),
		Tenants:      make([]models.TenantResult, 0, len(tenants)),
	}

	batches := pacing.Chunk(tenants, o.cfg.TenantBatchSize)
	for i, batch := range batches {
		if i > 0 {
			if err := pacing.Wait(ctx, o.cfg.BatchDelay); err != nil {
				o.logger.Warn("snapshot run cancelled between batches", zap.Int("batch", i+1), zap.Error(err))
				report.Errors = append(report.Errors, models.JobError{Context: "run", Message: "run cancelled: " + err.Error()})
				break
			}
		}

		o.logger.Debug("processing tenant batch", zap.Int("batch", i+1), zap.Int("of", len(batches)), zap.Int("size", len(batch)))
		for _, tenantID := range batch {
			o.fold(report, o.ProcessTenant(ctx, tenantID))
		}
	}

	elapsed := o.now().Sub(start)
	report.ExecutionTimeMs = elapsed.Milliseconds()
	report.Timestamp = o.now().UTC()

	if o.cfg.WarnThreshold > 0 && elapsed > o.cfg.WarnThreshold {
		report.Warning = fmt.Sprintf("execution time %s exceeded warning threshold %s", elapsed.Round(time.Millisecond), o.cfg.WarnThreshold)
		o.logger.Warn("hpp snapshot run is slow",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", o.cfg.WarnThreshold))
	}

	o.logger.Info("hpp snapshot run completed",
		zap.Int("total_tenants", report.TotalTenants),
		zap.Int("total_recipes", report.TotalRecipes),
		zap.Int("snapshots_created", report.SnapshotsCreated),
		zap.Int("snapshots_failed", report.SnapshotsFailed),
		zap.Int64("execution_time_ms", report.ExecutionTimeMs))

	return report, nil
}

func (o *Orchestrator) fold(report *models.SnapshotRunReport, tenant models.TenantResult) {
	report.Tenants = append(report.Tenants, tenant)
	report.TotalRecipes += tenant.RecipesProcessed
	report.SnapshotsCreated += tenant.SnapshotsCreated
	report.SnapshotsFailed += tenant.SnapshotsFailed
	report.Errors = append(report.Errors, tenant.Errors...)
}

// ProcessTenant snapshots every active recipe of one tenant. A failing recipe
// is recorded and the remaining recipes still run.
func (o *Orchestrator) ProcessTenant(ctx context.Context, tenantID string) (result models.TenantResult) {
	result.TenantID = tenantID
	logger := o.logger.With(zap.String("tenant_id", tenantID))

	defer func() {
		if r := recover(); r != nil {
			logger.Error("tenant processing panicked", zap.Any("panic", r))
			result.Errors = append(result.Errors, models.JobError{
				Context: "tenant=" + tenantID,
				Message: fmt.Sprintf("panic: %v", r),
			})
		}
	}()

	recipes, err := o.recipes.ListActiveRecipes(ctx, tenantID)
	if err != nil {
		logger.Warn("failed to list active recipes", zap.Error(err))
		result.Errors = append(result.Errors, models.JobError{
			Context: "tenant=" + tenantID,
			Message: "list active recipes: " + err.Error(),
		})
		return result
	}

	for _, recipe := range recipes {
		result.RecipesProcessed++

		outcome := o.builder.CreateSnapshotFor(ctx, recipe, recipe.SellingPrice)
		if outcome.Success {
			result.SnapshotsCreated++
			continue
		}

		result.SnapshotsFailed++
		msg := "unknown failure"
		if outcome.Err != nil {
			msg = outcome.Err.Error()
		}
		result.Errors = append(result.Errors, models.JobError{
			Context: fmt.Sprintf("tenant=%s recipe=%s", tenantID, recipe.ID),
			Message: fmt.Sprintf("%s: %s", outcome.Stage, msg),
		})
		logger.Warn("snapshot failed",
			zap.String("recipe_id", recipe.ID),
			zap.String("stage", string(outcome.Stage)),
			zap.Error(outcome.Err))
	}

	logger.Debug("tenant processed",
		zap.Int("recipes", result.RecipesProcessed),
		zap.Int("created", result.SnapshotsCreated),
		zap.Int("failed", result.SnapshotsFailed))

	return result
}
