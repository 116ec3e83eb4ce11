package snapshot

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

// ErrInvalidSnapshot marks a snapshot rejected before persistence.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// Stage names the step at which a snapshot attempt failed.
type Stage string

const (
	StageLookup      Stage = "lookup"
	StageAggregation Stage = "aggregation"
	StageValidation  Stage = "validation"
	StagePersistence Stage = "persistence"
)

// RecipeReader loads a recipe with its ingredients joined.
type RecipeReader interface {
	GetRecipe(ctx context.Context, tenantID, recipeID string) (*models.Recipe, error)
}

// Writer persists a new snapshot.
type Writer interface {
	CreateSnapshot(ctx context.Context, snapshot models.Snapshot) error
}

// Calculator computes the HPP of a recipe.
type Calculator interface {
	Calculate(ctx context.Context, recipe models.Recipe) (models.CostResult, error)
}

// Result is the outcome of one CreateSnapshot call. It never carries a panic
// or an unwrapped store error out of the builder.
type Result struct {
	Success    bool
	SnapshotID string
	Stage      Stage
	Err        error
}

func failure(stage Stage, err error) Result {
	return Result{Stage: stage, Err: err}
}

// Builder produces and persists one snapshot per call.
type Builder struct {
	recipes    RecipeReader
	calculator Calculator
	writer     Writer
	validate   *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	newID      func() string
}

// NewBuilder wires a snapshot builder.
func NewBuilder(recipes RecipeReader, calculator Calculator, writer Writer, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		recipes:    recipes,
		calculator: calculator,
		writer:     writer,
		validate:   validator.New(),
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// WithClock overrides the time source, mainly for tests.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// CreateSnapshot loads the recipe, computes its HPP and writes one snapshot.
// Every failure path returns a Result and writes nothing.
func (b *Builder) CreateSnapshot(ctx context.Context, recipeID, tenantID string, sellingPrice *float64) (result Result) {
	defer b.recoverInto(&result, recipeID, tenantID)

	recipe, err := b.recipes.GetRecipe(ctx, tenantID, recipeID)
	if err != nil {
		return failure(StageLookup, fmt.Errorf("load recipe %s: %w", recipeID, err))
	}

	return b.build(ctx, *recipe, sellingPrice)
}

// CreateSnapshotFor is CreateSnapshot for a recipe the caller already loaded
// with its ingredients joined.
func (b *Builder) CreateSnapshotFor(ctx context.Context, recipe models.Recipe, sellingPrice *float64) (result Result) {
	defer b.recoverInto(&result, recipe.ID, recipe.TenantID)
	return b.build(ctx, recipe, sellingPrice)
}

func (b *Builder) recoverInto(result *Result, recipeID, tenantID string) {
	if r := recover(); r != nil {
		b.logger.Error("snapshot attempt panicked",
			zap.String("recipe_id", recipeID),
			zap.String("tenant_id", tenantID),
			zap.Any("panic", r))
		*result = failure(StageAggregation, fmt.Errorf("panic while building snapshot: %v", r))
	}
}

func (b *Builder) build(ctx context.Context, recipe models.Recipe, sellingPrice *float64) Result {
	recipeID, tenantID := recipe.ID, recipe.TenantID

	cost, err := b.calculator.Calculate(ctx, recipe)
	if err != nil {
		return failure(StageAggregation, fmt.Errorf("calculate hpp for recipe %s: %w", recipeID, err))
	}

	now := b.now().UTC()
	snap := models.Snapshot{
		ID:               b.newID(),
		RecipeID:         recipeID,
		TenantID:         tenantID,
		SnapshotDate:     now,
		TotalCost:        cost.TotalHPP,
		MaterialCost:     cost.MaterialCost,
		OperationalCost:  cost.OperationalCost,
		Breakdown:        cost.Breakdown,
		MarginPercentage: Margin(sellingPrice, cost.TotalHPP),
		CreatedAt:        now,
	}
	if sellingPrice != nil && *sellingPrice > 0 {
		price := *sellingPrice
		snap.SellingPrice = &price
	}

	if err := b.Validate(snap); err != nil {
		b.logger.Warn("snapshot rejected by validation",
			zap.String("recipe_id", recipeID),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		return failure(StageValidation, err)
	}

	if err := b.writer.CreateSnapshot(ctx, snap); err != nil {
		return failure(StagePersistence, fmt.Errorf("persist snapshot for recipe %s: %w", recipeID, err))
	}

	b.logger.Debug("snapshot created",
		zap.String("snapshot_id", snap.ID),
		zap.String("recipe_id", recipeID),
		zap.Float64("total_cost", snap.TotalCost))

	return Result{Success: true, SnapshotID: snap.ID}
}

// Validate checks the invariants a snapshot must satisfy before it is written.
func (b *Builder) Validate(snap models.Snapshot) error {
	if err := b.validate.Struct(snap); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	for _, v := range []float64{snap.TotalCost, snap.MaterialCost, snap.OperationalCost} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite cost", ErrInvalidSnapshot)
		}
	}

	if math.Abs(snap.MaterialCost+snap.OperationalCost-snap.TotalCost) > 0.01 {
		return fmt.Errorf("%w: total %.2f does not match material %.2f + operational %.2f",
			ErrInvalidSnapshot, snap.TotalCost, snap.MaterialCost, snap.OperationalCost)
	}

	return nil
}

// Margin returns (price − hpp) / price × 100 rounded to two decimals, or nil
// when no positive selling price is known.
func Margin(sellingPrice *float64, totalHPP float64) *float64 {
	if sellingPrice == nil || *sellingPrice <= 0 {
		return nil
	}

	price := decimal.NewFromFloat(*sellingPrice)
	margin := price.Sub(decimal.NewFromFloat(totalHPP)).
		Div(price).
		Mul(decimal.NewFromInt(100)).
		Round(2).
		InexactFloat64()
	return &margin
}
