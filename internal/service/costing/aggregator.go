package costing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

const (
	// DefaultLookback is the trailing window for costs and production volume.
	DefaultLookback = 30 * 24 * time.Hour
	// DefaultMonthlyVolume is assumed when a recipe has no recent production.
	DefaultMonthlyVolume = 100
)

var hundred = decimal.NewFromInt(100)

// OperationalCostReader lists a tenant's operational costs dated in [since, until].
type OperationalCostReader interface {
	ListOperationalCosts(ctx context.Context, tenantID string, since, until time.Time) ([]models.OperationalCostEntry, error)
}

// ProductionReader lists a recipe's production records dated in [since, until].
type ProductionReader interface {
	ListProduction(ctx context.Context, tenantID, recipeID string, since, until time.Time) ([]models.ProductionRecord, error)
}

// Aggregator computes the HPP of a recipe. It holds no state besides its readers.
type Aggregator struct {
	costs      OperationalCostReader
	production ProductionReader
	logger     *zap.Logger
	now        func() time.Time
	lookback   time.Duration
	baseline   decimal.Decimal
}

// NewAggregator wires a cost aggregator.
func NewAggregator(costs OperationalCostReader, production ProductionReader, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		costs:      costs,
		production: production,
		logger:     logger,
		now:        time.Now,
		lookback:   DefaultLookback,
		baseline:   decimal.NewFromInt(DefaultMonthlyVolume),
	}
}

// WithClock overrides the time source, mainly for tests.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// MaterialCost sums quantity × unit price over the recipe's ingredients.
// Ingredients whose reference did not resolve contribute nothing.
func (a *Aggregator) MaterialCost(recipe models.Recipe) (decimal.Decimal, []models.IngredientCost) {
	total := decimal.Zero
	lines := make([]models.IngredientCost, 0, len(recipe.Ingredients))

	for _, item := range recipe.Ingredients {
		if item.Ingredient == nil {
			a.logger.Debug("skip unresolved ingredient",
				zap.String("recipe_id", recipe.ID),
				zap.String("ingredient_id", item.IngredientID))
			continue
		}

		cost := decimal.NewFromFloat(item.Quantity).Mul(decimal.NewFromFloat(item.Ingredient.UnitPrice))
		total = total.Add(cost)

		lines = append(lines, models.IngredientCost{
			IngredientID: item.IngredientID,
			Name:         item.Ingredient.Name,
			Quantity:     item.Quantity,
			Unit:         item.Ingredient.Unit,
			UnitPrice:    item.Ingredient.UnitPrice,
			Cost:         round2(cost),
		})
	}

	return total.Round(2), lines
}

// OperationalCostPerUnit allocates the tenant's trailing monthly overhead to one
// unit of the recipe. The per-category lines are expressed per unit as well.
func (a *Aggregator) OperationalCostPerUnit(ctx context.Context, recipeID, tenantID string) (decimal.Decimal, []models.OperationalCost, error) {
	// Entries dated after now, such as next month's rent, stay out of the window.
	until := a.now()
	since := until.Add(-a.lookback)

	entries, err := a.costs.ListOperationalCosts(ctx, tenantID, since, until)
	if err != nil {
		return decimal.Zero, nil, fmt.Errorf("load operational costs for tenant %s: %w", tenantID, err)
	}

	byCategory := make(map[string]decimal.Decimal)
	monthly := decimal.Zero
	for _, entry := range entries {
		amount := MonthlyEquivalent(entry)
		byCategory[entry.Category] = byCategory[entry.Category].Add(amount)
		monthly = monthly.Add(amount)
	}

	volume, err := a.monthlyVolume(ctx, tenantID, recipeID, since, until)
	if err != nil {
		return decimal.Zero, nil, err
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	lines := make([]models.OperationalCost, 0, len(categories))
	for _, category := range categories {
		lines = append(lines, models.OperationalCost{
			Category: category,
			Cost:     round2(byCategory[category].Div(volume)),
		})
	}

	return monthly.Div(volume).Round(2), lines, nil
}

func (a *Aggregator) monthlyVolume(ctx context.Context, tenantID, recipeID string, since, until time.Time) (decimal.Decimal, error) {
	records, err := a.production.ListProduction(ctx, tenantID, recipeID, since, until)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load production history for recipe %s: %w", recipeID, err)
	}

	volume := decimal.Zero
	for _, record := range records {
		volume = volume.Add(decimal.NewFromFloat(record.Quantity))
	}

	if volume.LessThanOrEqual(decimal.Zero) {
		return a.baseline, nil
	}
	return volume, nil
}

// Calculate runs the full HPP computation for one recipe.
func (a *Aggregator) Calculate(ctx context.Context, recipe models.Recipe) (models.CostResult, error) {
	material, ingredients := a.MaterialCost(recipe)

	operational, overhead, err := a.OperationalCostPerUnit(ctx, recipe.ID, recipe.TenantID)
	if err != nil {
		return models.CostResult{}, err
	}

	total := material.Add(operational)

	for i := range ingredients {
		ingredients[i].Percentage = round2(PercentageOf(decimal.NewFromFloat(ingredients[i].Cost), total))
	}
	for i := range overhead {
		overhead[i].Percentage = round2(PercentageOf(decimal.NewFromFloat(overhead[i].Cost), total))
	}

	return models.CostResult{
		TotalHPP:        round2(total),
		MaterialCost:    round2(material),
		OperationalCost: round2(operational),
		Breakdown: models.CostBreakdown{
			Ingredients: ingredients,
			Operational: overhead,
		},
	}, nil
}

// PercentageOf returns item as a share of total, rounded to two decimals.
func PercentageOf(item, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return item.Div(total).Mul(hundred).Round(2)
}

func round2(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}
