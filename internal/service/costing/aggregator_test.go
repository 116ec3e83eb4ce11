package costing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	"github.com/mamadbah2/hpp/internal/repository/memory"
)

var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestAggregator(store *memory.Store) *Aggregator {
	return NewAggregator(store, store, zap.NewNop()).WithClock(func() time.Time { return fixedNow })
}

func seedBakery(store *memory.Store) models.Recipe {
	store.PutIngredient(models.Ingredient{ID: "flour", TenantID: "t1", Name: "Flour", UnitPrice: 12000, Unit: "kg"})
	store.PutIngredient(models.Ingredient{ID: "sugar", TenantID: "t1", Name: "Sugar", UnitPrice: 15000, Unit: "kg"})
	recipe := models.Recipe{
		ID:       "bread",
		TenantID: "t1",
		IsActive: true,
		Ingredients: []models.RecipeIngredient{
			{IngredientID: "flour", Quantity: 2},
			{IngredientID: "sugar", Quantity: 1},
		},
	}
	store.PutRecipe(recipe)
	return recipe
}

func TestMonthlyEquivalent(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		recurring bool
		frequency models.Frequency
		expected  string
	}{
		{name: "daily", amount: 1000, recurring: true, frequency: models.FrequencyDaily, expected: "30000"},
		{name: "weekly", amount: 1000, recurring: true, frequency: models.FrequencyWeekly, expected: "4000"},
		{name: "monthly", amount: 1000, recurring: true, frequency: models.FrequencyMonthly, expected: "1000"},
		{name: "quarterly", amount: 900, recurring: true, frequency: models.FrequencyQuarterly, expected: "300"},
		{name: "yearly", amount: 1200, recurring: true, frequency: models.FrequencyYearly, expected: "100"},
		{name: "one-off ignores daily tag", amount: 1000, recurring: false, frequency: models.FrequencyDaily, expected: "1000"},
		{name: "one-off ignores yearly tag", amount: 1200, recurring: false, frequency: models.FrequencyYearly, expected: "1200"},
		{name: "unknown cadence counts as monthly", amount: 500, recurring: true, frequency: models.Frequency("hourly"), expected: "500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MonthlyEquivalent(models.OperationalCostEntry{
				Amount:      tt.amount,
				IsRecurring: tt.recurring,
				Frequency:   tt.frequency,
			})
			assert.True(t, got.Equal(decimal.RequireFromString(tt.expected)), "got %s", got)
		})
	}
}

func TestMonthlyMultiplier(t *testing.T) {
	assert.True(t, MonthlyMultiplier(models.FrequencyDaily).Equal(decimal.NewFromInt(30)))
	assert.True(t, MonthlyMultiplier(models.FrequencyWeekly).Equal(decimal.NewFromInt(4)))
	assert.True(t, MonthlyMultiplier(models.FrequencyMonthly).Equal(decimal.NewFromInt(1)))
	assert.Equal(t, "0.33", MonthlyMultiplier(models.FrequencyQuarterly).StringFixed(2))
	assert.Equal(t, "0.08", MonthlyMultiplier(models.FrequencyYearly).StringFixed(2))
}

func TestPercentageOf(t *testing.T) {
	assert.True(t, PercentageOf(decimal.NewFromInt(5), decimal.Zero).IsZero())
	assert.Equal(t, "33.33", PercentageOf(decimal.NewFromInt(1), decimal.NewFromInt(3)).StringFixed(2))
	assert.Equal(t, "100.00", PercentageOf(decimal.NewFromInt(42), decimal.NewFromInt(42)).StringFixed(2))
}

func TestAggregator_Calculate_EmptyRecipe(t *testing.T) {
	store := memory.New()
	agg := newTestAggregator(store)

	result, err := agg.Calculate(context.Background(), models.Recipe{ID: "empty", TenantID: "t1"})
	require.NoError(t, err)

	assert.Zero(t, result.MaterialCost)
	assert.Zero(t, result.OperationalCost)
	assert.Zero(t, result.TotalHPP)
	assert.Empty(t, result.Breakdown.Ingredients)
	assert.Empty(t, result.Breakdown.Operational)
}

func TestAggregator_Calculate_BakeryExample(t *testing.T) {
	store := memory.New()
	recipe := seedBakery(store)
	store.AddOperationalCost(models.OperationalCostEntry{
		ID: "rent", TenantID: "t1", Category: "rent", Amount: 200000,
		IsRecurring: true, Frequency: models.FrequencyMonthly, Date: fixedNow.AddDate(0, 0, -3),
	})
	store.AddOperationalCost(models.OperationalCostEntry{
		ID: "power", TenantID: "t1", Category: "utilities", Amount: 25000,
		IsRecurring: true, Frequency: models.FrequencyWeekly, Date: fixedNow.AddDate(0, 0, -10),
	})

	joined, err := store.GetRecipe(context.Background(), "t1", recipe.ID)
	require.NoError(t, err)

	result, err := newTestAggregator(store).Calculate(context.Background(), *joined)
	require.NoError(t, err)

	assert.Equal(t, 39000.0, result.MaterialCost)
	assert.Equal(t, 3000.0, result.OperationalCost)
	assert.Equal(t, 42000.0, result.TotalHPP)

	require.Len(t, result.Breakdown.Ingredients, 2)
	assert.Equal(t, 24000.0, result.Breakdown.Ingredients[0].Cost)
	assert.Equal(t, 15000.0, result.Breakdown.Ingredients[1].Cost)

	require.Len(t, result.Breakdown.Operational, 2)
	assert.Equal(t, "rent", result.Breakdown.Operational[0].Category)
	assert.Equal(t, 2000.0, result.Breakdown.Operational[0].Cost)
	assert.Equal(t, "utilities", result.Breakdown.Operational[1].Category)
	assert.Equal(t, 1000.0, result.Breakdown.Operational[1].Cost)
}

func TestAggregator_Calculate_PercentagesSumToHundred(t *testing.T) {
	store := memory.New()
	store.PutIngredient(models.Ingredient{ID: "a", Name: "A", UnitPrice: 333.33})
	store.PutIngredient(models.Ingredient{ID: "b", Name: "B", UnitPrice: 17.5})
	store.PutIngredient(models.Ingredient{ID: "c", Name: "C", UnitPrice: 0.07})
	store.PutRecipe(models.Recipe{
		ID: "mix", TenantID: "t1", IsActive: true,
		Ingredients: []models.RecipeIngredient{
			{IngredientID: "a", Quantity: 1.3},
			{IngredientID: "b", Quantity: 3},
			{IngredientID: "c", Quantity: 11},
		},
	})
	store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "gas", Amount: 777, IsRecurring: true, Frequency: models.FrequencyDaily, Date: fixedNow})
	store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "insurance", Amount: 9100, IsRecurring: true, Frequency: models.FrequencyQuarterly, Date: fixedNow})
	store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "repairs", Amount: 4321, Date: fixedNow})
	store.AddProduction(models.ProductionRecord{TenantID: "t1", RecipeID: "mix", Quantity: 37, ProducedAt: fixedNow.AddDate(0, 0, -1)})

	recipe, err := store.GetRecipe(context.Background(), "t1", "mix")
	require.NoError(t, err)

	result, err := newTestAggregator(store).Calculate(context.Background(), *recipe)
	require.NoError(t, err)
	require.Greater(t, result.TotalHPP, 0.0)

	var sum float64
	for _, line := range result.Breakdown.Ingredients {
		sum += line.Percentage
	}
	for _, line := range result.Breakdown.Operational {
		sum += line.Percentage
	}
	assert.InDelta(t, 100.0, sum, 0.5)
	assert.InDelta(t, result.MaterialCost+result.OperationalCost, result.TotalHPP, 0.001)
}

func TestAggregator_MaterialCost_SkipsUnresolvedIngredient(t *testing.T) {
	agg := newTestAggregator(memory.New())

	total, lines := agg.MaterialCost(models.Recipe{
		ID: "r1",
		Ingredients: []models.RecipeIngredient{
			{IngredientID: "known", Quantity: 2, Ingredient: &models.Ingredient{ID: "known", Name: "Salt", UnitPrice: 500}},
			{IngredientID: "ghost", Quantity: 10},
		},
	})

	assert.Equal(t, "1000.00", total.StringFixed(2))
	require.Len(t, lines, 1)
	assert.Equal(t, "known", lines[0].IngredientID)
}

func TestAggregator_OperationalCostPerUnit(t *testing.T) {
	ctx := context.Background()

	t.Run("falls back to baseline volume without production", func(t *testing.T) {
		store := memory.New()
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "staff", Amount: 10000, IsRecurring: true, Frequency: models.FrequencyDaily, Date: fixedNow})

		perUnit, lines, err := newTestAggregator(store).OperationalCostPerUnit(ctx, "r1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "3000.00", perUnit.StringFixed(2))
		require.Len(t, lines, 1)
		assert.Equal(t, 3000.0, lines[0].Cost)
	})

	t.Run("divides by recent production volume", func(t *testing.T) {
		store := memory.New()
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "staff", Amount: 50000, IsRecurring: true, Frequency: models.FrequencyMonthly, Date: fixedNow})
		store.AddProduction(models.ProductionRecord{TenantID: "t1", RecipeID: "r1", Quantity: 150, ProducedAt: fixedNow.AddDate(0, 0, -2)})
		store.AddProduction(models.ProductionRecord{TenantID: "t1", RecipeID: "r1", Quantity: 100, ProducedAt: fixedNow.AddDate(0, 0, -20)})
		store.AddProduction(models.ProductionRecord{TenantID: "t1", RecipeID: "r1", Quantity: 9999, ProducedAt: fixedNow.AddDate(0, 0, -45)})

		perUnit, _, err := newTestAggregator(store).OperationalCostPerUnit(ctx, "r1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "200.00", perUnit.StringFixed(2))
	})

	t.Run("ignores entries outside the trailing window", func(t *testing.T) {
		store := memory.New()
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "old", Amount: 90000, Date: fixedNow.AddDate(0, -2, 0)})
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t2", Category: "other", Amount: 90000, Date: fixedNow})

		perUnit, lines, err := newTestAggregator(store).OperationalCostPerUnit(ctx, "r1", "t1")
		require.NoError(t, err)
		assert.True(t, perUnit.IsZero())
		assert.Empty(t, lines)
	})

	t.Run("ignores costs and production dated in the future", func(t *testing.T) {
		store := memory.New()
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "rent", Amount: 300000, IsRecurring: true, Frequency: models.FrequencyMonthly, Date: fixedNow.AddDate(0, 0, -3)})
		store.AddOperationalCost(models.OperationalCostEntry{TenantID: "t1", Category: "rent", Amount: 300000, IsRecurring: true, Frequency: models.FrequencyMonthly, Date: fixedNow.AddDate(0, 2, 0)})
		store.AddProduction(models.ProductionRecord{TenantID: "t1", RecipeID: "r1", Quantity: 50, ProducedAt: fixedNow.AddDate(0, 0, 5)})

		perUnit, lines, err := newTestAggregator(store).OperationalCostPerUnit(ctx, "r1", "t1")
		require.NoError(t, err)
		assert.Equal(t, "3000.00", perUnit.StringFixed(2))
		require.Len(t, lines, 1)
		assert.Equal(t, 3000.0, lines[0].Cost)
	})
}

type failingCosts struct{}

func (failingCosts) ListOperationalCosts(context.Context, string, time.Time, time.Time) ([]models.OperationalCostEntry, error) {
	return nil, errors.New("connection reset")
}

func TestAggregator_Calculate_PropagatesStoreErrors(t *testing.T) {
	agg := NewAggregator(failingCosts{}, memory.New(), nil)

	_, err := agg.Calculate(context.Background(), models.Recipe{ID: "r1", TenantID: "t1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Contains(t, err.Error(), "tenant t1")
}
