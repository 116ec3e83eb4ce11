package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

func TestFilters(t *testing.T) {
	cutoff := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, bson.M{"_id": "r1", "tenant_id": "t1"}, recipeFilter("t1", "r1"))
	assert.Equal(t, bson.M{"tenant_id": "t1", "is_active": true}, activeRecipesFilter("t1"))
	assert.Equal(t, bson.M{"snapshot_date": bson.M{"$lt": cutoff}}, olderThanFilter(cutoff))
	until := cutoff.AddDate(0, 0, 30)
	assert.Equal(t,
		bson.M{"tenant_id": "t1", "date": bson.M{"$gte": cutoff, "$lte": until}},
		windowFilter("t1", "date", cutoff, until))
}

func TestIngredientIDs(t *testing.T) {
	recipes := []*models.Recipe{
		{Ingredients: []models.RecipeIngredient{{IngredientID: "flour"}, {IngredientID: "sugar"}, {IngredientID: ""}}},
		{Ingredients: []models.RecipeIngredient{{IngredientID: "sugar"}, {IngredientID: "butter"}}},
	}

	assert.Equal(t, []string{"flour", "sugar", "butter"}, ingredientIDs(recipes))
	assert.Empty(t, ingredientIDs(nil))
}

func TestArchivedSnapshotEncodesFlat(t *testing.T) {
	row := models.ArchivedSnapshot{
		Snapshot:   models.Snapshot{ID: "s1", TenantID: "t1", TotalCost: 42},
		ArchivedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	raw, err := bson.Marshal(row)
	assert.NoError(t, err)

	var doc bson.M
	assert.NoError(t, bson.Unmarshal(raw, &doc))
	assert.Equal(t, "s1", doc["_id"])
	assert.Equal(t, 42.0, doc["total_cost"])
	assert.Contains(t, doc, "archived_at")
	assert.NotContains(t, doc, "snapshot")
}
