package models

import "time"

// Ingredient is a purchasable input priced per unit of measure.
type Ingredient struct {
	ID        string  `bson:"_id" json:"id"`
	TenantID  string  `bson:"tenant_id" json:"tenant_id"`
	Name      string  `bson:"name" json:"name"`
	UnitPrice float64 `bson:"unit_price" json:"unit_price"`
	Unit      string  `bson:"unit" json:"unit"`
}

// RecipeIngredient references an ingredient and the quantity a recipe consumes.
// Ingredient is populated by the store when the reference resolves.
type RecipeIngredient struct {
	IngredientID string      `bson:"ingredient_id" json:"ingredient_id"`
	Quantity     float64     `bson:"quantity" json:"quantity"`
	Ingredient   *Ingredient `bson:"-" json:"ingredient,omitempty"`
}

// Recipe is a sellable product made from a list of ingredients.
type Recipe struct {
	ID           string             `bson:"_id" json:"id"`
	TenantID     string             `bson:"tenant_id" json:"tenant_id"`
	Name         string             `bson:"name" json:"name"`
	IsActive     bool               `bson:"is_active" json:"is_active"`
	SellingPrice *float64           `bson:"selling_price,omitempty" json:"selling_price,omitempty"`
	Ingredients  []RecipeIngredient `bson:"ingredients" json:"ingredients"`
}

// ProductionRecord captures one production run of a recipe.
type ProductionRecord struct {
	ID         string    `bson:"_id" json:"id"`
	RecipeID   string    `bson:"recipe_id" json:"recipe_id"`
	TenantID   string    `bson:"tenant_id" json:"tenant_id"`
	Quantity   float64   `bson:"quantity" json:"quantity"`
	ProducedAt time.Time `bson:"produced_at" json:"produced_at"`
}
