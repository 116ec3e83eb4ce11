package models

import "time"

// IngredientCost is the per-ingredient line of a cost breakdown.
type IngredientCost struct {
	IngredientID string  `bson:"ingredient_id" json:"ingredient_id"`
	Name         string  `bson:"name" json:"name"`
	Quantity     float64 `bson:"quantity" json:"quantity"`
	Unit         string  `bson:"unit" json:"unit"`
	UnitPrice    float64 `bson:"unit_price" json:"unit_price"`
	Cost         float64 `bson:"cost" json:"cost"`
	Percentage   float64 `bson:"percentage" json:"percentage"`
}

// OperationalCost is the per-unit share of one overhead category.
type OperationalCost struct {
	Category   string  `bson:"category" json:"category"`
	Cost       float64 `bson:"cost" json:"cost"`
	Percentage float64 `bson:"percentage" json:"percentage"`
}

// CostBreakdown lists every contribution to a recipe's HPP.
type CostBreakdown struct {
	Ingredients []IngredientCost  `bson:"ingredients" json:"ingredients"`
	Operational []OperationalCost `bson:"operational" json:"operational"`
}

// CostResult is the output of one HPP computation.
type CostResult struct {
	TotalHPP        float64       `json:"total_hpp"`
	MaterialCost    float64       `json:"material_cost"`
	OperationalCost float64       `json:"operational_cost"`
	Breakdown       CostBreakdown `json:"breakdown"`
}

// Snapshot is an immutable, dated record of one HPP computation.
type Snapshot struct {
	ID               string        `bson:"_id" json:"id" validate:"required"`
	RecipeID         string        `bson:"recipe_id" json:"recipe_id" validate:"required"`
	TenantID         string        `bson:"tenant_id" json:"tenant_id" validate:"required"`
	SnapshotDate     time.Time     `bson:"snapshot_date" json:"snapshot_date" validate:"required"`
	TotalCost        float64       `bson:"total_cost" json:"total_cost" validate:"gte=0"`
	MaterialCost     float64       `bson:"material_cost" json:"material_cost" validate:"gte=0"`
	OperationalCost  float64       `bson:"operational_cost" json:"operational_cost" validate:"gte=0"`
	Breakdown        CostBreakdown `bson:"cost_breakdown" json:"cost_breakdown"`
	SellingPrice     *float64      `bson:"selling_price,omitempty" json:"selling_price,omitempty" validate:"omitempty,gt=0"`
	MarginPercentage *float64      `bson:"margin_percentage,omitempty" json:"margin_percentage,omitempty"`
	CreatedAt        time.Time     `bson:"created_at" json:"created_at"`
}

// ArchivedSnapshot is a Snapshot moved to cold storage.
type ArchivedSnapshot struct {
	Snapshot   `bson:",inline"`
	ArchivedAt time.Time `bson:"archived_at" json:"archived_at"`
}
