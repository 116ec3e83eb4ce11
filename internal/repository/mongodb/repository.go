package mongodb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

// Collection names.
const (
	RecipesCollection         = "recipes"
	IngredientsCollection     = "ingredients"
	OperationalCostCollection = "operational_costs"
	ProductionCollection      = "production_records"
	SnapshotsCollection       = "hpp_snapshots"
	ArchiveCollection         = "hpp_snapshots_archive"
)

// MongoDBRepository implements every store the HPP pipeline needs on MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string, logger *zap.Logger) (*MongoDBRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		db:     client.Database(dbName),
		logger: logger,
	}, nil
}

// Ping checks that the server is reachable.
func (r *MongoDBRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the job queries rely on.
func (r *MongoDBRepository) EnsureIndexes(ctx context.Context) error {
	specs := map[string][]mongo.IndexModel{
		RecipesCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "is_active", Value: 1}}},
		},
		OperationalCostCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "date", Value: 1}}},
		},
		ProductionCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "recipe_id", Value: 1}, {Key: "produced_at", Value: 1}}},
		},
		SnapshotsCollection: {
			{Keys: bson.D{{Key: "snapshot_date", Value: 1}}},
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "recipe_id", Value: 1}, {Key: "snapshot_date", Value: -1}}},
		},
		ArchiveCollection: {
			{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "snapshot_date", Value: 1}}},
		},
	}

	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		created, err := r.db.Collection(name).Indexes().CreateMany(ctx, specs[name])
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
		r.logger.Debug("indexes ensured", zap.String("collection", name), zap.Strings("indexes", created))
	}
	return nil
}

// GetRecipe loads a recipe and joins its ingredients.
func (r *MongoDBRepository) GetRecipe(ctx context.Context, tenantID, recipeID string) (*models.Recipe, error) {
	var recipe models.Recipe
	err := r.db.Collection(RecipesCollection).FindOne(ctx, recipeFilter(tenantID, recipeID)).Decode(&recipe)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("recipe %s: %w", recipeID, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load recipe %s: %w", recipeID, err)
	}

	if err := r.joinIngredients(ctx, []*models.Recipe{&recipe}); err != nil {
		return nil, err
	}
	return &recipe, nil
}

// ListActiveRecipes returns the tenant's active recipes ordered by ID.
func (r *MongoDBRepository) ListActiveRecipes(ctx context.Context, tenantID string) ([]models.Recipe, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(RecipesCollection).Find(ctx, activeRecipesFilter(tenantID), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipes for tenant %s: %w", tenantID, err)
	}

	var recipes []models.Recipe
	if err := cursor.All(ctx, &recipes); err != nil {
		return nil, fmt.Errorf("failed to decode recipes for tenant %s: %w", tenantID, err)
	}

	ptrs := make([]*models.Recipe, len(recipes))
	for i := range recipes {
		ptrs[i] = &recipes[i]
	}
	if err := r.joinIngredients(ctx, ptrs); err != nil {
		return nil, err
	}
	return recipes, nil
}

// ListTenantsWithActiveRecipes returns sorted tenant IDs owning an active recipe.
func (r *MongoDBRepository) ListTenantsWithActiveRecipes(ctx context.Context) ([]string, error) {
	values, err := r.db.Collection(RecipesCollection).Distinct(ctx, "tenant_id", bson.M{"is_active": true})
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	tenants := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok && id != "" {
			tenants = append(tenants, id)
		}
	}
	sort.Strings(tenants)
	return tenants, nil
}

func (r *MongoDBRepository) joinIngredients(ctx context.Context, recipes []*models.Recipe) error {
	ids := ingredientIDs(recipes)
	if len(ids) == 0 {
		return nil
	}

	cursor, err := r.db.Collection(IngredientsCollection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to load ingredients: %w", err)
	}

	var ingredients []models.Ingredient
	if err := cursor.All(ctx, &ingredients); err != nil {
		return fmt.Errorf("failed to decode ingredients: %w", err)
	}

	byID := make(map[string]models.Ingredient, len(ingredients))
	for _, ingredient := range ingredients {
		byID[ingredient.ID] = ingredient
	}
	for _, recipe := range recipes {
		for i := range recipe.Ingredients {
			if ingredient, ok := byID[recipe.Ingredients[i].IngredientID]; ok {
				ingredient := ingredient
				recipe.Ingredients[i].Ingredient = &ingredient
			}
		}
	}
	return nil
}

// ListOperationalCosts returns the tenant's entries dated in [since, until].
func (r *MongoDBRepository) ListOperationalCosts(ctx context.Context, tenantID string, since, until time.Time) ([]models.OperationalCostEntry, error) {
	cursor, err := r.db.Collection(OperationalCostCollection).Find(ctx, windowFilter(tenantID, "date", since, until))
	if err != nil {
		return nil, fmt.Errorf("failed to list operational costs for tenant %s: %w", tenantID, err)
	}

	var entries []models.OperationalCostEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode operational costs: %w", err)
	}
	for i := range entries {
		entries[i].Frequency = models.ParseFrequency(string(entries[i].Frequency))
	}
	return entries, nil
}

// ListProduction returns the recipe's production dated in [since, until].
func (r *MongoDBRepository) ListProduction(ctx context.Context, tenantID, recipeID string, since, until time.Time) ([]models.ProductionRecord, error) {
	filter := windowFilter(tenantID, "produced_at", since, until)
	filter["recipe_id"] = recipeID

	cursor, err := r.db.Collection(ProductionCollection).Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list production for recipe %s: %w", recipeID, err)
	}

	var records []models.ProductionRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode production records: %w", err)
	}
	return records, nil
}

// CreateSnapshot inserts a new snapshot.
func (r *MongoDBRepository) CreateSnapshot(ctx context.Context, snapshot models.Snapshot) error {
	if _, err := r.db.Collection(SnapshotsCollection).InsertOne(ctx, snapshot); err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}
	return nil
}

// FindOlderThan returns live snapshots dated before cutoff, oldest first.
func (r *MongoDBRepository) FindOlderThan(ctx context.Context, cutoff time.Time) ([]models.Snapshot, error) {
	opts := options.Find().SetSort(bson.D{{Key: "snapshot_date", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.db.Collection(SnapshotsCollection).Find(ctx, olderThanFilter(cutoff), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find aged snapshots: %w", err)
	}

	var snapshots []models.Snapshot
	if err := cursor.All(ctx, &snapshots); err != nil {
		return nil, fmt.Errorf("failed to decode aged snapshots: %w", err)
	}
	return snapshots, nil
}

// CountOlderThan counts live snapshots dated before cutoff.
func (r *MongoDBRepository) CountOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	n, err := r.db.Collection(SnapshotsCollection).CountDocuments(ctx, olderThanFilter(cutoff))
	if err != nil {
		return 0, fmt.Errorf("failed to count aged snapshots: %w", err)
	}
	return n, nil
}

// DeleteByIDs removes live snapshots by ID.
func (r *MongoDBRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.Collection(SnapshotsCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete snapshots: %w", err)
	}
	return res.DeletedCount, nil
}

// UpsertArchived writes archived copies keyed by snapshot ID, replacing any
// copy left behind by an interrupted run.
func (r *MongoDBRepository) UpsertArchived(ctx context.Context, rows []models.ArchivedSnapshot) error {
	if len(rows) == 0 {
		return nil
	}

	writes := make([]mongo.WriteModel, len(rows))
	for i, row := range rows {
		writes[i] = mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": row.ID}).
			SetReplacement(row).
			SetUpsert(true)
	}

	if _, err := r.db.Collection(ArchiveCollection).BulkWrite(ctx, writes, options.BulkWrite().SetOrdered(false)); err != nil {
		return fmt.Errorf("failed to write archive batch: %w", err)
	}
	return nil
}

// CountArchived counts all rows in the archive.
func (r *MongoDBRepository) CountArchived(ctx context.Context) (int64, error) {
	n, err := r.db.Collection(ArchiveCollection).CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count archive: %w", err)
	}
	return n, nil
}

func recipeFilter(tenantID, recipeID string) bson.M {
	return bson.M{"_id": recipeID, "tenant_id": tenantID}
}

func activeRecipesFilter(tenantID string) bson.M {
	return bson.M{"tenant_id": tenantID, "is_active": true}
}

func windowFilter(tenantID, field string, since, until time.Time) bson.M {
	return bson.M{"tenant_id": tenantID, field: bson.M{"$gte": since, "$lte": until}}
}

func olderThanFilter(cutoff time.Time) bson.M {
	return bson.M{"snapshot_date": bson.M{"$lt": cutoff}}
}

// ingredientIDs returns the distinct ingredient references in first-seen order.
func ingredientIDs(recipes []*models.Recipe) []string {
	seen := make(map[string]struct{})
	var ids []string
	for _, recipe := range recipes {
		for _, item := range recipe.Ingredients {
			if item.IngredientID == "" {
				continue
			}
			if _, ok := seen[item.IngredientID]; ok {
				continue
			}
			seen[item.IngredientID] = struct{}{}
			ids = append(ids, item.IngredientID)
		}
	}
	return ids
}
