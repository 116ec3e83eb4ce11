// Package memory implements every store the HPP pipeline needs in process
// memory. It backs tests and STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

// Store is a concurrency-safe in-memory store.
type Store struct {
	mu          sync.RWMutex
	recipes     map[string]models.Recipe
	ingredients map[string]models.Ingredient
	costs       []models.OperationalCostEntry
	production  []models.ProductionRecord
	snapshots   map[string]models.Snapshot
	archive     map[string]models.ArchivedSnapshot
}

// New returns an empty store.
func New() *Store {
	return &Store{
		recipes:     make(map[string]models.Recipe),
		ingredients: make(map[string]models.Ingredient),
		snapshots:   make(map[string]models.Snapshot),
		archive:     make(map[string]models.ArchivedSnapshot),
	}
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// PutIngredient inserts or replaces an ingredient.
func (s *Store) PutIngredient(ingredient models.Ingredient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingredients[ingredient.ID] = ingredient
}

// PutRecipe inserts or replaces a recipe. Joined ingredient pointers are ignored.
func (s *Store) PutRecipe(recipe models.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.RecipeIngredient, len(recipe.Ingredients))
	for i, item := range recipe.Ingredients {
		items[i] = models.RecipeIngredient{IngredientID: item.IngredientID, Quantity: item.Quantity}
	}
	recipe.Ingredients = items
	s.recipes[recipe.ID] = recipe
}

// AddOperationalCost appends an operational cost entry.
func (s *Store) AddOperationalCost(entry models.OperationalCostEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.costs = append(s.costs, entry)
}

// AddProduction appends a production record.
func (s *Store) AddProduction(record models.ProductionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.production = append(s.production, record)
}

// GetRecipe returns a recipe with its ingredients joined.
func (s *Store) GetRecipe(_ context.Context, tenantID, recipeID string) (*models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recipe, ok := s.recipes[recipeID]
	if !ok || recipe.TenantID != tenantID {
		return nil, fmt.Errorf("recipe %s: %w", recipeID, models.ErrNotFound)
	}
	joined := s.join(recipe)
	return &joined, nil
}

// ListActiveRecipes returns the tenant's active recipes ordered by ID.
func (s *Store) ListActiveRecipes(_ context.Context, tenantID string) ([]models.Recipe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Recipe
	for _, recipe := range s.recipes {
		if recipe.TenantID == tenantID && recipe.IsActive {
			out = append(out, s.join(recipe))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ListTenantsWithActiveRecipes returns sorted tenant IDs owning an active recipe.
func (s *Store) ListTenantsWithActiveRecipes(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, recipe := range s.recipes {
		if recipe.IsActive {
			seen[recipe.TenantID] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for tenantID := range seen {
		out = append(out, tenantID)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) join(recipe models.Recipe) models.Recipe {
	items := make([]models.RecipeIngredient, len(recipe.Ingredients))
	for i, item := range recipe.Ingredients {
		items[i] = item
		if ingredient, ok := s.ingredients[item.IngredientID]; ok {
			ingredient := ingredient
			items[i].Ingredient = &ingredient
		}
	}
	recipe.Ingredients = items
	return recipe
}

// ListOperationalCosts returns the tenant's entries dated in [since, until].
func (s *Store) ListOperationalCosts(_ context.Context, tenantID string, since, until time.Time) ([]models.OperationalCostEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.OperationalCostEntry
	for _, entry := range s.costs {
		if entry.TenantID == tenantID && within(entry.Date, since, until) {
			out = append(out, entry)
		}
	}
	return out, nil
}

// ListProduction returns the recipe's production dated in [since, until].
func (s *Store) ListProduction(_ context.Context, tenantID, recipeID string, since, until time.Time) ([]models.ProductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ProductionRecord
	for _, record := range s.production {
		if record.TenantID == tenantID && record.RecipeID == recipeID && within(record.ProducedAt, since, until) {
			out = append(out, record)
		}
	}
	return out, nil
}

func within(t, since, until time.Time) bool {
	return !t.Before(since) && !t.After(until)
}

// CreateSnapshot stores a new snapshot. IDs must be unique.
func (s *Store) CreateSnapshot(_ context.Context, snapshot models.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.snapshots[snapshot.ID]; exists {
		return fmt.Errorf("snapshot %s already exists", snapshot.ID)
	}
	s.snapshots[snapshot.ID] = snapshot
	return nil
}

// FindOlderThan returns live snapshots dated before cutoff, oldest first.
func (s *Store) FindOlderThan(_ context.Context, cutoff time.Time) ([]models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Snapshot
	for _, snapshot := range s.snapshots {
		if snapshot.SnapshotDate.Before(cutoff) {
			out = append(out, snapshot)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SnapshotDate.Equal(out[j].SnapshotDate) {
			return out[i].ID < out[j].ID
		}
		return out[i].SnapshotDate.Before(out[j].SnapshotDate)
	})
	return out, nil
}

// CountOlderThan counts live snapshots dated before cutoff.
func (s *Store) CountOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, snapshot := range s.snapshots {
		if snapshot.SnapshotDate.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

// DeleteByIDs removes live snapshots and reports how many existed.
func (s *Store) DeleteByIDs(_ context.Context, ids []string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, id := range ids {
		if _, ok := s.snapshots[id]; ok {
			delete(s.snapshots, id)
			n++
		}
	}
	return n, nil
}

// UpsertArchived writes archived copies keyed by snapshot ID.
func (s *Store) UpsertArchived(_ context.Context, rows []models.ArchivedSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range rows {
		s.archive[row.ID] = row
	}
	return nil
}

// CountArchived counts all rows in the archive.
func (s *Store) CountArchived(context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.archive)), nil
}

// Snapshots returns a copy of all live snapshots ordered by ID.
func (s *Store) Snapshots() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		out = append(out, snapshot)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Archived returns a copy of one archived row.
func (s *Store) Archived(id string) (models.ArchivedSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.archive[id]
	return row, ok
}
