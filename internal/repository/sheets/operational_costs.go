package sheets

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

const dateLayout = "2006-01-02"

// DefaultCacheTTL bounds how long a fetched cost sheet is reused. One snapshot
// run reads costs once per recipe, so the sheet is fetched once per run.
const DefaultCacheTTL = time.Minute

// Sheet columns: id, tenant_id, category, amount, is_recurring, frequency, date.
const (
	colID = iota
	colTenant
	colCategory
	colAmount
	colRecurring
	colFrequency
	colDate
	columnCount
)

// OperationalCostReader serves operational cost entries from a spreadsheet.
type OperationalCostReader struct {
	sheet  RangeReader
	rng    string
	logger *zap.Logger

	// mu serializes fetches so concurrent misses hit the API once.
	mu    sync.Mutex
	cache *expirable.LRU[string, []models.OperationalCostEntry]
}

// NewOperationalCostReader wires a cost reader over the given range.
func NewOperationalCostReader(sheet RangeReader, sheetRange string, ttl time.Duration, logger *zap.Logger) *OperationalCostReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &OperationalCostReader{
		sheet:  sheet,
		rng:    sheetRange,
		logger: logger,
		cache:  expirable.NewLRU[string, []models.OperationalCostEntry](1, nil, ttl),
	}
}

// ListOperationalCosts returns the tenant's entries dated in [since, until].
func (r *OperationalCostReader) ListOperationalCosts(ctx context.Context, tenantID string, since, until time.Time) ([]models.OperationalCostEntry, error) {
	all, err := r.load(ctx)
	if err != nil {
		return nil, err
	}

	var out []models.OperationalCostEntry
	for _, entry := range all {
		if entry.TenantID == tenantID && !entry.Date.Before(since) && !entry.Date.After(until) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *OperationalCostReader) load(ctx context.Context) ([]models.OperationalCostEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if entries, ok := r.cache.Get(r.rng); ok {
		return entries, nil
	}

	rows, err := r.sheet.ReadRange(ctx, r.rng)
	if err != nil {
		return nil, fmt.Errorf("read operational costs: %w", err)
	}

	entries := make([]models.OperationalCostEntry, 0, len(rows))
	for i, row := range rows {
		if i == 0 && isHeader(row) {
			continue
		}
		entry, err := parseCostRow(row)
		if err != nil {
			r.logger.Warn("skipping malformed operational cost row", zap.Int("row", i+1), zap.Error(err))
			continue
		}
		entries = append(entries, entry)
	}

	r.cache.Add(r.rng, entries)
	return entries, nil
}

func isHeader(row []interface{}) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[colID])), "id")
}

func parseCostRow(row []interface{}) (models.OperationalCostEntry, error) {
	if len(row) < columnCount {
		return models.OperationalCostEntry{}, fmt.Errorf("expected %d columns, got %d", columnCount, len(row))
	}

	amount, err := parseFloat(row[colAmount])
	if err != nil {
		return models.OperationalCostEntry{}, fmt.Errorf("amount: %w", err)
	}
	date, err := parseDate(row[colDate])
	if err != nil {
		return models.OperationalCostEntry{}, fmt.Errorf("date: %w", err)
	}
	tenant := cell(row, colTenant)
	if tenant == "" {
		return models.OperationalCostEntry{}, fmt.Errorf("tenant is empty")
	}

	return models.OperationalCostEntry{
		ID:          cell(row, colID),
		TenantID:    tenant,
		Category:    cell(row, colCategory),
		Amount:      amount,
		IsRecurring: parseBool(row[colRecurring]),
		Frequency:   models.ParseFrequency(cell(row, colFrequency)),
		Date:        date,
	}, nil
}

func cell(row []interface{}, idx int) string {
	return strings.TrimSpace(fmt.Sprint(row[idx]))
}

func parseDate(value interface{}) (time.Time, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if len(str) > 10 {
		str = str[:10]
	}
	return time.Parse(dateLayout, str)
}

func parseFloat(value interface{}) (float64, error) {
	str := strings.TrimSpace(fmt.Sprint(value))
	if str == "" {
		return 0, fmt.Errorf("empty numeric value")
	}
	return strconv.ParseFloat(strings.ReplaceAll(str, ",", ""), 64)
}

func parseBool(value interface{}) bool {
	switch strings.ToLower(strings.TrimSpace(fmt.Sprint(value))) {
	case "true", "yes", "y", "1", "oui":
		return true
	default:
		return false
	}
}
