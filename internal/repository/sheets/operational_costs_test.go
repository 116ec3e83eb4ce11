package sheets

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

type stubSheet struct {
	rows  [][]interface{}
	err   error
	calls int
}

func (s *stubSheet) ReadRange(context.Context, string) ([][]interface{}, error) {
	s.calls++
	return s.rows, s.err
}

var farFuture = time.Date(2100, 1, 1, 0, 0, 0, 0, time.UTC)

func costRows() [][]interface{} {
	return [][]interface{}{
		{"id", "tenant_id", "category", "amount", "is_recurring", "frequency", "date"},
		{"c1", "t1", "Rent", "1,500,000", "TRUE", "Monthly", "2026-06-01"},
		{"c2", "t1", "Electricity", "50000", "yes", "weekly", "2026-06-10T08:00:00Z"},
		{"c3", "t2", "Rent", "900000", "true", "monthly", "2026-06-01"},
		{"c4", "t1", "Packaging", "abc", "false", "", "2026-06-02"},
		{"c5", "t1", "Old"},
		{"c6", "t1", "Repair", "12000", "no", "", "2026-01-15"},
		{"c7", "t1", "Rent", "1,500,000", "true", "monthly", "2026-08-01"},
	}
}

func TestOperationalCostReader_ParsesAndFilters(t *testing.T) {
	sheet := &stubSheet{rows: costRows()}
	reader := NewOperationalCostReader(sheet, "Costs!A:G", 0, zap.NewNop())

	since := time.Date(2026, 5, 16, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	entries, err := reader.ListOperationalCosts(context.Background(), "t1", since, until)
	require.NoError(t, err)

	require.Len(t, entries, 2)
	assert.Equal(t, models.OperationalCostEntry{
		ID:          "c1",
		TenantID:    "t1",
		Category:    "Rent",
		Amount:      1500000,
		IsRecurring: true,
		Frequency:   models.FrequencyMonthly,
		Date:        time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC),
	}, entries[0])
	assert.Equal(t, models.FrequencyWeekly, entries[1].Frequency)
	assert.True(t, entries[1].IsRecurring)
}

func TestOperationalCostReader_CachesWithinTTL(t *testing.T) {
	sheet := &stubSheet{rows: costRows()}
	reader := NewOperationalCostReader(sheet, "Costs!A:G", 50*time.Millisecond, nil)

	ctx := context.Background()
	_, err := reader.ListOperationalCosts(ctx, "t1", time.Time{}, farFuture)
	require.NoError(t, err)
	_, err = reader.ListOperationalCosts(ctx, "t2", time.Time{}, farFuture)
	require.NoError(t, err)
	assert.Equal(t, 1, sheet.calls)

	time.Sleep(150 * time.Millisecond)
	_, err = reader.ListOperationalCosts(ctx, "t1", time.Time{}, farFuture)
	require.NoError(t, err)
	assert.Equal(t, 2, sheet.calls)
}

func TestOperationalCostReader_PropagatesReadErrors(t *testing.T) {
	reader := NewOperationalCostReader(&stubSheet{err: errors.New("quota exceeded")}, "Costs!A:G", 0, nil)

	_, err := reader.ListOperationalCosts(context.Background(), "t1", time.Time{}, farFuture)
	assert.ErrorContains(t, err, "quota exceeded")
}

func TestParseCostRow_Errors(t *testing.T) {
	_, err := parseCostRow([]interface{}{"c1", "", "Rent", "10", "true", "monthly", "2026-06-01"})
	assert.ErrorContains(t, err, "tenant")

	_, err = parseCostRow([]interface{}{"c1", "t1", "Rent", "10", "true", "monthly", "June 1"})
	assert.ErrorContains(t, err, "date")
}
