package costing

import (
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/hpp/internal/domain/models"
)

// monthlyRatio is the single source of truth for cadence conversion, kept as
// a fraction so quarterly and yearly amounts divide exactly.
func monthlyRatio(f models.Frequency) (num, den int64) {
	switch f {
	case models.FrequencyDaily:
		return 30, 1
	case models.FrequencyWeekly:
		return 4, 1
	case models.FrequencyQuarterly:
		return 1, 3
	case models.FrequencyYearly:
		return 1, 12
	default:
		return 1, 1
	}
}

// MonthlyMultiplier converts a billing cadence into the factor that turns one
// payment into its monthly equivalent. Unknown cadences count as monthly.
func MonthlyMultiplier(f models.Frequency) decimal.Decimal {
	num, den := monthlyRatio(f)
	return decimal.NewFromInt(num).Div(decimal.NewFromInt(den))
}

// MonthlyEquivalent normalizes an entry to a monthly amount. One-off entries
// keep their amount whatever their frequency tag says.
func MonthlyEquivalent(entry models.OperationalCostEntry) decimal.Decimal {
	amount := decimal.NewFromFloat(entry.Amount)
	if !entry.IsRecurring {
		return amount
	}

	num, den := monthlyRatio(entry.Frequency)
	return amount.Mul(decimal.NewFromInt(num)).Div(decimal.NewFromInt(den))
}
