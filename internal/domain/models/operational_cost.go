package models

import (
	"strings"
	"time"
)

// Frequency enumerates the billing cadences of an operational cost.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ParseFrequency maps free-form text onto a Frequency. Unknown values map to
// monthly, which leaves the amount unchanged during normalization.
func ParseFrequency(value string) Frequency {
	switch Frequency(strings.TrimSpace(strings.ToLower(value))) {
	case FrequencyDaily:
		return FrequencyDaily
	case FrequencyWeekly:
		return FrequencyWeekly
	case FrequencyQuarterly:
		return FrequencyQuarterly
	case FrequencyYearly:
		return FrequencyYearly
	default:
		return FrequencyMonthly
	}
}

// OperationalCostEntry is one overhead expense logged by a tenant.
type OperationalCostEntry struct {
	ID          string    `bson:"_id" json:"id"`
	TenantID    string    `bson:"tenant_id" json:"tenant_id"`
	Category    string    `bson:"category" json:"category"`
	Amount      float64   `bson:"amount" json:"amount"`
	IsRecurring bool      `bson:"is_recurring" json:"is_recurring"`
	Frequency   Frequency `bson:"frequency" json:"frequency"`
	Date        time.Time `bson:"date" json:"date"`
}
