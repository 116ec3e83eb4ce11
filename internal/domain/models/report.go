package models

import "time"

// Integrity statuses reported after an archival run.
const (
	IntegrityPass    = "PASS"
	IntegrityWarning = "WARNING"
)

// JobError describes a failure isolated to one unit of work.
type JobError struct {
	Context string `json:"context"`
	Message string `json:"message"`
}

// TenantResult aggregates snapshot outcomes for one tenant.
type TenantResult struct {
	TenantID         string     `json:"tenant_id"`
	RecipesProcessed int        `json:"recipes_processed"`
	SnapshotsCreated int        `json:"snapshots_created"`
	SnapshotsFailed  int        `json:"snapshots_failed"`
	Errors           []JobError `json:"errors,omitempty"`
}

// SnapshotRunReport summarizes one scheduled HPP snapshot run.
type SnapshotRunReport struct {
	TotalTenants     int            `json:"total_tenants"`
	TotalRecipes     int            `json:"total_recipes"`
	SnapshotsCreated int            `json:"snapshots_created"`
	SnapshotsFailed  int            `json:"snapshots_failed"`
	ExecutionTimeMs  int64          `json:"execution_time_ms"`
	Timestamp        time.Time      `json:"timestamp"`
	Warning          string         `json:"warning,omitempty"`
	Errors           []JobError     `json:"errors,omitempty"`
	Tenants          []TenantResult `json:"-"`
}

// BatchError records a failed archival batch. Batch is 1-based; 0 marks an
// error not tied to one batch, such as verification or cancellation.
type BatchError struct {
	Batch int    `json:"batch"`
	Error string `json:"error"`
}

// ArchivalReport summarizes one archival run.
type ArchivalReport struct {
	SnapshotsArchived     int          `json:"snapshots_archived"`
	OldestDate            *time.Time   `json:"oldest_date"`
	RemainingOldSnapshots int64        `json:"remaining_old_snapshots"`
	TotalInArchive        int64        `json:"total_in_archive"`
	BatchesProcessed      int          `json:"batches_processed"`
	IntegrityStatus       string       `json:"integrity_status"`
	ExecutionTimeMs       int64        `json:"execution_time_ms"`
	Timestamp             time.Time    `json:"timestamp"`
	Errors                []BatchError `json:"errors,omitempty"`
}
