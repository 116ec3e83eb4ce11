// Package notify pushes job run summaries to an operator over WhatsApp.
package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	client "github.com/mamadbah2/hpp/pkg/clients/whatsapp"
)

const (
	sendTimeout = 10 * time.Second
	dateLayout  = "2006-01-02"
	// maxListedErrors caps how many error lines a summary carries.
	maxListedErrors = 5
)

// Notifier sends run summaries. A nil *Notifier is valid and sends nothing.
type Notifier struct {
	client    client.Client
	recipient string
	logger    *zap.Logger
}

// NewNotifier wires a notifier that messages the given recipient.
func NewNotifier(c client.Client, recipient string, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{client: c, recipient: recipient, logger: logger}
}

// NotifySnapshotRun reports the outcome of a snapshot run. runErr is the fatal
// error, if any, in which case report is nil.
func (n *Notifier) NotifySnapshotRun(ctx context.Context, report *models.SnapshotRunReport, runErr error) {
	if n == nil {
		return
	}
	n.send(ctx, FormatSnapshotRun(report, runErr))
}

// NotifyArchivalRun reports the outcome of an archival run.
func (n *Notifier) NotifyArchivalRun(ctx context.Context, report *models.ArchivalReport, runErr error) {
	if n == nil {
		return
	}
	n.send(ctx, FormatArchivalRun(report, runErr))
}

func (n *Notifier) send(ctx context.Context, body string) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := n.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   n.recipient,
		Body: body,
	})
	if err != nil {
		// Notification failures never affect the job outcome.
		n.logger.Warn("failed to send run summary", zap.Error(err))
	}
}

// FormatSnapshotRun renders a snapshot run summary.
func FormatSnapshotRun(report *models.SnapshotRunReport, runErr error) string {
	var b strings.Builder
	if runErr != nil {
		fmt.Fprintf(&b, "HPP snapshot run FAILED\n%s", runErr.Error())
		return b.String()
	}
	if report == nil {
		return "HPP snapshot run produced no report"
	}

	fmt.Fprintf(&b, "HPP snapshots %s\n", report.Timestamp.Format(dateLayout))
	fmt.Fprintf(&b, "Tenants: %d\n", report.TotalTenants)
	fmt.Fprintf(&b, "Recipes: %d\n", report.TotalRecipes)
	fmt.Fprintf(&b, "Created: %d\n", report.SnapshotsCreated)
	fmt.Fprintf(&b, "Failed: %d\n", report.SnapshotsFailed)
	fmt.Fprintf(&b, "Duration: %s", formatMillis(report.ExecutionTimeMs))
	if report.Warning != "" {
		fmt.Fprintf(&b, "\nWarning: %s", report.Warning)
	}

	for i, e := range report.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(&b, "\n... and %d more errors", len(report.Errors)-maxListedErrors)
			break
		}
		fmt.Fprintf(&b, "\n- %s: %s", e.Context, e.Message)
	}
	return b.String()
}

// FormatArchivalRun renders an archival run summary.
func FormatArchivalRun(report *models.ArchivalReport, runErr error) string {
	var b strings.Builder
	if runErr != nil {
		fmt.Fprintf(&b, "HPP archival run FAILED\n%s", runErr.Error())
		return b.String()
	}
	if report == nil {
		return "HPP archival run produced no report"
	}

	fmt.Fprintf(&b, "HPP archival %s [%s]\n", report.Timestamp.Format(dateLayout), report.IntegrityStatus)
	fmt.Fprintf(&b, "Archived: %d in %d batches\n", report.SnapshotsArchived, report.BatchesProcessed)
	if report.OldestDate != nil {
		fmt.Fprintf(&b, "Oldest: %s\n", report.OldestDate.Format(dateLayout))
	}
	fmt.Fprintf(&b, "Remaining aged: %d\n", report.RemainingOldSnapshots)
	fmt.Fprintf(&b, "Archive total: %d\n", report.TotalInArchive)
	fmt.Fprintf(&b, "Duration: %s", formatMillis(report.ExecutionTimeMs))

	for i, e := range report.Errors {
		if i == maxListedErrors {
			fmt.Fprintf(&b, "\n... and %d more errors", len(report.Errors)-maxListedErrors)
			break
		}
		if e.Batch == 0 {
			fmt.Fprintf(&b, "\n- run: %s", e.Error)
			continue
		}
		fmt.Fprintf(&b, "\n- batch %d: %s", e.Batch, e.Error)
	}
	return b.String()
}

func formatMillis(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).String()
}
