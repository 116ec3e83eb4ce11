package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/hpp/internal/domain/models"
	"github.com/mamadbah2/hpp/internal/service/jobs"
)

const pingTimeout = 5 * time.Second

// Pinger checks that the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobRunner runs the two maintenance jobs.
type JobRunner interface {
	RunSnapshots(ctx context.Context) (*models.SnapshotRunReport, error)
	RunArchival(ctx context.Context) (*models.ArchivalReport, error)
}

// JobsHandler exposes the jobs as authenticated HTTP triggers.
type JobsHandler struct {
	runner JobRunner
	store  Pinger
	logger *zap.Logger
}

// NewJobsHandler constructs the HTTP handler adapter.
func NewJobsHandler(runner JobRunner, store Pinger, logger *zap.Logger) *JobsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &JobsHandler{runner: runner, store: store, logger: logger}
}

// RunSnapshots triggers one HPP snapshot run and returns its report.
func (h *JobsHandler) RunSnapshots(c *gin.Context) {
	if !h.storeReachable(c) {
		return
	}

	// The run outlives a dropped client connection.
	report, err := h.runner.RunSnapshots(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.fail(c, "snapshot", err)
		return
	}

	respondOK(c, http.StatusOK, report)
}

// RunArchival triggers one archival run and returns its report.
func (h *JobsHandler) RunArchival(c *gin.Context) {
	if !h.storeReachable(c) {
		return
	}

	report, err := h.runner.RunArchival(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.fail(c, "archival", err)
		return
	}

	respondOK(c, http.StatusOK, report)
}

func (h *JobsHandler) storeReachable(c *gin.Context) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), pingTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Error("store unreachable", zap.Error(err))
		respondError(c, http.StatusServiceUnavailable, CodeDBConnectionFailed, "database connection failed", err.Error())
		return false
	}
	return true
}

func (h *JobsHandler) fail(c *gin.Context, job string, err error) {
	if errors.Is(err, jobs.ErrJobAlreadyRunning) {
		respondError(c, http.StatusConflict, CodeJobAlreadyRunning, job+" job is already running", "")
		return
	}

	h.logger.Error("job execution failed", zap.String("job", job), zap.Error(err))
	respondError(c, http.StatusInternalServerError, CodeExecutionFailed, job+" job failed", err.Error())
}
