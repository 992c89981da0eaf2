// Package review exposes the human review surface over HTTP: trigger a
// pipeline run, list proposed updates, and approve or reject them.
package review

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/Susan2025lee/brandloyaltyupdater/internal/events"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/models"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/pipeline"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/report"
	"github.com/Susan2025lee/brandloyaltyupdater/internal/updates"
	"github.com/Susan2025lee/brandloyaltyupdater/pkg/logger"
)

// API provides the review handlers.
type API struct {
	pipeline  *pipeline.Pipeline
	merger    *pipeline.Merger
	store     updates.Store
	publisher events.Publisher
	log       *logger.Logger

	running atomic.Bool
	lastRun atomic.Pointer[models.RunSummary]
}

// NewAPI creates the review API.
func NewAPI(p *pipeline.Pipeline, merger *pipeline.Merger, store updates.Store, publisher events.Publisher, log *logger.Logger) *API {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &API{pipeline: p, merger: merger, store: store, publisher: publisher, log: log}
}

// TriggerRunHandler starts a pipeline run and returns its summary. Runs are
// exclusive: a second trigger while one is in flight is refused.
func (a *API) TriggerRunHandler(c *gin.Context) {
	if !a.running.CompareAndSwap(false, true) {
		c.JSON(http.StatusConflict, gin.H{"error": "a run is already in progress"})
		return
	}
	defer a.running.Store(false)

	summary, err := a.pipeline.Run(c.Request.Context())
	if err != nil {
		a.log.WithError(err).Error("pipeline run failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	a.lastRun.Store(&summary)
	if err := a.publisher.RunCompleted(c.Request.Context(), summary); err != nil {
		a.log.WithError(err).Warn("failed to publish run_completed event")
	}
	c.JSON(http.StatusOK, summary)
}

// ListUpdatesHandler returns proposed updates, optionally filtered by the
// "status" query parameter, together with the latest run summary so the
// review surface can show skipped metrics alongside the proposals. The
// default filter is pending only.
func (a *API) ListUpdatesHandler(c *gin.Context) {
	status := models.UpdateStatus(c.DefaultQuery("status", string(models.StatusPending)))
	switch status {
	case models.StatusPending, models.StatusApproved, models.StatusRejected, "":
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status filter"})
		return
	}

	list, err := a.store.List(c.Request.Context(), status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list updates"})
		return
	}
	if list == nil {
		list = []models.ProposedUpdate{}
	}
	c.JSON(http.StatusOK, gin.H{"updates": list, "last_run": a.lastRun.Load()})
}

// GetUpdateHandler returns a single proposed update.
func (a *API) GetUpdateHandler(c *gin.Context) {
	update, err := a.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, updates.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "update not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load update"})
		return
	}
	c.JSON(http.StatusOK, update)
}

// ApproveHandler merges the update into the baseline report.
func (a *API) ApproveHandler(c *gin.Context) {
	resolved, err := a.merger.Approve(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondMergeError(c, err)
		return
	}
	a.publishResolution(c, resolved)
	c.JSON(http.StatusOK, resolved)
}

// RejectHandler discards the update without touching the report.
func (a *API) RejectHandler(c *gin.Context) {
	resolved, err := a.merger.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.respondMergeError(c, err)
		return
	}
	a.publishResolution(c, resolved)
	c.JSON(http.StatusOK, resolved)
}

func (a *API) respondMergeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, updates.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "update not found"})
	case errors.Is(err, updates.ErrAlreadyResolved):
		c.JSON(http.StatusConflict, gin.H{"error": "update already resolved"})
	case errors.Is(err, pipeline.ErrMergeConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "report changed since this update was proposed, re-run the pipeline"})
	case errors.Is(err, report.ErrSectionNotFound):
		c.JSON(http.StatusConflict, gin.H{"error": "the report has no section for this metric, add its heading before approving"})
	default:
		a.log.WithError(err).Error("review action failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "review action failed"})
	}
}

func (a *API) publishResolution(c *gin.Context, update models.ProposedUpdate) {
	if err := a.publisher.UpdateResolved(c.Request.Context(), update); err != nil {
		a.log.WithError(err).Warn("failed to publish update_resolved event")
	}
}
