package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// ReviewRunner starts a review pass for a Version, matching
// internal/application/reviewrun.Service.Run's signature.
type ReviewRunner interface {
	Run(ctx context.Context, versionID uuid.UUID) (*models.ReviewRun, error)
}

// ReviewHandlers exposes the review-run trigger and issue-listing
// endpoints (§1: POST /api/versions/:id/review-runs, GET .../issues).
type ReviewHandlers struct {
	runs    repository.ReviewRunRepository
	service ReviewRunner
	logger  *logger.Logger
}

func NewReviewHandlers(runs repository.ReviewRunRepository, service ReviewRunner, log *logger.Logger) *ReviewHandlers {
	return &ReviewHandlers{runs: runs, service: service, logger: log}
}

// HandleStartReviewRun starts a review pass for the given version in the
// background and waits up to 500ms for it: a run that finishes in that
// window is returned (202), an error in that window is returned as an API
// error, and otherwise the response is 202 with the version ID and status
// RUNNING, without the run's ID.
func (h *ReviewHandlers) HandleStartReviewRun(c *gin.Context) {
	idStr, ok := getParam(c, "id")
	if !ok {
		return
	}
	versionID, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "id must be a uuid", http.StatusBadRequest))
		return
	}

	done := make(chan *models.ReviewRun, 1)
	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Minute)
		defer cancel()
		run, err := h.service.Run(ctx, versionID)
		if err != nil {
			errCh <- err
			return
		}
		done <- run
	}()

	select {
	case run := <-done:
		respondJSON(c, http.StatusAccepted, run)
	case err := <-errCh:
		respondAPIErrorWithRequestID(c, err)
	case <-time.After(500 * time.Millisecond):
		// The run is still in flight; report accepted without blocking
		// the HTTP request on the full review pass, which can take
		// several minutes for AI-engine checkpoints.
		respondJSON(c, http.StatusAccepted, gin.H{"version_id": versionID, "status": models.RunStatusRunning})
	}
}

// HandleGetReviewRun returns a ReviewRun's current status/progress.
func (h *ReviewHandlers) HandleGetReviewRun(c *gin.Context) {
	idStr, ok := getParam(c, "id")
	if !ok {
		return
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "id must be a uuid", http.StatusBadRequest))
		return
	}
	run, err := h.runs.FindByID(c.Request.Context(), id)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	respondJSON(c, http.StatusOK, run)
}

// HandleListIssues lists every Issue produced for a version, optionally
// filtered by status via ?status=.
func (h *ReviewHandlers) HandleListIssues(c *gin.Context) {
	idStr, ok := getParam(c, "id")
	if !ok {
		return
	}
	versionID, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "id must be a uuid", http.StatusBadRequest))
		return
	}
	issues, err := h.runs.FindIssuesByVersionID(c.Request.Context(), versionID)
	if err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	if status := getQuery(c, "status", ""); status != "" {
		filtered := issues[:0]
		for _, i := range issues {
			if i.Status == status {
				filtered = append(filtered, i)
			}
		}
		issues = filtered
	}
	respondJSON(c, http.StatusOK, issues)
}

// HandleUpdateIssueStatus moves an issue between OPEN/ACCEPTED/DISMISSED
// as a reviewer triages it.
func (h *ReviewHandlers) HandleUpdateIssueStatus(c *gin.Context) {
	idStr, ok := getParam(c, "issue_id")
	if !ok {
		return
	}
	issueID, err := uuid.Parse(idStr)
	if err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_ID", "issue_id must be a uuid", http.StatusBadRequest))
		return
	}
	var body struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_JSON", err.Error(), http.StatusBadRequest))
		return
	}
	switch body.Status {
	case models.IssueStatusOpen, models.IssueStatusAccepted, models.IssueStatusDismissed:
	default:
		respondAPIErrorWithRequestID(c, NewAPIError("INVALID_STATUS", "unknown issue status", http.StatusBadRequest))
		return
	}
	if err := h.runs.UpdateIssueStatus(c.Request.Context(), issueID, body.Status); err != nil {
		respondAPIErrorWithRequestID(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
