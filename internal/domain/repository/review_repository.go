package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// CheckpointRepository persists the review catalog.
type CheckpointRepository interface {
	FindAll(ctx context.Context) ([]*models.Checkpoint, error)
	FindEnabled(ctx context.Context) ([]*models.Checkpoint, error)
	FindByCode(ctx context.Context, code string) (*models.Checkpoint, error)
	FindByEngineType(ctx context.Context, engineType string) ([]*models.Checkpoint, error)
	Upsert(ctx context.Context, cp *models.Checkpoint) error
}

// ReviewRunRepository persists ReviewRuns and their Issues.
type ReviewRunRepository interface {
	Create(ctx context.Context, run *models.ReviewRun) error
	Update(ctx context.Context, run *models.ReviewRun) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.ReviewRun, error)
	FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.ReviewRun, error)

	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error

	CreateIssues(ctx context.Context, issues []*models.Issue) error
	FindIssuesByRunID(ctx context.Context, runID uuid.UUID) ([]*models.Issue, error)
	FindIssuesByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Issue, error)
	UpdateIssueStatus(ctx context.Context, issueID uuid.UUID, status string) error
}
