package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// VersionRepository persists Versions and their owning Documents/Projects.
type VersionRepository interface {
	Create(ctx context.Context, v *models.Version) error
	Update(ctx context.Context, v *models.Version) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Version, error)
	FindByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.Version, error)

	// UpdateStatus performs a compare-and-swap state transition, returning
	// false (no error) when expectedStatus no longer matches the stored
	// row so callers can distinguish "lost the race" from "failed".
	UpdateStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string) (bool, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress int, currentStep string) error

	// FindStalledProcessing returns versions stuck in PROCESSING with no
	// progress update since the given cutoff, for the sweeper to requeue.
	FindStalledProcessing(ctx context.Context, olderThanSeconds int) ([]*models.Version, error)
}

// DocumentRepository persists Documents. Project/Document CRUD is out of
// scope as an HTTP surface; these methods exist because the ingestion
// pipeline and exporter both need to resolve a Version's owning Document.
type DocumentRepository interface {
	Create(ctx context.Context, d *models.Document) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error)
}
