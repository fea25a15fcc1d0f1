package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

var _ repository.VersionRepository = (*VersionRepository)(nil)

// VersionRepository implements repository.VersionRepository using Bun ORM.
type VersionRepository struct {
	db *bun.DB
}

func NewVersionRepository(db *bun.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

func (r *VersionRepository) Create(ctx context.Context, v *models.Version) error {
	if _, err := r.db.NewInsert().Model(v).Exec(ctx); err != nil {
		return fmt.Errorf("create version: %w", err)
	}
	return nil
}

func (r *VersionRepository) Update(ctx context.Context, v *models.Version) error {
	v.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(v).
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update version: %w", err)
	}
	return nil
}

func (r *VersionRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Version, error) {
	v := new(models.Version)
	err := r.db.NewSelect().Model(v).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find version by id: %w", err)
	}
	return v, nil
}

func (r *VersionRepository) FindByDocumentID(ctx context.Context, documentID uuid.UUID) ([]*models.Version, error) {
	var versions []*models.Version
	err := r.db.NewSelect().
		Model(&versions).
		Where("document_id = ?", documentID).
		OrderExpr("version_no DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find versions by document id: %w", err)
	}
	return versions, nil
}

// UpdateStatus performs a compare-and-swap transition: the row only
// changes when its current status still matches expectedStatus, so two
// concurrent workers racing to pick up the same version can't both win.
func (r *VersionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expectedStatus, newStatus string) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Version)(nil)).
		Set("status = ?", newStatus).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("status = ?", expectedStatus).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("update version status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update version status rows affected: %w", err)
	}
	return affected == 1, nil
}

func (r *VersionRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int, currentStep string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Version)(nil)).
		Set("progress = ?", progress).
		Set("current_step = ?", currentStep).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update version progress: %w", err)
	}
	return nil
}

func (r *VersionRepository) FindStalledProcessing(ctx context.Context, olderThanSeconds int) ([]*models.Version, error) {
	cutoff := time.Now().Add(-time.Duration(olderThanSeconds) * time.Second)
	var versions []*models.Version
	err := r.db.NewSelect().
		Model(&versions).
		Where("status = ?", models.VersionStatusProcessing).
		Where("updated_at < ?", cutoff).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find stalled versions: %w", err)
	}
	return versions, nil
}

var _ repository.DocumentRepository = (*DocumentRepository)(nil)

// DocumentRepository implements repository.DocumentRepository using Bun ORM.
type DocumentRepository struct {
	db *bun.DB
}

func NewDocumentRepository(db *bun.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, d *models.Document) error {
	if _, err := r.db.NewInsert().Model(d).Exec(ctx); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

func (r *DocumentRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	d := new(models.Document)
	err := r.db.NewSelect().Model(d).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document by id: %w", err)
	}
	return d, nil
}
