package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// FactRepository persists normalized Facts, upserting on the
// (version_id, fact_key, scope) identity (§3).
type FactRepository interface {
	// Upsert inserts f or overwrites the existing row sharing its
	// (VersionID, FactKey, Scope) key.
	Upsert(ctx context.Context, f *models.Fact) error
	UpsertBatch(ctx context.Context, facts []*models.Fact) error
	FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Fact, error)
	FindByKey(ctx context.Context, versionID uuid.UUID, factKey, scope string) (*models.Fact, error)
}
