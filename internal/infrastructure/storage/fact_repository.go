package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

var _ repository.FactRepository = (*FactRepository)(nil)

// FactRepository implements repository.FactRepository using Bun ORM.
// Upserts key off (version_id, fact_key, scope), which must carry a
// unique index in the owning schema.
type FactRepository struct {
	db *bun.DB
}

func NewFactRepository(db *bun.DB) *FactRepository {
	return &FactRepository{db: db}
}

func (r *FactRepository) Upsert(ctx context.Context, f *models.Fact) error {
	_, err := r.db.NewInsert().
		Model(f).
		On("CONFLICT (version_id, fact_key, scope) DO UPDATE").
		Set("value_num = EXCLUDED.value_num").
		Set("value_text = EXCLUDED.value_text").
		Set("unit = EXCLUDED.unit").
		Set("source_block_id = EXCLUDED.source_block_id").
		Set("source_table_id = EXCLUDED.source_table_id").
		Set("source_cell_id = EXCLUDED.source_cell_id").
		Set("confidence = EXCLUDED.confidence").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert fact: %w", err)
	}
	return nil
}

func (r *FactRepository) UpsertBatch(ctx context.Context, facts []*models.Fact) error {
	if len(facts) == 0 {
		return nil
	}
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, f := range facts {
			_, err := tx.NewInsert().
				Model(f).
				On("CONFLICT (version_id, fact_key, scope) DO UPDATE").
				Set("value_num = EXCLUDED.value_num").
				Set("value_text = EXCLUDED.value_text").
				Set("unit = EXCLUDED.unit").
				Set("source_block_id = EXCLUDED.source_block_id").
				Set("source_table_id = EXCLUDED.source_table_id").
				Set("source_cell_id = EXCLUDED.source_cell_id").
				Set("confidence = EXCLUDED.confidence").
				Set("updated_at = EXCLUDED.updated_at").
				Exec(ctx)
			if err != nil {
				return fmt.Errorf("upsert fact batch: %w", err)
			}
		}
		return nil
	})
}

func (r *FactRepository) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Fact, error) {
	var facts []*models.Fact
	err := r.db.NewSelect().
		Model(&facts).
		Where("version_id = ?", versionID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find facts: %w", err)
	}
	return facts, nil
}

func (r *FactRepository) FindByKey(ctx context.Context, versionID uuid.UUID, factKey, scope string) (*models.Fact, error) {
	f := new(models.Fact)
	err := r.db.NewSelect().
		Model(f).
		Where("version_id = ?", versionID).
		Where("fact_key = ?", factKey).
		Where("scope = ?", scope).
		Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find fact by key: %w", err)
	}
	return f, nil
}
