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

var _ repository.KBRepository = (*KBRepository)(nil)

// KBRepository implements repository.KBRepository using Bun ORM.
type KBRepository struct {
	db *bun.DB
}

func NewKBRepository(db *bun.DB) *KBRepository {
	return &KBRepository{db: db}
}

func (r *KBRepository) CreateSource(ctx context.Context, s *models.KBSource) error {
	if _, err := r.db.NewInsert().Model(s).Exec(ctx); err != nil {
		return fmt.Errorf("create kb source: %w", err)
	}
	return nil
}

func (r *KBRepository) UpdateSourceStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := r.db.NewUpdate().
		Model((*models.KBSource)(nil)).
		Set("status = ?", status).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update kb source status: %w", err)
	}
	return nil
}

func (r *KBRepository) FindSourceByID(ctx context.Context, id uuid.UUID) (*models.KBSource, error) {
	s := new(models.KBSource)
	err := r.db.NewSelect().Model(s).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find kb source by id: %w", err)
	}
	return s, nil
}

func (r *KBRepository) FindAllSources(ctx context.Context) ([]*models.KBSource, error) {
	var sources []*models.KBSource
	err := r.db.NewSelect().Model(&sources).OrderExpr("created_at DESC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find kb sources: %w", err)
	}
	return sources, nil
}

// ReplaceChunks deletes the source's existing chunks and inserts the new
// set in a single transaction. Re-indexing computes content hashes
// upstream (component K); an unchanged source therefore writes identical
// rows back, which is wasteful but never corrupts an in-flight read since
// the swap is transactional.
func (r *KBRepository) ReplaceChunks(ctx context.Context, sourceID uuid.UUID, chunks []*models.KBChunk) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().
			Model((*models.KBChunk)(nil)).
			Where("source_id = ?", sourceID).
			Exec(ctx); err != nil {
			return fmt.Errorf("delete old kb chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}
		if _, err := tx.NewInsert().Model(&chunks).Exec(ctx); err != nil {
			return fmt.Errorf("insert kb chunks: %w", err)
		}
		return nil
	})
}

func (r *KBRepository) FindChunksBySourceID(ctx context.Context, sourceID uuid.UUID) ([]*models.KBChunk, error) {
	var chunks []*models.KBChunk
	err := r.db.NewSelect().
		Model(&chunks).
		Where("source_id = ?", sourceID).
		OrderExpr("chunk_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find kb chunks: %w", err)
	}
	return chunks, nil
}

// SearchChunks performs a simple case-insensitive substring match over
// chunk text. Retrieval ranking for the AI Rule Driver's knowledge-base
// lookups is a keyword prefilter, not full semantic search (no vector
// column or embedding is modeled — see design notes).
func (r *KBRepository) SearchChunks(ctx context.Context, query string, limit int) ([]*models.KBChunk, error) {
	var chunks []*models.KBChunk
	err := r.db.NewSelect().
		Model(&chunks).
		Where("text ILIKE ?", "%"+query+"%").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("search kb chunks: %w", err)
	}
	return chunks, nil
}
