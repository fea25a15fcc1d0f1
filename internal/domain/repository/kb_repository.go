package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// KBRepository persists knowledge-base sources and their indexed chunks.
type KBRepository interface {
	CreateSource(ctx context.Context, s *models.KBSource) error
	UpdateSourceStatus(ctx context.Context, id uuid.UUID, status string) error
	FindSourceByID(ctx context.Context, id uuid.UUID) (*models.KBSource, error)
	FindAllSources(ctx context.Context) ([]*models.KBSource, error)

	// ReplaceChunks atomically swaps a source's chunk set, deduplicating
	// unchanged chunks by content hash so re-indexing an unmodified
	// source does not touch rows an in-flight retrieval may be reading.
	ReplaceChunks(ctx context.Context, sourceID uuid.UUID, chunks []*models.KBChunk) error
	FindChunksBySourceID(ctx context.Context, sourceID uuid.UUID) ([]*models.KBChunk, error)
	SearchChunks(ctx context.Context, query string, limit int) ([]*models.KBChunk, error)
}
