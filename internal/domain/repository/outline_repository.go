package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// OutlineRepository persists the heading tree parsed out of a Version.
type OutlineRepository interface {
	CreateBatch(ctx context.Context, nodes []*models.OutlineNode) error
	FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.OutlineNode, error)
}

// BlockRepository persists structural Blocks and their PageAnchors.
type BlockRepository interface {
	CreateBatch(ctx context.Context, blocks []*models.Block) error
	FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Block, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Block, error)

	CreateAnchors(ctx context.Context, anchors []*models.PageAnchor) error
	FindAnchorsByBlockID(ctx context.Context, blockID uuid.UUID) ([]*models.PageAnchor, error)
	// SetPreferredAnchor marks a single anchor as preferred, clearing any
	// other anchor previously preferred for the same block.
	SetPreferredAnchor(ctx context.Context, blockID, anchorID uuid.UUID) error
}

// TableRepository persists Tables and their Cells.
type TableRepository interface {
	Create(ctx context.Context, t *models.Table) error
	CreateCells(ctx context.Context, cells []*models.Cell) error
	FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Table, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error)
	FindCellsByTableID(ctx context.Context, tableID uuid.UUID) ([]*models.Cell, error)
}
