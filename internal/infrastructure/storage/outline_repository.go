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

var _ repository.OutlineRepository = (*OutlineRepository)(nil)

// OutlineRepository implements repository.OutlineRepository using Bun ORM.
type OutlineRepository struct {
	db *bun.DB
}

func NewOutlineRepository(db *bun.DB) *OutlineRepository {
	return &OutlineRepository{db: db}
}

func (r *OutlineRepository) CreateBatch(ctx context.Context, nodes []*models.OutlineNode) error {
	if len(nodes) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&nodes).Exec(ctx); err != nil {
		return fmt.Errorf("create outline nodes: %w", err)
	}
	return nil
}

func (r *OutlineRepository) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.OutlineNode, error) {
	var nodes []*models.OutlineNode
	err := r.db.NewSelect().
		Model(&nodes).
		Where("version_id = ?", versionID).
		OrderExpr("order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find outline nodes: %w", err)
	}
	return nodes, nil
}

var _ repository.BlockRepository = (*BlockRepository)(nil)

// BlockRepository implements repository.BlockRepository using Bun ORM.
type BlockRepository struct {
	db *bun.DB
}

func NewBlockRepository(db *bun.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

func (r *BlockRepository) CreateBatch(ctx context.Context, blocks []*models.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&blocks).Exec(ctx); err != nil {
		return fmt.Errorf("create blocks: %w", err)
	}
	return nil
}

func (r *BlockRepository) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Block, error) {
	var blocks []*models.Block
	err := r.db.NewSelect().
		Model(&blocks).
		Where("version_id = ?", versionID).
		OrderExpr("order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find blocks: %w", err)
	}
	return blocks, nil
}

func (r *BlockRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Block, error) {
	b := new(models.Block)
	err := r.db.NewSelect().Model(b).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find block by id: %w", err)
	}
	return b, nil
}

func (r *BlockRepository) CreateAnchors(ctx context.Context, anchors []*models.PageAnchor) error {
	if len(anchors) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&anchors).Exec(ctx); err != nil {
		return fmt.Errorf("create page anchors: %w", err)
	}
	return nil
}

func (r *BlockRepository) FindAnchorsByBlockID(ctx context.Context, blockID uuid.UUID) ([]*models.PageAnchor, error) {
	var anchors []*models.PageAnchor
	err := r.db.NewSelect().
		Model(&anchors).
		Where("block_id = ?", blockID).
		OrderExpr("confidence DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find anchors: %w", err)
	}
	return anchors, nil
}

func (r *BlockRepository) SetPreferredAnchor(ctx context.Context, blockID, anchorID uuid.UUID) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.PageAnchor)(nil)).
			Set("preferred = false").
			Where("block_id = ?", blockID).
			Exec(ctx); err != nil {
			return fmt.Errorf("clear preferred anchors: %w", err)
		}
		if _, err := tx.NewUpdate().
			Model((*models.PageAnchor)(nil)).
			Set("preferred = true").
			Where("id = ?", anchorID).
			Where("block_id = ?", blockID).
			Exec(ctx); err != nil {
			return fmt.Errorf("set preferred anchor: %w", err)
		}
		return nil
	})
}

var _ repository.TableRepository = (*TableRepository)(nil)

// TableRepository implements repository.TableRepository using Bun ORM.
type TableRepository struct {
	db *bun.DB
}

func NewTableRepository(db *bun.DB) *TableRepository {
	return &TableRepository{db: db}
}

func (r *TableRepository) Create(ctx context.Context, t *models.Table) error {
	if _, err := r.db.NewInsert().Model(t).Exec(ctx); err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	return nil
}

func (r *TableRepository) CreateCells(ctx context.Context, cells []*models.Cell) error {
	if len(cells) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&cells).Exec(ctx); err != nil {
		return fmt.Errorf("create cells: %w", err)
	}
	return nil
}

func (r *TableRepository) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Table, error) {
	var tables []*models.Table
	err := r.db.NewSelect().
		Model(&tables).
		Where("version_id = ?", versionID).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find tables: %w", err)
	}
	return tables, nil
}

func (r *TableRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Table, error) {
	t := new(models.Table)
	err := r.db.NewSelect().Model(t).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find table by id: %w", err)
	}
	return t, nil
}

func (r *TableRepository) FindCellsByTableID(ctx context.Context, tableID uuid.UUID) ([]*models.Cell, error) {
	var cells []*models.Cell
	err := r.db.NewSelect().
		Model(&cells).
		Where("table_id = ?", tableID).
		OrderExpr("row_index ASC, col_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find cells: %w", err)
	}
	return cells, nil
}
