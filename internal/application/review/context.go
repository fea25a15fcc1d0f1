// Package review assembles the data a rule checkpoint needs (§4.5) and
// runs the deterministic executors in internal/application/review/executors
// against it. The AI Rule Driver (internal/application/airule) consumes
// the same Context when it assembles a checkpoint batch's document.
package review

import (
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// TableView pairs a Table with its cells, the shape every rule executor
// that inspects table contents actually wants.
type TableView struct {
	Table *models.Table
	Cells []*models.Cell
}

// Context is the fully materialized view of one Version a checkpoint
// runs against: every block, table, fact, and outline node loaded once
// up front so executors never issue their own queries.
type Context struct {
	VersionID   uuid.UUID
	Outline     []*models.OutlineNode
	OutlineByID map[uuid.UUID]*models.OutlineNode
	Blocks      []*models.Block
	BlocksByID  map[uuid.UUID]*models.Block
	Tables      []TableView
	Facts       []*models.Fact
	FactsByKey  map[string]*models.Fact
}

// NewContext indexes raw rows into the lookup maps executors rely on.
// FactsByKey is keyed by "fact_key" alone using the first DOC-scoped
// match, matching the formula checks' document-level variable lookup;
// scoped facts are still available via Facts for executors that need
// per-table or per-section values.
func NewContext(versionID uuid.UUID, outline []*models.OutlineNode, blocks []*models.Block, tables []TableView, facts []*models.Fact) *Context {
	c := &Context{
		VersionID:   versionID,
		Outline:     outline,
		OutlineByID: make(map[uuid.UUID]*models.OutlineNode, len(outline)),
		Blocks:      blocks,
		BlocksByID:  make(map[uuid.UUID]*models.Block, len(blocks)),
		Tables:      tables,
		Facts:       facts,
		FactsByKey:  make(map[string]*models.Fact, len(facts)),
	}
	for _, n := range outline {
		c.OutlineByID[n.ID] = n
	}
	for _, b := range blocks {
		c.BlocksByID[b.ID] = b
	}
	for _, f := range facts {
		if _, exists := c.FactsByKey[f.FactKey]; !exists || f.Scope == models.FactScopeDoc {
			c.FactsByKey[f.FactKey] = f
		}
	}
	return c
}

// FirstBlockID returns the earliest block's ID, the evidence fallback an
// executor cites when it has no better single location for a document-
// wide finding.
func (c *Context) FirstBlockID() *uuid.UUID {
	if len(c.Blocks) == 0 {
		return nil
	}
	id := c.Blocks[0].ID
	return &id
}

// HeadingBlockID finds the HEADING block belonging to outlineNodeID.
func (c *Context) HeadingBlockID(outlineNodeID uuid.UUID) *uuid.UUID {
	for _, b := range c.Blocks {
		if b.BlockType == models.BlockTypeHeading && b.OutlineNodeID != nil && *b.OutlineNodeID == outlineNodeID {
			id := b.ID
			return &id
		}
	}
	return nil
}
