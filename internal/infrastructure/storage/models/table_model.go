package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Table is the structural container for a TABLE block's grid of Cells.
type Table struct {
	bun.BaseModel `bun:"table:tables,alias:tbl"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID     uuid.UUID  `bun:"version_id,type:uuid,notnull" json:"version_id"`
	OutlineNodeID *uuid.UUID `bun:"outline_node_id,type:uuid" json:"outline_node_id,omitempty"`
	TableNo       string     `bun:"table_no" json:"table_no,omitempty"`
	Title         string     `bun:"title" json:"title,omitempty"`
	NRows         int        `bun:"n_rows,notnull" json:"n_rows"`
	NCols         int        `bun:"n_cols,notnull" json:"n_cols"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Cells []*Cell `bun:"rel:has-many,join:id=table_id" json:"cells,omitempty"`
}

func (t *Table) BeforeInsert(ctx interface{}) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	t.CreatedAt = time.Now()
	return nil
}

// Cell is a single (row, col) entry in a Table's grid. NumValue/Unit are
// populated by the DOCX structure parser (pipeline parseCellNumber) when
// RawText ends in a number; the unit suffix is kept as written (e.g.
// "万元"), without normalization.
type Cell struct {
	bun.BaseModel `bun:"table:cells,alias:cl"`

	ID       uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	TableID  uuid.UUID `bun:"table_id,type:uuid,notnull" json:"table_id"`
	RowIndex int       `bun:"row_index,notnull" json:"row_index"`
	ColIndex int       `bun:"col_index,notnull" json:"col_index"`
	RawText  string    `bun:"raw_text" json:"raw_text,omitempty"`
	NumValue *float64  `bun:"num_value" json:"num_value,omitempty"`
	Unit     string    `bun:"unit" json:"unit,omitempty"`
}

// InBounds reports whether the cell's coordinates fit the owning table's
// declared grid dimensions.
func (c *Cell) InBounds(nRows, nCols int) bool {
	return c.RowIndex >= 0 && c.RowIndex < nRows && c.ColIndex >= 0 && c.ColIndex < nCols
}
