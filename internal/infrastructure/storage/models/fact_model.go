package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Fact scopes (§3). DOC-scoped facts summarize the whole version; TABLE
// facts are per-table aggregates; SECTION facts are scoped to one outline
// node (e.g. a per-chapter total).
const (
	FactScopeDoc     = "DOC"
	FactScopeTable   = "TABLE"
	FactScopeSection = "SECTION"
)

// Fact is a normalized key/value extracted from prose or table cells,
// unique per (version_id, fact_key, scope). ValueNum is set when the
// extracted text parsed as a number (after unit normalization); ValueText
// carries the raw form otherwise or in addition.
type Fact struct {
	bun.BaseModel `bun:"table:facts,alias:f"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID     uuid.UUID  `bun:"version_id,type:uuid,notnull" json:"version_id"`
	FactKey       string     `bun:"fact_key,notnull" json:"fact_key"`
	Scope         string     `bun:"scope,notnull,default:'DOC'" json:"scope"`
	ValueNum      *float64   `bun:"value_num" json:"value_num,omitempty"`
	ValueText     string     `bun:"value_text" json:"value_text,omitempty"`
	Unit          string     `bun:"unit" json:"unit,omitempty"`
	SourceBlockID *uuid.UUID `bun:"source_block_id,type:uuid" json:"source_block_id,omitempty"`
	SourceTableID *uuid.UUID `bun:"source_table_id,type:uuid" json:"source_table_id,omitempty"`
	SourceCellID  *uuid.UUID `bun:"source_cell_id,type:uuid" json:"source_cell_id,omitempty"`
	Confidence    float64    `bun:"confidence,notnull,default:1" json:"confidence"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (f *Fact) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	f.CreatedAt = now
	f.UpdatedAt = now
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (f *Fact) BeforeUpdate(ctx interface{}) error {
	f.UpdatedAt = time.Now()
	return nil
}

// Key returns the fact's upsert identity.
func (f *Fact) Key() (versionID uuid.UUID, factKey, scope string) {
	return f.VersionID, f.FactKey, f.Scope
}
