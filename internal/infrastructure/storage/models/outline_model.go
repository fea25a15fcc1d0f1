package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// OutlineNode is a heading-derived section of the document tree (§3).
// NodeNo carries the dotted numbering ("3.2.1") parsed from the heading
// text itself; Level is the counter-derived nesting depth, which can
// diverge from len(strings.Split(NodeNo, ".")) when headings are
// mis-numbered in the source document.
type OutlineNode struct {
	bun.BaseModel `bun:"table:outline_nodes,alias:on"`

	ID         uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID  uuid.UUID  `bun:"version_id,type:uuid,notnull" json:"version_id"`
	ParentID   *uuid.UUID `bun:"parent_id,type:uuid" json:"parent_id,omitempty"`
	NodeNo     string     `bun:"node_no" json:"node_no,omitempty"`
	Title      string     `bun:"title,notnull" json:"title"`
	Level      int        `bun:"level,notnull" json:"level"`
	OrderIndex int        `bun:"order_index,notnull" json:"order_index"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Blocks []*Block `bun:"rel:has-many,join:id=outline_node_id" json:"blocks,omitempty"`
}

func (n *OutlineNode) BeforeInsert(ctx interface{}) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	n.CreatedAt = time.Now()
	return nil
}

// Block kinds (§3). A Block is exactly one of these; HEADING/PARA carry
// Text, TABLE carries TableID, never both.
const (
	BlockTypeHeading = "HEADING"
	BlockTypePara    = "PARA"
	BlockTypeTable   = "TABLE"
)

// Block is an ordered structural unit extracted from the document body.
type Block struct {
	bun.BaseModel `bun:"table:blocks,alias:blk"`

	ID            uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID     uuid.UUID  `bun:"version_id,type:uuid,notnull" json:"version_id"`
	OutlineNodeID *uuid.UUID `bun:"outline_node_id,type:uuid" json:"outline_node_id,omitempty"`
	BlockType     string     `bun:"block_type,notnull" json:"block_type"`
	OrderIndex    int        `bun:"order_index,notnull" json:"order_index"`
	Text          string     `bun:"text" json:"text,omitempty"`
	TableID       *uuid.UUID `bun:"table_id,type:uuid" json:"table_id,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Anchors []*PageAnchor `bun:"rel:has-many,join:id=block_id" json:"anchors,omitempty"`
}

func (b *Block) BeforeInsert(ctx interface{}) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	b.CreatedAt = time.Now()
	return nil
}

// Valid reports whether the block satisfies the exactly-one-of(text, table_id) invariant.
func (b *Block) Valid() bool {
	hasText := b.Text != ""
	hasTable := b.TableID != nil
	switch b.BlockType {
	case BlockTypeTable:
		return hasTable && !hasText
	case BlockTypeHeading, BlockTypePara:
		return hasText && !hasTable
	default:
		return false
	}
}
