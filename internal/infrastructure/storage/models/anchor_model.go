package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Rect is a normalized bounding box on a rendered page, expressed both in
// raw PDF points (RectPoints) and as a 0..1 fraction of page width/height
// (RectNorm) so a viewer can draw it without knowing page dimensions.
type Rect struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// PageAnchor binds a Block to the page it was located on by the aligner
// (component E). A block may carry several candidate anchors from
// different probe fragments; exactly one per block is Preferred.
type PageAnchor struct {
	bun.BaseModel `bun:"table:page_anchors,alias:pa"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	BlockID    uuid.UUID `bun:"block_id,type:uuid,notnull" json:"block_id"`
	PageNo     int       `bun:"page_no,notnull" json:"page_no"`
	RectPoints Rect      `bun:"rect_points,type:jsonb" json:"rect_points"`
	RectNorm   Rect      `bun:"rect_norm,type:jsonb" json:"rect_norm"`
	Confidence float64   `bun:"confidence,notnull" json:"confidence"`
	Preferred  bool      `bun:"preferred,notnull,default:false" json:"preferred"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

func (a *PageAnchor) BeforeInsert(ctx interface{}) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	return nil
}
