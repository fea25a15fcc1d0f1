package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// KB source types and statuses (§3/§4.9). A source is either an uploaded
// document (reuses the same object store as Versions) or a web page
// extracted at indexing time.
const (
	KBSourceTypeDocument = "DOCUMENT"
	KBSourceTypeWeb      = "WEB"

	KBSourceStatusPending = "PENDING"
	KBSourceStatusReady   = "READY"
	KBSourceStatusFailed  = "FAILED"
)

// KBSource is a norm document or web page indexed into overlapping chunks
// for retrieval by the AI Rule Driver (component I).
type KBSource struct {
	bun.BaseModel `bun:"table:kb_sources,alias:kbs"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	KBType    string    `bun:"kb_type,notnull" json:"kb_type"`
	Name      string    `bun:"name,notnull" json:"name"`
	ObjectKey string    `bun:"object_key" json:"object_key,omitempty"`
	SourceURL string    `bun:"source_url" json:"source_url,omitempty"`
	Status    string    `bun:"status,notnull,default:'PENDING'" json:"status"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Chunks []*KBChunk `bun:"rel:has-many,join:id=source_id" json:"chunks,omitempty"`
}

func (s *KBSource) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

func (s *KBSource) BeforeUpdate(ctx interface{}) error {
	s.UpdatedAt = time.Now()
	return nil
}

// KBChunk is one overlapping slice of a KBSource's text, with an optional
// page range and a ContentHash of its text. Re-indexing a source deletes
// and re-inserts its whole chunk set (KBRepository.ReplaceChunks).
type KBChunk struct {
	bun.BaseModel `bun:"table:kb_chunks,alias:kbc"`

	ID           uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	SourceID     uuid.UUID `bun:"source_id,type:uuid,notnull" json:"source_id"`
	ChunkIndex   int       `bun:"chunk_index,notnull" json:"chunk_index"`
	Text         string    `bun:"text,notnull" json:"text"`
	ContentHash  string    `bun:"content_hash,notnull" json:"content_hash"`
	CharStart    int       `bun:"char_start,notnull" json:"char_start"`
	CharEnd      int       `bun:"char_end,notnull" json:"char_end"`
	PageStart    *int      `bun:"page_start" json:"page_start,omitempty"`
	PageEnd      *int      `bun:"page_end" json:"page_end,omitempty"`
	Metadata     JSONBMap  `bun:"metadata,type:jsonb" json:"metadata,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

func (c *KBChunk) BeforeInsert(ctx interface{}) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	return nil
}
