package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Project owns Documents. CRUD for projects is an external collaborator
// concern (out of scope per the engine's HTTP surface); this model exists
// only so Version carries a valid document_id -> project_id chain.
type Project struct {
	bun.BaseModel `bun:"table:projects,alias:proj"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}

// Document owns Versions.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID        uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	ProjectID uuid.UUID `bun:"project_id,type:uuid,notnull" json:"project_id"`
	Name      string    `bun:"name,notnull" json:"name"`
	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`

	Versions []*Version `bun:"rel:has-many,join:id=document_id" json:"versions,omitempty"`
}

// Version statuses (§3).
const (
	VersionStatusUploaded   = "UPLOADED"
	VersionStatusProcessing = "PROCESSING"
	VersionStatusReady      = "READY"
	VersionStatusDone       = "DONE"
	VersionStatusFailed     = "FAILED"
	VersionStatusCanceled   = "CANCELED"
)

// Version is the unit of processing (§3). Owns OutlineNodes, Blocks,
// Tables, Cells, PageAnchors, Facts, ReviewRuns, and Issues; deleting a
// Version cascades to all of them at the schema level.
type Version struct {
	bun.BaseModel `bun:"table:versions,alias:v"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	DocumentID uuid.UUID `bun:"document_id,type:uuid,notnull" json:"document_id"`
	VersionNo  int       `bun:"version_no,notnull" json:"version_no"`
	Status     string    `bun:"status,notnull,default:'UPLOADED'" json:"status"`
	Progress   int       `bun:"progress,notnull,default:0" json:"progress"`
	CurrentStep string   `bun:"current_step" json:"current_step,omitempty"`
	ErrorMessage string  `bun:"error_message" json:"error_message,omitempty"`

	SourceObjectKey    string `bun:"source_object_key" json:"source_object_key,omitempty"`
	RenderedObjectKey  string `bun:"rendered_object_key" json:"rendered_object_key,omitempty"`
	StructureObjectKey string `bun:"structure_object_key" json:"structure_object_key,omitempty"`
	LayoutObjectKey    string `bun:"layout_object_key" json:"layout_object_key,omitempty"`
	PageMapObjectKey   string `bun:"page_map_object_key" json:"page_map_object_key,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (v *Version) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

func (v *Version) BeforeUpdate(ctx interface{}) error {
	v.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the version has reached a terminal lifecycle state.
func (v *Version) IsTerminal() bool {
	switch v.Status {
	case VersionStatusDone, VersionStatusFailed, VersionStatusCanceled:
		return true
	default:
		return false
	}
}
