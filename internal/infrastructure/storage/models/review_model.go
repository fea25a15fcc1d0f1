package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Checkpoint engine types (§3): a RULE checkpoint runs a deterministic
// executor from internal/application/review/executors, an AI checkpoint is
// dispatched to the AI Rule Driver (component I) as part of a document batch.
const (
	EngineTypeRule = "RULE"
	EngineTypeAI   = "AI"
)

// Review categories, mirroring the two halves of a conservation plan
// review: formal completeness (FORM) and technical correctness (TECH).
const (
	ReviewTypeForm = "FORM"
	ReviewTypeTech = "TECH"
)

// Checkpoint is a single named check in the review catalog. RuleConfig
// carries the executor-specific parameters (e.g. a sum check's tolerance
// and rounding) as opaque JSON so new rule shapes don't
// require a schema migration.
type Checkpoint struct {
	bun.BaseModel `bun:"table:checkpoints,alias:cp"`

	Code                string    `bun:"code,pk" json:"code"`
	Name                string    `bun:"name,notnull" json:"name"`
	EngineType          string    `bun:"engine_type,notnull" json:"engine_type"`
	ReviewType          string    `bun:"review_type,notnull" json:"review_type"`
	Enabled             bool      `bun:"enabled,notnull,default:true" json:"enabled"`
	OrderIndex          int       `bun:"order_index,notnull,default:0" json:"order_index"`
	TargetOutlinePrefix string    `bun:"target_outline_prefix" json:"target_outline_prefix,omitempty"`
	PromptTemplate      string    `bun:"prompt_template" json:"prompt_template,omitempty"`
	RuleConfig          JSONBMap  `bun:"rule_config,type:jsonb" json:"rule_config,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (c *Checkpoint) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (c *Checkpoint) BeforeUpdate(ctx interface{}) error {
	c.UpdatedAt = time.Now()
	return nil
}

// ReviewRun statuses and types (§3).
const (
	RunTypeRule  = "RULE"
	RunTypeAI    = "AI"
	RunTypeMixed = "MIXED"

	RunStatusPending    = "PENDING"
	RunStatusRunning    = "RUNNING"
	RunStatusSucceeded  = "SUCCEEDED"
	RunStatusFailed     = "FAILED"
	RunStatusCanceled   = "CANCELED"
)

// ReviewRun records one execution of the checkpoint catalog (or a subset
// of it) against a Version, owning the Issues it produced.
type ReviewRun struct {
	bun.BaseModel `bun:"table:review_runs,alias:rr"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID    uuid.UUID  `bun:"version_id,type:uuid,notnull" json:"version_id"`
	RunType      string     `bun:"run_type,notnull" json:"run_type"`
	Status       string     `bun:"status,notnull,default:'PENDING'" json:"status"`
	Progress     int        `bun:"progress,notnull,default:0" json:"progress"`
	StartedAt    *time.Time `bun:"started_at" json:"started_at,omitempty"`
	FinishedAt   *time.Time `bun:"finished_at" json:"finished_at,omitempty"`
	ErrorMessage string     `bun:"error_message" json:"error_message,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`

	Issues []*Issue `bun:"rel:has-many,join:id=run_id" json:"issues,omitempty"`
}

func (r *ReviewRun) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	r.CreatedAt = now
	r.UpdatedAt = now
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (r *ReviewRun) BeforeUpdate(ctx interface{}) error {
	r.UpdatedAt = time.Now()
	return nil
}

// IsTerminal reports whether the run has reached a terminal lifecycle state.
func (r *ReviewRun) IsTerminal() bool {
	switch r.Status {
	case RunStatusSucceeded, RunStatusFailed, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// Issue severities and statuses (§3).
const (
	SeverityS1 = "S1"
	SeverityS2 = "S2"
	SeverityS3 = "S3"

	IssueStatusOpen      = "OPEN"
	IssueStatusAccepted  = "ACCEPTED"
	IssueStatusDismissed = "DISMISSED"
)

// Issue is a single finding raised by a checkpoint during a ReviewRun.
// PageNo is nullable: rule checkpoints that compare facts across the
// whole document (no single source location) never populate it.
// EvidenceBlockIDs/EvidenceQuotes/AnchorRects let a viewer highlight the
// exact source passage the finding is grounded on.
type Issue struct {
	bun.BaseModel `bun:"table:issues,alias:iss"`

	ID              uuid.UUID `bun:"id,pk,type:uuid,default:uuid_generate_v4()" json:"id"`
	VersionID       uuid.UUID `bun:"version_id,type:uuid,notnull" json:"version_id"`
	RunID           uuid.UUID `bun:"run_id,type:uuid,notnull" json:"run_id"`
	CheckpointCode  string    `bun:"checkpoint_code,notnull" json:"checkpoint_code"`
	ReviewType      string    `bun:"review_type,notnull" json:"review_type"`
	IssueType       string    `bun:"issue_type,notnull" json:"issue_type"`
	Severity        string    `bun:"severity,notnull" json:"severity"`
	Title           string    `bun:"title,notnull" json:"title"`
	Description     string    `bun:"description" json:"description,omitempty"`
	Suggestion      string    `bun:"suggestion" json:"suggestion,omitempty"`
	Confidence      float64   `bun:"confidence,notnull,default:1" json:"confidence"`
	Status          string    `bun:"status,notnull,default:'OPEN'" json:"status"`
	PageNo          *int      `bun:"page_no" json:"page_no,omitempty"`

	EvidenceBlockIDs []uuid.UUID `bun:"evidence_block_ids,type:jsonb" json:"evidence_block_ids,omitempty"`
	EvidenceQuotes   []string    `bun:"evidence_quotes,type:jsonb" json:"evidence_quotes,omitempty"`
	AnchorRects      []Rect      `bun:"anchor_rects,type:jsonb" json:"anchor_rects,omitempty"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

func (i *Issue) BeforeInsert(ctx interface{}) error {
	now := time.Now()
	i.CreatedAt = now
	i.UpdatedAt = now
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

func (i *Issue) BeforeUpdate(ctx interface{}) error {
	i.UpdatedAt = time.Now()
	return nil
}
