// Package executors implements the deterministic (RULE engine type)
// checkpoint executors (§4.6): table-internal balance checks, unit
// consistency, required-section presence, and cross-fact formula checks.
package executors

import (
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
)

// IssueDraft is one finding an executor produces, still detached from a
// ReviewRun — internal/application/reviewrun maps these onto models.Issue
// once a run ID exists, backfilling PageNo from the block's preferred
// anchor at insert time.
type IssueDraft struct {
	IssueType        string
	Severity         string // S1/S2/S3
	Title            string
	Description      string
	Suggestion       string
	Confidence       float64
	EvidenceBlockIDs []uuid.UUID
	EvidenceQuotes   []string
}

// Executor runs one rule checkpoint against a fully loaded Context.
// RuleConfig is the checkpoint's opaque JSON configuration; of the
// registered executors only RunSumMismatch reads it (tolerance, rounding).
type Executor func(ctx *review.Context, ruleConfig map[string]any) []IssueDraft

// Registry maps a checkpoint code to the executor that runs it.
var Registry = map[string]Executor{
	"SUM_MISMATCH":          RunSumMismatch,
	"UNIT_INCONSISTENT":     RunUnitInconsistent,
	"MISSING_SECTION":       RunMissingSection,
	"KEY_FIELD_CONSISTENCY": RunKeyFieldConsistency,
	"FORMULA_CALCULATION":   RunFormulaCalculation,
}
