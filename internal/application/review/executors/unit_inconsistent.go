package executors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
)

// RunUnitInconsistent flags a table column that mixes units across rows
// (e.g. 亩 in one row, 公顷 in another), which almost always signals a
// transcription error rather than an intentional mixed unit.
func RunUnitInconsistent(ctx *review.Context, ruleConfig map[string]any) []IssueDraft {
	var drafts []IssueDraft

	for _, tv := range ctx.Tables {
		unitsByCol := make(map[int]map[string]bool)
		for _, c := range tv.Cells {
			unit := strings.TrimSpace(c.Unit)
			if unit == "" {
				continue
			}
			if unitsByCol[c.ColIndex] == nil {
				unitsByCol[c.ColIndex] = make(map[string]bool)
			}
			unitsByCol[c.ColIndex][unit] = true
		}

		tableNo := tv.Table.TableNo
		if tableNo == "" {
			tableNo = tv.Table.Title
		}

		var evidence *uuid.UUID
		for _, b := range ctx.Blocks {
			if b.TableID != nil && *b.TableID == tv.Table.ID {
				id := b.ID
				evidence = &id
				break
			}
		}

		cols := make([]int, 0, len(unitsByCol))
		for col := range unitsByCol {
			cols = append(cols, col)
		}
		sort.Ints(cols)

		for _, col := range cols {
			units := unitsByCol[col]
			if len(units) <= 1 {
				continue
			}
			names := make([]string, 0, len(units))
			for u := range units {
				names = append(names, u)
			}
			sort.Strings(names)

			draft := IssueDraft{
				IssueType:   "UNIT_INCONSISTENT",
				Severity:    "S2",
				Title:       fmt.Sprintf("表%s 同列单位混用", tableNo),
				Description: fmt.Sprintf("同一列中出现多种单位: %s。", strings.Join(names, ", ")),
				Suggestion:  "请统一该列单位。",
				Confidence:  0.85,
			}
			if evidence != nil {
				draft.EvidenceBlockIDs = []uuid.UUID{*evidence}
			}
			drafts = append(drafts, draft)
		}
	}
	return drafts
}
