package executors

import (
	"regexp"
	"sort"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

var areaMentionRE = regexp.MustCompile(`占地面积?\s*[：:]\s*([\d.]+)\s*(万?)\s*(公顷|亩|m²|平方米)`)

type mention struct {
	blockID uuid.UUID
	value   string
	unit    string
}

// RunKeyFieldConsistency re-scans paragraph text for occurrences of a
// load-bearing figure (currently: 占地面积, the area figure a
// conservation plan cites repeatedly) and flags when two mentions
// disagree on value or unit — a near-universal sign of a transcription
// slip between sections rather than an intentional distinction.
func RunKeyFieldConsistency(ctx *review.Context, ruleConfig map[string]any) []IssueDraft {
	paras := make([]*models.Block, 0, len(ctx.Blocks))
	for _, b := range ctx.Blocks {
		if b.BlockType == models.BlockTypePara && b.Text != "" {
			paras = append(paras, b)
		}
	}
	sort.Slice(paras, func(i, j int) bool { return paras[i].OrderIndex < paras[j].OrderIndex })
	if len(paras) < 2 {
		return nil
	}

	var mentions []mention
	for _, b := range paras {
		m := areaMentionRE.FindStringSubmatch(b.Text)
		if m == nil {
			continue
		}
		mentions = append(mentions, mention{blockID: b.ID, value: m[1], unit: m[3]})
	}
	if len(mentions) < 2 {
		return nil
	}

	distinct := make(map[string]bool)
	for _, m := range mentions {
		distinct[m.value+"|"+m.unit] = true
	}
	if len(distinct) <= 1 {
		return nil
	}

	return []IssueDraft{{
		IssueType:        "KEY_FIELD_INCONSISTENT",
		Severity:         "S2",
		Title:            "关键字段（占地面积）表述不一致",
		Description:      "文档中多处提及占地面积，数值或单位不一致。",
		Suggestion:       "请统一占地面积数据及单位，确保全文一致。",
		Confidence:       0.75,
		EvidenceBlockIDs: []uuid.UUID{mentions[0].blockID, mentions[1].blockID},
	}}
}
