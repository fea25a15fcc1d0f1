package executors

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
)

// requiredSections lists the outline keywords a conservation plan is
// expected to carry; RunMissingSection flags any not found in the
// parsed outline tree by title substring.
var requiredSections = []string{
	"综合说明",
	"项目概况",
	"项目区概况",
	"水土保持",
	"投资",
	"结论",
}

// RunMissingSection checks that every required section keyword appears
// in at least one outline node title.
func RunMissingSection(ctx *review.Context, ruleConfig map[string]any) []IssueDraft {
	titles := make([]string, 0, len(ctx.Outline))
	for _, n := range ctx.Outline {
		titles = append(titles, strings.ToLower(n.Title))
	}

	var drafts []IssueDraft
	for _, req := range requiredSections {
		found := false
		for _, t := range titles {
			if strings.Contains(t, strings.ToLower(req)) {
				found = true
				break
			}
		}
		if found {
			continue
		}

		evidence := firstEvidenceBlock(ctx)
		draft := IssueDraft{
			IssueType:   "MISSING_SECTION",
			Severity:    "S1",
			Title:       fmt.Sprintf("缺少必备章节：%s", req),
			Description: fmt.Sprintf("文档大纲中未发现与「%s」相关的章节，可能影响审查完整性。", req),
			Suggestion:  "请补充相应章节或确认章节标题符合规范要求。",
			Confidence:  0.8,
		}
		if evidence != nil {
			draft.EvidenceBlockIDs = []uuid.UUID{*evidence}
		}
		drafts = append(drafts, draft)
	}
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].Title < drafts[j].Title })
	return drafts
}

func firstEvidenceBlock(ctx *review.Context) *uuid.UUID {
	if len(ctx.Outline) == 0 {
		return ctx.FirstBlockID()
	}
	if id := ctx.HeadingBlockID(ctx.Outline[0].ID); id != nil {
		return id
	}
	return ctx.FirstBlockID()
}
