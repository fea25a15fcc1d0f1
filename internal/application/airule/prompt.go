package airule

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// systemPrompt fixes the model's output to the issues-list JSON contract
// every batch relies on, carried over in substance from the original
// review task's system message.
const systemPrompt = `你是一名水土保持方案/报告审查专家。根据给定的文档片段和规范条文，输出JSON格式的审查问题列表。

输出必须为合法JSON，且仅包含以下结构：
{
  "issues": [
    {
      "checkpoint_code": "字符串（本条问题所属的审查点代码，必须来自给定的审查点列表）",
      "issue_type": "字符串（问题类型）",
      "severity": "S1|S2|S3",
      "title": "问题标题",
      "description": "问题描述",
      "suggestion": "修复建议",
      "confidence": 0.0到1.0之间的数值,
      "evidence_block_ids": ["字符串（必须来自给定的block_id列表）"],
      "evidence_quotes": ["引用原文片段，必须是对应block文本的子串"]
    }
  ]
}

若某审查点无问题，不要为其输出任何条目。evidence_block_ids 和 evidence_quotes 不得编造。`

// sectionContextCap and normChunkCap bound the prompt size the way the
// original template truncates its section_context/chunk list.
const (
	sectionContextCap = 8000
	normChunkCap      = 5
)

// CheckpointGroup is one AI-engine batch: up to BatchMax related checkpoints
// reviewed together against the same section context and norm excerpts.
type CheckpointGroup struct {
	Checkpoints []*models.Checkpoint
	Blocks      []*models.Block
	NormChunks  []NormChunk
}

// NormChunk is a retrieved KB excerpt offered as grounding for the
// model's judgment; ChunkID lets the contract reference it, though the
// issues schema above only asks the model to cite block evidence.
type NormChunk struct {
	ChunkID string
	Ref     string
	Text    string
}

// BuildRequest renders a CheckpointGroup into the chat request the Client
// sends, numbering blocks with stable IDs the model must cite back.
func BuildRequest(model string, g CheckpointGroup) Request {
	var sectionSB strings.Builder
	for _, b := range g.Blocks {
		if b.Text == "" {
			continue
		}
		fmt.Fprintf(&sectionSB, "[block_id=%s] %s\n", b.ID, b.Text)
	}
	section := sectionSB.String()
	if len(section) > sectionContextCap {
		section = section[:sectionContextCap]
	}

	var normSB strings.Builder
	for i, c := range g.NormChunks {
		if i >= normChunkCap {
			break
		}
		fmt.Fprintf(&normSB, "[chunk_id=%s] %s\n%s\n\n", c.ChunkID, c.Ref, c.Text)
	}

	var checkpointsSB strings.Builder
	for _, cp := range g.Checkpoints {
		fmt.Fprintf(&checkpointsSB, "- %s: %s\n", cp.Code, cp.Name)
	}

	user := fmt.Sprintf(
		"本批次审查点：\n%s\n文档片段（每段前标注了block_id）：\n%s\n规范条文（每条前标注了chunk_id）：\n%s\n"+
			"请对照上述审查点逐一审查文档片段，仅在确有问题时输出条目，并为每条指明其所属 checkpoint_code。",
		checkpointsSB.String(), section, normSB.String(),
	)

	return Request{
		Model:        model,
		SystemPrompt: systemPrompt,
		UserPrompt:   user,
		MaxTokens:    2048,
		Temperature:  0.1,
	}
}

// issuesPayload is the wire shape a batch response's Content must
// unmarshal into.
type issuesPayload struct {
	Issues []issuePayload `json:"issues"`
}

type issuePayload struct {
	CheckpointCode   string   `json:"checkpoint_code"`
	IssueType        string   `json:"issue_type"`
	Severity         string   `json:"severity"`
	Title            string   `json:"title"`
	Description      string   `json:"description"`
	Suggestion       string   `json:"suggestion"`
	Confidence       float64  `json:"confidence"`
	EvidenceBlockIDs []string `json:"evidence_block_ids"`
	EvidenceQuotes   []string `json:"evidence_quotes"`
}

// ParseIssues decodes a batch response's content, drops any issue
// whose checkpoint_code wasn't part of the batch, and strips from each
// kept issue any evidence block_id that wasn't offered, the same "never trust a cited ID you didn't
// hand out" validation the original prompt contract demanded of callers.
func ParseIssues(content string, batch CheckpointGroup) ([]Issue, error) {
	var payload issuesPayload
	if err := json.Unmarshal([]byte(extractJSON(content)), &payload); err != nil {
		return nil, fmt.Errorf("airule: parse response json: %w", err)
	}

	validCodes := make(map[string]bool, len(batch.Checkpoints))
	for _, cp := range batch.Checkpoints {
		validCodes[cp.Code] = true
	}
	validBlocks := make(map[string]string, len(batch.Blocks))
	for _, b := range batch.Blocks {
		validBlocks[b.ID.String()] = b.Text
	}

	var out []Issue
	for _, raw := range payload.Issues {
		if !validCodes[raw.CheckpointCode] {
			continue
		}
		issue := Issue{
			CheckpointCode: raw.CheckpointCode,
			IssueType:      raw.IssueType,
			Severity:       raw.Severity,
			Title:          raw.Title,
			Description:    raw.Description,
			Suggestion:     raw.Suggestion,
			Confidence:     raw.Confidence,
		}
		for _, bid := range raw.EvidenceBlockIDs {
			if _, ok := validBlocks[bid]; ok {
				issue.EvidenceBlockIDs = append(issue.EvidenceBlockIDs, bid)
			}
		}
		issue.EvidenceQuotes = raw.EvidenceQuotes
		out = append(out, issue)
	}
	return out, nil
}

// Issue is one AI-engine finding, already checkpoint-attributed and
// evidence-validated; internal/application/reviewrun maps these onto
// models.Issue alongside the rule-engine's IssueDraft findings.
type Issue struct {
	CheckpointCode   string
	IssueType        string
	Severity         string
	Title            string
	Description      string
	Suggestion       string
	Confidence       float64
	EvidenceBlockIDs []string
	EvidenceQuotes   []string
}

// extractJSON trims any prose the model wrapped the JSON object in,
// keeping only the outermost {...} span.
func extractJSON(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}
