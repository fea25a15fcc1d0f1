// Package export renders a Version's Issues into the two deliverables a
// reviewer hands back to an author: a flat spreadsheet of every finding,
// and a section-grouped Word document matching the plan's own outline.
// Both formats are grounded on the original issue-export routine, adapted
// onto the Go ecosystem's spreadsheet and archive libraries.
package export

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// Filter narrows which issues an export includes; empty fields mean "any".
type Filter struct {
	Status   string
	Severity string
}

// Renderer loads a Version's outline and issues and renders either
// export format from them.
type Renderer struct {
	versions repository.VersionRepository
	docs     repository.DocumentRepository
	outlines repository.OutlineRepository
	blocks   repository.BlockRepository
	runs     repository.ReviewRunRepository
}

// New wires a Renderer.
func New(
	versions repository.VersionRepository,
	docs repository.DocumentRepository,
	outlines repository.OutlineRepository,
	blocks repository.BlockRepository,
	runs repository.ReviewRunRepository,
) *Renderer {
	return &Renderer{versions: versions, docs: docs, outlines: outlines, blocks: blocks, runs: runs}
}

// outlineNode is the export-local view of an OutlineNode, carrying the
// page number its heading block first anchors to (falling back to page
// 1, matching the original export's COALESCE default for an unanchored
// heading).
type outlineNode struct {
	id       uuid.UUID
	parentID *uuid.UUID
	nodeNo   string
	title    string
	pageNo   int
}

func (r *Renderer) loadOutlineWithPages(ctx context.Context, versionID uuid.UUID) ([]outlineNode, error) {
	nodes, err := r.outlines.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	blocks, err := r.blocks.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	headingBlockByNode := make(map[uuid.UUID]uuid.UUID)
	for _, b := range blocks {
		if b.BlockType == models.BlockTypeHeading && b.OutlineNodeID != nil {
			headingBlockByNode[*b.OutlineNodeID] = b.ID
		}
	}

	out := make([]outlineNode, 0, len(nodes))
	for _, n := range nodes {
		page := 1
		if blockID, ok := headingBlockByNode[n.ID]; ok {
			anchors, err := r.blocks.FindAnchorsByBlockID(ctx, blockID)
			if err == nil && len(anchors) > 0 {
				best := anchors[0].PageNo
				for _, a := range anchors {
					if a.PageNo < best {
						best = a.PageNo
					}
				}
				page = best
			}
		}
		out = append(out, outlineNode{
			id:       n.ID,
			parentID: n.ParentID,
			nodeNo:   n.NodeNo,
			title:    n.Title,
			pageNo:   page,
		})
	}
	return out, nil
}

func (r *Renderer) loadIssues(ctx context.Context, versionID uuid.UUID, f Filter) ([]*models.Issue, error) {
	issues, err := r.runs.FindIssuesByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	var out []*models.Issue
	for _, i := range issues {
		if f.Status != "" && i.Status != f.Status {
			continue
		}
		if f.Severity != "" && i.Severity != f.Severity {
			continue
		}
		out = append(out, i)
	}
	sort.Slice(out, func(a, b int) bool {
		pa, pb := pageOf(out[a]), pageOf(out[b])
		if pa != pb {
			return pa < pb
		}
		return out[a].CreatedAt.Before(out[b].CreatedAt)
	})
	return out, nil
}

func pageOf(i *models.Issue) int {
	if i.PageNo == nil {
		return 1 << 30
	}
	return *i.PageNo
}

func (r *Renderer) documentTitle(ctx context.Context, versionID uuid.UUID) (string, error) {
	v, err := r.versions.FindByID(ctx, versionID)
	if err != nil {
		return "", err
	}
	d, err := r.docs.FindByID(ctx, v.DocumentID)
	if err != nil {
		return "文档", nil
	}
	title := strings.TrimSpace(d.Name)
	if title == "" {
		title = "文档"
	}
	return title, nil
}

// outlinePath returns a node's root-to-node path as newline-joined
// "nodeNo title" segments, matching the grouping label the docx export
// uses to bucket issues under a section heading.
func outlinePath(node outlineNode, byID map[uuid.UUID]outlineNode) string {
	var parts []string
	cur := &node
	for cur != nil {
		seg := strings.TrimSpace(strings.TrimSpace(cur.nodeNo) + " " + strings.TrimSpace(cur.title))
		if seg != "" {
			parts = append(parts, seg)
		}
		if cur.parentID == nil {
			break
		}
		next, ok := byID[*cur.parentID]
		if !ok {
			break
		}
		cur = &next
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, "\n")
}

// assignSection finds the deepest outline node whose page_no is <= the
// issue's page and returns its path, the same "last heading at or before
// this page" rule the original export used to bucket a page-anchored
// issue under a section without a direct foreign key to one.
func assignSection(issuePage *int, nodes []outlineNode, byID map[uuid.UUID]outlineNode) string {
	if len(nodes) == 0 {
		return ""
	}
	if issuePage == nil {
		return outlinePath(nodes[0], byID)
	}
	var chosen *outlineNode
	for i := range nodes {
		if nodes[i].pageNo <= *issuePage {
			chosen = &nodes[i]
		}
	}
	if chosen == nil {
		chosen = &nodes[0]
	}
	return outlinePath(*chosen, byID)
}

func reviewTypeLabel(issueType string) string {
	t := strings.ToUpper(issueType)
	switch {
	case strings.Contains(t, "CONSISTENCY"):
		return "一致性审查"
	case strings.Contains(t, "BUSINESS_LOGIC"):
		return "业务逻辑审查"
	case strings.Contains(t, "FORMAT"):
		return "格式审查"
	case strings.Contains(t, "CONTENT"):
		return "内容审查"
	case strings.Contains(t, "SUM_MISMATCH"), strings.Contains(t, "FORMULA"),
		strings.Contains(t, "PERCENTAGE"), strings.Contains(t, "UNIT_INCONSISTENT"),
		strings.Contains(t, "KEY_FIELD"):
		return "表内计算审查"
	default:
		return "其他审查"
	}
}

func isFormalReview(issueType string) bool {
	t := strings.ToUpper(issueType)
	return strings.Contains(t, "FORMAT") || strings.Contains(t, "CONTENT")
}

func isTechReview(issueType string) bool {
	t := strings.ToUpper(issueType)
	return strings.Contains(t, "CONSISTENCY") || strings.Contains(t, "BUSINESS_LOGIC") ||
		strings.Contains(t, "SUM_MISMATCH") || strings.Contains(t, "FORMULA") ||
		strings.Contains(t, "PERCENTAGE") || strings.Contains(t, "UNIT_INCONSISTENT") ||
		strings.Contains(t, "KEY_FIELD") || strings.Contains(t, "MISSING_SECTION")
}

func pageNoString(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
