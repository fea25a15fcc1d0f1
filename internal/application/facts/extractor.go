package facts

import (
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// Extracted is one fact candidate, still detached from persistence —
// Extract returns these; the caller (internal/application/pipeline) maps
// them onto models.Fact and hands them to the fact repository's
// UpsertBatch.
type Extracted struct {
	FactKey       string
	Scope         string
	ValueNum      *float64
	ValueText     string
	Unit          string
	SourceBlockID *uuid.UUID
	SourceTableID *uuid.UUID
	Confidence    float64
}

// Extract walks blocks and tables, matching fact-key synonyms against
// prose (regex, with unit normalization) and table headers (column
// lookup against the first row), the same two passes the original
// extraction service runs.
func Extract(outline []*models.OutlineNode, blocks []*models.Block, tables []*models.Table, cellsByTable map[uuid.UUID][]*models.Cell) []Extracted {
	outlineByID := make(map[uuid.UUID]*models.OutlineNode, len(outline))
	for _, n := range outline {
		outlineByID[n.ID] = n
	}

	var out []Extracted
	out = append(out, extractFromBlocks(blocks, outlineByID)...)
	out = append(out, extractFromTables(tables, cellsByTable, outlineByID)...)
	return out
}

func scopeFor(outlineNodeID *uuid.UUID, outlineByID map[uuid.UUID]*models.OutlineNode) string {
	if outlineNodeID == nil {
		return "项目整体"
	}
	node, ok := outlineByID[*outlineNodeID]
	if !ok {
		return "项目整体"
	}
	scope := strings.TrimSpace(node.NodeNo + " " + node.Title)
	if scope == "" {
		return "项目整体"
	}
	return scope
}

func extractFromBlocks(blocks []*models.Block, outlineByID map[uuid.UUID]*models.OutlineNode) []Extracted {
	var out []Extracted
	for _, b := range blocks {
		text := strings.TrimSpace(b.Text)
		if text == "" {
			continue
		}
		scope := scopeFor(b.OutlineNodeID, outlineByID)
		blockID := b.ID

		for _, key := range Keys {
			for _, pattern := range key.Synonyms {
				re := factValueRE(pattern)
				for _, m := range re.FindAllStringSubmatch(text, -1) {
					rawValue, rawUnit := m[1], m[2]
					if v, ok := ParseNumber(rawValue); ok {
						norm, unit := NormalizeUnit(v, rawUnit)
						out = append(out, Extracted{
							FactKey:       key.Name,
							Scope:         scope,
							ValueNum:      &norm,
							Unit:          unit,
							SourceBlockID: &blockID,
							Confidence:    0.7,
						})
					} else {
						out = append(out, Extracted{
							FactKey:       key.Name,
							Scope:         scope,
							ValueText:     m[0],
							SourceBlockID: &blockID,
							Confidence:    0.6,
						})
					}
				}
			}
		}
	}
	return out
}

func extractFromTables(tables []*models.Table, cellsByTable map[uuid.UUID][]*models.Cell, outlineByID map[uuid.UUID]*models.OutlineNode) []Extracted {
	var out []Extracted
	for _, t := range tables {
		cells := cellsByTable[t.ID]
		if len(cells) == 0 {
			continue
		}

		byRow := make(map[int][]*models.Cell)
		for _, c := range cells {
			byRow[c.RowIndex] = append(byRow[c.RowIndex], c)
		}
		header := byRow[0]
		if len(header) == 0 {
			continue
		}

		baseScope := t.TableNo
		if baseScope == "" {
			baseScope = "表格"
		}
		if t.OutlineNodeID != nil {
			baseScope = baseScope + "(" + scopeFor(t.OutlineNodeID, outlineByID) + ")"
		}

		tableID := t.ID
		for _, key := range Keys {
			for _, pattern := range key.Synonyms {
				for hi, hc := range header {
					if !strings.Contains(hc.RawText, pattern) {
						continue
					}
					for r, row := range byRow {
						if r == 0 || hi >= len(row) {
							continue
						}
						cell := row[hi]
						if cell.NumValue == nil {
							continue
						}
						v := *cell.NumValue
						out = append(out, Extracted{
							FactKey:       key.Name,
							Scope:         baseScope,
							ValueNum:      &v,
							Unit:          cell.Unit,
							SourceTableID: &tableID,
							Confidence:    0.8,
						})
					}
				}
			}
		}
	}
	return out
}
