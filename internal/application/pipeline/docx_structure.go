package pipeline

import (
	"bytes"
	"strings"

	docx "github.com/fumiama/go-docx"
	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// maxTextLen/maxTitleLen/maxNodeNoLen/maxUnitLen mirror the original
// parser's column-width truncation so an unusually long paragraph or
// heading never fails the insert.
const (
	maxTextLen  = 10000
	maxTitleLen = 255
	maxNodeNoLen = 32
	maxUnitLen  = 32
)

// ParsedStructure is everything parse_docx_structure (D stage 2)
// extracts from a DOCX body: the outline tree, the ordered block stream,
// and each table's grid, all pre-assigned UUIDs and VersionID so the
// caller can persist them without a read-back.
type ParsedStructure struct {
	Outline []*models.OutlineNode
	Blocks  []*models.Block
	Tables  []*models.Table
	Cells   []*models.Cell
}

// docxStructureParser walks a DOCX body in document order, tracking the
// open heading stack, per-level section counters, and a table-of-contents
// detector the same way the original pipeline's structure pass does —
// a conservation plan's front matter routinely repeats its own outline as
// a literal table of contents, which left unfiltered would otherwise
// double every section.
type docxStructureParser struct {
	versionID uuid.UUID

	outline       []*models.OutlineNode
	blocks        []*models.Block
	tables        []*models.Table
	cells         []*models.Cell

	parentStack    []*models.OutlineNode // open ancestors, shallowest first
	counters       *levelCounters
	currentOutline *models.OutlineNode

	outlineOrder int
	blockOrder   int

	lastParaText string
	lastTitles   []string // most recent titles inserted, for dup-guard
	inTOC        bool
}

// ParseDocxStructure parses a DOCX document's bytes into a ParsedStructure
// for versionID, using github.com/fumiama/go-docx to walk the body's
// paragraphs and tables in order.
func ParseDocxStructure(versionID uuid.UUID, data []byte) (*ParsedStructure, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}

	p := &docxStructureParser{
		versionID: versionID,
		counters:  newLevelCounters(),
	}

	for _, item := range doc.Document.Body.Items {
		switch v := item.(type) {
		case *docx.Paragraph:
			p.handleParagraph(paragraphText(v))
		case *docx.Table:
			p.handleTable(v)
		}
	}

	return &ParsedStructure{
		Outline: p.outline,
		Blocks:  p.blocks,
		Tables:  p.tables,
		Cells:   p.cells,
	}, nil
}

func (p *docxStructureParser) handleParagraph(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return
	}

	if strings.Contains(text, "目录") || strings.Contains(strings.ReplaceAll(text, " ", ""), "目 录") {
		p.inTOC = true
	}

	level, isHeading := headingLevel(text)
	if !isHeading {
		p.addParaBlock(text)
		return
	}

	title := text
	if cleaned, hadPageNo := stripTOCPageNumber(title); hadPageNo {
		title = cleaned
		p.inTOC = true
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen]
	}

	for len(p.parentStack) > 0 && p.parentStack[len(p.parentStack)-1].Level >= level {
		p.parentStack = p.parentStack[:len(p.parentStack)-1]
	}
	var parentID *uuid.UUID
	var parentLevels []int
	for _, anc := range p.parentStack {
		parentLevels = append(parentLevels, anc.Level)
	}
	if len(p.parentStack) > 0 {
		id := p.parentStack[len(p.parentStack)-1].ID
		parentID = &id
	}

	if p.isDuplicateHeading(title, level, parentID) {
		return
	}

	nodeNo := p.counters.next(level, parentLevels)
	if len(nodeNo) > maxNodeNoLen {
		nodeNo = nodeNo[:maxNodeNoLen]
	}

	node := &models.OutlineNode{
		ID:         uuid.New(),
		VersionID:  p.versionID,
		ParentID:   parentID,
		NodeNo:     nodeNo,
		Title:      title,
		Level:      level,
		OrderIndex: p.outlineOrder,
	}
	p.outline = append(p.outline, node)
	p.outlineOrder++
	p.parentStack = append(p.parentStack, node)
	p.currentOutline = node

	p.rememberTitle(title)
	if level == 1 && p.inTOC {
		p.inTOC = false
	}

	headingBlock := &models.Block{
		ID:            uuid.New(),
		VersionID:     p.versionID,
		OutlineNodeID: &node.ID,
		BlockType:     models.BlockTypeHeading,
		OrderIndex:    p.blockOrder,
		Text:          truncate(title, maxTextLen),
	}
	p.blocks = append(p.blocks, headingBlock)
	p.blockOrder++
	p.lastParaText = title
}

// isDuplicateHeading applies the three dedup heuristics the original
// parser uses: an immediately repeated heading, a repeated heading while
// inside a detected table-of-contents block, and a whole outline segment
// (e.g. a repeated "1..8" run) recurring shortly after it was first seen.
func (p *docxStructureParser) isDuplicateHeading(title string, level int, parentID *uuid.UUID) bool {
	if n := len(p.outline); n > 0 {
		last := p.outline[n-1]
		sameParent := (parentID == nil && last.ParentID == nil) ||
			(parentID != nil && last.ParentID != nil && *parentID == *last.ParentID)
		if last.Title == title && last.Level == level && sameParent {
			return true
		}
	}
	if p.inTOC && contains(p.lastTitles, title) {
		return true
	}
	if len(p.lastTitles) >= 5 && contains(firstN(p.lastTitles, 15), title) {
		return true
	}
	return false
}

func (p *docxStructureParser) rememberTitle(title string) {
	p.lastTitles = append(p.lastTitles, title)
	if len(p.lastTitles) > 20 {
		p.lastTitles = p.lastTitles[1:]
	}
}

func (p *docxStructureParser) addParaBlock(text string) {
	var outlineID *uuid.UUID
	if p.currentOutline != nil {
		outlineID = &p.currentOutline.ID
	}
	block := &models.Block{
		ID:            uuid.New(),
		VersionID:     p.versionID,
		OutlineNodeID: outlineID,
		BlockType:     models.BlockTypePara,
		OrderIndex:    p.blockOrder,
		Text:          truncate(text, maxTextLen),
	}
	p.blocks = append(p.blocks, block)
	p.blockOrder++
	p.lastParaText = text
}

func (p *docxStructureParser) handleTable(t *docx.Table) {
	rows := tableRows(t)
	nCols := 0
	for _, row := range rows {
		if len(row) > nCols {
			nCols = len(row)
		}
	}

	var tableNo, tableTitle string
	if len(rows) > 0 && len(rows[0]) > 0 {
		tableNo = inferTableNo(rows[0][0])
	}
	if caption, capNo, ok := tableCaptionFrom(p.lastParaText); ok {
		tableTitle = truncate(caption, maxTitleLen)
		if tableNo == "" {
			tableNo = capNo
		}
	}

	var outlineID *uuid.UUID
	if p.currentOutline != nil {
		outlineID = &p.currentOutline.ID
	}

	table := &models.Table{
		ID:            uuid.New(),
		VersionID:     p.versionID,
		OutlineNodeID: outlineID,
		TableNo:       tableNo,
		Title:         tableTitle,
		NRows:         len(rows),
		NCols:         nCols,
	}
	p.tables = append(p.tables, table)

	for ri, row := range rows {
		for ci, text := range row {
			text = strings.TrimSpace(text)
			cell := &models.Cell{
				ID:       uuid.New(),
				TableID:  table.ID,
				RowIndex: ri,
				ColIndex: ci,
				RawText:  truncate(text, 2000),
			}
			if num, unit, ok := parseCellNumber(text); ok {
				v := num
				cell.NumValue = &v
				cell.Unit = truncate(unit, maxUnitLen)
			}
			p.cells = append(p.cells, cell)
		}
	}

	block := &models.Block{
		ID:            uuid.New(),
		VersionID:     p.versionID,
		OutlineNodeID: outlineID,
		BlockType:     models.BlockTypeTable,
		OrderIndex:    p.blockOrder,
		TableID:       &table.ID,
	}
	p.blocks = append(p.blocks, block)
	p.blockOrder++
}

// paragraphText concatenates a paragraph's run text; go-docx exposes run
// text per child rather than a single paragraph-level string.
func paragraphText(par *docx.Paragraph) string {
	var sb strings.Builder
	for _, child := range par.Children {
		if child.Run != nil && child.Run.Text != nil {
			sb.WriteString(child.Run.Text.Text)
		}
	}
	return sb.String()
}

// tableRows flattens a go-docx table into a [][]string grid of cell text,
// one string per cell (a cell's own paragraphs joined with a space).
func tableRows(t *docx.Table) [][]string {
	rows := make([][]string, 0, len(t.TableRows))
	for _, row := range t.TableRows {
		cells := make([]string, 0, len(row.TableCells))
		for _, cell := range row.TableCells {
			var parts []string
			for _, par := range cell.Paragraphs {
				if text := paragraphText(par); text != "" {
					parts = append(parts, text)
				}
			}
			cells = append(cells, strings.Join(parts, " "))
		}
		rows = append(rows, cells)
	}
	return rows
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func firstN(list []string, n int) []string {
	if len(list) <= n {
		return list
	}
	return list[:n]
}
