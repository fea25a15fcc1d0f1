package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// RenderDOCX builds the section-grouped "issue list" Word document for
// versionID: a title page, a review-type count table, then every issue
// bucketed under the outline section its page falls in, in outline
// order — the same grouping the original export service built with
// python-docx. Word's format is a zip of OOXML parts; this writer emits
// the minimal valid set (content types, rels, and the document body)
// directly rather than through a DOCX templating library, since no
// library in this module's dependency set offers a document-construction
// API (only structural *parsing*, via go-docx, which this module already
// uses read-only in the ingestion pipeline).
func (r *Renderer) RenderDOCX(ctx context.Context, versionID uuid.UUID, f Filter) ([]byte, error) {
	title, err := r.documentTitle(ctx, versionID)
	if err != nil {
		return nil, err
	}
	outline, err := r.loadOutlineWithPages(ctx, versionID)
	if err != nil {
		return nil, err
	}
	issues, err := r.loadIssues(ctx, versionID, f)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]outlineNode, len(outline))
	for _, n := range outline {
		byID[n.id] = n
	}

	body := buildBody(title, outline, byID, issues)
	return packageDocx(body)
}

func buildBody(title string, outline []outlineNode, byID map[uuid.UUID]outlineNode, issues []*models.Issue) string {
	var sb strings.Builder

	titleText := title
	if !strings.HasSuffix(titleText, "问题清单") {
		titleText += "问题清单"
	}
	writeHeading(&sb, titleText)
	writeEmptyPara(&sb)

	var formalCount, techCount int
	for _, i := range issues {
		if isFormalReview(i.IssueType) {
			formalCount++
		}
		if isTechReview(i.IssueType) {
			techCount++
		}
	}
	writePara(&sb, "审查错误统计表")
	writeTable(&sb, [][]string{
		{"审查类型", "错误"},
		{"技术审查", fmt.Sprintf("%d", techCount)},
		{"形式审查", fmt.Sprintf("%d", formalCount)},
		{"总计", fmt.Sprintf("%d", len(issues))},
	})
	writeEmptyPara(&sb)

	sections := groupBySection(outline, byID, issues)
	order := sectionOrder(outline, byID, sections)

	for _, sectionPath := range order {
		list := sections[sectionPath]
		if len(list) == 0 {
			continue
		}
		label := sectionPath
		if label == "" {
			label = "其他"
		}
		for _, line := range strings.Split(label, "\n") {
			if strings.TrimSpace(line) != "" {
				writePara(&sb, strings.TrimSpace(line))
			}
		}
		for _, issue := range list {
			writePara(&sb, reviewTypeLabel(issue.IssueType))
			writePara(&sb, strings.TrimSpace(issue.Title))
			if quote := strings.Join(issue.EvidenceQuotes, "\n"); quote != "" {
				writePara(&sb, "原文片段："+quote)
			}
			if d := strings.TrimSpace(issue.Description); d != "" {
				writePara(&sb, "推理过程: "+d)
			}
			writeEmptyPara(&sb)
		}
	}

	return sb.String()
}

func groupBySection(outline []outlineNode, byID map[uuid.UUID]outlineNode, issues []*models.Issue) map[string][]*models.Issue {
	sections := make(map[string][]*models.Issue)
	for _, issue := range issues {
		section := assignSection(issue.PageNo, outline, byID)
		sections[section] = append(sections[section], issue)
	}
	return sections
}

func sectionOrder(outline []outlineNode, byID map[uuid.UUID]outlineNode, sections map[string][]*models.Issue) []string {
	var order []string
	seen := make(map[string]bool)
	for _, n := range outline {
		path := outlinePath(n, byID)
		if path != "" && !seen[path] {
			seen[path] = true
			order = append(order, path)
		}
	}
	for sec := range sections {
		if !seen[sec] {
			seen[sec] = true
			order = append(order, sec)
		}
	}
	var out []string
	for _, sec := range order {
		if _, ok := sections[sec]; ok {
			out = append(out, sec)
		}
	}
	return out
}

func writeHeading(sb *strings.Builder, text string) {
	fmt.Fprintf(sb, `<w:p><w:pPr><w:jc w:val="center"/></w:pPr><w:r><w:rPr><w:b/><w:sz w:val="32"/></w:rPr><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(text))
}

func writePara(sb *strings.Builder, text string) {
	fmt.Fprintf(sb, `<w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p>`, html.EscapeString(text))
}

func writeEmptyPara(sb *strings.Builder) {
	sb.WriteString(`<w:p/>`)
}

func writeTable(sb *strings.Builder, rows [][]string) {
	sb.WriteString(`<w:tbl><w:tblPr><w:tblStyle w:val="TableGrid"/><w:tblW w:w="0" w:type="auto"/></w:tblPr>`)
	for _, row := range rows {
		sb.WriteString(`<w:tr>`)
		for _, cell := range row {
			fmt.Fprintf(sb, `<w:tc><w:p><w:r><w:t xml:space="preserve">%s</w:t></w:r></w:p></w:tc>`, html.EscapeString(cell))
		}
		sb.WriteString(`</w:tr>`)
	}
	sb.WriteString(`</w:tbl>`)
}

// packageDocx zips the minimal part set a DOCX needs: the content-types
// manifest, the top-level and document relationship lists, and the
// document body itself.
func packageDocx(body string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	parts := map[string]string{
		"[Content_Types].xml":          contentTypesXML,
		"_rels/.rels":                  rootRelsXML,
		"word/_rels/document.xml.rels": documentRelsXML,
		"word/document.xml":            documentXML(body),
	}
	for name, content := range parts {
		w, err := zw.Create(name)
		if err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte(content)); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

const contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
  <Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
  <Default Extension="xml" ContentType="application/xml"/>
  <Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

const rootRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
  <Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

const documentRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
</Relationships>`

func documentXML(body string) string {
	return `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>` + body + `<w:sectPr/></w:body>
</w:document>`
}
