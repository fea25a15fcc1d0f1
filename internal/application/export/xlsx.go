package export

import (
	"bytes"
	"context"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

const issuesSheet = "审查问题"

// RenderXLSX writes the flat issues-list spreadsheet for versionID,
// one row per Issue, mirroring the original export's column order.
func (r *Renderer) RenderXLSX(ctx context.Context, versionID uuid.UUID, f Filter) ([]byte, error) {
	issues, err := r.loadIssues(ctx, versionID, f)
	if err != nil {
		return nil, err
	}

	xf := excelize.NewFile()
	defer xf.Close()
	xf.SetSheetName(xf.GetSheetName(0), issuesSheet)

	headers := []string{"ID", "类型", "严重程度", "标题", "描述", "建议", "置信度", "状态", "页码", "创建时间"}
	headerStyle, err := xf.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}
	for col, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		_ = xf.SetCellValue(issuesSheet, cell, h)
		_ = xf.SetCellStyle(issuesSheet, cell, cell, headerStyle)
	}

	for i, issue := range issues {
		row := i + 2
		setRow(xf, row, issue)
	}

	_ = xf.SetColWidth(issuesSheet, "A", "A", 12)
	_ = xf.SetColWidth(issuesSheet, "D", "F", 30)

	var buf bytes.Buffer
	if _, err := xf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func setRow(xf *excelize.File, row int, issue *models.Issue) {
	values := []interface{}{
		issue.ID.String(),
		issue.IssueType,
		issue.Severity,
		issue.Title,
		issue.Description,
		issue.Suggestion,
		issue.Confidence,
		issue.Status,
		pageNoString(issue.PageNo),
		issue.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	for col, v := range values {
		cell, _ := excelize.CoordinatesToCellName(col+1, row)
		_ = xf.SetCellValue(issuesSheet, cell, v)
	}
}
