package executors

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

var sumKeywords = []string{"合计", "小计", "总计", "合计值", "合计金额", "合计面积"}
var percentageKeywords = []string{"占比", "比例", "%", "百分比"}
var percentagePattern = regexp.MustCompile(`([\d.]+)%`)

func containsKeyword(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// RunSumMismatch checks a table's totals against its detail cells (§4.6):
// a row tagged 合计/小计/总计/... must equal, column by column, the sum of
// that same column's other rows; a column headed with one of the same
// keywords must equal the sum of its own other rows; and a 占比/比例/%
// column must sum to 100.
func RunSumMismatch(ctx *review.Context, ruleConfig map[string]any) []IssueDraft {
	tolerance := floatConfig(ruleConfig, "tolerance", 0.01)
	rounding := intConfig(ruleConfig, "rounding", 2)

	var drafts []IssueDraft
	for _, tv := range ctx.Tables {
		byRow, byCol := indexCells(tv.Cells)
		drafts = append(drafts, checkRowSums(ctx, tv, byRow, tolerance, rounding)...)
		drafts = append(drafts, checkColSums(ctx, tv, byCol, tolerance, rounding)...)
		drafts = append(drafts, checkPercentages(ctx, tv, byRow, byCol, tolerance)...)
	}
	return drafts
}

// checkRowSums flags a 合计-style row whose value in some column disagrees
// with that column's other rows summed together.
func checkRowSums(ctx *review.Context, tv review.TableView, byRow map[int][]*models.Cell, tolerance float64, rounding int) []IssueDraft {
	var drafts []IssueDraft
	label := tableLabel(tv)
	rowKeys := sortedRowKeys(byRow)

	for _, rIdx := range rowKeys {
		row := byRow[rIdx]
		if !containsKeyword(rowText(row), sumKeywords) {
			continue
		}

		numericCols := make(map[int]float64)
		var colOrder []int
		for _, c := range row {
			if c.NumValue == nil {
				continue
			}
			if _, seen := numericCols[c.ColIndex]; !seen {
				colOrder = append(colOrder, c.ColIndex)
			}
			numericCols[c.ColIndex] = *c.NumValue
		}
		sort.Ints(colOrder)

		for _, colIdx := range colOrder {
			sumValue := numericCols[colIdx]

			var colValues []float64
			for _, otherIdx := range rowKeys {
				if otherIdx == rIdx {
					continue
				}
				for _, c := range byRow[otherIdx] {
					if c.ColIndex == colIdx && c.NumValue != nil {
						colValues = append(colValues, *c.NumValue)
					}
				}
			}
			if len(colValues) < 2 {
				continue
			}

			computedSum := sumFloats(colValues)
			diff := math.Abs(sumValue - computedSum)
			if diff <= tolerance {
				continue
			}

			trace := traceOf(colValues, rounding) + fmt.Sprintf(" = %s ≠ %s", formatNum(computedSum, rounding), formatNum(sumValue, rounding))
			drafts = append(drafts, IssueDraft{
				IssueType:        "SUM_MISMATCH_ROW",
				Severity:         "S1",
				Title:            fmt.Sprintf("%s 行合计错误（第%d行）", label, rIdx+1),
				Description:      fmt.Sprintf("合计行第%d列的值%s与分项之和%s不一致。计算过程：%s", colIdx+1, formatNum(sumValue, rounding), formatNum(computedSum, rounding), trace),
				Suggestion:       "请核对分项值来源，重新计算合计。如涉及取整，请统一取整规则。",
				Confidence:       0.95,
				EvidenceBlockIDs: tableEvidence(ctx, tv),
			})
		}
	}
	return drafts
}

// checkColSums flags a column headed with a 合计-style keyword whose last
// (bottom) row disagrees with the rest of that column summed together.
func checkColSums(ctx *review.Context, tv review.TableView, byCol map[int][]*models.Cell, tolerance float64, rounding int) []IssueDraft {
	var drafts []IssueDraft
	label := tableLabel(tv)

	for _, colIdx := range sortedColKeys(byCol) {
		cells := byCol[colIdx]
		header := ""
		for _, c := range cells {
			if c.RowIndex == 0 {
				header = c.RawText
				break
			}
		}
		if !containsKeyword(header, sumKeywords) {
			continue
		}

		sorted := append([]*models.Cell(nil), cells...)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i].RowIndex < sorted[j].RowIndex })

		var colValues []float64
		for _, c := range sorted {
			if c.RowIndex == 0 || c.NumValue == nil {
				continue
			}
			colValues = append(colValues, *c.NumValue)
		}
		if len(colValues) < 2 {
			continue
		}

		sumValue := colValues[len(colValues)-1]
		addends := colValues[:len(colValues)-1]
		computedSum := sumFloats(addends)
		diff := math.Abs(sumValue - computedSum)
		if diff <= tolerance {
			continue
		}

		trace := traceOf(addends, rounding) + fmt.Sprintf(" = %s ≠ %s", formatNum(computedSum, rounding), formatNum(sumValue, rounding))
		drafts = append(drafts, IssueDraft{
			IssueType:        "SUM_MISMATCH_COL",
			Severity:         "S1",
			Title:            fmt.Sprintf("%s 列合计错误（第%d列）", label, colIdx+1),
			Description:      fmt.Sprintf("合计列的值%s与分项之和%s不一致。计算过程：%s", formatNum(sumValue, rounding), formatNum(computedSum, rounding), trace),
			Suggestion:       "请核对分项值，重新计算合计。",
			Confidence:       0.95,
			EvidenceBlockIDs: tableEvidence(ctx, tv),
		})
	}
	return drafts
}

// checkPercentages flags a 占比/比例/% header column whose values (rescaled
// to a 0-100 range when stored as a 0-1 fraction) don't sum to 100.
func checkPercentages(ctx *review.Context, tv review.TableView, byRow, byCol map[int][]*models.Cell, tolerance float64) []IssueDraft {
	var drafts []IssueDraft
	label := tableLabel(tv)

	header := byRow[0]
	var percentCols []int
	for _, c := range header {
		if containsKeyword(c.RawText, percentageKeywords) {
			percentCols = append(percentCols, c.ColIndex)
		}
	}
	sort.Ints(percentCols)

	for _, colIdx := range percentCols {
		var percentages []float64
		for _, c := range byCol[colIdx] {
			if c.RowIndex == 0 {
				continue
			}
			switch {
			case c.NumValue != nil && *c.NumValue >= 0 && *c.NumValue <= 1:
				percentages = append(percentages, *c.NumValue*100)
			case c.NumValue != nil && *c.NumValue <= 100:
				percentages = append(percentages, *c.NumValue)
			case strings.Contains(c.RawText, "%"):
				if m := percentagePattern.FindStringSubmatch(c.RawText); m != nil {
					if f, err := strconv.ParseFloat(m[1], 64); err == nil {
						percentages = append(percentages, f)
					}
				}
			}
		}
		if len(percentages) < 2 {
			continue
		}

		sumPercent := sumFloats(percentages)
		if math.Abs(sumPercent-100) <= tolerance {
			continue
		}

		drafts = append(drafts, IssueDraft{
			IssueType:        "PERCENTAGE_SUM_MISMATCH",
			Severity:         "S2",
			Title:            fmt.Sprintf("%s 占比列合计不为100%%", label),
			Description:      fmt.Sprintf("占比列（第%d列）各项占比之和为%s%%，不等于100%%", colIdx+1, formatNum(sumPercent, 2)),
			Suggestion:       "请核对各项占比值，确保合计为100%",
			Confidence:       0.9,
			EvidenceBlockIDs: tableEvidence(ctx, tv),
		})
	}
	return drafts
}

func indexCells(cells []*models.Cell) (map[int][]*models.Cell, map[int][]*models.Cell) {
	byRow := make(map[int][]*models.Cell)
	byCol := make(map[int][]*models.Cell)
	for _, c := range cells {
		byRow[c.RowIndex] = append(byRow[c.RowIndex], c)
		byCol[c.ColIndex] = append(byCol[c.ColIndex], c)
	}
	return byRow, byCol
}

func sortedRowKeys(byRow map[int][]*models.Cell) []int {
	keys := make([]int, 0, len(byRow))
	for k := range byRow {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func sortedColKeys(byCol map[int][]*models.Cell) []int {
	keys := make([]int, 0, len(byCol))
	for k := range byCol {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func rowText(row []*models.Cell) string {
	var sb strings.Builder
	for _, c := range row {
		sb.WriteString(c.RawText)
		sb.WriteString(" ")
	}
	return sb.String()
}

func tableLabel(tv review.TableView) string {
	if tv.Table.TableNo != "" {
		return tv.Table.TableNo
	}
	return tv.Table.Title
}

// tableEvidence prefers the table's own section heading block, falling
// back to the document's first block when the table has no outline node.
func tableEvidence(ctx *review.Context, tv review.TableView) []uuid.UUID {
	if tv.Table.OutlineNodeID != nil {
		if id := ctx.HeadingBlockID(*tv.Table.OutlineNodeID); id != nil {
			return []uuid.UUID{*id}
		}
	}
	return evidenceOf(ctx)
}

func sumFloats(vs []float64) float64 {
	var s float64
	for _, v := range vs {
		s += v
	}
	return s
}

// formatNum rounds to `rounding` decimal places and drops trailing zeros.
func formatNum(v float64, rounding int) string {
	scale := math.Pow10(rounding)
	rounded := math.Round(v*scale) / scale
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func traceOf(vs []float64, rounding int) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = formatNum(v, rounding)
	}
	return strings.Join(parts, " + ")
}

func floatConfig(cfg map[string]any, key string, def float64) float64 {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return def
}

func intConfig(cfg map[string]any, key string, def int) int {
	if v, ok := cfg[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case float64:
			return int(n)
		}
	}
	return def
}
