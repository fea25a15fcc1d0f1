package executors

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/review"
)

// sixIndicatorTolerance is the allowed difference between a computed
// ratio and its reported (实现值) counterpart before flagging a mismatch.
const sixIndicatorTolerance = 0.01

type ratioFormula struct {
	Name           string
	NumeratorKey   string
	DenominatorKey string
	Description    string
}

// sixIndicatorFormulas are the six standard soil-and-water-conservation
// ratios, each "numerator / denominator" over two DOC-scoped facts.
var sixIndicatorFormulas = []ratioFormula{
	{"治理度", "治理达标面积", "水土流失总面积", "治理度 = 治理达标面积 / 水土流失总面积"},
	{"控制比", "防治措施面积", "扰动面积", "控制比 = 防治措施面积 / 扰动面积"},
	{"渣土防护率", "渣土防护量", "渣土总量", "渣土防护率 = 渣土防护量 / 渣土总量"},
	{"表土保护率", "表土保护量", "可剥离表土量", "表土保护率 = 表土保护量 / 可剥离表土量"},
	{"恢复率", "恢复面积", "可恢复面积", "恢复率 = 恢复面积 / 可恢复面积"},
	{"覆盖率", "植被覆盖面积", "可绿化面积", "覆盖率 = 植被覆盖面积 / 可绿化面积"},
}

type balanceFormula struct {
	Name        string
	LHS         string   // fact key on the left of "="
	RHS         []string // fact keys summed on the right
	Description string
	Tolerance   float64
}

// balanceFormulas are additive identities ("a = b + c + d") that must
// hold across an earthwork plan's facts.
var balanceFormulas = []balanceFormula{
	{"土石方平衡", "挖方", []string{"填方", "弃方", "外运量"}, "挖方 = 填方 + 弃方 + 外运量", 0.01},
}

// predictionFormula is a three-factor multiplication ("a * b * c"); the
// original review process never finished wiring a tolerance check for
// these beyond detecting the relevant prediction table, so this stays a
// best-effort sanity bound (positivity) rather than an exact equality
// check against a reported total.
type predictionFormula struct {
	Name        string
	Factors     []string
	Description string
}

var predictionFormulas = []predictionFormula{
	{"侵蚀量", []string{"分区面积", "时段", "侵蚀模数"}, "侵蚀量 = 分区面积 × 时段 × 侵蚀模数"},
}

// resolveVar looks up a DOC-scoped fact's numeric value, normalizing
// hm²/公顷 (x10000) and any 万-prefixed unit the same way the fact
// extractor does, in case a raw unnormalized fact slipped through.
func resolveVar(ctx *review.Context, factKey string) (float64, bool) {
	f, ok := ctx.FactsByKey[factKey]
	if !ok || f.ValueNum == nil {
		return 0, false
	}
	value := *f.ValueNum
	unit := f.Unit
	if strings.HasPrefix(unit, "万") {
		value *= 10000
		unit = strings.TrimPrefix(unit, "万")
	}
	if unit == "hm²" || unit == "公顷" {
		value *= 10000
	}
	return value, true
}

func evidenceOf(ctx *review.Context) []uuid.UUID {
	if id := ctx.FirstBlockID(); id != nil {
		return []uuid.UUID{*id}
	}
	return nil
}

// reportedRatio locates the indicator's reported (实现值) figure: the
// numeric cell sharing a row or column with a cell naming the indicator,
// in one of the tables whose title names a "指标"/ratio section, and
// stored as a 0-1 fraction the way a ratio column normally is.
func reportedRatio(ctx *review.Context, name string) (float64, bool) {
	for _, tv := range ctx.Tables {
		title := tv.Table.Title
		if !strings.Contains(title, "指标") && !strings.Contains(title, name) {
			continue
		}

		for _, cell := range tv.Cells {
			if !strings.Contains(cell.RawText, name) {
				continue
			}
			for _, other := range tv.Cells {
				if other.NumValue == nil {
					continue
				}
				if other.RowIndex != cell.RowIndex && other.ColIndex != cell.ColIndex {
					continue
				}
				if *other.NumValue < 0 || *other.NumValue > 1 {
					continue
				}
				return *other.NumValue, true
			}
		}
	}
	return 0, false
}

func runSixIndicators(ctx *review.Context) []IssueDraft {
	var drafts []IssueDraft
	for _, formula := range sixIndicatorFormulas {
		num, okA := resolveVar(ctx, formula.NumeratorKey)
		den, okB := resolveVar(ctx, formula.DenominatorKey)
		if !okA || !okB || den == 0 {
			continue
		}
		calculated := num / den

		reported, ok := reportedRatio(ctx, formula.Name)
		if !ok {
			continue
		}

		diff := math.Abs(calculated - reported)
		if diff <= sixIndicatorTolerance {
			continue
		}

		trace := fmt.Sprintf("%s / %s = %.4f ≠ %.4f", formatNum(num, 2), formatNum(den, 2), calculated, reported)
		drafts = append(drafts, IssueDraft{
			IssueType:        "FORMULA_MISMATCH_SIX_INDICATORS",
			Severity:         "S1",
			Title:            fmt.Sprintf("%s计算不一致", formula.Name),
			Description:      fmt.Sprintf("%s。计算值：%.4f，实现值：%.4f，差异：%.4f。计算过程：%s", formula.Description, calculated, reported, diff, trace),
			Suggestion:       fmt.Sprintf("请核对%s计算公式中的分子、分母取值，或检查实现值来源", formula.Name),
			Confidence:       0.9,
			EvidenceBlockIDs: evidenceOf(ctx),
		})
	}
	return drafts
}

func runBalanceFormulas(ctx *review.Context) []IssueDraft {
	var drafts []IssueDraft
	for _, formula := range balanceFormulas {
		lhs, okL := resolveVar(ctx, formula.LHS)
		if !okL {
			continue
		}
		var rhsSum float64
		allPresent := true
		for _, key := range formula.RHS {
			v, ok := resolveVar(ctx, key)
			if !ok {
				allPresent = false
				break
			}
			rhsSum += v
		}
		if !allPresent {
			continue
		}
		diff := math.Abs(lhs - rhsSum)
		if diff > formula.Tolerance*math.Max(1, math.Abs(lhs)) {
			drafts = append(drafts, IssueDraft{
				IssueType:        "FORMULA_BALANCE_MISMATCH",
				Severity:         "S1",
				Title:            fmt.Sprintf("平衡公式「%s」不成立", formula.Name),
				Description:      fmt.Sprintf("%s，左值 %.2f 与右侧合计 %.2f 相差 %.2f。", formula.Description, lhs, rhsSum, diff),
				Suggestion:       "请核对土石方各分项数值是否相互匹配。",
				Confidence:       0.75,
				EvidenceBlockIDs: evidenceOf(ctx),
			})
		}
	}
	return drafts
}

func runPredictionFormulas(ctx *review.Context) []IssueDraft {
	var drafts []IssueDraft
	for _, formula := range predictionFormulas {
		product := 1.0
		allPresent := true
		for _, key := range formula.Factors {
			v, ok := resolveVar(ctx, key)
			if !ok {
				allPresent = false
				break
			}
			product *= v
		}
		if !allPresent {
			continue
		}
		if product < 0 {
			drafts = append(drafts, IssueDraft{
				IssueType:        "FORMULA_PREDICTION_INVALID",
				Severity:         "S2",
				Title:            fmt.Sprintf("预测公式「%s」结果异常", formula.Name),
				Description:      fmt.Sprintf("%s，计算结果为负值 %.2f。", formula.Description, product),
				Suggestion:       "请核对预测分区面积、时段、侵蚀模数等输入是否为正值。",
				Confidence:       0.6,
				EvidenceBlockIDs: evidenceOf(ctx),
			})
		}
	}
	return drafts
}

// RunFormulaCalculation runs the six-indicator ratio checks, the
// earthwork balance identity, and the erosion prediction sanity check
// against the facts already extracted for this version.
func RunFormulaCalculation(ctx *review.Context, ruleConfig map[string]any) []IssueDraft {
	var drafts []IssueDraft
	drafts = append(drafts, runSixIndicators(ctx)...)
	drafts = append(drafts, runBalanceFormulas(ctx)...)
	drafts = append(drafts, runPredictionFormulas(ctx)...)
	return drafts
}
