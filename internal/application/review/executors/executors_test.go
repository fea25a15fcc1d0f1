package executors

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swsreview/engine/internal/application/review"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

func numPtr(v float64) *float64 { return &v }

func TestRunSumMismatch_FlagsInconsistentRowTotal(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表4-1"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "项目"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "面积"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "A"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 1, RawText: "3", NumValue: numPtr(3)},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "B"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 1, RawText: "4", NumValue: numPtr(4)},
		{TableID: table.ID, RowIndex: 3, ColIndex: 0, RawText: "合计"},
		{TableID: table.ID, RowIndex: 3, ColIndex: 1, RawText: "9", NumValue: numPtr(9)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	drafts := RunSumMismatch(ctx, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "SUM_MISMATCH_ROW", drafts[0].IssueType)
	assert.Equal(t, "S1", drafts[0].Severity)
	assert.Contains(t, drafts[0].Description, "3 + 4 = 7 ≠ 9")
}

func TestRunSumMismatch_WithinToleranceProducesNothing(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表4-2"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "项目"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "面积"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "A"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 1, RawText: "3", NumValue: numPtr(3)},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "B"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 1, RawText: "4", NumValue: numPtr(4)},
		{TableID: table.ID, RowIndex: 3, ColIndex: 0, RawText: "合计"},
		{TableID: table.ID, RowIndex: 3, ColIndex: 1, RawText: "7", NumValue: numPtr(7)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	drafts := RunSumMismatch(ctx, nil)
	assert.Empty(t, drafts)
}

func TestRunSumMismatch_FlagsInconsistentColumnTotal(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表4-3"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "项目"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "合计金额"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "土方工程"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 1, RawText: "30", NumValue: numPtr(30)},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "植被工程"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 1, RawText: "20", NumValue: numPtr(20)},
		{TableID: table.ID, RowIndex: 3, ColIndex: 0, RawText: ""},
		{TableID: table.ID, RowIndex: 3, ColIndex: 1, RawText: "60", NumValue: numPtr(60)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	drafts := RunSumMismatch(ctx, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "SUM_MISMATCH_COL", drafts[0].IssueType)
	assert.Equal(t, "S1", drafts[0].Severity)
	assert.Contains(t, drafts[0].Description, "30 + 20 = 50 ≠ 60")
}

func TestRunSumMismatch_FlagsPercentageColumnNotSummingTo100(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表4-4"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "项目"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "占比"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "A"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 1, RawText: "0.3", NumValue: numPtr(0.3)},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "B"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 1, RawText: "0.5", NumValue: numPtr(0.5)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	drafts := RunSumMismatch(ctx, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "PERCENTAGE_SUM_MISMATCH", drafts[0].IssueType)
	assert.Equal(t, "S2", drafts[0].Severity)
}

func TestRunSumMismatch_PercentageColumnSummingTo100IsFine(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表4-5"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "项目"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "占比"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "A"},
		{TableID: table.ID, RowIndex: 1, ColIndex: 1, RawText: "0.4", NumValue: numPtr(0.4)},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "B"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 1, RawText: "0.6", NumValue: numPtr(0.6)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	assert.Empty(t, RunSumMismatch(ctx, nil))
}

func TestRunUnitInconsistent_FlagsMixedUnitsInSameColumn(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表5-1"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "8.2", Unit: "hm²"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "10", Unit: "亩"},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	drafts := RunUnitInconsistent(ctx, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "UNIT_INCONSISTENT", drafts[0].IssueType)
}

func TestRunUnitInconsistent_SingleUnitPerColumnIsFine(t *testing.T) {
	table := &models.Table{ID: uuid.New(), TableNo: "表5-2"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 1, ColIndex: 0, RawText: "8.2", Unit: "hm²"},
		{TableID: table.ID, RowIndex: 2, ColIndex: 0, RawText: "10", Unit: "hm²"},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, nil)

	assert.Empty(t, RunUnitInconsistent(ctx, nil))
}

func TestRunMissingSection_FlagsAbsentRequiredSections(t *testing.T) {
	outline := []*models.OutlineNode{
		{ID: uuid.New(), Title: "项目概况"},
	}
	ctx := review.NewContext(uuid.New(), outline, nil, nil, nil)

	drafts := RunMissingSection(ctx, nil)
	assert.NotEmpty(t, drafts)
	for _, d := range drafts {
		assert.Equal(t, "MISSING_SECTION", d.IssueType)
		assert.NotContains(t, d.Title, "项目概况")
	}
}

func TestRunMissingSection_AllPresentYieldsNothing(t *testing.T) {
	outline := []*models.OutlineNode{
		{ID: uuid.New(), Title: "综合说明"},
		{ID: uuid.New(), Title: "项目概况"},
		{ID: uuid.New(), Title: "项目区概况"},
		{ID: uuid.New(), Title: "水土保持方案"},
		{ID: uuid.New(), Title: "投资估算"},
		{ID: uuid.New(), Title: "结论与建议"},
	}
	ctx := review.NewContext(uuid.New(), outline, nil, nil, nil)
	assert.Empty(t, RunMissingSection(ctx, nil))
}

func TestRunKeyFieldConsistency_FlagsDisagreeingMentions(t *testing.T) {
	blocks := []*models.Block{
		{ID: uuid.New(), BlockType: models.BlockTypePara, OrderIndex: 1, Text: "项目占地面积：12.5公顷，位于城区西侧。"},
		{ID: uuid.New(), BlockType: models.BlockTypePara, OrderIndex: 2, Text: "综上，占地面积：15亩。"},
	}
	ctx := review.NewContext(uuid.New(), nil, blocks, nil, nil)

	drafts := RunKeyFieldConsistency(ctx, nil)
	require.Len(t, drafts, 1)
	assert.Equal(t, "KEY_FIELD_INCONSISTENT", drafts[0].IssueType)
	assert.Len(t, drafts[0].EvidenceBlockIDs, 2)
}

func TestRunKeyFieldConsistency_ConsistentMentionsYieldNothing(t *testing.T) {
	blocks := []*models.Block{
		{ID: uuid.New(), BlockType: models.BlockTypePara, OrderIndex: 1, Text: "项目占地面积：12.5公顷，位于城区西侧。"},
		{ID: uuid.New(), BlockType: models.BlockTypePara, OrderIndex: 2, Text: "综上，占地面积：12.5公顷。"},
	}
	ctx := review.NewContext(uuid.New(), nil, blocks, nil, nil)
	assert.Empty(t, RunKeyFieldConsistency(ctx, nil))
}

func TestRunFormulaCalculation_FlagsSixIndicatorMismatchAgainstReportedValue(t *testing.T) {
	treated := 8000.0
	total := 10000.0
	facts := []*models.Fact{
		{FactKey: "治理达标面积", Scope: models.FactScopeDoc, ValueNum: &treated},
		{FactKey: "水土流失总面积", Scope: models.FactScopeDoc, ValueNum: &total},
	}
	table := &models.Table{ID: uuid.New(), TableNo: "表6-1", Title: "六项防治指标"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "治理度"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "0.85", NumValue: numPtr(0.85)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, facts)

	drafts := RunFormulaCalculation(ctx, nil)
	require.NotEmpty(t, drafts)
	assert.Equal(t, "FORMULA_MISMATCH_SIX_INDICATORS", drafts[0].IssueType)
	assert.Equal(t, "S1", drafts[0].Severity)
	assert.Contains(t, drafts[0].Description, "8000 / 10000 = 0.8000 ≠ 0.8500")
}

func TestRunFormulaCalculation_SixIndicatorMatchesReportedValueYieldsNothing(t *testing.T) {
	treated := 8000.0
	total := 10000.0
	facts := []*models.Fact{
		{FactKey: "治理达标面积", Scope: models.FactScopeDoc, ValueNum: &treated},
		{FactKey: "水土流失总面积", Scope: models.FactScopeDoc, ValueNum: &total},
	}
	table := &models.Table{ID: uuid.New(), TableNo: "表6-2", Title: "六项防治指标"}
	cells := []*models.Cell{
		{TableID: table.ID, RowIndex: 0, ColIndex: 0, RawText: "治理度"},
		{TableID: table.ID, RowIndex: 0, ColIndex: 1, RawText: "0.8", NumValue: numPtr(0.8)},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, []review.TableView{{Table: table, Cells: cells}}, facts)

	for _, d := range RunFormulaCalculation(ctx, nil) {
		assert.NotEqual(t, "FORMULA_MISMATCH_SIX_INDICATORS", d.IssueType)
	}
}

func TestRunFormulaCalculation_SixIndicatorWithoutReportedValueSkipped(t *testing.T) {
	overshot := 2000.0
	total := 1000.0
	facts := []*models.Fact{
		{FactKey: "治理达标面积", Scope: models.FactScopeDoc, ValueNum: &overshot},
		{FactKey: "水土流失总面积", Scope: models.FactScopeDoc, ValueNum: &total},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, nil, facts)

	for _, d := range RunFormulaCalculation(ctx, nil) {
		assert.NotEqual(t, "FORMULA_MISMATCH_SIX_INDICATORS", d.IssueType)
	}
}

func TestRunFormulaCalculation_BalanceIdentityHolds(t *testing.T) {
	excavation := 300.0
	fill := 100.0
	discard := 100.0
	haulOff := 100.0
	facts := []*models.Fact{
		{FactKey: "挖方", Scope: models.FactScopeDoc, ValueNum: &excavation},
		{FactKey: "填方", Scope: models.FactScopeDoc, ValueNum: &fill},
		{FactKey: "弃方", Scope: models.FactScopeDoc, ValueNum: &discard},
		{FactKey: "外运量", Scope: models.FactScopeDoc, ValueNum: &haulOff},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, nil, facts)

	for _, d := range RunFormulaCalculation(ctx, nil) {
		assert.NotEqual(t, "FORMULA_BALANCE_MISMATCH", d.IssueType)
	}
}

func TestRunFormulaCalculation_BalanceIdentityViolated(t *testing.T) {
	excavation := 300.0
	fill := 100.0
	discard := 50.0
	haulOff := 50.0
	facts := []*models.Fact{
		{FactKey: "挖方", Scope: models.FactScopeDoc, ValueNum: &excavation},
		{FactKey: "填方", Scope: models.FactScopeDoc, ValueNum: &fill},
		{FactKey: "弃方", Scope: models.FactScopeDoc, ValueNum: &discard},
		{FactKey: "外运量", Scope: models.FactScopeDoc, ValueNum: &haulOff},
	}
	ctx := review.NewContext(uuid.New(), nil, nil, nil, facts)

	drafts := RunFormulaCalculation(ctx, nil)
	var found bool
	for _, d := range drafts {
		if d.IssueType == "FORMULA_BALANCE_MISMATCH" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestRegistry_ContainsAllRuleCheckpoints(t *testing.T) {
	for _, code := range []string{
		"SUM_MISMATCH", "UNIT_INCONSISTENT", "MISSING_SECTION",
		"KEY_FIELD_CONSISTENCY", "FORMULA_CALCULATION",
	} {
		_, ok := Registry[code]
		assert.True(t, ok, "missing executor for %s", code)
	}
}
