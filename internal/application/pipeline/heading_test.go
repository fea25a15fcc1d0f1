package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHeadingLevel_NumberedPrefixes(t *testing.T) {
	cases := []struct {
		text      string
		wantLevel int
		wantOK    bool
	}{
		{"1 总论", 1, true},
		{"1.2 编制依据", 2, true},
		{"1.2.3 水土流失预测", 3, true},
		{"不是标题的正文段落", 0, false},
		{"2023年11月9日", 0, false},
		{"101 超出章节编号范围", 0, false},
		{"", 0, false},
	}
	for _, c := range cases {
		level, ok := headingLevel(c.text)
		assert.Equal(t, c.wantOK, ok, c.text)
		if c.wantOK {
			assert.Equal(t, c.wantLevel, level, c.text)
		}
	}
}

func TestHeadingLevel_AppendixPrefixes(t *testing.T) {
	level, ok := headingLevel("附件")
	assert.True(t, ok)
	assert.Equal(t, 1, level)

	level, ok = headingLevel("附表1 工程量汇总表")
	assert.True(t, ok)
	assert.Equal(t, 2, level)
}

func TestStripTOCPageNumber_RemovesTrailingPageNumber(t *testing.T) {
	cleaned, ok := stripTOCPageNumber("1 综合说明 3")
	assert.True(t, ok)
	assert.Equal(t, "1 综合说明", cleaned)
}

func TestStripTOCPageNumber_LeavesNonHeadingTextAlone(t *testing.T) {
	cleaned, ok := stripTOCPageNumber("普通段落 3")
	assert.False(t, ok)
	assert.Equal(t, "普通段落 3", cleaned)
}

func TestLevelCounters_ProducesDottedNodeNumbers(t *testing.T) {
	lc := newLevelCounters()
	assert.Equal(t, "1", lc.next(1, nil))
	assert.Equal(t, "1.1", lc.next(2, []int{1}))
	assert.Equal(t, "1.2", lc.next(2, []int{1}))
	assert.Equal(t, "2", lc.next(1, nil))
	assert.Equal(t, "2.1", lc.next(2, []int{1}))
}

func TestInferTableNo_ExtractsFromFirstCell(t *testing.T) {
	assert.Equal(t, "表3-1", inferTableNo("表3-1"))
	assert.Equal(t, "", inferTableNo("工程量"))
}

func TestTableCaptionFrom_ParsesCaptionLine(t *testing.T) {
	title, no, ok := tableCaptionFrom("表3-1：工程量汇总表")
	assert.True(t, ok)
	assert.Equal(t, "工程量汇总表", title)
	assert.Equal(t, "表3-1", no)
}

func TestTableCaptionFrom_NonCaptionTextYieldsFalse(t *testing.T) {
	_, _, ok := tableCaptionFrom("这是普通段落文字")
	assert.False(t, ok)
}
