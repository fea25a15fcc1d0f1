package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestVersion_IsTerminal(t *testing.T) {
	assert.True(t, (&Version{Status: VersionStatusDone}).IsTerminal())
	assert.True(t, (&Version{Status: VersionStatusFailed}).IsTerminal())
	assert.True(t, (&Version{Status: VersionStatusCanceled}).IsTerminal())
	assert.False(t, (&Version{Status: VersionStatusProcessing}).IsTerminal())
	assert.False(t, (&Version{Status: VersionStatusUploaded}).IsTerminal())
}

func TestReviewRun_IsTerminal(t *testing.T) {
	assert.True(t, (&ReviewRun{Status: RunStatusSucceeded}).IsTerminal())
	assert.False(t, (&ReviewRun{Status: RunStatusRunning}).IsTerminal())
	assert.False(t, (&ReviewRun{Status: RunStatusPending}).IsTerminal())
}

func TestBlock_Valid_TableBlockRequiresTableIDNotText(t *testing.T) {
	tableID := uuid.New()
	assert.True(t, (&Block{BlockType: BlockTypeTable, TableID: &tableID}).Valid())
	assert.False(t, (&Block{BlockType: BlockTypeTable, TableID: &tableID, Text: "不应该有文本"}).Valid())
	assert.False(t, (&Block{BlockType: BlockTypeTable}).Valid())
}

func TestBlock_Valid_ProseBlockRequiresTextNotTableID(t *testing.T) {
	assert.True(t, (&Block{BlockType: BlockTypePara, Text: "正文"}).Valid())
	assert.True(t, (&Block{BlockType: BlockTypeHeading, Text: "标题"}).Valid())

	tableID := uuid.New()
	assert.False(t, (&Block{BlockType: BlockTypePara, Text: "正文", TableID: &tableID}).Valid())
	assert.False(t, (&Block{BlockType: BlockTypePara}).Valid())
}

func TestBlock_Valid_UnknownBlockTypeIsAlwaysInvalid(t *testing.T) {
	assert.False(t, (&Block{BlockType: "UNKNOWN", Text: "正文"}).Valid())
}

func TestCell_InBounds(t *testing.T) {
	cell := &Cell{RowIndex: 1, ColIndex: 2}
	assert.True(t, cell.InBounds(3, 3))
	assert.False(t, cell.InBounds(1, 3))
	assert.False(t, cell.InBounds(3, 2))
}

func TestFact_Key_ReturnsUpsertIdentityTuple(t *testing.T) {
	versionID := uuid.New()
	f := &Fact{VersionID: versionID, FactKey: "total_area", Scope: FactScopeDoc}
	gotVersion, gotKey, gotScope := f.Key()
	assert.Equal(t, versionID, gotVersion)
	assert.Equal(t, "total_area", gotKey)
	assert.Equal(t, FactScopeDoc, gotScope)
}

func TestJSONBMap_ValueMarshalsToJSONString(t *testing.T) {
	m := JSONBMap{"k": "v"}
	v, err := m.Value()
	assert.NoError(t, err)
	assert.Equal(t, `{"k":"v"}`, v)
}

func TestJSONBMap_ValueNilMapReturnsNil(t *testing.T) {
	var m JSONBMap
	v, err := m.Value()
	assert.NoError(t, err)
	assert.Nil(t, v)
}

func TestJSONBMap_ScanFromBytesRoundTrips(t *testing.T) {
	var m JSONBMap
	err := m.Scan([]byte(`{"a":1,"b":"two"}`))
	assert.NoError(t, err)
	assert.Equal(t, 1, m.GetInt("a"))
	assert.Equal(t, "two", m.GetString("b"))
}

func TestJSONBMap_ScanNilProducesEmptyMap(t *testing.T) {
	var m JSONBMap
	assert.NoError(t, m.Scan(nil))
	assert.NotNil(t, m)
	assert.Empty(t, m)
}

func TestJSONBMap_ScanRejectsNonByteValues(t *testing.T) {
	var m JSONBMap
	err := m.Scan(42)
	assert.Error(t, err)
}

func TestJSONBMap_GettersReturnZeroValueOnTypeMismatch(t *testing.T) {
	m := JSONBMap{"n": "not a number", "flag": "not a bool"}
	assert.Equal(t, 0, m.GetInt("n"))
	assert.Equal(t, 0.0, m.GetFloat("n"))
	assert.False(t, m.GetBool("flag"))
	assert.Empty(t, m.GetMap("n"))
}

func TestJSONBMap_SetDeleteHasRoundTrip(t *testing.T) {
	m := make(JSONBMap)
	assert.False(t, m.Has("x"))
	m.Set("x", "y")
	assert.True(t, m.Has("x"))
	m.Delete("x")
	assert.False(t, m.Has("x"))
}

func TestJSONBMap_CloneIsIndependentOfOriginal(t *testing.T) {
	original := JSONBMap{"k": "v"}
	clone := original.Clone()
	clone.Set("k", "changed")
	assert.Equal(t, "v", original.GetString("k"))
	assert.Equal(t, "changed", clone.GetString("k"))
}

func TestJSONBMap_CloneOfNilReturnsEmptyMap(t *testing.T) {
	var m JSONBMap
	clone := m.Clone()
	assert.NotNil(t, clone)
	assert.Empty(t, clone)
}

func TestStringArray_ValueFormatsAsPostgresArrayLiteral(t *testing.T) {
	a := StringArray{"foo", "bar"}
	v, err := a.Value()
	assert.NoError(t, err)
	assert.Equal(t, `{"foo","bar"}`, v)
}

func TestStringArray_ValueEmptyReturnsEmptyLiteral(t *testing.T) {
	var a StringArray
	v, err := a.Value()
	assert.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestStringArray_ScanParsesPostgresArrayLiteral(t *testing.T) {
	var a StringArray
	err := a.Scan([]byte(`{"foo","bar"}`))
	assert.NoError(t, err)
	assert.Equal(t, StringArray{"foo", "bar"}, a)
}

func TestStringArray_ScanEmptyLiteralProducesEmptySlice(t *testing.T) {
	var a StringArray
	err := a.Scan([]byte(`{}`))
	assert.NoError(t, err)
	assert.Empty(t, a)
}

func TestStringArray_ScanNilProducesEmptySlice(t *testing.T) {
	var a StringArray
	assert.NoError(t, a.Scan(nil))
	assert.NotNil(t, a)
	assert.Empty(t, a)
}

func TestStringArray_ScanRejectsMalformedLiteral(t *testing.T) {
	var a StringArray
	err := a.Scan([]byte(`not an array`))
	assert.Error(t, err)
}
