package airule

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swsreview/engine/internal/config"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

func testLogger() *logger.Logger {
	return logger.New(config.LoggingConfig{Level: "error", Format: "json"})
}

func checkpoints(n int) []*models.Checkpoint {
	out := make([]*models.Checkpoint, n)
	for i := range out {
		out[i] = &models.Checkpoint{Code: fmt.Sprintf("AI_CHECK_%d", i), Name: "检查点", EngineType: models.EngineTypeAI}
	}
	return out
}

func TestBuildGroups_SplitsIntoBatchMaxSizedGroups(t *testing.T) {
	groups := BuildGroups(checkpoints(16), nil, nil)
	require.Len(t, groups, 3)
	assert.Len(t, groups[0].Checkpoints, BatchMax)
	assert.Len(t, groups[1].Checkpoints, BatchMax)
	assert.Len(t, groups[2].Checkpoints, 2)
}

func TestBuildGroups_EmptyCheckpointsYieldsNoGroups(t *testing.T) {
	assert.Empty(t, BuildGroups(nil, nil, nil))
}

type stubClient struct {
	calls   int32
	failFor map[string]int
	reply   func(req Request) (*Response, error)
}

func (s *stubClient) Complete(ctx context.Context, req Request) (*Response, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.reply(req)
}

func issuesJSON(checkpointCode string, blockID uuid.UUID) string {
	payload := issuesPayload{Issues: []issuePayload{{
		CheckpointCode:   checkpointCode,
		IssueType:        "AI_FINDING",
		Severity:         "S2",
		Title:            "问题标题",
		Description:      "问题描述",
		Confidence:       0.8,
		EvidenceBlockIDs: []string{blockID.String()},
	}}}
	b, _ := json.Marshal(payload)
	return string(b)
}

func TestDriver_Run_SucceedsOnFirstWave(t *testing.T) {
	block := &models.Block{ID: uuid.New(), Text: "项目概况段落"}
	cps := checkpoints(2)

	client := &stubClient{reply: func(req Request) (*Response, error) {
		return &Response{Content: issuesJSON(cps[0].Code, block.ID)}, nil
	}}

	driver := NewDriver(client, "test-model", 2, 1, testLogger())
	groups := BuildGroups(cps, []*models.Block{block}, nil)

	issues, err := driver.Run(context.Background(), groups, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, cps[0].Code, issues[0].CheckpointCode)
	assert.Equal(t, int32(1), atomic.LoadInt32(&client.calls))
}

func TestDriver_Run_RequeuesFailedBatchAndSucceeds(t *testing.T) {
	block := &models.Block{ID: uuid.New(), Text: "项目概况段落"}
	cps := checkpoints(1)

	var attempt int32
	client := &stubClient{reply: func(req Request) (*Response, error) {
		n := atomic.AddInt32(&attempt, 1)
		if n == 1 {
			return nil, fmt.Errorf("transient upstream error")
		}
		return &Response{Content: issuesJSON(cps[0].Code, block.ID)}, nil
	}}

	driver := NewDriver(client, "test-model", 1, 0, testLogger())
	groups := BuildGroups(cps, []*models.Block{block}, nil)

	issues, err := driver.Run(context.Background(), groups, nil)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.GreaterOrEqual(t, atomic.LoadInt32(&attempt), int32(2))
}

func TestDriver_Run_PermanentFailureReturnsError(t *testing.T) {
	cps := checkpoints(1)
	client := &stubClient{reply: func(req Request) (*Response, error) {
		return nil, fmt.Errorf("permanent failure")
	}}

	driver := NewDriver(client, "test-model", 1, 0, testLogger())
	groups := BuildGroups(cps, nil, nil)

	_, err := driver.Run(context.Background(), groups, nil)
	assert.Error(t, err)
}

func TestDriver_Run_EmptyGroupsReturnsNil(t *testing.T) {
	driver := NewDriver(&stubClient{reply: func(Request) (*Response, error) { return nil, nil }}, "m", 1, 0, testLogger())
	issues, err := driver.Run(context.Background(), nil, nil)
	assert.NoError(t, err)
	assert.Nil(t, issues)
}

func TestParseIssues_DropsUnknownCheckpointAndFiltersUnknownEvidence(t *testing.T) {
	validBlock := uuid.New()
	batch := CheckpointGroup{
		Checkpoints: []*models.Checkpoint{{Code: "AI_CHECK_0"}},
		Blocks:      []*models.Block{{ID: validBlock, Text: "..."}},
	}

	payload := issuesPayload{Issues: []issuePayload{
		{CheckpointCode: "AI_CHECK_0", EvidenceBlockIDs: []string{validBlock.String(), uuid.New().String()}},
		{CheckpointCode: "UNKNOWN_CODE"},
	}}
	raw, _ := json.Marshal(payload)

	issues, err := ParseIssues(string(raw), batch)
	require.NoError(t, err)
	require.Len(t, issues, 1)
	assert.Equal(t, []string{validBlock.String()}, issues[0].EvidenceBlockIDs)
}

func TestParseIssues_TrimsSurroundingProse(t *testing.T) {
	batch := CheckpointGroup{Checkpoints: []*models.Checkpoint{{Code: "AI_CHECK_0"}}}
	wrapped := "这是模型的说明文字：\n" + issuesJSON("AI_CHECK_0", uuid.New()) + "\n以上为结果。"

	issues, err := ParseIssues(wrapped, batch)
	require.NoError(t, err)
	assert.Len(t, issues, 1)
}
