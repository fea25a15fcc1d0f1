// Package reviewrun orchestrates one review pass over a Version (§4.5):
// loading the review.Context, running every enabled RULE checkpoint
// through internal/application/review/executors, batching every enabled
// AI checkpoint through internal/application/airule, and persisting the
// combined findings as Issues against a single ReviewRun, reporting
// progress the same way internal/application/pipeline does.
package reviewrun

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/airule"
	"github.com/swsreview/engine/internal/application/progress"
	"github.com/swsreview/engine/internal/application/review"
	"github.com/swsreview/engine/internal/application/review/executors"
	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// Service runs review passes. AIClient may be nil, in which case AI
// checkpoints are skipped (a rule-only deployment, or a retry of a
// version whose AI pass already succeeded in an earlier run).
type Service struct {
	versions    repository.VersionRepository
	outlines    repository.OutlineRepository
	blocks      repository.BlockRepository
	tables      repository.TableRepository
	factsRepo   repository.FactRepository
	checkpoints repository.CheckpointRepository
	runs        repository.ReviewRunRepository
	kb          repository.KBRepository

	aiClient       airule.Client
	aiModel        string
	aiConcurrency  int
	aiMaxRetries   int
	kbSearchTopK   int

	bus    *progress.Bus
	logger *logger.Logger
}

// Config carries the AI batching knobs sourced from config.AIConfig.
type Config struct {
	AIModel       string
	AIConcurrency int
	AIMaxRetries  int
	KBSearchTopK  int
}

// New wires a Service. aiClient may be nil to disable the AI engine path.
func New(
	versions repository.VersionRepository,
	outlines repository.OutlineRepository,
	blocks repository.BlockRepository,
	tables repository.TableRepository,
	factsRepo repository.FactRepository,
	checkpoints repository.CheckpointRepository,
	runs repository.ReviewRunRepository,
	kb repository.KBRepository,
	aiClient airule.Client,
	cfg Config,
	bus *progress.Bus,
	log *logger.Logger,
) *Service {
	topK := cfg.KBSearchTopK
	if topK <= 0 {
		topK = normChunkDefault
	}
	return &Service{
		versions:      versions,
		outlines:      outlines,
		blocks:        blocks,
		tables:        tables,
		factsRepo:     factsRepo,
		checkpoints:   checkpoints,
		runs:          runs,
		kb:            kb,
		aiClient:      aiClient,
		aiModel:       cfg.AIModel,
		aiConcurrency: cfg.AIConcurrency,
		aiMaxRetries:  cfg.AIMaxRetries,
		kbSearchTopK:  topK,
		bus:           bus,
		logger:        log,
	}
}

const normChunkDefault = 5

// Run executes a full review pass for versionID, creating and returning
// the ReviewRun row it produced.
func (s *Service) Run(ctx context.Context, versionID uuid.UUID) (*models.ReviewRun, error) {
	v, err := s.versions.FindByID(ctx, versionID)
	if err != nil {
		return nil, fmt.Errorf("reviewrun: load version: %w", err)
	}

	run := &models.ReviewRun{
		VersionID: v.ID,
		RunType:   models.RunTypeMixed,
		Status:    models.RunStatusRunning,
	}
	now := time.Now()
	run.StartedAt = &now
	if err := s.runs.Create(ctx, run); err != nil {
		return nil, fmt.Errorf("reviewrun: create run: %w", err)
	}

	reviewCtx, err := s.loadContext(ctx, versionID)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("reviewrun: load context: %w", err))
	}

	checkpoints, err := s.checkpoints.FindEnabled(ctx)
	if err != nil {
		return s.fail(ctx, run, fmt.Errorf("reviewrun: load checkpoints: %w", err))
	}

	var ruleCPs, aiCPs []*models.Checkpoint
	for _, cp := range checkpoints {
		switch cp.EngineType {
		case models.EngineTypeAI:
			aiCPs = append(aiCPs, cp)
		default:
			ruleCPs = append(ruleCPs, cp)
		}
	}

	var allIssues []*models.Issue

	ruleIssues := s.runRuleCheckpoints(reviewCtx, ruleCPs, run.ID)
	allIssues = append(allIssues, ruleIssues...)
	s.reportProgress(run, 40)

	if len(aiCPs) > 0 && s.aiClient != nil {
		aiIssues, err := s.runAICheckpoints(ctx, reviewCtx, aiCPs, run.ID)
		if err != nil {
			s.logger.Warn("reviewrun: ai engine pass incomplete", "run_id", run.ID, "error", err)
		}
		allIssues = append(allIssues, aiIssues...)
	}
	s.reportProgress(run, 90)

	s.backfillPageNo(ctx, allIssues)

	if len(allIssues) > 0 {
		if err := s.runs.CreateIssues(ctx, allIssues); err != nil {
			return s.fail(ctx, run, fmt.Errorf("reviewrun: persist issues: %w", err))
		}
	}

	run.Status = models.RunStatusSucceeded
	run.Progress = 100
	finished := time.Now()
	run.FinishedAt = &finished
	if err := s.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("reviewrun: finalize run: %w", err)
	}
	s.bus.Publish(progress.Event{
		Type:      progress.EventRunCompleted,
		SubjectID: run.ID.String(),
		Progress:  100,
		Timestamp: time.Now(),
	})
	return run, nil
}

func (s *Service) fail(ctx context.Context, run *models.ReviewRun, cause error) (*models.ReviewRun, error) {
	run.Status = models.RunStatusFailed
	run.ErrorMessage = cause.Error()
	finished := time.Now()
	run.FinishedAt = &finished
	_ = s.runs.Update(ctx, run)
	s.bus.Publish(progress.Event{
		Type:      progress.EventRunFailed,
		SubjectID: run.ID.String(),
		Message:   cause.Error(),
		Timestamp: time.Now(),
	})
	return nil, cause
}

func (s *Service) reportProgress(run *models.ReviewRun, pct int) {
	run.Progress = pct
	_ = s.runs.UpdateProgress(context.Background(), run.ID, pct)
	s.bus.Publish(progress.Event{
		Type:      progress.EventProgress,
		SubjectID: run.ID.String(),
		Progress:  pct,
		Timestamp: time.Now(),
	})
}

// loadContext materializes the review.Context a checkpoint batch runs
// against, mirroring the load pattern the pipeline uses for its own
// version-scoped repository reads.
func (s *Service) loadContext(ctx context.Context, versionID uuid.UUID) (*review.Context, error) {
	outline, err := s.outlines.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	blocks, err := s.blocks.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	tables, err := s.tables.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	var tableViews []review.TableView
	for _, t := range tables {
		cells, err := s.tables.FindCellsByTableID(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		tableViews = append(tableViews, review.TableView{Table: t, Cells: cells})
	}
	facts, err := s.factsRepo.FindByVersionID(ctx, versionID)
	if err != nil {
		return nil, err
	}
	return review.NewContext(versionID, outline, blocks, tableViews, facts), nil
}

// runRuleCheckpoints executes every RULE checkpoint against ctx via the
// executors.Registry, attaching each draft to runID.
func (s *Service) runRuleCheckpoints(ctx *review.Context, checkpoints []*models.Checkpoint, runID uuid.UUID) []*models.Issue {
	var issues []*models.Issue
	for _, cp := range checkpoints {
		exec, ok := executors.Registry[cp.Code]
		if !ok {
			s.logger.Warn("reviewrun: no executor registered for checkpoint", "code", cp.Code)
			continue
		}
		drafts := exec(ctx, cp.RuleConfig)
		for _, d := range drafts {
			issues = append(issues, draftToIssue(d, ctx.VersionID, runID, cp))
		}
	}
	return issues
}

func draftToIssue(d executors.IssueDraft, versionID, runID uuid.UUID, cp *models.Checkpoint) *models.Issue {
	return &models.Issue{
		VersionID:        versionID,
		RunID:            runID,
		CheckpointCode:   cp.Code,
		ReviewType:       cp.ReviewType,
		IssueType:        d.IssueType,
		Severity:         d.Severity,
		Title:            d.Title,
		Description:      d.Description,
		Suggestion:       d.Suggestion,
		Confidence:       d.Confidence,
		Status:           models.IssueStatusOpen,
		EvidenceBlockIDs: d.EvidenceBlockIDs,
		EvidenceQuotes:   d.EvidenceQuotes,
	}
}

// runAICheckpoints batches the AI-engine checkpoints through the
// airule.Driver and maps the returned Issues back onto models.Issue.
func (s *Service) runAICheckpoints(ctx context.Context, reviewCtx *review.Context, checkpoints []*models.Checkpoint, runID uuid.UUID) ([]*models.Issue, error) {
	norms, err := s.retrieveNorms(ctx, checkpoints)
	if err != nil {
		s.logger.Warn("reviewrun: kb retrieval failed, continuing without norms", "error", err)
	}

	groups := airule.BuildGroups(checkpoints, reviewCtx.Blocks, norms)
	driver := airule.NewDriver(s.aiClient, s.aiModel, s.aiConcurrency, s.aiMaxRetries, s.logger)

	aiIssues, err := driver.Run(ctx, groups, func(done, total int) {
		pct := 40 + (done*50)/total
		s.bus.Publish(progress.Event{
			Type:      progress.EventProgress,
			SubjectID: runID.String(),
			Progress:  pct,
			Timestamp: time.Now(),
		})
	})

	codeToCheckpoint := make(map[string]*models.Checkpoint, len(checkpoints))
	for _, cp := range checkpoints {
		codeToCheckpoint[cp.Code] = cp
	}

	var issues []*models.Issue
	for _, ai := range aiIssues {
		cp, ok := codeToCheckpoint[ai.CheckpointCode]
		if !ok {
			continue
		}
		issues = append(issues, aiIssueToModel(ai, reviewCtx.VersionID, runID, cp))
	}
	return issues, err
}

func aiIssueToModel(ai airule.Issue, versionID, runID uuid.UUID, cp *models.Checkpoint) *models.Issue {
	var blockIDs []uuid.UUID
	for _, raw := range ai.EvidenceBlockIDs {
		if id, err := uuid.Parse(raw); err == nil {
			blockIDs = append(blockIDs, id)
		}
	}
	return &models.Issue{
		VersionID:        versionID,
		RunID:            runID,
		CheckpointCode:   cp.Code,
		ReviewType:       cp.ReviewType,
		IssueType:        ai.IssueType,
		Severity:         ai.Severity,
		Title:            ai.Title,
		Description:      ai.Description,
		Suggestion:       ai.Suggestion,
		Confidence:       ai.Confidence,
		Status:           models.IssueStatusOpen,
		EvidenceBlockIDs: blockIDs,
		EvidenceQuotes:   ai.EvidenceQuotes,
	}
}

// retrieveNorms pulls one shared pool of norm excerpts for the AI batch
// round, keyed off each checkpoint's name as the search query — every AI
// checkpoint in this design shares the same document context, so a
// single merged pool (capped per batch in airule.BuildRequest) is
// simpler than a per-checkpoint retrieval round and costs one extra
// search call at worst.
func (s *Service) retrieveNorms(ctx context.Context, checkpoints []*models.Checkpoint) ([]airule.NormChunk, error) {
	seen := make(map[uuid.UUID]bool)
	var norms []airule.NormChunk
	for _, cp := range checkpoints {
		chunks, err := s.kb.SearchChunks(ctx, cp.Name, s.kbSearchTopK)
		if err != nil {
			return norms, err
		}
		for _, c := range chunks {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			norms = append(norms, airule.NormChunk{
				ChunkID: c.ID.String(),
				Ref:     fmt.Sprintf("source=%s#%d", c.SourceID, c.ChunkIndex),
				Text:    c.Text,
			})
		}
	}
	return norms, nil
}

// backfillPageNo fills each issue's PageNo from its first evidence
// block's preferred anchor, the same lookup the export stage needs to
// render a findable location.
func (s *Service) backfillPageNo(ctx context.Context, issues []*models.Issue) {
	cache := make(map[uuid.UUID]*int)
	for _, issue := range issues {
		if len(issue.EvidenceBlockIDs) == 0 {
			continue
		}
		blockID := issue.EvidenceBlockIDs[0]
		if page, ok := cache[blockID]; ok {
			issue.PageNo = page
			continue
		}
		anchors, err := s.blocks.FindAnchorsByBlockID(ctx, blockID)
		if err != nil || len(anchors) == 0 {
			cache[blockID] = nil
			continue
		}
		page := anchors[0].PageNo
		for _, a := range anchors {
			if a.Preferred {
				page = a.PageNo
				break
			}
		}
		cache[blockID] = &page
		issue.PageNo = &page
	}
}
