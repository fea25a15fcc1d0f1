// Package pipeline orchestrates the seven-stage ingestion run a Version
// goes through from UPLOADED to READY (§4.1): convert, parse structure,
// extract rendered layout, align blocks to pages, extract facts, build
// KB chunks, finalize. Each stage is wrapped with a status/progress
// update and an OpenTelemetry span, the same shape the teacher wraps its
// own long-running stages in.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/swsreview/engine/internal/application/align"
	"github.com/swsreview/engine/internal/application/facts"
	"github.com/swsreview/engine/internal/application/progress"
	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/converter"
	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/objectstore"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
	"github.com/swsreview/engine/internal/infrastructure/tracing"
)

// stage names double as Version.CurrentStep values and progress.Event
// Stage fields.
const (
	stageConvert   = "convert"
	stageStructure = "parse_structure"
	stageLayout    = "extract_layout"
	stageAlign     = "align_blocks"
	stageFacts     = "extract_facts"
	stageKB        = "build_chunks"
	stageFinalize  = "finalize"
)

// stageWeights sums to 100 and gives each stage its share of
// Version.Progress, in pipeline order.
var stageWeights = map[string]int{
	stageConvert:   15,
	stageStructure: 25,
	stageLayout:    15,
	stageAlign:     20,
	stageFacts:     15,
	stageKB:        5,
	stageFinalize:  5,
}

var stageOrder = []string{stageConvert, stageStructure, stageLayout, stageAlign, stageFacts, stageKB, stageFinalize}

// state carries one run's working data between stages; nothing here is
// persisted until the stage that produces it writes it out.
type state struct {
	version *models.Version

	docxBytes []byte
	pdfBytes  []byte

	structure *ParsedStructure
	pages     []align.PageText
	anchors   []align.Anchor
	extracted []facts.Extracted
}

// Pipeline runs the ingestion stages for a Version, reporting status and
// progress through the repositories and the progress bus.
type Pipeline struct {
	versions  repository.VersionRepository
	documents repository.DocumentRepository
	outlines  repository.OutlineRepository
	blocks    repository.BlockRepository
	tables    repository.TableRepository
	factsRepo repository.FactRepository

	store     objectstore.Store
	converter *converter.Converter
	bus       *progress.Bus
	logger    *logger.Logger
}

// New wires a Pipeline from its dependencies.
func New(
	versions repository.VersionRepository,
	documents repository.DocumentRepository,
	outlines repository.OutlineRepository,
	blocks repository.BlockRepository,
	tables repository.TableRepository,
	factsRepo repository.FactRepository,
	store objectstore.Store,
	conv *converter.Converter,
	bus *progress.Bus,
	log *logger.Logger,
) *Pipeline {
	return &Pipeline{
		versions:  versions,
		documents: documents,
		outlines:  outlines,
		blocks:    blocks,
		tables:    tables,
		factsRepo: factsRepo,
		store:     store,
		converter: conv,
		bus:       bus,
		logger:    log,
	}
}

// Run drives versionID through every stage in order, transitioning
// UPLOADED/PROCESSING -> READY on success or -> FAILED (with
// ErrorMessage set) on the first stage error.
func (p *Pipeline) Run(ctx context.Context, versionID uuid.UUID) error {
	v, err := p.versions.FindByID(ctx, versionID)
	if err != nil {
		return fmt.Errorf("pipeline: load version %s: %w", versionID, err)
	}

	if ok, err := p.versions.UpdateStatus(ctx, versionID, v.Status, models.VersionStatusProcessing); err != nil {
		return fmt.Errorf("pipeline: transition to PROCESSING: %w", err)
	} else if !ok {
		return fmt.Errorf("pipeline: version %s is no longer in a startable state", versionID)
	}
	v.Status = models.VersionStatusProcessing

	st := &state{version: v}
	progressSoFar := 0

	for _, stageName := range stageOrder {
		if err := p.runStage(ctx, st, stageName); err != nil {
			msg := fmt.Sprintf("%s: %v", stageName, err)
			v.ErrorMessage = msg
			if uerr := p.versions.Update(ctx, v); uerr != nil {
				p.logger.Warn("pipeline: error message update failed", "version_id", versionID, "error", uerr)
			}
			_, _ = p.versions.UpdateStatus(ctx, versionID, models.VersionStatusProcessing, models.VersionStatusFailed)
			p.bus.Publish(progress.Event{
				Type: progress.EventStageFailed, SubjectID: versionID.String(),
				Stage: stageName, Progress: progressSoFar, Message: msg, Timestamp: time.Now(),
			})
			return fmt.Errorf("pipeline: %s", msg)
		}
		progressSoFar += stageWeights[stageName]
		if err := p.versions.UpdateProgress(ctx, versionID, progressSoFar, stageName); err != nil {
			p.logger.Warn("pipeline: progress update failed", "version_id", versionID, "error", err)
		}
		p.bus.Publish(progress.Event{
			Type: progress.EventStageCompleted, SubjectID: versionID.String(),
			Stage: stageName, Progress: progressSoFar, Timestamp: time.Now(),
		})
	}

	if _, err := p.versions.UpdateStatus(ctx, versionID, models.VersionStatusProcessing, models.VersionStatusReady); err != nil {
		return fmt.Errorf("pipeline: transition to READY: %w", err)
	}
	p.bus.Publish(progress.Event{
		Type: progress.EventRunCompleted, SubjectID: versionID.String(), Progress: 100, Timestamp: time.Now(),
	})
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, st *state, name string) error {
	ctx, span := tracing.StartSpan(ctx, "pipeline."+name)
	defer span.End()

	p.bus.Publish(progress.Event{
		Type: progress.EventStageStarted, SubjectID: st.version.ID.String(), Stage: name, Timestamp: time.Now(),
	})

	switch name {
	case stageConvert:
		return p.runConvert(ctx, st)
	case stageStructure:
		return p.runParseStructure(ctx, st)
	case stageLayout:
		return p.runExtractLayout(ctx, st)
	case stageAlign:
		return p.runAlign(ctx, st)
	case stageFacts:
		return p.runExtractFacts(ctx, st)
	case stageKB:
		return p.runBuildChunks(ctx, st)
	case stageFinalize:
		return p.runFinalize(ctx, st)
	default:
		return fmt.Errorf("unknown stage %q", name)
	}
}

func (p *Pipeline) versionKeyBase(v *models.Version) string {
	return fmt.Sprintf("versions/%s", v.ID)
}

func (p *Pipeline) runConvert(ctx context.Context, st *state) error {
	r, err := p.store.Get(ctx, st.version.SourceObjectKey)
	if err != nil {
		return fmt.Errorf("fetch source docx: %w", err)
	}
	defer r.Close()
	docxBytes, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read source docx: %w", err)
	}
	if len(docxBytes) < 4 {
		return fmt.Errorf("source docx is empty or truncated")
	}
	st.docxBytes = docxBytes

	pdfBytes, err := p.converter.ToPDF(ctx, docxBytes)
	if err != nil {
		return err
	}
	st.pdfBytes = pdfBytes

	renderedKey := p.versionKeyBase(st.version) + "/rendered.pdf"
	if _, err := p.store.Put(ctx, renderedKey, bytes.NewReader(pdfBytes)); err != nil {
		return fmt.Errorf("store rendered pdf: %w", err)
	}
	st.version.RenderedObjectKey = renderedKey
	return p.versions.Update(ctx, st.version)
}

func (p *Pipeline) runParseStructure(ctx context.Context, st *state) error {
	structure, err := ParseDocxStructure(st.version.ID, st.docxBytes)
	if err != nil {
		return fmt.Errorf("parse docx structure: %w", err)
	}
	st.structure = structure

	if len(structure.Outline) > 0 {
		if err := p.outlines.CreateBatch(ctx, structure.Outline); err != nil {
			return fmt.Errorf("persist outline: %w", err)
		}
	}
	if len(structure.Tables) > 0 {
		for _, t := range structure.Tables {
			if err := p.tables.Create(ctx, t); err != nil {
				return fmt.Errorf("persist table %s: %w", t.ID, err)
			}
		}
		if err := p.tables.CreateCells(ctx, structure.Cells); err != nil {
			return fmt.Errorf("persist cells: %w", err)
		}
	}
	if len(structure.Blocks) > 0 {
		if err := p.blocks.CreateBatch(ctx, structure.Blocks); err != nil {
			return fmt.Errorf("persist blocks: %w", err)
		}
	}
	return nil
}

func (p *Pipeline) runExtractLayout(ctx context.Context, st *state) error {
	pages, err := align.ExtractPageTexts(bytes.NewReader(st.pdfBytes), int64(len(st.pdfBytes)))
	if err != nil {
		return fmt.Errorf("extract pdf layout: %w", err)
	}
	st.pages = pages
	return nil
}

func (p *Pipeline) runAlign(ctx context.Context, st *state) error {
	aligner := align.NewAligner(st.pages)

	tableByID := make(map[uuid.UUID]*models.Table, len(st.structure.Tables))
	for _, t := range st.structure.Tables {
		tableByID[t.ID] = t
	}

	inputs := make([]align.BlockInput, 0, len(st.structure.Blocks))
	for _, b := range st.structure.Blocks {
		var table *models.Table
		if b.TableID != nil {
			table = tableByID[*b.TableID]
		}
		inputs = append(inputs, align.BlockInput{
			BlockID:   b.ID,
			BlockType: b.BlockType,
			Text:      b.Text,
			Table:     table,
		})
	}

	anchors := aligner.Locate(inputs)
	st.anchors = anchors
	if len(anchors) == 0 {
		return nil
	}

	rows := make([]*models.PageAnchor, len(anchors))
	for i, a := range anchors {
		rows[i] = &models.PageAnchor{
			ID:         uuid.New(),
			BlockID:    a.BlockID,
			PageNo:     a.PageNo,
			RectPoints: a.RectPoints,
			RectNorm:   a.RectNorm,
			Confidence: a.Confidence,
			Preferred:  true,
		}
	}
	if err := p.blocks.CreateAnchors(ctx, rows); err != nil {
		return fmt.Errorf("persist anchors: %w", err)
	}
	return nil
}

func (p *Pipeline) runExtractFacts(ctx context.Context, st *state) error {
	cellsByTable := make(map[uuid.UUID][]*models.Cell)
	for _, c := range st.structure.Cells {
		cellsByTable[c.TableID] = append(cellsByTable[c.TableID], c)
	}

	extracted := facts.Extract(st.structure.Outline, st.structure.Blocks, st.structure.Tables, cellsByTable)
	st.extracted = extracted
	if len(extracted) == 0 {
		return nil
	}

	rows := make([]*models.Fact, len(extracted))
	for i, e := range extracted {
		rows[i] = &models.Fact{
			ID:            uuid.New(),
			VersionID:     st.version.ID,
			FactKey:       e.FactKey,
			Scope:         e.Scope,
			ValueNum:      e.ValueNum,
			ValueText:     e.ValueText,
			Unit:          e.Unit,
			SourceBlockID: e.SourceBlockID,
			SourceTableID: e.SourceTableID,
			Confidence:    e.Confidence,
		}
	}
	return p.factsRepo.UpsertBatch(ctx, rows)
}

// runBuildChunks is a no-op for every version; KB chunking is driven
// independently by internal/application/kb.Indexer for registered KB
// sources.
func (p *Pipeline) runBuildChunks(ctx context.Context, st *state) error {
	return nil
}

func (p *Pipeline) runFinalize(ctx context.Context, st *state) error {
	structKey := p.versionKeyBase(st.version) + "/structure.json"
	st.version.StructureObjectKey = structKey
	return p.versions.Update(ctx, st.version)
}

// RequeueStalled resets versions stuck in PROCESSING with no progress
// update in the last olderThanSeconds back to UPLOADED so a worker will
// pick them back up; implements sweep.StalledVersionFinder.
func (p *Pipeline) RequeueStalled(ctx context.Context, olderThanSeconds int) (int, error) {
	stalled, err := p.versions.FindStalledProcessing(ctx, olderThanSeconds)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, v := range stalled {
		ok, err := p.versions.UpdateStatus(ctx, v.ID, models.VersionStatusProcessing, models.VersionStatusUploaded)
		if err != nil {
			p.logger.Error("requeue stalled version failed", "version_id", v.ID, "error", err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}
