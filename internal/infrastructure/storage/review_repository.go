package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/swsreview/engine/internal/domain/repository"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

var _ repository.CheckpointRepository = (*CheckpointRepository)(nil)

// CheckpointRepository implements repository.CheckpointRepository using Bun ORM.
type CheckpointRepository struct {
	db *bun.DB
}

func NewCheckpointRepository(db *bun.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

func (r *CheckpointRepository) FindAll(ctx context.Context) ([]*models.Checkpoint, error) {
	var cps []*models.Checkpoint
	err := r.db.NewSelect().Model(&cps).OrderExpr("order_index ASC").Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find checkpoints: %w", err)
	}
	return cps, nil
}

func (r *CheckpointRepository) FindEnabled(ctx context.Context) ([]*models.Checkpoint, error) {
	var cps []*models.Checkpoint
	err := r.db.NewSelect().
		Model(&cps).
		Where("enabled = ?", true).
		OrderExpr("order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find enabled checkpoints: %w", err)
	}
	return cps, nil
}

func (r *CheckpointRepository) FindByCode(ctx context.Context, code string) (*models.Checkpoint, error) {
	cp := new(models.Checkpoint)
	err := r.db.NewSelect().Model(cp).Where("code = ?", code).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find checkpoint by code: %w", err)
	}
	return cp, nil
}

func (r *CheckpointRepository) FindByEngineType(ctx context.Context, engineType string) ([]*models.Checkpoint, error) {
	var cps []*models.Checkpoint
	err := r.db.NewSelect().
		Model(&cps).
		Where("engine_type = ?", engineType).
		Where("enabled = ?", true).
		OrderExpr("order_index ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find checkpoints by engine type: %w", err)
	}
	return cps, nil
}

func (r *CheckpointRepository) Upsert(ctx context.Context, cp *models.Checkpoint) error {
	_, err := r.db.NewInsert().
		Model(cp).
		On("CONFLICT (code) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("engine_type = EXCLUDED.engine_type").
		Set("review_type = EXCLUDED.review_type").
		Set("enabled = EXCLUDED.enabled").
		Set("order_index = EXCLUDED.order_index").
		Set("target_outline_prefix = EXCLUDED.target_outline_prefix").
		Set("prompt_template = EXCLUDED.prompt_template").
		Set("rule_config = EXCLUDED.rule_config").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

var _ repository.ReviewRunRepository = (*ReviewRunRepository)(nil)

// ReviewRunRepository implements repository.ReviewRunRepository using Bun ORM.
type ReviewRunRepository struct {
	db *bun.DB
}

func NewReviewRunRepository(db *bun.DB) *ReviewRunRepository {
	return &ReviewRunRepository{db: db}
}

func (r *ReviewRunRepository) Create(ctx context.Context, run *models.ReviewRun) error {
	if _, err := r.db.NewInsert().Model(run).Exec(ctx); err != nil {
		return fmt.Errorf("create review run: %w", err)
	}
	return nil
}

func (r *ReviewRunRepository) Update(ctx context.Context, run *models.ReviewRun) error {
	run.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().Model(run).WherePK().Exec(ctx)
	if err != nil {
		return fmt.Errorf("update review run: %w", err)
	}
	return nil
}

func (r *ReviewRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.ReviewRun, error) {
	run := new(models.ReviewRun)
	err := r.db.NewSelect().Model(run).Where("id = ?", id).Scan(ctx)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find review run by id: %w", err)
	}
	return run, nil
}

func (r *ReviewRunRepository) FindByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.ReviewRun, error) {
	var runs []*models.ReviewRun
	err := r.db.NewSelect().
		Model(&runs).
		Where("version_id = ?", versionID).
		OrderExpr("created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find review runs: %w", err)
	}
	return runs, nil
}

func (r *ReviewRunRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	now := time.Now()
	q := r.db.NewUpdate().
		Model((*models.ReviewRun)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", now)
	if status == models.RunStatusRunning {
		q = q.Set("started_at = ?", now)
	}
	if status == models.RunStatusSucceeded || status == models.RunStatusFailed || status == models.RunStatusCanceled {
		q = q.Set("finished_at = ?", now)
	}
	if _, err := q.Where("id = ?", id).Exec(ctx); err != nil {
		return fmt.Errorf("update review run status: %w", err)
	}
	return nil
}

func (r *ReviewRunRepository) UpdateProgress(ctx context.Context, id uuid.UUID, progress int) error {
	_, err := r.db.NewUpdate().
		Model((*models.ReviewRun)(nil)).
		Set("progress = ?", progress).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update review run progress: %w", err)
	}
	return nil
}

func (r *ReviewRunRepository) CreateIssues(ctx context.Context, issues []*models.Issue) error {
	if len(issues) == 0 {
		return nil
	}
	if _, err := r.db.NewInsert().Model(&issues).Exec(ctx); err != nil {
		return fmt.Errorf("create issues: %w", err)
	}
	return nil
}

func (r *ReviewRunRepository) FindIssuesByRunID(ctx context.Context, runID uuid.UUID) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.NewSelect().
		Model(&issues).
		Where("run_id = ?", runID).
		OrderExpr("severity ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find issues by run id: %w", err)
	}
	return issues, nil
}

func (r *ReviewRunRepository) FindIssuesByVersionID(ctx context.Context, versionID uuid.UUID) ([]*models.Issue, error) {
	var issues []*models.Issue
	err := r.db.NewSelect().
		Model(&issues).
		Where("version_id = ?", versionID).
		OrderExpr("severity ASC, created_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("find issues by version id: %w", err)
	}
	return issues, nil
}

func (r *ReviewRunRepository) UpdateIssueStatus(ctx context.Context, issueID uuid.UUID, status string) error {
	_, err := r.db.NewUpdate().
		Model((*models.Issue)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", issueID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update issue status: %w", err)
	}
	return nil
}
