package airule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/swsreview/engine/internal/infrastructure/logger"
	"github.com/swsreview/engine/internal/infrastructure/storage/models"
)

// BatchMin and BatchMax bound the batch size range; BuildGroups fills
// each group with up to BatchMax checkpoints and does not enforce
// BatchMin.
const (
	BatchMin = 5
	BatchMax = 7
)

// batchResult is one batch's outcome, kept alongside its group so a
// failed batch can be resubmitted in the requeue round without
// re-deriving its section context.
type batchResult struct {
	group  CheckpointGroup
	issues []Issue
	err    error
}

// Driver dispatches checkpoint batches to an LLM Client with bounded
// concurrency, modeled on the teacher's wave executor: a semaphore
// channel caps in-flight calls and a WaitGroup joins the round, with
// each batch's outcome written to its own slot of a results slice.
// Unlike the teacher's single-wave dispatch, a batch that still errors
// after its retries gets one more pass in a second requeue round, run
// with the same concurrency, once the first wave finishes.
type Driver struct {
	client      Client
	model       string
	concurrency int
	maxRetries  int
	logger      *logger.Logger
}

// NewDriver wires a Driver. concurrency is the number of batches allowed
// to run against the Client at once (2-3 per §5); maxRetries bounds the
// in-wave retry count for a single batch before it's deferred to requeue.
func NewDriver(client Client, model string, concurrency, maxRetries int, log *logger.Logger) *Driver {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Driver{client: client, model: model, concurrency: concurrency, maxRetries: maxRetries, logger: log}
}

// BuildGroups splits enabled AI checkpoints, in order, into groups of
// BatchMax; the last group holds the remainder and may be smaller than
// BatchMin. Each group is paired with the same section blocks and norm chunks
// (every AI checkpoint in this design reviews the whole document, so
// grouping only trades off prompt size against round-trip count).
func BuildGroups(checkpoints []*models.Checkpoint, blocks []*models.Block, norms []NormChunk) []CheckpointGroup {
	var groups []CheckpointGroup
	for start := 0; start < len(checkpoints); start += BatchMax {
		end := start + BatchMax
		if end > len(checkpoints) {
			end = len(checkpoints)
		}
		groups = append(groups, CheckpointGroup{
			Checkpoints: checkpoints[start:end],
			Blocks:      blocks,
			NormChunks:  norms,
		})
	}
	return groups
}

// Run dispatches every group concurrently, retrying a failing batch up
// to maxRetries times in-wave, then runs one additional requeue round,
// with the same concurrency, over whatever batches still failed. It
// returns every successfully parsed Issue and reports first-round
// progress as (done, total) batch counts via onProgress as batches
// complete; the requeue round does not report progress.
func (d *Driver) Run(ctx context.Context, groups []CheckpointGroup, onProgress func(done, total int)) ([]Issue, error) {
	total := len(groups)
	if total == 0 {
		return nil, nil
	}

	results := d.runWave(ctx, groups, onProgress, 0)

	var toRequeue []CheckpointGroup
	for _, r := range results {
		if r.err != nil {
			toRequeue = append(toRequeue, r.group)
		}
	}
	if len(toRequeue) > 0 {
		d.logger.Warn("airule: requeueing failed batches", "count", len(toRequeue))
		requeued := d.runWave(ctx, toRequeue, nil, total-len(toRequeue))
		resultsByErr := make([]batchResult, 0, len(results))
		for _, r := range results {
			if r.err == nil {
				resultsByErr = append(resultsByErr, r)
			}
		}
		results = append(resultsByErr, requeued...)
	}

	var issues []Issue
	var firstErr error
	for _, r := range results {
		if r.err != nil {
			d.logger.Error("airule: batch failed after requeue", "checkpoints", checkpointCodes(r.group), "error", r.err)
			if firstErr == nil {
				firstErr = r.err
			}
			continue
		}
		issues = append(issues, r.issues...)
	}
	return issues, firstErr
}

// runWave executes groups with bounded concurrency, matching the
// teacher's semaphore + WaitGroup + buffered-channel shape.
func (d *Driver) runWave(ctx context.Context, groups []CheckpointGroup, onProgress func(done, total int), alreadyDone int) []batchResult {
	var wg sync.WaitGroup
	semaphore := make(chan struct{}, d.concurrency)
	results := make([]batchResult, len(groups))
	var doneCount int
	var mu sync.Mutex
	grandTotal := alreadyDone + len(groups)

	for i, g := range groups {
		wg.Add(1)
		go func(idx int, group CheckpointGroup) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				results[idx] = batchResult{group: group, err: ctx.Err()}
				return
			default:
			}

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			issues, err := d.runBatchWithRetry(ctx, group)
			results[idx] = batchResult{group: group, issues: issues, err: err}

			if onProgress != nil {
				mu.Lock()
				doneCount++
				onProgress(alreadyDone+doneCount, grandTotal)
				mu.Unlock()
			}
		}(i, g)
	}
	wg.Wait()
	return results
}

func (d *Driver) runBatchWithRetry(ctx context.Context, group CheckpointGroup) ([]Issue, error) {
	req := BuildRequest(d.model, group)

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, DefaultTimeout)
		resp, err := d.client.Complete(callCtx, req)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		issues, err := ParseIssues(resp.Content, group)
		if err != nil {
			lastErr = err
			continue
		}
		return issues, nil
	}
	return nil, fmt.Errorf("airule: batch %v exhausted retries: %w", checkpointCodes(group), lastErr)
}

func checkpointCodes(g CheckpointGroup) []string {
	codes := make([]string, len(g.Checkpoints))
	for i, cp := range g.Checkpoints {
		codes[i] = cp.Code
	}
	return codes
}
