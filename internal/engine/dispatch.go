package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wireline-net/wireline/internal/events"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
)

// collector gathers device results as workers finish. A single mutex guards
// the counts, the unpersisted buffer and the broadcast order, which is what
// keeps progress events monotonic per job.
//
// A failed persist does not stop the job: the rows stay in the buffer and the
// next completion, or the final flush, retries them.
type collector struct {
	store    store.Store
	producer *events.EventProducer
	log      *zap.SugaredLogger

	jobID uuid.UUID
	orgID string
	total int

	mu        sync.Mutex
	succeeded int
	failed    int
	collected []model.DeviceResult
	pending   []model.DeviceResult
}

func (e *Engine) newCollector(job *model.Job, total int) *collector {
	return &collector{
		store:    e.store,
		producer: e.producer,
		log:      e.log.With("job_id", job.ID),
		jobID:    job.ID,
		orgID:    job.OrgID,
		total:    total,
	}
}

// add records one device result, persists what is buffered and broadcasts the
// result and the updated progress snapshot.
func (c *collector) add(ctx context.Context, res model.DeviceResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res.JobID = c.jobID
	c.collected = append(c.collected, res)
	switch res.Status {
	case model.ResultStatusSuccess:
		c.succeeded++
	case model.ResultStatusFailed:
		c.failed++
	}

	c.pending = append(c.pending, res)
	if err := c.store.Job().AppendResults(ctx, c.jobID, c.pending); err != nil {
		c.log.Warnw("holding device results in memory, persist failed",
			"buffered", len(c.pending),
			"error", err,
		)
	} else {
		c.pending = nil
		if err := c.store.Job().UpdateCounts(ctx, c.jobID, c.total, c.succeeded, c.failed); err != nil {
			c.log.Warnw("failed to update job progress", "error", err)
		}
	}

	events.EmitDeviceResult(ctx, c.producer, events.DeviceResultEvent{
		JobID:     c.jobID.String(),
		DeviceID:  res.DeviceID.String(),
		Hostname:  res.Hostname,
		Status:    res.Status,
		ErrorKind: res.ErrorKind,
	})
	events.EmitJobProgress(ctx, c.producer, events.JobProgressEvent{
		JobID:     c.jobID.String(),
		Total:     c.total,
		Succeeded: c.succeeded,
		Failed:    c.failed,
	})
}

// skip records a target the job never dispatched because cancellation was
// observed first.
func (c *collector) skip(ctx context.Context, target Target) {
	now := time.Now()
	c.add(ctx, model.DeviceResult{
		DeviceID:   target.ID,
		Hostname:   target.Hostname,
		Status:     model.ResultStatusSkipped,
		StartedAt:  now,
		FinishedAt: now,
	})
}

// flush drains the unpersisted buffer with backoff. Called once after the
// last worker reported and before the job is finalized, so no result is lost
// to a transient store failure.
func (c *collector) flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) == 0 {
		return nil
	}

	backoff := retry.WithMaxRetries(4, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := c.store.Job().AppendResults(ctx, c.jobID, c.pending); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	c.pending = nil
	return nil
}

// snapshot returns the final counts once all workers reported.
func (c *collector) snapshot() (succeeded, failed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.succeeded, c.failed
}

// results returns everything collected this run, in completion order.
func (c *collector) results() []model.DeviceResult {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]model.DeviceResult, len(c.collected))
	copy(out, c.collected)
	return out
}

// dispatch fans the job out over its targets on a bounded worker pool and
// blocks until every worker reported. cancelCtx is the cooperative stop
// signal: once it is done no further device is dispatched, targets not yet
// started are recorded as skipped, and in-flight devices finish under their
// own timeout. Store writes and broadcasts deliberately do not run under
// cancelCtx; a cancelled job still gets its results recorded.
func (e *Engine) dispatch(cancelCtx context.Context, job *model.Job, targets []Target, unit *workUnit) *collector {
	c := e.newCollector(job, len(targets))
	persistCtx := context.Background()

	g := new(errgroup.Group)
	g.SetLimit(e.deviceConcurrency)

	for _, target := range targets {
		t := target
		g.Go(func() error {
			if cancelCtx.Err() != nil {
				c.skip(persistCtx, t)
				return nil
			}
			c.add(persistCtx, e.executeDevice(t, unit))
			return nil
		})
	}
	_ = g.Wait()

	return c
}

// outcome maps the final counts of a completed dispatch onto a terminal
// state. Partial failure is its own state: a job that reached some devices
// and lost others is not the same as one that reached none.
func outcome(cancelled bool, succeeded, failed int) string {
	switch {
	case cancelled:
		return model.JobStateCancelled
	case failed == 0:
		return model.JobStateSuccess
	case succeeded > 0:
		return model.JobStatePartialFailure
	default:
		return model.JobStateFailed
	}
}
