// Package engine owns the asynchronous life of a job: the bounded queue, the
// runner pool, per-device fan-out, cancellation and restart recovery. A job
// enters through Enqueue and leaves through a terminal state transition;
// everything in between happens here.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wireline-net/wireline/internal/config"
	"github.com/wireline-net/wireline/internal/events"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
	"github.com/wireline-net/wireline/internal/transport"
	"github.com/wireline-net/wireline/pkg/metrics"
)

type Engine struct {
	store    store.Store
	driver   transport.Driver
	producer *events.EventProducer
	resolver *Resolver
	log      *zap.SugaredLogger

	queue             chan uuid.UUID
	workers           int
	deviceConcurrency int
	deviceTimeout     time.Duration
	previewTTL        time.Duration

	// mu guards closed and cancels. A registered cancel function means a
	// runner on this instance owns the job right now.
	mu      sync.Mutex
	closed  bool
	cancels map[uuid.UUID]context.CancelFunc

	wg sync.WaitGroup
}

func New(cfg *config.Config, s store.Store, driver transport.Driver, producer *events.EventProducer) *Engine {
	return &Engine{
		store:             s,
		driver:            driver,
		producer:          producer,
		resolver:          NewResolver(s),
		log:               zap.S().Named("engine"),
		queue:             make(chan uuid.UUID, cfg.Engine.QueueSize),
		workers:           cfg.Engine.JobWorkers,
		deviceConcurrency: cfg.Engine.DeviceConcurrency,
		deviceTimeout:     cfg.Engine.DeviceTimeout,
		previewTTL:        cfg.Engine.PreviewTTL,
		cancels:           make(map[uuid.UUID]context.CancelFunc),
	}
}

// Start launches the runner pool. Runners exit when ctx is done or when the
// queue has been closed and drained.
func (e *Engine) Start(ctx context.Context) {
	for i := 0; i < e.workers; i++ {
		e.wg.Add(1)
		go e.runner(ctx)
	}
	e.log.Infow("engine started", "workers", e.workers, "queue_size", cap(e.queue))
}

func (e *Engine) runner(ctx context.Context) {
	defer e.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case jobID, ok := <-e.queue:
			if !ok {
				return
			}
			metrics.UpdateJobQueueDepthMetric(len(e.queue))
			e.runJob(jobID)
		}
	}
}

// Enqueue hands a queued job to the runner pool. A full queue rejects the
// call synchronously; nothing ever blocks a submission.
func (e *Engine) Enqueue(jobID uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return ErrStopped
	}

	select {
	case e.queue <- jobID:
		metrics.UpdateJobQueueDepthMetric(len(e.queue))
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop closes the queue and waits for the runners to drain it and finish the
// jobs they hold, or for ctx to expire. Jobs still running when the process
// exits are picked up as orphans by the next Resume.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		close(e.queue)
	}
	e.mu.Unlock()

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.log.Info("engine stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cooperative cancellation. A job running on this instance
// gets its dispatch context cancelled and finishes through the normal
// collector path, results intact. A job still waiting is finalized directly.
// Terminal jobs refuse with ErrStateConflict.
func (e *Engine) Cancel(ctx context.Context, jobID uuid.UUID) error {
	e.mu.Lock()
	cancel, running := e.cancels[jobID]
	e.mu.Unlock()

	if running {
		cancel()
		e.log.Infow("cancellation requested", "job_id", jobID)
		return nil
	}

	job, err := e.store.Job().CancelQueued(ctx, jobID)
	if err != nil {
		return err
	}

	// the queue entry, if one exists, is skipped when a runner picks it up
	metrics.IncreaseJobsFinishedMetric(model.JobStateCancelled)
	events.EmitJobState(ctx, e.producer, events.JobStateEvent{
		JobID: job.ID.String(),
		Type:  job.Type,
		State: job.State,
		OrgID: job.OrgID,
	})
	e.log.Infow("cancelled queued job", "job_id", jobID)
	return nil
}

// Resume reconciles persisted job state with the empty in-memory queue after
// a process start. Jobs the previous process left running are failed with
// their partial results intact; jobs still queued are re-enqueued.
func (e *Engine) Resume(ctx context.Context) error {
	orphans, err := e.store.Job().List(ctx,
		store.NewJobQueryFilter().ByStates([]string{model.JobStateRunning}),
		store.NewJobQueryOptions().WithSortOrder(store.SortByCreatedTime))
	if err != nil {
		return err
	}
	for _, job := range orphans {
		if err := e.store.Job().AppendLog(ctx, job.ID, "error", "job interrupted by engine restart"); err != nil {
			e.log.Warnw("failed to record restart interruption", "job_id", job.ID, "error", err)
		}
		finalized, err := e.store.Job().Finalize(ctx, job.ID, model.JobStateFailed, job.TargetsSucceeded, job.TargetsFailed)
		if err != nil {
			e.log.Errorw("failed to fail orphaned job", "job_id", job.ID, "error", err)
			continue
		}
		metrics.IncreaseJobsFinishedMetric(model.JobStateFailed)
		events.EmitJobState(ctx, e.producer, events.JobStateEvent{
			JobID: finalized.ID.String(),
			Type:  finalized.Type,
			State: finalized.State,
			OrgID: finalized.OrgID,
		})
		e.log.Warnw("failed orphaned job from previous run", "job_id", job.ID)
	}

	queued, err := e.store.Job().List(ctx,
		store.NewJobQueryFilter().ByStates([]string{model.JobStateQueued}),
		store.NewJobQueryOptions().WithSortOrder(store.SortByCreatedTime))
	if err != nil {
		return err
	}
	requeued := 0
	for _, job := range queued {
		if err := e.Enqueue(job.ID); err != nil {
			e.log.Warnw("could not re-enqueue job", "job_id", job.ID, "error", err)
			continue
		}
		requeued++
	}

	e.log.Infow("resume complete", "requeued", requeued, "orphans_failed", len(orphans))
	return nil
}

func (e *Engine) register(jobID uuid.UUID, cancel context.CancelFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancels[jobID] = cancel
}

func (e *Engine) unregister(jobID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.cancels, jobID)
}

// runJob executes one dequeued job end to end. The cancellation context is
// deliberately detached from the runner's context: shutting the engine down
// is not the same as an operator cancelling a job.
func (e *Engine) runJob(jobID uuid.UUID) {
	// store writes must outlive job cancellation, so bookkeeping runs on its
	// own context
	dbCtx := context.Background()
	log := e.log.With("job_id", jobID)

	job, err := e.store.Job().Get(dbCtx, jobID)
	if err != nil {
		log.Errorw("failed to load dequeued job", "error", err)
		return
	}
	if job.State != model.JobStateQueued {
		// cancelled while waiting in the queue
		log.Debugw("job left the queued state before dispatch", "state", job.State)
		return
	}

	cancelCtx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.register(jobID, cancel)
	defer e.unregister(jobID)

	e.process(dbCtx, cancelCtx, job)
}

func (e *Engine) process(dbCtx, cancelCtx context.Context, job *model.Job) {
	log := e.log.With("job_id", job.ID, "type", job.Type)

	unit, err := buildWorkUnit(job)
	if err != nil {
		e.failBeforeDispatch(dbCtx, job, err.Error())
		return
	}

	// commits tolerate devices that left the inventory since the preview;
	// everything else resolves strictly
	var targets []Target
	if unit.kind == workApply {
		targets, err = e.resolver.ResolveExisting(dbCtx, job.Target.Data, job.OrgID)
	} else {
		targets, err = e.resolver.Resolve(dbCtx, job.Target.Data, job.OrgID)
	}
	if err != nil {
		e.failBeforeDispatch(dbCtx, job, "target resolution failed: "+err.Error())
		return
	}

	if len(targets) == 0 {
		if err := e.store.Job().AppendLog(dbCtx, job.ID, "info", "target specification resolved to no devices"); err != nil {
			log.Warnw("failed to append job log", "error", err)
		}
		e.finalize(dbCtx, job, model.JobStateNoTargets, 0, 0)
		return
	}

	if unit.kind == workApply {
		allowed, err := e.verifyPreview(dbCtx, job)
		if err != nil {
			e.failBeforeDispatch(dbCtx, job, "preview verification failed: "+err.Error())
			return
		}
		unit.allowed = allowed
	}

	job, err = e.store.Job().SetRunning(dbCtx, job.ID)
	if err != nil {
		// lost the race against a cancellation
		log.Debugw("job not dispatched", "error", err)
		return
	}
	events.EmitJobState(dbCtx, e.producer, events.JobStateEvent{
		JobID: job.ID.String(),
		Type:  job.Type,
		State: job.State,
		OrgID: job.OrgID,
	})
	if err := e.store.Job().UpdateCounts(dbCtx, job.ID, len(targets), 0, 0); err != nil {
		log.Warnw("failed to record target count", "error", err)
	}
	if err := e.store.Job().AppendLog(dbCtx, job.ID, "info",
		fmt.Sprintf("dispatching to %d device(s)", len(targets))); err != nil {
		log.Warnw("failed to append job log", "error", err)
	}
	log.Infow("job running", "targets", len(targets))

	c := e.dispatch(cancelCtx, job, targets, unit)

	if err := c.flush(dbCtx); err != nil {
		log.Errorw("device results lost after retries", "error", err)
		if err := e.store.Job().AppendLog(dbCtx, job.ID, "error", "persistence failure: some device results could not be recorded"); err != nil {
			log.Warnw("failed to append job log", "error", err)
		}
		succeeded, failed := c.snapshot()
		e.finalize(dbCtx, job, model.JobStateFailed, succeeded, failed)
		return
	}

	switch unit.kind {
	case workPreview:
		if err := e.persistPreviewRecords(dbCtx, job, c.results()); err != nil {
			log.Errorw("failed to persist preview records", "error", err)
			if err := e.store.Job().AppendLog(dbCtx, job.ID, "error", "persistence failure: preview diffs could not be recorded"); err != nil {
				log.Warnw("failed to append job log", "error", err)
			}
			succeeded, failed := c.snapshot()
			e.finalize(dbCtx, job, model.JobStateFailed, succeeded, failed)
			return
		}
	case workBackup:
		e.persistSnapshots(dbCtx, job, c.results())
	}

	succeeded, failed := c.snapshot()
	state := outcome(cancelCtx.Err() != nil, succeeded, failed)
	if err := e.store.Job().AppendLog(dbCtx, job.ID, "info",
		fmt.Sprintf("job finished: %s (%d succeeded, %d failed)", state, succeeded, failed)); err != nil {
		log.Warnw("failed to append job log", "error", err)
	}
	e.finalize(dbCtx, job, state, succeeded, failed)
}

// failBeforeDispatch finalizes a job that never reached a single device.
func (e *Engine) failBeforeDispatch(ctx context.Context, job *model.Job, reason string) {
	if err := e.store.Job().AppendLog(ctx, job.ID, "error", reason); err != nil {
		e.log.Warnw("failed to append job log", "job_id", job.ID, "error", err)
	}
	e.finalize(ctx, job, model.JobStateFailed, 0, 0)
}

func (e *Engine) finalize(ctx context.Context, job *model.Job, state string, succeeded, failed int) {
	finalized, err := e.store.Job().Finalize(ctx, job.ID, state, succeeded, failed)
	if err != nil {
		e.log.Errorw("failed to finalize job", "job_id", job.ID, "state", state, "error", err)
		return
	}

	metrics.IncreaseJobsFinishedMetric(state)
	events.EmitJobState(ctx, e.producer, events.JobStateEvent{
		JobID: finalized.ID.String(),
		Type:  finalized.Type,
		State: finalized.State,
		OrgID: finalized.OrgID,
	})
	e.log.Infow("job finished",
		"job_id", job.ID,
		"state", state,
		"succeeded", succeeded,
		"failed", failed,
		"duration", finalized.Duration(),
	)
}
