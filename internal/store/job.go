package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/wireline-net/wireline/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Job interface {
	Create(ctx context.Context, job model.Job) (*model.Job, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Job, error)
	List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error)
	SetRunning(ctx context.Context, id uuid.UUID) (*model.Job, error)
	CancelQueued(ctx context.Context, id uuid.UUID) (*model.Job, error)
	Finalize(ctx context.Context, id uuid.UUID, state string, succeeded, failed int) (*model.Job, error)
	UpdateCounts(ctx context.Context, id uuid.UUID, total, succeeded, failed int) error
	AppendResults(ctx context.Context, jobID uuid.UUID, results []model.DeviceResult) error
	AppendLog(ctx context.Context, jobID uuid.UUID, level, message string) error
	Results(ctx context.Context, jobID uuid.UUID) (model.DeviceResultList, error)
	Logs(ctx context.Context, jobID uuid.UUID) ([]model.JobLogEntry, error)
	InitialMigration(context.Context) error
}

type JobStore struct {
	db *gorm.DB
}

// Make sure we conform to Job interface
var _ Job = (*JobStore)(nil)

func NewJobStore(db *gorm.DB) Job {
	return &JobStore{db: db}
}

func (j *JobStore) InitialMigration(ctx context.Context) error {
	db := j.getDB(ctx)
	if err := db.AutoMigrate(&model.Job{}); err != nil {
		return err
	}
	if err := db.AutoMigrate(&model.DeviceResult{}); err != nil {
		return err
	}
	return db.AutoMigrate(&model.JobLogEntry{})
}

// Create persists a new job. The caller owns the id and initial state.
func (j *JobStore) Create(ctx context.Context, job model.Job) (*model.Job, error) {
	if err := j.getDB(ctx).WithContext(ctx).Create(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}

	return &job, nil
}

// Get returns a job with its results preloaded, ordered by device id so
// reports are reproducible.
func (j *JobStore) Get(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	var job model.Job
	result := j.getDB(ctx).WithContext(ctx).Preload("Results", func(db *gorm.DB) *gorm.DB {
		return db.Order("device_results.device_id")
	}).First(&job, "id = ?", id)

	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, result.Error
	}
	return &job, nil
}

// List lists jobs matching the filter.
func (j *JobStore) List(ctx context.Context, filter *JobQueryFilter, opts *JobQueryOptions) (model.JobList, error) {
	var jobs model.JobList
	tx := j.getDB(ctx)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Model(&jobs).Find(&jobs).Error; err != nil {
		return nil, err
	}

	return jobs, nil
}

// SetRunning moves a queued job to running and stamps its start time. Returns
// ErrStateConflict if the job already left the queued state.
func (j *JobStore) SetRunning(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	now := time.Now()
	result := j.getDB(ctx).WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND state = ?", id, model.JobStateQueued).
		Updates(map[string]any{"state": model.JobStateRunning, "started_at": &now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, j.stateConflict(ctx, id)
	}

	return j.Get(ctx, id)
}

// CancelQueued cancels a job that is still waiting in the queue. A job that
// already started running is cancelled cooperatively by its runner instead;
// matching only the queued state keeps the runner the sole writer of a
// running job's terminal transition.
func (j *JobStore) CancelQueued(ctx context.Context, id uuid.UUID) (*model.Job, error) {
	now := time.Now()
	result := j.getDB(ctx).WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND state = ?", id, model.JobStateQueued).
		Updates(map[string]any{"state": model.JobStateCancelled, "finished_at": &now})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, j.stateConflict(ctx, id)
	}

	return j.Get(ctx, id)
}

// Finalize moves a job to a terminal state, guarded by the transition table.
// The update matches only rows still in a state the target is reachable from,
// which is what makes terminal states immutable.
func (j *JobStore) Finalize(ctx context.Context, id uuid.UUID, state string, succeeded, failed int) (*model.Job, error) {
	if !model.JobStateTerminal(state) {
		return nil, ErrStateConflict
	}

	now := time.Now()
	result := j.getDB(ctx).WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND state IN ?", id, model.TransitionSources(state)).
		Updates(map[string]any{
			"state":             state,
			"targets_succeeded": succeeded,
			"targets_failed":    failed,
			"finished_at":       &now,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, j.stateConflict(ctx, id)
	}

	return j.Get(ctx, id)
}

// UpdateCounts records dispatch progress. Only running jobs accept progress.
func (j *JobStore) UpdateCounts(ctx context.Context, id uuid.UUID, total, succeeded, failed int) error {
	result := j.getDB(ctx).WithContext(ctx).
		Model(&model.Job{}).
		Where("id = ? AND state = ?", id, model.JobStateRunning).
		Updates(map[string]any{
			"targets_total":     total,
			"targets_succeeded": succeeded,
			"targets_failed":    failed,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return j.stateConflict(ctx, id)
	}
	return nil
}

// AppendResults inserts device results for a job. Results against a terminal
// job are refused.
func (j *JobStore) AppendResults(ctx context.Context, jobID uuid.UUID, results []model.DeviceResult) error {
	if len(results) == 0 {
		return nil
	}

	var job model.Job
	if err := j.getDB(ctx).WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	if job.Terminal() {
		return ErrStateConflict
	}

	now := time.Now()
	for i := range results {
		results[i].JobID = jobID
		if results[i].CreatedAt.IsZero() {
			results[i].CreatedAt = now
		}
	}

	// a worker writes its own slot exactly once; a conflict means a retried
	// flush already delivered the row
	return j.getDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&results).Error
}

// AppendLog appends one audit line to a job. Terminal jobs refuse new lines.
func (j *JobStore) AppendLog(ctx context.Context, jobID uuid.UUID, level, message string) error {
	var job model.Job
	if err := j.getDB(ctx).WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	if job.Terminal() {
		return ErrStateConflict
	}

	entry := model.JobLogEntry{
		JobID:     jobID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
	return j.getDB(ctx).WithContext(ctx).Create(&entry).Error
}

// Results returns the device results of a job ordered by device id.
func (j *JobStore) Results(ctx context.Context, jobID uuid.UUID) (model.DeviceResultList, error) {
	var results model.DeviceResultList
	err := j.getDB(ctx).WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("device_id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// Logs returns the audit trail of a job in append order.
func (j *JobStore) Logs(ctx context.Context, jobID uuid.UUID) ([]model.JobLogEntry, error) {
	var entries []model.JobLogEntry
	err := j.getDB(ctx).WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("id").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// stateConflict tells a missing job apart from a refused transition.
func (j *JobStore) stateConflict(ctx context.Context, id uuid.UUID) error {
	var job model.Job
	if err := j.getDB(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return err
	}
	return ErrStateConflict
}

func (j *JobStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return j.db
}
