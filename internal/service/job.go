package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/thoas/go-funk"
	"go.uber.org/zap"

	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/auth"
	"github.com/wireline-net/wireline/internal/engine"
	"github.com/wireline-net/wireline/internal/events"
	"github.com/wireline-net/wireline/internal/safety"
	"github.com/wireline-net/wireline/internal/service/mappers"
	"github.com/wireline-net/wireline/internal/store"
	"github.com/wireline-net/wireline/internal/store/model"
	"github.com/wireline-net/wireline/pkg/metrics"
)

type JobService struct {
	store      store.Store
	engine     *engine.Engine
	resolver   *engine.Resolver
	classifier *safety.Classifier
	producer   *events.EventProducer
}

func NewJobService(s store.Store, eng *engine.Engine, classifier *safety.Classifier, producer *events.EventProducer) *JobService {
	return &JobService{
		store:      s,
		engine:     eng,
		resolver:   engine.NewResolver(s),
		classifier: classifier,
		producer:   producer,
	}
}

// SubmitJob validates a submission synchronously and hands the accepted job
// to the engine. Every rejection happens here, before any device is touched;
// once a job id is returned the outcome is retrieved asynchronously.
func (s *JobService) SubmitJob(ctx context.Context, user auth.User, form api.JobSubmission) (*api.Job, error) {
	if err := s.validatePayload(form); err != nil {
		return nil, err
	}

	var auditLines []string

	if form.Type == api.JobTypeRunCommands {
		flagged := s.classifier.Dangerous(form.Payload.Commands)
		if len(flagged) > 0 {
			if !form.Confirm {
				return nil, NewErrConfirmationRequired(flagged)
			}
			auditLines = append(auditLines, fmt.Sprintf("dangerous command(s) confirmed by %s [ruleset %s]: %s",
				user.Username, s.classifier.Version(), strings.Join(flagged, "; ")))
		}
	}

	if form.Type == api.JobTypeDeployCommit {
		normalized, err := s.verifyPreviewForCommit(ctx, user, &form)
		if err != nil {
			return nil, err
		}
		form = *normalized
		auditLines = append(auditLines, fmt.Sprintf("commit of preview %s confirmed by %s", form.PreviewID, user.Username))
	}

	// explicit ids are a tenant boundary: validate now, loudly
	if form.Target.Explicit() {
		if _, err := s.resolver.Resolve(ctx, form.Target, user.Organization); err != nil {
			var invalidTarget *engine.InvalidTargetError
			if errors.As(err, &invalidTarget) {
				return nil, NewErrInvalidTarget(invalidTarget.IDs)
			}
			return nil, err
		}
	}

	job, err := s.store.Job().Create(ctx, mappers.JobFromSubmission(uuid.New(), user, form))
	if err != nil {
		return nil, err
	}

	if err := s.store.Job().AppendLog(ctx, job.ID, "info",
		fmt.Sprintf("%s job submitted by %s", job.Type, user.Username)); err != nil {
		zap.S().Named("job_service").Warnw("failed to append job log", "job_id", job.ID, "error", err)
	}
	for _, line := range auditLines {
		if err := s.store.Job().AppendLog(ctx, job.ID, "info", line); err != nil {
			zap.S().Named("job_service").Warnw("failed to append job log", "job_id", job.ID, "error", err)
		}
	}

	metrics.IncreaseJobsSubmittedMetric(job.Type)
	metrics.ActiveOperatorsPerDay.Touch(user.Username)
	events.EmitJobState(ctx, s.producer, events.JobStateEvent{
		JobID: job.ID.String(),
		Type:  job.Type,
		State: job.State,
		OrgID: job.OrgID,
	})

	if err := s.engine.Enqueue(job.ID); err != nil {
		// the job row exists; finalize it so the rejection leaves a trace
		if logErr := s.store.Job().AppendLog(ctx, job.ID, "error", "submission rejected: "+err.Error()); logErr != nil {
			zap.S().Named("job_service").Warnw("failed to append job log", "job_id", job.ID, "error", logErr)
		}
		if _, finErr := s.store.Job().Finalize(ctx, job.ID, model.JobStateFailed, 0, 0); finErr != nil {
			zap.S().Named("job_service").Errorw("failed to finalize rejected job", "job_id", job.ID, "error", finErr)
		}
		return nil, NewErrQueueFull()
	}

	result := mappers.JobToApi(*job)
	return &result, nil
}

func (s *JobService) GetJob(ctx context.Context, user auth.User, id uuid.UUID) (*api.Job, error) {
	job, err := s.getOwnedJob(ctx, user, id)
	if err != nil {
		return nil, err
	}

	result := mappers.JobToApi(*job)
	return &result, nil
}

func (s *JobService) ListJobs(ctx context.Context, user auth.User, filter *JobFilter) (api.JobList, error) {
	storeFilter := store.NewJobQueryFilter().ByOrgID(user.Organization)
	if len(filter.States) > 0 {
		storeFilter = storeFilter.ByStates(filter.States)
	}
	if filter.Type != "" {
		storeFilter = storeFilter.ByType(filter.Type)
	}

	opts := store.NewJobQueryOptions().WithSortOrder(store.SortByCreatedTimeDesc)
	if filter.Limit > 0 {
		opts = opts.WithLimit(filter.Limit)
	}
	if filter.Offset > 0 {
		opts = opts.WithOffset(filter.Offset)
	}

	jobs, err := s.store.Job().List(ctx, storeFilter, opts)
	if err != nil {
		return nil, err
	}

	return mappers.JobListToApi(jobs), nil
}

// CancelJob requests cooperative cancellation. The returned job reflects the
// state at return time; a running job flips to cancelled once its in-flight
// devices finish.
func (s *JobService) CancelJob(ctx context.Context, user auth.User, id uuid.UUID) (*api.Job, error) {
	job, err := s.getOwnedJob(ctx, user, id)
	if err != nil {
		return nil, err
	}

	if err := s.engine.Cancel(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrStateConflict):
			return nil, NewErrStateConflict(id, job.State)
		case errors.Is(err, store.ErrRecordNotFound):
			return nil, NewErrJobNotFound(id)
		default:
			return nil, err
		}
	}

	job, err = s.store.Job().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	result := mappers.JobToApi(*job)
	return &result, nil
}

func (s *JobService) GetJobResults(ctx context.Context, user auth.User, id uuid.UUID) ([]api.DeviceResult, error) {
	if _, err := s.getOwnedJob(ctx, user, id); err != nil {
		return nil, err
	}

	results, err := s.store.Job().Results(ctx, id)
	if err != nil {
		return nil, err
	}

	return mappers.DeviceResultListToApi(results), nil
}

func (s *JobService) GetJobLogs(ctx context.Context, user auth.User, id uuid.UUID) ([]api.JobLogEntry, error) {
	if _, err := s.getOwnedJob(ctx, user, id); err != nil {
		return nil, err
	}

	entries, err := s.store.Job().Logs(ctx, id)
	if err != nil {
		return nil, err
	}

	return mappers.JobLogListToApi(entries), nil
}

// getOwnedJob loads a job and hides other tenants' jobs behind not-found.
func (s *JobService) getOwnedJob(ctx context.Context, user auth.User, id uuid.UUID) (*model.Job, error) {
	job, err := s.store.Job().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrJobNotFound(id)
		}
		return nil, err
	}
	if job.OrgID != user.Organization {
		return nil, NewErrJobNotFound(id)
	}
	return job, nil
}

// validatePayload checks the type-specific payload shape. Structural
// validation (required fields, enum values) already ran in the handler.
func (s *JobService) validatePayload(form api.JobSubmission) error {
	switch form.Type {
	case api.JobTypeRunCommands:
		if len(form.Payload.Commands) == 0 {
			return NewErrInvalidForm("run_commands requires at least one command")
		}
		for _, cmd := range form.Payload.Commands {
			if strings.TrimSpace(cmd) == "" {
				return NewErrInvalidForm("blank command in payload")
			}
		}
	case api.JobTypeBackup:
		// no payload
	case api.JobTypeDeployPreview:
		if strings.TrimSpace(form.Payload.Snippet) == "" {
			return NewErrInvalidForm("deploy_preview requires a config snippet")
		}
		if form.Payload.Mode != api.DeployModeMerge && form.Payload.Mode != api.DeployModeReplace {
			return NewErrInvalidForm("deploy mode must be merge or replace")
		}
	case api.JobTypeDeployCommit:
		if form.PreviewID == nil {
			return NewErrInvalidForm("deploy_commit requires previewId")
		}
	default:
		return NewErrInvalidForm(fmt.Sprintf("unknown job type %q", form.Type))
	}
	return nil
}

// verifyPreviewForCommit checks the commit preconditions and returns the
// submission with target and payload copied from the reviewed preview. The
// applied payload is never taken from the commit request; a request that
// does carry one must match the preview byte for byte.
func (s *JobService) verifyPreviewForCommit(ctx context.Context, user auth.User, form *api.JobSubmission) (*api.JobSubmission, error) {
	previewID := *form.PreviewID

	if !form.Confirm {
		return nil, NewErrConfirmationRequiredForCommit()
	}

	preview, err := s.store.Job().Get(ctx, previewID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, NewErrStalePreview(previewID, "preview not found")
		}
		return nil, err
	}
	// a foreign tenant's preview is indistinguishable from a missing one
	if preview.OrgID != user.Organization {
		return nil, NewErrStalePreview(previewID, "preview not found")
	}
	if preview.Type != model.JobTypeDeployPreview {
		return nil, NewErrStalePreview(previewID, "referenced job is not a preview")
	}
	if preview.State != model.JobStateSuccess && preview.State != model.JobStatePartialFailure {
		return nil, NewErrStalePreview(previewID, fmt.Sprintf("preview is %s, not completed", preview.State))
	}

	var previewTarget api.TargetSpec
	if preview.Target != nil {
		previewTarget = preview.Target.Data
	}
	var previewPayload api.JobPayload
	if preview.Payload != nil {
		previewPayload = preview.Payload.Data
	}

	if form.Payload.Snippet != "" || form.Payload.Mode != "" {
		if form.Payload.Snippet != previewPayload.Snippet || form.Payload.Mode != previewPayload.Mode {
			return nil, NewErrStalePreview(previewID, "payload differs from the reviewed preview")
		}
	}
	if !targetSpecEmpty(form.Target) && !funk.IsEqual(form.Target, previewTarget) {
		return nil, NewErrStalePreview(previewID, "target differs from the reviewed preview")
	}

	records, err := s.store.Preview().ByJob(ctx, previewID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, NewErrStalePreview(previewID, "preview records expired")
	}
	sum := engine.PayloadChecksum(previewPayload.Snippet, string(previewPayload.Mode))
	now := time.Now()
	for _, rec := range records {
		if rec.Expired(now) {
			return nil, NewErrStalePreview(previewID, "preview records expired")
		}
		if rec.Checksum != sum {
			return nil, NewErrStalePreview(previewID, "preview records do not match the reviewed payload")
		}
	}

	normalized := *form
	normalized.Target = previewTarget
	normalized.Payload = previewPayload
	return &normalized, nil
}

func targetSpecEmpty(spec api.TargetSpec) bool {
	return !spec.Explicit() && spec.Site == "" && spec.Role == "" &&
		spec.Vendor == "" && spec.Platform == "" && !spec.EnabledOnly
}

type JobFilterFunc func(f *JobFilter)

type JobFilter struct {
	States []string
	Type   string
	Limit  int
	Offset int
}

func NewJobFilter(filters ...JobFilterFunc) *JobFilter {
	f := &JobFilter{}
	for _, fn := range filters {
		fn(f)
	}
	return f
}

func WithJobStates(states []string) JobFilterFunc {
	return func(f *JobFilter) {
		f.States = states
	}
}

func WithJobType(jobType string) JobFilterFunc {
	return func(f *JobFilter) {
		f.Type = jobType
	}
}

func WithJobPage(limit, offset int) JobFilterFunc {
	return func(f *JobFilter) {
		f.Limit = limit
		f.Offset = offset
	}
}
