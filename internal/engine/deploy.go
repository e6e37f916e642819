package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/store/model"
)

// PayloadChecksum fingerprints a deploy payload. Preview and commit hash the
// same bytes; a mismatch means the operator is committing something other
// than what was reviewed.
func PayloadChecksum(snippet string, mode string) string {
	sum := sha256.Sum256([]byte(mode + "\n" + snippet))
	return hex.EncodeToString(sum[:])
}

// verifyPreview re-checks the referenced preview right before commit dispatch
// and returns its reviewed device set. Submission already validated the
// preview; re-checking closes the window between submission and dispatch in
// which records can expire or be swept.
func (e *Engine) verifyPreview(ctx context.Context, job *model.Job) (map[uuid.UUID]struct{}, error) {
	if job.PreviewOf == nil {
		return nil, errors.New("commit job references no preview")
	}

	preview, err := e.store.Job().Get(ctx, *job.PreviewOf)
	if err != nil {
		return nil, fmt.Errorf("preview lookup: %w", err)
	}
	if preview.OrgID != job.OrgID {
		return nil, errors.New("preview belongs to a different organization")
	}
	if preview.Type != model.JobTypeDeployPreview {
		return nil, fmt.Errorf("job %s is not a preview", preview.ID)
	}
	if preview.State != model.JobStateSuccess && preview.State != model.JobStatePartialFailure {
		return nil, fmt.Errorf("preview is %s, not completed", preview.State)
	}

	records, err := e.store.Preview().ByJob(ctx, preview.ID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("preview records are gone")
	}

	var payload api.JobPayload
	if job.Payload != nil {
		payload = job.Payload.Data
	}
	sum := PayloadChecksum(payload.Snippet, string(payload.Mode))

	now := time.Now()
	allowed := make(map[uuid.UUID]struct{}, len(records))
	for _, rec := range records {
		if rec.Expired(now) {
			return nil, errors.New("preview records expired")
		}
		if rec.Checksum != sum {
			return nil, errors.New("payload does not match the reviewed preview")
		}
		allowed[rec.DeviceID] = struct{}{}
	}

	return allowed, nil
}

// persistPreviewRecords writes one diff row per succeeded device of a preview
// job. Devices whose diff failed get no row, so a later commit fails closed
// for exactly those devices.
func (e *Engine) persistPreviewRecords(ctx context.Context, job *model.Job, results []model.DeviceResult) error {
	var payload api.JobPayload
	if job.Payload != nil {
		payload = job.Payload.Data
	}
	sum := PayloadChecksum(payload.Snippet, string(payload.Mode))

	now := time.Now()
	expires := now.Add(e.previewTTL)
	records := make([]model.PreviewRecord, 0, len(results))
	for _, res := range results {
		if res.Status != model.ResultStatusSuccess {
			continue
		}
		records = append(records, model.PreviewRecord{
			JobID:     job.ID,
			DeviceID:  res.DeviceID,
			Hostname:  res.Hostname,
			Diff:      res.Output,
			Checksum:  sum,
			ExpiresAt: expires,
			CreatedAt: now,
		})
	}

	return e.store.Preview().CreateBatch(ctx, records)
}

// persistSnapshots archives the configuration each succeeded device of a
// backup job returned. Archiving is best effort; the raw config already lives
// on the device result.
func (e *Engine) persistSnapshots(ctx context.Context, job *model.Job, results []model.DeviceResult) {
	for _, res := range results {
		if res.Status != model.ResultStatusSuccess {
			continue
		}
		sum := sha256.Sum256([]byte(res.Output))
		_, err := e.store.Snapshot().Create(ctx, model.ConfigSnapshot{
			DeviceID:  res.DeviceID,
			JobID:     job.ID,
			OrgID:     job.OrgID,
			Config:    res.Output,
			Checksum:  hex.EncodeToString(sum[:]),
			CreatedAt: time.Now(),
		})
		if err != nil {
			e.log.Warnw("failed to archive config snapshot",
				"job_id", job.ID,
				"device_id", res.DeviceID,
				"error", err,
			)
		}
	}
}
