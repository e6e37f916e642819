// Package v1 contains the wire types exposed by the wireline HTTP API.
package v1

import (
	"time"

	"github.com/google/uuid"
)

// JobType discriminates the unit of work a job carries.
type JobType string

const (
	JobTypeRunCommands   JobType = "run_commands"
	JobTypeBackup        JobType = "backup"
	JobTypeDeployPreview JobType = "deploy_preview"
	JobTypeDeployCommit  JobType = "deploy_commit"
)

// JobState is the lifecycle state of a job.
type JobState string

const (
	JobStateQueued         JobState = "queued"
	JobStateRunning        JobState = "running"
	JobStateSuccess        JobState = "success"
	JobStatePartialFailure JobState = "partial_failure"
	JobStateFailed         JobState = "failed"
	JobStateNoTargets      JobState = "no_targets"
	JobStateCancelled      JobState = "cancelled"
)

// ResultStatus is the outcome of a single device within a job.
type ResultStatus string

const (
	ResultStatusSuccess ResultStatus = "success"
	ResultStatusFailed  ResultStatus = "failed"
	ResultStatusSkipped ResultStatus = "skipped"
)

// ErrorKind classifies a per-device execution failure.
type ErrorKind string

const (
	ErrorKindAuthFailure    ErrorKind = "auth_failure"
	ErrorKindUnreachable    ErrorKind = "unreachable"
	ErrorKindTimeout        ErrorKind = "timeout"
	ErrorKindProtocolError  ErrorKind = "protocol_error"
	ErrorKindDeviceRejected ErrorKind = "device_rejected"
	ErrorKindInvalidTarget  ErrorKind = "invalid_target"
)

// DeployMode selects how a config snippet is applied to the candidate
// configuration.
type DeployMode string

const (
	DeployModeMerge   DeployMode = "merge"
	DeployModeReplace DeployMode = "replace"
)

// TargetSpec selects the devices a job applies to. Either an explicit list of
// device IDs or a set of inventory filters; when DeviceIDs is set the filters
// are ignored.
type TargetSpec struct {
	DeviceIDs   []uuid.UUID `json:"deviceIds,omitempty" validate:"omitempty,max=500,dive,device_id"`
	Site        string      `json:"site,omitempty" validate:"omitempty,label,max=64"`
	Role        string      `json:"role,omitempty" validate:"omitempty,label,max=64"`
	Vendor      string      `json:"vendor,omitempty" validate:"omitempty,max=64"`
	Platform    string      `json:"platform,omitempty" validate:"omitempty,max=64"`
	EnabledOnly bool        `json:"enabledOnly,omitempty"`
}

// Explicit reports whether the spec names devices directly.
func (s TargetSpec) Explicit() bool {
	return len(s.DeviceIDs) > 0
}

// JobPayload carries the type-specific request body of a job. Commands is set
// for run_commands, Snippet and Mode for deploy_preview and deploy_commit.
// Backup jobs carry no payload.
type JobPayload struct {
	Commands []string   `json:"commands,omitempty" validate:"omitempty,max=100,dive,required,max=2048"`
	Snippet  string     `json:"snippet,omitempty" validate:"omitempty,max=262144"`
	Mode     DeployMode `json:"mode,omitempty" validate:"omitempty,deploy_mode"`
}

// JobSubmission is the request body of POST /api/v1/jobs.
type JobSubmission struct {
	Type      JobType    `json:"type" validate:"required,job_type"`
	Target    TargetSpec `json:"target"`
	Payload   JobPayload `json:"payload"`
	Confirm   bool       `json:"confirm,omitempty"`
	PreviewID *uuid.UUID `json:"previewId,omitempty" validate:"omitempty,job_id"`
}

// Job is the API representation of a job and its progress.
type Job struct {
	ID               uuid.UUID      `json:"id"`
	Type             JobType        `json:"type"`
	State            JobState       `json:"state"`
	Requester        string         `json:"requester"`
	Target           TargetSpec     `json:"target"`
	Payload          JobPayload     `json:"payload"`
	Confirmed        bool           `json:"confirmed"`
	PreviewOf        *uuid.UUID     `json:"previewOf,omitempty"`
	TargetsTotal     int            `json:"targetsTotal"`
	TargetsSucceeded int            `json:"targetsSucceeded"`
	TargetsFailed    int            `json:"targetsFailed"`
	CreatedAt        time.Time      `json:"createdAt"`
	StartedAt        *time.Time     `json:"startedAt,omitempty"`
	FinishedAt       *time.Time     `json:"finishedAt,omitempty"`
	Results          []DeviceResult `json:"results,omitempty"`
}

// JobList is the response body of GET /api/v1/jobs.
type JobList []Job

// DeviceResult is the outcome of one device within one job.
type DeviceResult struct {
	JobID      uuid.UUID    `json:"jobId"`
	DeviceID   uuid.UUID    `json:"deviceId"`
	Hostname   string       `json:"hostname"`
	Status     ResultStatus `json:"status"`
	Output     string       `json:"output,omitempty"`
	ErrorKind  ErrorKind    `json:"errorKind,omitempty"`
	Error      string       `json:"error,omitempty"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
}

// JobLogEntry is one line of a job's audit trail.
type JobLogEntry struct {
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// Device is the API representation of an inventory record.
type Device struct {
	ID        uuid.UUID  `json:"id"`
	Hostname  string     `json:"hostname"`
	Address   string     `json:"address"`
	Vendor    string     `json:"vendor"`
	Platform  string     `json:"platform"`
	Site      string     `json:"site,omitempty"`
	Role      string     `json:"role,omitempty"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// DeviceList is the response body of GET /api/v1/devices.
type DeviceList []Device

// DeviceForm is the request body for creating or updating a device.
type DeviceForm struct {
	Hostname string `json:"hostname" validate:"required,device_name,max=253"`
	Address  string `json:"address" validate:"required,endpoint,max=253"`
	Vendor   string `json:"vendor" validate:"omitempty,max=64"`
	Platform string `json:"platform" validate:"omitempty,max=64"`
	Site     string `json:"site,omitempty" validate:"omitempty,label,max=64"`
	Role     string `json:"role,omitempty" validate:"omitempty,label,max=64"`
	Enabled  *bool  `json:"enabled,omitempty"`
}

// ImportReport summarizes a spreadsheet inventory import.
type ImportReport struct {
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// ConfigSnapshot is a captured device configuration.
type ConfigSnapshot struct {
	DeviceID   uuid.UUID `json:"deviceId"`
	JobID      uuid.UUID `json:"jobId"`
	Config     string    `json:"config"`
	Checksum   string    `json:"checksum"`
	CapturedAt time.Time `json:"capturedAt"`
}

// Error is the uniform error body returned by the API. RequestID echoes the
// request id header so operators can correlate a failure with the server logs.
type Error struct {
	Message   string  `json:"message"`
	RequestID *string `json:"requestId,omitempty"`
}
