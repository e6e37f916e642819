package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	api "github.com/wireline-net/wireline/api/v1"
)

// Job state constants
const (
	JobStateQueued         = "queued"
	JobStateRunning        = "running"
	JobStateSuccess        = "success"
	JobStatePartialFailure = "partial_failure"
	JobStateFailed         = "failed"
	JobStateNoTargets      = "no_targets"
	JobStateCancelled      = "cancelled"
)

// Job type constants
const (
	JobTypeRunCommands   = "run_commands"
	JobTypeBackup        = "backup"
	JobTypeDeployPreview = "deploy_preview"
	JobTypeDeployCommit  = "deploy_commit"
)

// jobTransitions lists the states each state may move to. Terminal states
// have no entries, which is what makes them terminal.
var jobTransitions = map[string][]string{
	JobStateQueued:  {JobStateRunning, JobStateNoTargets, JobStateFailed, JobStateCancelled},
	JobStateRunning: {JobStateSuccess, JobStatePartialFailure, JobStateFailed, JobStateCancelled},
}

// TransitionSources returns the states from which a job may move to the given
// state. Used by the store to guard state updates.
func TransitionSources(to string) []string {
	var from []string
	for src, dsts := range jobTransitions {
		for _, dst := range dsts {
			if dst == to {
				from = append(from, src)
				break
			}
		}
	}
	return from
}

// JobStateTerminal reports whether the state admits no further transitions.
func JobStateTerminal(state string) bool {
	_, ok := jobTransitions[state]
	return !ok
}

type Job struct {
	gorm.Model
	ID               uuid.UUID `gorm:"primaryKey;"`
	Type             string    `gorm:"not null;index:jobs_type_idx"`
	State            string    `gorm:"not null;index:jobs_state_idx"`
	OrgID            string    `gorm:"not null;index:jobs_org_id_idx"`
	Requester        string
	Target           *JSONField[api.TargetSpec] `gorm:"type:jsonb;not null"`
	Payload          *JSONField[api.JobPayload] `gorm:"type:jsonb"`
	Confirmed        bool
	PreviewOf        *uuid.UUID `gorm:"type:TEXT"`
	TargetsTotal     int
	TargetsSucceeded int
	TargetsFailed    int
	StartedAt        *time.Time
	FinishedAt       *time.Time
	Results          []DeviceResult `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE;"`
	Logs             []JobLogEntry  `gorm:"foreignKey:JobID;references:ID;constraint:OnDelete:CASCADE;"`
}

type JobList []Job

func (j Job) String() string {
	val, _ := json.Marshal(j)
	return string(val)
}

// Terminal reports whether the job reached a final state.
func (j Job) Terminal() bool {
	return JobStateTerminal(j.State)
}

// Duration returns the wall time between start and finish, zero while either
// end is unset.
func (j Job) Duration() time.Duration {
	if j.StartedAt == nil || j.FinishedAt == nil {
		return 0
	}
	return j.FinishedAt.Sub(*j.StartedAt)
}

type JobLogEntry struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	JobID     uuid.UUID `gorm:"not null;index:job_log_entries_job_id_idx"`
	Level     string
	Message   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}
