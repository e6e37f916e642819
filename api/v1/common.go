package v1

// StringToJobState maps a stored state string onto the typed enum. Unknown
// values map to queued so a corrupt row never reads as terminal.
func StringToJobState(s string) JobState {
	switch s {
	case string(JobStateRunning):
		return JobStateRunning
	case string(JobStateSuccess):
		return JobStateSuccess
	case string(JobStatePartialFailure):
		return JobStatePartialFailure
	case string(JobStateFailed):
		return JobStateFailed
	case string(JobStateNoTargets):
		return JobStateNoTargets
	case string(JobStateCancelled):
		return JobStateCancelled
	default:
		return JobStateQueued
	}
}

// StringToJobType maps a stored type string onto the typed enum.
func StringToJobType(s string) JobType {
	switch s {
	case string(JobTypeBackup):
		return JobTypeBackup
	case string(JobTypeDeployPreview):
		return JobTypeDeployPreview
	case string(JobTypeDeployCommit):
		return JobTypeDeployCommit
	default:
		return JobTypeRunCommands
	}
}

// Terminal reports whether the state admits no further transitions.
func (s JobState) Terminal() bool {
	switch s {
	case JobStateSuccess, JobStatePartialFailure, JobStateFailed, JobStateNoTargets, JobStateCancelled:
		return true
	default:
		return false
	}
}
