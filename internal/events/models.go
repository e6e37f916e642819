package events

// JobStateEvent is broadcast whenever a job changes lifecycle state.
type JobStateEvent struct {
	JobID string `json:"job_id"`
	Type  string `json:"type"`
	State string `json:"state"`
	OrgID string `json:"org_id"`
}

// JobProgressEvent is broadcast after each collected device result. Counts
// are monotonic per job.
type JobProgressEvent struct {
	JobID     string `json:"job_id"`
	Total     int    `json:"total"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
}

// DeviceResultEvent is broadcast when one device finishes its unit of work.
type DeviceResultEvent struct {
	JobID     string `json:"job_id"`
	DeviceID  string `json:"device_id"`
	Hostname  string `json:"hostname"`
	Status    string `json:"status"`
	ErrorKind string `json:"error_kind,omitempty"`
}
