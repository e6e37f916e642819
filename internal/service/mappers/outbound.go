package mappers

import (
	api "github.com/wireline-net/wireline/api/v1"
	"github.com/wireline-net/wireline/internal/store/model"
)

func JobToApi(j model.Job) api.Job {
	job := api.Job{
		ID:               j.ID,
		Type:             api.StringToJobType(j.Type),
		State:            api.StringToJobState(j.State),
		Requester:        j.Requester,
		Confirmed:        j.Confirmed,
		PreviewOf:        j.PreviewOf,
		TargetsTotal:     j.TargetsTotal,
		TargetsSucceeded: j.TargetsSucceeded,
		TargetsFailed:    j.TargetsFailed,
		CreatedAt:        j.CreatedAt,
		StartedAt:        j.StartedAt,
		FinishedAt:       j.FinishedAt,
	}

	if j.Target != nil {
		job.Target = j.Target.Data
	}
	if j.Payload != nil {
		job.Payload = j.Payload.Data
	}
	if len(j.Results) > 0 {
		job.Results = DeviceResultListToApi(j.Results)
	}

	return job
}

func JobListToApi(jobs model.JobList) api.JobList {
	jobList := []api.Job{}
	for _, j := range jobs {
		jobList = append(jobList, JobToApi(j))
	}
	return jobList
}

func DeviceResultToApi(r model.DeviceResult) api.DeviceResult {
	return api.DeviceResult{
		JobID:      r.JobID,
		DeviceID:   r.DeviceID,
		Hostname:   r.Hostname,
		Status:     api.ResultStatus(r.Status),
		Output:     r.Output,
		ErrorKind:  api.ErrorKind(r.ErrorKind),
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func DeviceResultListToApi(results model.DeviceResultList) []api.DeviceResult {
	resultList := []api.DeviceResult{}
	for _, r := range results {
		resultList = append(resultList, DeviceResultToApi(r))
	}
	return resultList
}

func JobLogEntryToApi(e model.JobLogEntry) api.JobLogEntry {
	return api.JobLogEntry{
		Level:     e.Level,
		Message:   e.Message,
		CreatedAt: e.CreatedAt,
	}
}

func JobLogListToApi(entries []model.JobLogEntry) []api.JobLogEntry {
	logList := []api.JobLogEntry{}
	for _, e := range entries {
		logList = append(logList, JobLogEntryToApi(e))
	}
	return logList
}

func DeviceToApi(d model.Device) api.Device {
	device := api.Device{
		ID:        d.ID,
		Hostname:  d.Hostname,
		Address:   d.Address,
		Vendor:    d.Vendor,
		Platform:  d.Platform,
		Site:      d.Site,
		Role:      d.Role,
		Enabled:   d.Enabled,
		CreatedAt: d.CreatedAt,
	}
	if !d.UpdatedAt.IsZero() {
		updatedAt := d.UpdatedAt
		device.UpdatedAt = &updatedAt
	}
	return device
}

func DeviceListToApi(devices model.DeviceList) api.DeviceList {
	deviceList := []api.Device{}
	for _, d := range devices {
		deviceList = append(deviceList, DeviceToApi(d))
	}
	return deviceList
}

func SnapshotToApi(s model.ConfigSnapshot) api.ConfigSnapshot {
	return api.ConfigSnapshot{
		DeviceID:   s.DeviceID,
		JobID:      s.JobID,
		Config:     s.Config,
		Checksum:   s.Checksum,
		CapturedAt: s.CreatedAt,
	}
}
