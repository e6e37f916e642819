package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Device result status constants
const (
	ResultStatusSuccess = "success"
	ResultStatusFailed  = "failed"
	ResultStatusSkipped = "skipped"
)

// A DeviceResult is written once by the worker that owns its device and never
// updated afterwards.
type DeviceResult struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	JobID      uuid.UUID `gorm:"not null;uniqueIndex:device_results_job_id_device_id;index:device_results_job_id_idx"`
	DeviceID   uuid.UUID `gorm:"not null;uniqueIndex:device_results_job_id_device_id"`
	Hostname   string
	Status     string `gorm:"not null"`
	Output     string `gorm:"type:text"`
	ErrorKind  string
	Error      string `gorm:"type:text"`
	StartedAt  time.Time
	FinishedAt time.Time
	CreatedAt  time.Time `gorm:"not null"`
}

type DeviceResultList []DeviceResult

func (r DeviceResult) String() string {
	val, _ := json.Marshal(r)
	return string(val)
}
