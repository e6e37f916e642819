package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// A PreviewRecord holds the computed diff for one device of a preview job.
// Rows are read-only once written and swept after ExpiresAt.
type PreviewRecord struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	JobID     uuid.UUID `gorm:"not null;uniqueIndex:preview_records_job_id_device_id;index:preview_records_job_id_idx"`
	DeviceID  uuid.UUID `gorm:"not null;uniqueIndex:preview_records_job_id_device_id"`
	Hostname  string
	Diff      string    `gorm:"type:text"`
	Checksum  string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null;index:preview_records_expires_at_idx"`
	CreatedAt time.Time `gorm:"not null"`
}

type PreviewRecordList []PreviewRecord

func (p PreviewRecord) String() string {
	val, _ := json.Marshal(p)
	return string(val)
}

// Expired reports whether the record passed its retention deadline.
func (p PreviewRecord) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
