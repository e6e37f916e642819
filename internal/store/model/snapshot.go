package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// A ConfigSnapshot is the captured configuration of one device, produced by a
// backup job.
type ConfigSnapshot struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	DeviceID  uuid.UUID `gorm:"not null;index:config_snapshots_device_id_idx"`
	JobID     uuid.UUID `gorm:"not null"`
	OrgID     string    `gorm:"not null;index:config_snapshots_org_id_idx"`
	Config    string    `gorm:"type:text"`
	Checksum  string
	CreatedAt time.Time `gorm:"not null"`
}

type ConfigSnapshotList []ConfigSnapshot

func (s ConfigSnapshot) String() string {
	val, _ := json.Marshal(s)
	return string(val)
}
