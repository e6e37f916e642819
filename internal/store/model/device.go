package model

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Device struct {
	gorm.Model
	ID       uuid.UUID `gorm:"primaryKey;"`
	Hostname string    `gorm:"uniqueIndex:devices_org_id_hostname;not null"`
	OrgID    string    `gorm:"uniqueIndex:devices_org_id_hostname;not null;index:devices_org_id_idx"`
	Address  string    `gorm:"not null"`
	Vendor   string
	Platform string
	Site     string
	Role     string
	// A default tag here would make gorm drop a false value on insert, so
	// the enabled-by-default rule lives in the form mapper instead.
	Enabled bool `gorm:"not null"`
}

type DeviceList []Device

func (d Device) String() string {
	val, _ := json.Marshal(d)
	return string(val)
}

func NewDeviceFromID(id uuid.UUID) *Device {
	return &Device{ID: id}
}
