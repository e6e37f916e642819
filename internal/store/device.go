package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wireline-net/wireline/internal/store/model"
	"gorm.io/gorm"
)

type Device interface {
	List(ctx context.Context, filter *DeviceQueryFilter, opts *DeviceQueryOptions) (model.DeviceList, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Device, error)
	Create(ctx context.Context, device model.Device) (*model.Device, error)
	Update(ctx context.Context, device model.Device) (*model.Device, error)
	Delete(ctx context.Context, id uuid.UUID) error
	InitialMigration(context.Context) error
}

type DeviceStore struct {
	db *gorm.DB
}

// Make sure we conform to Device interface
var _ Device = (*DeviceStore)(nil)

func NewDeviceStore(db *gorm.DB) Device {
	return &DeviceStore{db: db}
}

func (d *DeviceStore) InitialMigration(ctx context.Context) error {
	return d.getDB(ctx).AutoMigrate(&model.Device{})
}

// List lists the devices matching the filter.
func (d *DeviceStore) List(ctx context.Context, filter *DeviceQueryFilter, opts *DeviceQueryOptions) (model.DeviceList, error) {
	var devices model.DeviceList
	tx := d.getDB(ctx)

	if filter != nil {
		for _, fn := range filter.QueryFn {
			tx = fn(tx)
		}
	}

	if opts != nil {
		for _, fn := range opts.QueryFn {
			tx = fn(tx)
		}
	}

	if err := tx.Model(&devices).Find(&devices).Error; err != nil {
		return nil, err
	}

	return devices, nil
}

// Get returns a device based on its id.
func (d *DeviceStore) Get(ctx context.Context, id uuid.UUID) (*model.Device, error) {
	device := model.NewDeviceFromID(id)

	if err := d.getDB(ctx).WithContext(ctx).First(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	return device, nil
}

// Create creates a device.
func (d *DeviceStore) Create(ctx context.Context, device model.Device) (*model.Device, error) {
	if err := d.getDB(ctx).WithContext(ctx).Create(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}

	return &device, nil
}

// Update replaces all fields of a device. A plain Updates call would skip
// zero values and a disabled device could never be persisted.
func (d *DeviceStore) Update(ctx context.Context, device model.Device) (*model.Device, error) {
	existing := model.NewDeviceFromID(device.ID)
	if err := d.getDB(ctx).WithContext(ctx).First(existing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}

	device.CreatedAt = existing.CreatedAt
	if err := d.getDB(ctx).WithContext(ctx).Save(&device).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicateKey
		}
		return nil, err
	}

	return &device, nil
}

// Delete removes a device. Deleting an absent device is not an error.
func (d *DeviceStore) Delete(ctx context.Context, id uuid.UUID) error {
	device := model.NewDeviceFromID(id)
	result := d.getDB(ctx).WithContext(ctx).Unscoped().Delete(&device)
	if result.Error != nil && !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return result.Error
	}
	return nil
}

func (d *DeviceStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return d.db
}
