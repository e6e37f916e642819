package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/wireline-net/wireline/internal/store/model"
	"gorm.io/gorm"
)

type Snapshot interface {
	Create(ctx context.Context, snapshot model.ConfigSnapshot) (*model.ConfigSnapshot, error)
	Latest(ctx context.Context, deviceID uuid.UUID, orgID string) (*model.ConfigSnapshot, error)
	InitialMigration(context.Context) error
}

type SnapshotStore struct {
	db *gorm.DB
}

// Make sure we conform to Snapshot interface
var _ Snapshot = (*SnapshotStore)(nil)

func NewSnapshotStore(db *gorm.DB) Snapshot {
	return &SnapshotStore{db: db}
}

func (s *SnapshotStore) InitialMigration(ctx context.Context) error {
	return s.getDB(ctx).AutoMigrate(&model.ConfigSnapshot{})
}

func (s *SnapshotStore) Create(ctx context.Context, snapshot model.ConfigSnapshot) (*model.ConfigSnapshot, error) {
	if err := s.getDB(ctx).WithContext(ctx).Create(&snapshot).Error; err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// Latest returns the most recent captured configuration of a device.
func (s *SnapshotStore) Latest(ctx context.Context, deviceID uuid.UUID, orgID string) (*model.ConfigSnapshot, error) {
	var snapshot model.ConfigSnapshot
	err := s.getDB(ctx).WithContext(ctx).
		Where("device_id = ? AND org_id = ?", deviceID, orgID).
		Order("id DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &snapshot, nil
}

func (s *SnapshotStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return s.db
}
