package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/wireline-net/wireline/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store interface {
	NewTransactionContext(ctx context.Context) (context.Context, error)
	Device() Device
	Job() Job
	Preview() Preview
	Snapshot() Snapshot
	Statistics(ctx context.Context) (model.FleetStats, error)
	InitialMigration(ctx context.Context) error
	Seed(ctx context.Context, orgID string) error
	Close() error
}

type DataStore struct {
	db       *gorm.DB
	device   Device
	job      Job
	preview  Preview
	snapshot Snapshot
}

func NewStore(db *gorm.DB) Store {
	return &DataStore{
		device:   NewDeviceStore(db),
		job:      NewJobStore(db),
		preview:  NewPreviewStore(db),
		snapshot: NewSnapshotStore(db),
		db:       db,
	}
}

func (s *DataStore) NewTransactionContext(ctx context.Context) (context.Context, error) {
	return newTransactionContext(ctx, s.db)
}

func (s *DataStore) Device() Device {
	return s.device
}

func (s *DataStore) Job() Job {
	return s.job
}

func (s *DataStore) Preview() Preview {
	return s.preview
}

func (s *DataStore) Snapshot() Snapshot {
	return s.snapshot
}

// Statistics aggregates fleet-wide counts across all organizations for the
// metrics collector.
func (s *DataStore) Statistics(ctx context.Context) (model.FleetStats, error) {
	devices, err := s.Device().List(ctx, NewDeviceQueryFilter(), NewDeviceQueryOptions())
	if err != nil {
		return model.FleetStats{}, err
	}
	jobs, err := s.Job().List(ctx, NewJobQueryFilter(), NewJobQueryOptions())
	if err != nil {
		return model.FleetStats{}, err
	}
	return model.NewFleetStats(devices, jobs), nil
}

func (s *DataStore) InitialMigration(ctx context.Context) error {
	if err := s.device.InitialMigration(ctx); err != nil {
		return err
	}
	if err := s.job.InitialMigration(ctx); err != nil {
		return err
	}
	if err := s.preview.InitialMigration(ctx); err != nil {
		return err
	}
	return s.snapshot.InitialMigration(ctx)
}

// Seed creates a small lab inventory for the given organization. Ids are
// fixed so reseeding updates instead of duplicating.
func (s *DataStore) Seed(ctx context.Context, orgID string) error {
	devices := []model.Device{
		{
			ID:       uuid.MustParse("6a0c3d10-0001-4a70-9f6e-000000000001"),
			Hostname: "lab-edge-01",
			OrgID:    orgID,
			Address:  "10.0.0.1",
			Vendor:   "cisco",
			Platform: "ios-xe",
			Site:     "lab",
			Role:     "edge",
			Enabled:  true,
		},
		{
			ID:       uuid.MustParse("6a0c3d10-0001-4a70-9f6e-000000000002"),
			Hostname: "lab-core-01",
			OrgID:    orgID,
			Address:  "10.0.0.2",
			Vendor:   "juniper",
			Platform: "junos",
			Site:     "lab",
			Role:     "core",
			Enabled:  true,
		},
		{
			ID:       uuid.MustParse("6a0c3d10-0001-4a70-9f6e-000000000003"),
			Hostname: "lab-access-01",
			OrgID:    orgID,
			Address:  "10.0.0.3",
			Vendor:   "arista",
			Platform: "eos",
			Site:     "lab",
			Role:     "access",
			Enabled:  true,
		},
	}

	tx, err := newTransaction(s.db)
	if err != nil {
		return err
	}

	for i := range devices {
		if err := tx.tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"hostname", "address", "vendor", "platform", "site", "role", "enabled"}),
		}).Create(&devices[i]).Error; err != nil {
			_ = tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}

func (s *DataStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
