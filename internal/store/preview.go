package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/wireline-net/wireline/internal/store/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Preview interface {
	CreateBatch(ctx context.Context, records []model.PreviewRecord) error
	ByJob(ctx context.Context, jobID uuid.UUID) (model.PreviewRecordList, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	InitialMigration(context.Context) error
}

type PreviewStore struct {
	db *gorm.DB
}

// Make sure we conform to Preview interface
var _ Preview = (*PreviewStore)(nil)

func NewPreviewStore(db *gorm.DB) Preview {
	return &PreviewStore{db: db}
}

func (p *PreviewStore) InitialMigration(ctx context.Context) error {
	return p.getDB(ctx).AutoMigrate(&model.PreviewRecord{})
}

// CreateBatch writes the diff rows of one preview job. Rows are read-only
// afterwards; a conflicting insert means a retried flush already delivered.
func (p *PreviewStore) CreateBatch(ctx context.Context, records []model.PreviewRecord) error {
	if len(records) == 0 {
		return nil
	}
	return p.getDB(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&records).Error
}

// ByJob returns the preview rows of a job ordered by device id. Expired rows
// are not filtered here; the caller decides what expiry means for it.
func (p *PreviewStore) ByJob(ctx context.Context, jobID uuid.UUID) (model.PreviewRecordList, error) {
	var records model.PreviewRecordList
	err := p.getDB(ctx).WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("device_id").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// DeleteExpired removes rows past their retention deadline and reports how
// many were swept.
func (p *PreviewStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := p.getDB(ctx).WithContext(ctx).
		Where("expires_at < ?", now).
		Delete(&model.PreviewRecord{})
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (p *PreviewStore) getDB(ctx context.Context) *gorm.DB {
	tx := FromContext(ctx)
	if tx != nil {
		return tx
	}
	return p.db
}
