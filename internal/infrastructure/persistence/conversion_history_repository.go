package persistence

import (
	"context"
	"time"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DefaultHistoryRetention is the number of entries kept when none is configured
const DefaultHistoryRetention = 1000

// conversionHistoryModel stores typed columns through the conversion serializer
type conversionHistoryModel struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement"`
	RequestID  *uuid.UUID    `gorm:"type:text;serializer:conversion"`
	SourceType string        `gorm:"size:256"`
	TargetType string        `gorm:"size:256;index"`
	Outcome    string        `gorm:"size:16"`
	Error      string        `gorm:"type:text"`
	Elapsed    time.Duration `gorm:"type:text;serializer:conversion"`
	RecordedAt time.Time     `gorm:"type:text;serializer:conversion"`
}

// TableName implements schema.Tabler
func (conversionHistoryModel) TableName() string {
	return "conversion_history"
}

func newConversionHistoryModel(e *conversion.HistoryEntry) *conversionHistoryModel {
	m := &conversionHistoryModel{
		SourceType: e.SourceType,
		TargetType: e.TargetType,
		Outcome:    e.Outcome,
		Error:      e.Error,
		Elapsed:    e.Elapsed,
		RecordedAt: e.RecordedAt,
	}
	if e.RequestID != uuid.Nil {
		id := e.RequestID
		m.RequestID = &id
	}
	return m
}

func (m *conversionHistoryModel) toDomain() conversion.HistoryEntry {
	e := conversion.HistoryEntry{
		ID:         m.ID,
		SourceType: m.SourceType,
		TargetType: m.TargetType,
		Outcome:    m.Outcome,
		Error:      m.Error,
		Elapsed:    m.Elapsed,
		RecordedAt: m.RecordedAt,
	}
	if m.RequestID != nil {
		e.RequestID = *m.RequestID
	}
	return e
}

// GormConversionHistoryRepository implements conversion.HistoryRepository using GORM
type GormConversionHistoryRepository struct {
	db        *gorm.DB
	retention int
}

// NewGormConversionHistoryRepository creates a repository keeping the newest
// retention entries; zero or less uses DefaultHistoryRetention
func NewGormConversionHistoryRepository(db *gorm.DB, retention int) *GormConversionHistoryRepository {
	if retention <= 0 {
		retention = DefaultHistoryRetention
	}
	return &GormConversionHistoryRepository{db: db, retention: retention}
}

// Save stores entry, assigns its ID and trims entries beyond the retention
func (r *GormConversionHistoryRepository) Save(ctx context.Context, entry *conversion.HistoryEntry) error {
	model := newConversionHistoryModel(entry)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	entry.ID = model.ID

	if model.ID <= uint64(r.retention) {
		return nil
	}
	pruned := r.db.WithContext(ctx).
		Where("id <= ?", model.ID-uint64(r.retention)).
		Delete(&conversionHistoryModel{})
	if pruned.Error != nil {
		return pruned.Error
	}
	if pruned.RowsAffected > 0 {
		logger.FromContext(ctx).Debug("Pruned conversion history",
			zap.Int64("removed", pruned.RowsAffected),
			zap.Int("retention", r.retention),
		)
	}
	return nil
}

// Recent returns up to limit entries, newest first
func (r *GormConversionHistoryRepository) Recent(ctx context.Context, limit int) ([]conversion.HistoryEntry, error) {
	var models []conversionHistoryModel
	query := r.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}

	entries := make([]conversion.HistoryEntry, len(models))
	for i := range models {
		entries[i] = models[i].toDomain()
	}
	return entries, nil
}
