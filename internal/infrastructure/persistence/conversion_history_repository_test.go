package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	appconv "github.com/erp/conversion/internal/application/conversion"
	"github.com/erp/conversion/internal/domain/conversion"
	infra "github.com/erp/conversion/internal/infrastructure/conversion"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newHistoryDatabase(t *testing.T) *Database {
	t.Helper()
	catalog := infra.NewCatalog(infra.CatalogConfig{Logger: zaptest.NewLogger(t)})
	require.NoError(t, infra.RegisterDefaults(catalog, infra.DefaultsConfig{}))
	RegisterConversionSerializer(appconv.NewService(catalog), conversion.Hints{
		conversion.HintDateFormatPattern: time.RFC3339Nano,
	})

	db, err := NewDatabase(DatabaseConfig{LogLevel: "silent"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate())
	return db
}

func TestGormConversionHistoryRepository_SaveAndRecent(t *testing.T) {
	db := newHistoryDatabase(t)
	repo := NewGormConversionHistoryRepository(db.DB, 10)
	ctx := context.Background()

	requestID := uuid.New()
	first := conversion.NewHistoryEntry(requestID.String(), "string", "int", 1500*time.Microsecond, nil)
	first.RecordedAt = time.Date(2024, 3, 1, 10, 0, 0, 250, time.UTC)
	require.NoError(t, repo.Save(ctx, first))
	assert.NotZero(t, first.ID)

	second := conversion.NewHistoryEntry("", "string", "int", time.Millisecond, errors.New("invalid syntax"))
	require.NoError(t, repo.Save(ctx, second))

	var stored struct {
		RequestID  *string
		Elapsed    string
		RecordedAt string
	}
	require.NoError(t, db.DB.Table("conversion_history").Where("id = ?", first.ID).Take(&stored).Error)
	require.NotNil(t, stored.RequestID)
	assert.Equal(t, requestID.String(), *stored.RequestID)
	assert.Equal(t, "1.5ms", stored.Elapsed)
	assert.Equal(t, "2024-03-01T10:00:00.00000025Z", stored.RecordedAt)

	entries, err := repo.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, second.ID, entries[0].ID)
	assert.Equal(t, conversion.HistoryFailed, entries[0].Outcome)
	assert.Equal(t, "invalid syntax", entries[0].Error)
	assert.Equal(t, uuid.Nil, entries[0].RequestID)

	assert.Equal(t, requestID, entries[1].RequestID)
	assert.Equal(t, conversion.HistoryConverted, entries[1].Outcome)
	assert.Equal(t, 1500*time.Microsecond, entries[1].Elapsed)
	assert.True(t, first.RecordedAt.Equal(entries[1].RecordedAt))
}

func TestGormConversionHistoryRepository_Retention(t *testing.T) {
	db := newHistoryDatabase(t)
	repo := NewGormConversionHistoryRepository(db.DB, 3)
	ctx := context.Background()

	for range 5 {
		require.NoError(t, repo.Save(ctx, conversion.NewHistoryEntry("", "string", "bool", 0, nil)))
	}

	var count int64
	require.NoError(t, db.DB.Table("conversion_history").Count(&count).Error)
	assert.Equal(t, int64(3), count)

	entries, err := repo.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, uint64(5), entries[0].ID)
	assert.Equal(t, uint64(3), entries[2].ID)
}

func TestNewGormConversionHistoryRepository_DefaultRetention(t *testing.T) {
	repo := NewGormConversionHistoryRepository(nil, 0)
	assert.Equal(t, DefaultHistoryRetention, repo.retention)
}
