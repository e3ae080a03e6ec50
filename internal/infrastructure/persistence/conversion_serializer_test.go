package persistence

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	appconv "github.com/erp/conversion/internal/application/conversion"
	"github.com/erp/conversion/internal/domain/conversion"
	infra "github.com/erp/conversion/internal/infrastructure/conversion"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm/schema"
)

type shipment struct {
	ID        uint
	Reference uuid.UUID       `gorm:"type:text;serializer:conversion"`
	Amount    decimal.Decimal `gorm:"type:text;serializer:conversion"`
	ShippedAt time.Time       `gorm:"type:text;serializer:conversion"`
	Transit   time.Duration   `gorm:"type:text;serializer:conversion"`
	Weight    *float64        `gorm:"type:text;serializer:conversion"`
}

func newShipmentStore(t *testing.T) *Database {
	t.Helper()
	catalog := infra.NewCatalog(infra.CatalogConfig{Logger: zaptest.NewLogger(t)})
	require.NoError(t, infra.RegisterDefaults(catalog, infra.DefaultsConfig{}))
	RegisterConversionSerializer(appconv.NewService(catalog), nil)

	db, err := NewDatabase(DatabaseConfig{LogLevel: "silent"}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.DB.AutoMigrate(&shipment{}))
	return db
}

func TestConversionSerializer_RoundTrip(t *testing.T) {
	db := newShipmentStore(t)

	weight := 2.5
	in := shipment{
		Reference: uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Amount:    decimal.RequireFromString("12.50"),
		ShippedAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Transit:   36 * time.Hour,
		Weight:    &weight,
	}
	require.NoError(t, db.DB.Create(&in).Error)

	var stored struct {
		Reference string
		Amount    string
		ShippedAt string
		Transit   string
		Weight    string
	}
	require.NoError(t, db.DB.Table("shipments").Where("id = ?", in.ID).Take(&stored).Error)
	assert.Equal(t, "6ba7b810-9dad-11d1-80b4-00c04fd430c8", stored.Reference)
	assert.Equal(t, "12.5", stored.Amount)
	assert.Equal(t, "2024-03-01T10:00:00Z", stored.ShippedAt)
	assert.Equal(t, "36h0m0s", stored.Transit)
	assert.Equal(t, "2.5", stored.Weight)

	var out shipment
	require.NoError(t, db.DB.First(&out, in.ID).Error)
	assert.Equal(t, in.Reference, out.Reference)
	assert.True(t, in.Amount.Equal(out.Amount))
	assert.True(t, in.ShippedAt.Equal(out.ShippedAt))
	assert.Equal(t, in.Transit, out.Transit)
	require.NotNil(t, out.Weight)
	assert.Equal(t, 2.5, *out.Weight)
}

func TestConversionSerializer_NilPointerIsNull(t *testing.T) {
	db := newShipmentStore(t)

	in := shipment{Reference: uuid.New()}
	require.NoError(t, db.DB.Create(&in).Error)

	var nulls int64
	require.NoError(t, db.DB.Table("shipments").Where("weight IS NULL").Count(&nulls).Error)
	assert.Equal(t, int64(1), nulls)

	var out shipment
	require.NoError(t, db.DB.First(&out, in.ID).Error)
	assert.Nil(t, out.Weight)
	assert.Equal(t, in.Reference, out.Reference)
}

func TestConversionSerializer_ScanError(t *testing.T) {
	db := newShipmentStore(t)

	require.NoError(t, db.DB.Exec("INSERT INTO shipments (id, reference) VALUES (?, ?)", 7, "not-a-uuid").Error)

	var out shipment
	err := db.DB.First(&out, 7).Error
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reference")
}

// fixedConverter answers every conversion with the same value
type fixedConverter struct {
	out any
}

func (c fixedConverter) ConvertTo(any, reflect.Type, conversion.Hints) (any, error) {
	return c.out, nil
}

type transitLeg struct {
	ID      uint
	Transit time.Duration
}

func TestConversionSerializer_ScanRejectsUnassignableResult(t *testing.T) {
	sch, err := schema.Parse(&transitLeg{}, &sync.Map{}, schema.NamingStrategy{})
	require.NoError(t, err)
	field := sch.LookUpField("transit")
	require.NotNil(t, field)

	// a converter default of the wrong type surfaces as a result like this
	s := NewConversionSerializer(fixedConverter{out: "36h"}, nil)
	var leg transitLeg
	dst := reflect.ValueOf(&leg).Elem()

	var scanErr error
	assert.NotPanics(t, func() {
		scanErr = s.Scan(context.Background(), field, dst, "36h")
	})
	require.Error(t, scanErr)
	assert.Contains(t, scanErr.Error(), "scan column transit into time.Duration")
	assert.Zero(t, leg.Transit)

	// a convertible result is still accepted
	s = NewConversionSerializer(fixedConverter{out: int64(90)}, nil)
	require.NoError(t, s.Scan(context.Background(), field, dst, "90ns"))
	assert.Equal(t, 90*time.Nanosecond, leg.Transit)
}
