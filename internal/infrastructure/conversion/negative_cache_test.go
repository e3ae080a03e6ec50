package conversion

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/stretchr/testify/assert"
)

func TestNegativeCache_Covers(t *testing.T) {
	stringer := reflect.TypeFor[fmt.Stringer]()
	duration := reflect.TypeFor[time.Duration]()
	anyType := reflect.TypeFor[any]()

	t.Run("exact pair within searched depth", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(tA, tB), 3)

		assert.True(t, n.covers(tA, tB, 3))
		assert.True(t, n.covers(tA, tB, 1))
		assert.False(t, n.covers(tA, tB, 4))
		assert.False(t, n.covers(tA, tC, 3))
	})

	t.Run("narrow source covers broader source", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(duration, tB), 3)

		assert.True(t, n.covers(stringer, tB, 3))
	})

	t.Run("broad source does not cover narrower source", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(stringer, tB), 3)

		assert.False(t, n.covers(duration, tB, 3))
	})

	t.Run("broad target covers narrower target", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(tA, stringer), 3)

		assert.True(t, n.covers(tA, duration, 3))
	})

	t.Run("narrow target does not cover broader target", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(tA, duration), 3)

		assert.False(t, n.covers(tA, stringer, 3))
		assert.False(t, n.covers(tA, anyType, 3))
	})

	t.Run("depth applies to covering entries", func(t *testing.T) {
		n := newNegativeCache(0)
		n.add(conversion.NewConverterType(tA, stringer), 2)

		assert.True(t, n.covers(tA, duration, 2))
		assert.False(t, n.covers(tA, duration, 3))
	})
}

func TestNegativeCache_Add(t *testing.T) {
	t.Run("keeps the deepest search", func(t *testing.T) {
		n := newNegativeCache(0)
		key := conversion.NewConverterType(tA, tB)
		n.add(key, 4)
		n.add(key, 2)

		assert.Equal(t, 1, n.size())
		assert.True(t, n.covers(tA, tB, 4))
	})

	t.Run("evicts beyond capacity", func(t *testing.T) {
		n := newNegativeCache(2)
		n.add(conversion.NewConverterType(tA, tB), 3)
		n.add(conversion.NewConverterType(tA, tC), 3)
		n.add(conversion.NewConverterType(tA, tD), 3)

		assert.Equal(t, 2, n.size())
		assert.True(t, n.covers(tA, tD, 3))
	})

	t.Run("default capacity", func(t *testing.T) {
		n := newNegativeCache(-1)
		assert.Equal(t, DefaultNegativeCacheCapacity, n.capacity)
	})
}

func TestNegativeCache_RemoveAndReset(t *testing.T) {
	n := newNegativeCache(0)
	n.add(conversion.NewConverterType(tA, tB), 3)
	n.add(conversion.NewConverterType(tA, tC), 3)

	n.remove(conversion.NewConverterType(tA, tB))
	assert.False(t, n.covers(tA, tB, 3))
	assert.Equal(t, 1, n.size())

	assert.Equal(t, 1, n.reset())
	assert.Equal(t, 0, n.size())
}
