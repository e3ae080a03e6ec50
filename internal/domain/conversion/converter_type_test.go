package conversion

import (
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypeFor(t *testing.T) {
	ct := TypeFor[int, string]()

	assert.Equal(t, reflect.TypeFor[int](), ct.Source)
	assert.Equal(t, reflect.TypeFor[string](), ct.Target)
	assert.Equal(t, "int -> string", ct.String())
	assert.True(t, ct.IsValid())
}

func TestConverterType_Equality(t *testing.T) {
	a := TypeFor[int, string]()
	b := NewConverterType(reflect.TypeFor[int](), reflect.TypeFor[string]())
	c := TypeFor[int64, string]()

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)

	m := map[ConverterType]int{a: 1}
	assert.Equal(t, 1, m[b])
	_, ok := m[c]
	assert.False(t, ok)
}

func TestConverterType_IsValid(t *testing.T) {
	assert.False(t, ConverterType{}.IsValid())
	assert.False(t, NewConverterType(reflect.TypeFor[int](), nil).IsValid())
	assert.Equal(t, "int -> <nil>", NewConverterType(reflect.TypeFor[int](), nil).String())
}

func TestConverterType_Matches(t *testing.T) {
	stringer := reflect.TypeFor[fmt.Stringer]()
	duration := reflect.TypeFor[time.Duration]()
	intType := reflect.TypeFor[int]()
	int64Type := reflect.TypeFor[int64]()
	stringType := reflect.TypeFor[string]()
	anyType := reflect.TypeFor[any]()

	tests := []struct {
		name   string
		edge   ConverterType
		source reflect.Type
		target reflect.Type
		want   bool
	}{
		{"exact pair", TypeFor[int, string](), intType, stringType, true},
		{"different source", TypeFor[int, string](), int64Type, stringType, false},
		{"different target", TypeFor[int, string](), intType, int64Type, false},
		{"interface source accepts implementation", TypeFor[fmt.Stringer, string](), duration, stringType, true},
		{"interface source rejects non implementation", TypeFor[fmt.Stringer, string](), intType, stringType, false},
		{"concrete target satisfies interface request", TypeFor[int, time.Duration](), intType, stringer, true},
		{"concrete target satisfies any", TypeFor[int, string](), intType, anyType, true},
		{"interface target does not satisfy concrete request", TypeFor[int, fmt.Stringer](), intType, duration, false},
		{"nil source", TypeFor[int, string](), nil, stringType, false},
		{"nil target", TypeFor[int, string](), intType, nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.edge.Matches(tt.source, tt.target))
		})
	}
}

func TestConverterType_IsIdentity(t *testing.T) {
	assert.True(t, TypeFor[int, int]().IsIdentity())
	assert.True(t, TypeFor[time.Duration, fmt.Stringer]().IsIdentity())
	assert.True(t, TypeFor[string, any]().IsIdentity())
	assert.False(t, TypeFor[int, int64]().IsIdentity())
	assert.False(t, ConverterType{}.IsIdentity())
}
