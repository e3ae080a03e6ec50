package conversion

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/erp/conversion/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TypeRegistry maps type names to runtime types. It serves as the default
// class-loader for string to reflect.Type conversions and resolves target
// names received over the API.
type TypeRegistry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
}

// NewTypeRegistry creates an empty type registry
func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{byName: make(map[string]reflect.Type)}
}

// NewTypeRegistryWithDefaults creates a registry knowing the built-in value types
func NewTypeRegistryWithDefaults() *TypeRegistry {
	r := NewTypeRegistry()
	RegisterType[string](r)
	RegisterType[bool](r)
	RegisterType[int](r)
	RegisterType[int32](r)
	RegisterType[int64](r, "long")
	RegisterType[uint64](r)
	RegisterType[float32](r)
	RegisterType[float64](r, "double")
	RegisterType[[]byte](r, "bytes")
	RegisterType[time.Time](r, "time", "date")
	RegisterType[time.Duration](r, "duration")
	RegisterType[decimal.Decimal](r, "decimal")
	RegisterType[uuid.UUID](r, "uuid")
	return r
}

// RegisterType registers T under its Go type name and the given aliases
func RegisterType[T any](r *TypeRegistry, aliases ...string) {
	if err := r.Register(reflect.TypeFor[T](), aliases...); err != nil {
		panic(err)
	}
}

// Register registers t under its Go type name and the given aliases.
// Names are case-insensitive.
func (r *TypeRegistry) Register(t reflect.Type, aliases ...string) error {
	if t == nil {
		return fmt.Errorf("%w: type is required", shared.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, name := range append([]string{t.String()}, aliases...) {
		key := normalizeTypeName(name)
		if key == "" {
			continue
		}
		if existing, exists := r.byName[key]; exists && existing != t {
			return fmt.Errorf("%w: type name '%s' already bound to %s", shared.ErrAlreadyExists, name, existing)
		}
		r.byName[key] = t
	}
	return nil
}

// ResolveType returns the type registered under name
func (r *TypeRegistry) ResolveType(name string) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.byName[normalizeTypeName(name)]
	return t, ok
}

// Names returns all registered names, sorted
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalizeTypeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
