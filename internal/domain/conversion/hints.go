package conversion

import (
	"reflect"
	"time"

	"github.com/spf13/cast"
)

// Recognized hint keys. Converters ignore hints they do not consume.
const (
	// HintMaxNestingDepth overrides the maximum length of a composed converter chain
	HintMaxNestingDepth = "max-nesting-depth"
	// HintDateFormatPattern is a Go time layout used by temporal converters
	HintDateFormatPattern = "date-format-pattern"
	// HintDateFormatter is a pre-built DateFormatter; it wins over HintDateFormatPattern
	HintDateFormatter = "date-formatter"
	// HintZoneID is an IANA zone name or a *time.Location
	HintZoneID = "zone-id"
	// HintClassLoader is a TypeResolver used to turn type names into reflect.Type values
	HintClassLoader = "class-loader"
)

// DateFormatter formats and parses time values
type DateFormatter interface {
	Format(t time.Time) string
	Parse(value string) (time.Time, error)
}

// TypeResolver resolves a type name into a reflect.Type
type TypeResolver interface {
	ResolveType(name string) (reflect.Type, bool)
}

// Hints carries optional named parameters for a conversion call
type Hints map[string]any

// Get returns the raw hint value
func (h Hints) Get(key string) (any, bool) {
	if h == nil {
		return nil, false
	}
	v, ok := h[key]
	return v, ok
}

// Int returns the hint as an int, or def if absent or not numeric
func (h Hints) Int(key string, def int) int {
	v, ok := h.Get(key)
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return n
}

// String returns the hint as a string, or def if absent or empty
func (h Hints) String(key string, def string) string {
	v, ok := h.Get(key)
	if !ok || v == nil {
		return def
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return def
	}
	return s
}

// MaxNestingDepth returns the max-nesting-depth hint, or def when unset or not positive
func (h Hints) MaxNestingDepth(def int) int {
	if n := h.Int(HintMaxNestingDepth, def); n > 0 {
		return n
	}
	return def
}

// Location resolves the zone-id hint. It returns def when the hint is absent.
func (h Hints) Location(def *time.Location) (*time.Location, error) {
	v, ok := h.Get(HintZoneID)
	if !ok || v == nil {
		return def, nil
	}
	if loc, ok := v.(*time.Location); ok {
		return loc, nil
	}
	name, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return def, nil
	}
	return time.LoadLocation(name)
}

// DateFormatter returns the date-formatter hint when present
func (h Hints) DateFormatter() (DateFormatter, bool) {
	v, ok := h.Get(HintDateFormatter)
	if !ok {
		return nil, false
	}
	f, ok := v.(DateFormatter)
	return f, ok
}

// TypeResolver returns the class-loader hint when present
func (h Hints) TypeResolver() (TypeResolver, bool) {
	v, ok := h.Get(HintClassLoader)
	if !ok {
		return nil, false
	}
	r, ok := v.(TypeResolver)
	return r, ok
}

// LayoutFormatter is a DateFormatter backed by a Go time layout
type LayoutFormatter struct {
	Layout   string
	Location *time.Location
}

// Format formats t using the layout in the formatter's location
func (f LayoutFormatter) Format(t time.Time) string {
	if f.Location != nil {
		t = t.In(f.Location)
	}
	return t.Format(f.Layout)
}

// Parse parses value using the layout; values without zone information are
// interpreted in the formatter's location.
func (f LayoutFormatter) Parse(value string) (time.Time, error) {
	if f.Location != nil {
		return time.ParseInLocation(f.Layout, value, f.Location)
	}
	return time.Parse(f.Layout, value)
}
