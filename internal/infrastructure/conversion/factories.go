package conversion

import (
	"fmt"
	"math"
	"reflect"
	"strings"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/domain/shared"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// enumValidator is implemented by named string types with a closed value set
type enumValidator interface {
	IsValid() bool
}

var enumValidatorType = reflect.TypeFor[enumValidator]()

// EnumFactory creates converters from strings into named string types such as
//
//	type Status string
//
// When the target implements IsValid() bool, the value is checked and retried
// in upper, lower and title case before the conversion fails.
type EnumFactory struct{}

// NewEnumFactory creates an EnumFactory
func NewEnumFactory() *EnumFactory {
	return &EnumFactory{}
}

// SourceType returns string
func (f *EnumFactory) SourceType() reflect.Type {
	return reflect.TypeFor[string]()
}

// SupportsSource accepts any type whose underlying type is string
func (f *EnumFactory) SupportsSource(source reflect.Type) bool {
	return source != nil && source.Kind() == reflect.String
}

// SupportsTarget accepts named string types other than string itself
func (f *EnumFactory) SupportsTarget(target reflect.Type) bool {
	return target != nil && target.Kind() == reflect.String && target.PkgPath() != ""
}

// Create builds a converter into target
func (f *EnumFactory) Create(target reflect.Type, defaultValue any, failOnError bool) (*conversion.Converter, error) {
	if !f.SupportsTarget(target) {
		return nil, fmt.Errorf("%w: %v is not a named string type", shared.ErrInvalidInput, target)
	}
	validated := target.Implements(enumValidatorType) || reflect.PointerTo(target).Implements(enumValidatorType)

	fn := func(value any, _ conversion.Hints) (any, error) {
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || rv.Kind() != reflect.String {
			return nil, fmt.Errorf("%w: expected a string, got %T", shared.ErrConverterFailed, value)
		}
		raw := rv.String()
		if !validated {
			return newEnumValue(target, raw).Interface(), nil
		}
		for _, candidate := range enumCandidates(raw) {
			out := newEnumValue(target, candidate)
			if isValidEnum(out) {
				return out.Interface(), nil
			}
		}
		return nil, fmt.Errorf("%w: '%s' is not a valid %s", shared.ErrConverterFailed, raw, target)
	}
	return conversion.NewConverter(fn, policy(defaultValue, failOnError)...), nil
}

func newEnumValue(target reflect.Type, s string) reflect.Value {
	v := reflect.New(target).Elem()
	v.SetString(s)
	return v
}

func isValidEnum(v reflect.Value) bool {
	if ev, ok := v.Interface().(enumValidator); ok {
		return ev.IsValid()
	}
	ptr := reflect.New(v.Type())
	ptr.Elem().Set(v)
	if ev, ok := ptr.Interface().(enumValidator); ok {
		return ev.IsValid()
	}
	return false
}

// enumCandidates returns the spellings tried against IsValid, in order.
// Casers are not safe for concurrent use, so new ones are built per call.
func enumCandidates(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	all := []string{
		raw,
		trimmed,
		cases.Upper(language.Und).String(trimmed),
		cases.Lower(language.Und).String(trimmed),
		cases.Title(language.Und).String(trimmed),
	}
	out := make([]string, 0, len(all))
	seen := make(map[string]struct{}, len(all))
	for _, s := range all {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// NumericKindFactory creates converters between numeric kinds and named
// numeric types such as
//
//	type Quantity int64
//
// Values that do not fit the target kind are rejected.
type NumericKindFactory struct{}

// NewNumericKindFactory creates a NumericKindFactory
func NewNumericKindFactory() *NumericKindFactory {
	return &NumericKindFactory{}
}

// SourceType returns the empty interface: every numeric kind is accepted
func (f *NumericKindFactory) SourceType() reflect.Type {
	return reflect.TypeFor[any]()
}

// SupportsSource accepts any numeric kind
func (f *NumericKindFactory) SupportsSource(source reflect.Type) bool {
	return source != nil && isNumericKind(source.Kind())
}

// SupportsTarget accepts named numeric types
func (f *NumericKindFactory) SupportsTarget(target reflect.Type) bool {
	return target != nil && isNumericKind(target.Kind()) && target.PkgPath() != ""
}

// Create builds a converter into target
func (f *NumericKindFactory) Create(target reflect.Type, defaultValue any, failOnError bool) (*conversion.Converter, error) {
	if !f.SupportsTarget(target) {
		return nil, fmt.Errorf("%w: %v is not a named numeric type", shared.ErrInvalidInput, target)
	}

	fn := func(value any, _ conversion.Hints) (any, error) {
		rv := reflect.ValueOf(value)
		if !rv.IsValid() || !isNumericKind(rv.Kind()) {
			return nil, fmt.Errorf("%w: expected a number, got %T", shared.ErrConverterFailed, value)
		}
		if !fitsKind(rv, target) {
			return nil, fmt.Errorf("%w: %v overflows %s", shared.ErrConverterFailed, value, target)
		}
		return rv.Convert(target).Interface(), nil
	}
	opts := append(policy(defaultValue, failOnError), conversion.WithDistortion())
	return conversion.NewConverter(fn, opts...), nil
}

func policy(defaultValue any, failOnError bool) []conversion.Option {
	if failOnError {
		return nil
	}
	return []conversion.Option{conversion.WithDefault(defaultValue)}
}

func isNumericKind(k reflect.Kind) bool {
	return isIntKind(k) || isUintKind(k) || isFloatKind(k)
}

func isIntKind(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUintKind(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloatKind(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

// fitsKind reports whether v can be represented by target without overflow.
// Fractions are truncated when converting floats to integers.
func fitsKind(v reflect.Value, target reflect.Type) bool {
	out := reflect.New(target).Elem()
	switch {
	case isIntKind(target.Kind()):
		switch {
		case isIntKind(v.Kind()):
			return !out.OverflowInt(v.Int())
		case isUintKind(v.Kind()):
			return v.Uint() <= math.MaxInt64 && !out.OverflowInt(int64(v.Uint()))
		default:
			f := v.Float()
			return f >= math.MinInt64 && f < math.MaxInt64 && !out.OverflowInt(int64(f))
		}
	case isUintKind(target.Kind()):
		switch {
		case isIntKind(v.Kind()):
			return v.Int() >= 0 && !out.OverflowUint(uint64(v.Int()))
		case isUintKind(v.Kind()):
			return !out.OverflowUint(v.Uint())
		default:
			f := v.Float()
			return f >= 0 && f < math.MaxUint64 && !out.OverflowUint(uint64(f))
		}
	default:
		switch {
		case isIntKind(v.Kind()):
			return !out.OverflowFloat(float64(v.Int()))
		case isUintKind(v.Kind()):
			return !out.OverflowFloat(float64(v.Uint()))
		default:
			return !out.OverflowFloat(v.Float())
		}
	}
}
