// Package conversion is the entry point for converting values between runtime
// types. It applies converters found in the catalog to single values, lazy
// sequences, slices and collections.
package conversion

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/domain/shared"
	"go.uber.org/zap"
)

// Conversion outcomes reported to the Recorder
const (
	OutcomeIdentity  = "identity"
	OutcomeConverted = "converted"
	OutcomeFallback  = "string_fallback"
	OutcomeFailed    = "failed"
)

var stringType = reflect.TypeFor[string]()

// ConverterLookup resolves converters between runtime types
type ConverterLookup interface {
	Lookup(source, target reflect.Type, maxNestingDepth int) (*conversion.Converter, bool)
}

// Recorder receives conversion outcomes
type Recorder interface {
	RecordConversion(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordConversion(string) {}

// Service converts values using converters from a ConverterLookup
type Service struct {
	lookup          ConverterLookup
	maxNestingDepth int
	logger          *zap.Logger
	metrics         Recorder
}

// Option configures a Service
type Option func(*Service)

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMaxNestingDepth sets the depth used when hints do not override it.
// Zero leaves the choice to the lookup.
func WithMaxNestingDepth(depth int) Option {
	return func(s *Service) {
		s.maxNestingDepth = depth
	}
}

// WithRecorder sets the metrics recorder
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		if r != nil {
			s.metrics = r
		}
	}
}

// NewService creates a new conversion service
func NewService(lookup ConverterLookup, opts ...Option) *Service {
	s := &Service{
		lookup:  lookup,
		logger:  zap.NewNop(),
		metrics: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// plan is the resolved way of converting one source type into the target
type plan struct {
	source    reflect.Type
	target    reflect.Type
	converter *conversion.Converter
	identity  bool
	viaString bool
}

func (s *Service) resolve(source, target reflect.Type, hints conversion.Hints) plan {
	p := plan{source: source, target: target}
	if source.AssignableTo(target) {
		p.identity = true
		return p
	}

	depth := hints.MaxNestingDepth(s.maxNestingDepth)
	if conv, found := s.lookup.Lookup(source, target, depth); found {
		p.converter = conv
		return p
	}

	// last resort: convert the value's string form
	if source != stringType && hasStringForm(source) {
		if conv, found := s.lookup.Lookup(stringType, target, depth); found {
			s.logger.Warn("Converting through string representation",
				zap.Stringer("source", source),
				zap.Stringer("target", target),
			)
			p.converter = conv
			p.viaString = true
		}
	}
	return p
}

// hasStringForm reports whether fmt.Sprint of a source value describes the
// value rather than its address
func hasStringForm(source reflect.Type) bool {
	switch source.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return false
	}
	return true
}

func (s *Service) apply(p plan, value any, hints conversion.Hints) (any, error) {
	switch {
	case p.identity:
		s.metrics.RecordConversion(OutcomeIdentity)
		return value, nil
	case p.converter == nil:
		s.metrics.RecordConversion(OutcomeFailed)
		return nil, conversion.NewConversionError(p.source, p.target)
	case p.viaString:
		s.metrics.RecordConversion(OutcomeFallback)
		return p.converter.Convert(fmt.Sprint(value), hints)
	default:
		s.metrics.RecordConversion(OutcomeConverted)
		return p.converter.Convert(value, hints)
	}
}

// ConvertTo converts value into target.
//
// A nil value converts to nil. A value already assignable to target is
// returned unchanged without consulting the catalog. When no converter exists
// for the value's runtime type, a converter from string is applied to the
// value's string form. Otherwise a *conversion.ConversionError is returned.
func (s *Service) ConvertTo(value any, target reflect.Type, hints conversion.Hints) (any, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target type is required", shared.ErrInvalidInput)
	}
	if value == nil {
		return nil, nil
	}
	return s.apply(s.resolve(reflect.TypeOf(value), target, hints), value, hints)
}

// ConvertSeq lazily converts every element of values into target.
// The converter is resolved again only when an element's runtime type differs
// from the previous element's.
func (s *Service) ConvertSeq(values iter.Seq[any], target reflect.Type, hints conversion.Hints) iter.Seq2[any, error] {
	return func(yield func(any, error) bool) {
		if target == nil {
			yield(nil, fmt.Errorf("%w: target type is required", shared.ErrInvalidInput))
			return
		}
		var current *plan
		for value := range values {
			if value == nil {
				if !yield(nil, nil) {
					return
				}
				continue
			}
			source := reflect.TypeOf(value)
			if current == nil || current.source != source {
				p := s.resolve(source, target, hints)
				current = &p
			}
			if !yield(s.apply(*current, value, hints)) {
				return
			}
		}
	}
}

// Convert converts value into T
func Convert[T any](s *Service, value any, hints conversion.Hints) (T, error) {
	var zero T
	out, err := s.ConvertTo(value, reflect.TypeFor[T](), hints)
	if err != nil || out == nil {
		return zero, err
	}
	return as[T](out)
}

// ConvertIterable lazily converts every element of values into T
func ConvertIterable[T any](s *Service, values iter.Seq[any], hints conversion.Hints) iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		for out, err := range s.ConvertSeq(values, reflect.TypeFor[T](), hints) {
			var item T
			if err == nil && out != nil {
				item, err = as[T](out)
			}
			if !yield(item, err) {
				return
			}
		}
	}
}

func as[T any](out any) (T, error) {
	item, ok := out.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("%w: converter produced %T, expected %s",
			shared.ErrConverterFailed, out, reflect.TypeFor[T]())
	}
	return item, nil
}
