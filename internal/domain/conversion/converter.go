package conversion

import (
	"fmt"
	"reflect"

	"github.com/erp/conversion/internal/domain/shared"
)

// Func converts a single value. Implementations must be safe for concurrent use.
type Func func(value any, hints Hints) (any, error)

// Converter is an immutable unit conversion with its metadata.
//
// A Converter with FailOnError()==false never returns an error from Convert:
// any failure yields the configured default value instead.
type Converter struct {
	fn           Func
	priority     int
	nestingDepth int
	distortion   bool
	failOnError  bool
	defaultValue any
}

// Option configures a Converter at construction time
type Option func(*Converter)

// WithPriority sets the converter priority (lower sorts first)
func WithPriority(priority int) Option {
	return func(c *Converter) {
		c.priority = priority
	}
}

// WithDistortion marks the conversion as possibly losing information
func WithDistortion() Option {
	return func(c *Converter) {
		c.distortion = true
	}
}

// WithDefault makes the converter return value instead of failing
func WithDefault(value any) Option {
	return func(c *Converter) {
		c.failOnError = false
		c.defaultValue = value
	}
}

// NewConverter creates an original (non-composed) converter
func NewConverter(fn Func, opts ...Option) *Converter {
	c := &Converter{
		fn:           fn,
		nestingDepth: 1,
		failOnError:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Typed adapts a strongly typed conversion function into a Func.
// S may be an interface type; any value implementing it is accepted.
func Typed[S, T any](fn func(S, Hints) (T, error)) Func {
	return func(value any, hints Hints) (any, error) {
		s, ok := value.(S)
		if !ok {
			return nil, fmt.Errorf("%w: expected %s, got %T",
				shared.ErrConverterFailed, reflect.TypeFor[S](), value)
		}
		out, err := fn(s, hints)
		if err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Convert applies the converter to value.
// Panics raised by the conversion function are returned as errors.
func (c *Converter) Convert(value any, hints Hints) (any, error) {
	out, err := c.invoke(value, hints)
	if err != nil {
		if !c.failOnError {
			return c.defaultValue, nil
		}
		return nil, err
	}
	return out, nil
}

func (c *Converter) invoke(value any, hints Hints) (out any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = fmt.Errorf("%w: panic: %v", shared.ErrConverterFailed, rec)
		}
	}()
	return c.fn(value, hints)
}

// Priority returns the converter priority
func (c *Converter) Priority() int { return c.priority }

// NestingDepth returns 1 for original converters and the chain length for composed ones
func (c *Converter) NestingDepth() int { return c.nestingDepth }

// PossibleDistortion reports whether the conversion may lose information
func (c *Converter) PossibleDistortion() bool { return c.distortion }

// FailOnError reports whether failures are returned (true) or replaced by the default value
func (c *Converter) FailOnError() bool { return c.failOnError }

// DefaultValue returns the value used when FailOnError is false
func (c *Converter) DefaultValue() any { return c.defaultValue }

// IsComposed reports whether the converter is a chain of other converters
func (c *Converter) IsComposed() bool { return c.nestingDepth > 1 }

var identity = &Converter{
	fn: func(value any, _ Hints) (any, error) {
		return value, nil
	},
	failOnError: true,
}

// Identity returns the shared pass-through converter
func Identity() *Converter {
	return identity
}

// Compose chains steps in order: the output of step i feeds step i+1.
// Each step keeps its own failure policy.
func Compose(steps ...*Converter) *Converter {
	chain := make([]*Converter, len(steps))
	copy(chain, steps)

	c := &Converter{failOnError: true}
	for _, step := range chain {
		c.priority += step.priority
		c.nestingDepth += step.nestingDepth
		c.distortion = c.distortion || step.distortion
	}
	c.fn = func(value any, hints Hints) (any, error) {
		current := value
		for _, step := range chain {
			out, err := step.Convert(current, hints)
			if err != nil {
				return nil, err
			}
			current = out
		}
		return current, nil
	}
	return c
}
