package conversion

import (
	"reflect"

	"github.com/erp/conversion/internal/domain/shared"
)

// ErrInvalidRegistration is returned when a converter cannot be registered
// because its converter or declared types are missing.
var ErrInvalidRegistration = shared.NewDomainError("INVALID_REGISTRATION", "Converter registration requires a converter and both types")

// ErrNotConvertible is matched by every ConversionError
var ErrNotConvertible = shared.ErrNotConvertible

// ConversionError is returned when no converter, composed chain, factory or
// string fallback can convert a value of Source into Target.
type ConversionError struct {
	Source reflect.Type
	Target reflect.Type
}

// NewConversionError creates a ConversionError for the given pair
func NewConversionError(source, target reflect.Type) *ConversionError {
	return &ConversionError{Source: source, Target: target}
}

// Error implements the error interface
func (e *ConversionError) Error() string {
	return "cannot convert " + typeName(e.Source) + " to " + typeName(e.Target)
}

// Unwrap allows errors.Is(err, ErrNotConvertible)
func (e *ConversionError) Unwrap() error {
	return shared.ErrNotConvertible
}

// SourceName returns the source type name
func (e *ConversionError) SourceName() string { return typeName(e.Source) }

// TargetName returns the target type name
func (e *ConversionError) TargetName() string { return typeName(e.Target) }
