package conversion

import "reflect"

// Factory generates converters for open-ended families of target types.
// The catalog consults factories only after the direct and composed searches fail,
// and never caches their output.
type Factory interface {
	// SourceType is the declared source type the factory is registered under
	SourceType() reflect.Type
	// SupportsSource reports whether values of the given type are accepted
	SupportsSource(source reflect.Type) bool
	// SupportsTarget reports whether converters to the given type can be created
	SupportsTarget(target reflect.Type) bool
	// Create builds a converter to target
	Create(target reflect.Type, defaultValue any, failOnError bool) (*Converter, error)
}
