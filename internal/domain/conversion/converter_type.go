// Package conversion holds the domain model of the object conversion engine:
// conversion edges, unit converters, converter factories and hints.
//
// A ConverterType names one edge of the conversion graph by its exact source and
// target types. Equality is type identity; assignability only enters through
// Matches, the single matching predicate used by catalog lookups, the negative
// cache and the path search alike.
package conversion

import (
	"reflect"
)

// ConverterType identifies a conversion edge (Source -> Target).
// It is comparable and used directly as a map key.
type ConverterType struct {
	Source reflect.Type
	Target reflect.Type
}

// NewConverterType creates a ConverterType for the given source and target types
func NewConverterType(source, target reflect.Type) ConverterType {
	return ConverterType{Source: source, Target: target}
}

// TypeFor returns the ConverterType for the type parameters S and T
func TypeFor[S, T any]() ConverterType {
	return ConverterType{Source: reflect.TypeFor[S](), Target: reflect.TypeFor[T]()}
}

// IsValid returns true if both ends of the edge are known
func (t ConverterType) IsValid() bool {
	return t.Source != nil && t.Target != nil
}

// String returns a readable representation, e.g. "int -> string"
func (t ConverterType) String() string {
	return typeName(t.Source) + " -> " + typeName(t.Target)
}

// Matches reports whether this edge can serve a request to convert a value of
// type source into a value usable as target.
//
// The edge output must be assignable to the requested target and the requested
// source must be assignable to the edge input.
func (t ConverterType) Matches(source, target reflect.Type) bool {
	return t.SourceMatches(source) && t.TargetMatches(target)
}

// SourceMatches reports whether the edge accepts values of type source
func (t ConverterType) SourceMatches(source reflect.Type) bool {
	if t.Source == nil || source == nil {
		return false
	}
	return source.AssignableTo(t.Source)
}

// TargetMatches reports whether the edge produces values usable as target
func (t ConverterType) TargetMatches(target reflect.Type) bool {
	if t.Target == nil || target == nil {
		return false
	}
	return t.Target.AssignableTo(target)
}

// IsIdentity reports whether values of the source type can be used as the
// target type without any conversion.
func (t ConverterType) IsIdentity() bool {
	return t.IsValid() && t.Source.AssignableTo(t.Target)
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
