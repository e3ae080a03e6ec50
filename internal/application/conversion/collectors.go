package conversion

import (
	"fmt"
	"iter"
	"reflect"

	"github.com/erp/conversion/internal/domain/conversion"
)

// Collector receives converted elements
type Collector[T any] interface {
	Add(item T)
}

// List collects elements in order
type List[T any] []T

// Add appends item
func (l *List[T]) Add(item T) {
	*l = append(*l, item)
}

// Set collects distinct elements
type Set[T comparable] map[T]struct{}

// Add inserts item
func (s Set[T]) Add(item T) {
	s[item] = struct{}{}
}

// Contains reports whether item was collected
func (s Set[T]) Contains(item T) bool {
	_, ok := s[item]
	return ok
}

// NewList returns an empty List, for use as a collection constructor
func NewList[T any]() *List[T] {
	return &List[T]{}
}

// NewSet returns an empty Set, for use as a collection constructor
func NewSet[T comparable]() Set[T] {
	return Set[T]{}
}

// ConvertToCollection converts value into a collection of T built by newCollection.
//
// value may be nil (empty collection), a slice or array, an iter.Seq of any
// element type, a pull iterator func() (any, bool), or any other single value.
func ConvertToCollection[T any, C Collector[T]](s *Service, value any, newCollection func() C, hints conversion.Hints) (C, error) {
	collection := newCollection()
	i := 0
	for item, err := range ConvertIterable[T](s, Elements(value), hints) {
		if err != nil {
			var zero C
			return zero, fmt.Errorf("element %d: %w", i, err)
		}
		collection.Add(item)
		i++
	}
	return collection, nil
}

// ConvertToSlice converts value into a []T, accepting the same inputs as ConvertToCollection
func ConvertToSlice[T any](s *Service, value any, hints conversion.Hints) ([]T, error) {
	list, err := ConvertToCollection[T](s, value, NewList[T], hints)
	if err != nil {
		return nil, err
	}
	return []T(*list), nil
}

// Elements returns the elements of value as a sequence.
// Slices, arrays and typed sequences such as slices.Values yield their
// elements, pull iterators are drained, nil is empty and anything else is a
// single element.
func Elements(value any) iter.Seq[any] {
	switch v := value.(type) {
	case nil:
		return func(func(any) bool) {}
	case iter.Seq[any]:
		return v
	case func(func(any) bool):
		return v
	case func() (any, bool):
		return func(yield func(any) bool) {
			for {
				item, ok := v()
				if !ok || !yield(item) {
					return
				}
			}
		}
	}

	rv := reflect.ValueOf(value)
	switch {
	case rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array:
		return func(yield func(any) bool) {
			for i := range rv.Len() {
				if !yield(rv.Index(i).Interface()) {
					return
				}
			}
		}
	case rv.Kind() == reflect.Func && rv.Type().CanSeq():
		if rv.IsNil() {
			return func(func(any) bool) {}
		}
		return func(yield func(any) bool) {
			for item := range rv.Seq() {
				if !yield(item.Interface()) {
					return
				}
			}
		}
	}
	return func(yield func(any) bool) {
		yield(value)
	}
}
