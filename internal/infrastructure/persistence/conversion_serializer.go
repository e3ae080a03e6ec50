package persistence

import (
	"context"
	"fmt"
	"reflect"

	"github.com/erp/conversion/internal/domain/conversion"
	"gorm.io/gorm/schema"
)

// ConversionSerializerName is the name used in `gorm:"serializer:conversion"` tags
const ConversionSerializerName = "conversion"

var stringType = reflect.TypeFor[string]()

// ValueConverter converts values into runtime types
type ValueConverter interface {
	ConvertTo(value any, target reflect.Type, hints conversion.Hints) (any, error)
}

// ConversionSerializer stores a field as its string form and scans it back
// into the field's type through the conversion engine.
// Pointer fields store NULL for nil.
type ConversionSerializer struct {
	converter ValueConverter
	hints     conversion.Hints
}

// NewConversionSerializer creates a serializer using converter and hints for every field
func NewConversionSerializer(converter ValueConverter, hints conversion.Hints) *ConversionSerializer {
	return &ConversionSerializer{converter: converter, hints: hints}
}

// RegisterConversionSerializer makes the serializer available to gorm models.
// It must run before the first model using it is parsed.
func RegisterConversionSerializer(converter ValueConverter, hints conversion.Hints) *ConversionSerializer {
	s := NewConversionSerializer(converter, hints)
	schema.RegisterSerializer(ConversionSerializerName, s)
	return s
}

// Scan implements schema.SerializerInterface
func (s *ConversionSerializer) Scan(ctx context.Context, field *schema.Field, dst reflect.Value, dbValue any) error {
	if dbValue == nil {
		return nil
	}

	var text string
	switch v := dbValue.(type) {
	case []byte:
		text = string(v)
	case string:
		text = v
	default:
		text = fmt.Sprint(v)
	}

	target := field.FieldType
	pointer := target.Kind() == reflect.Pointer
	if pointer {
		target = target.Elem()
	}

	out, err := s.converter.ConvertTo(text, target, s.hints)
	if err != nil {
		return fmt.Errorf("scan column %s into %s: %w", field.DBName, target, err)
	}
	if out == nil {
		return nil
	}

	value := reflect.ValueOf(out)
	if value.Type() != target {
		if !value.Type().ConvertibleTo(target) {
			return fmt.Errorf("scan column %s into %s: converter returned %s", field.DBName, target, value.Type())
		}
		value = value.Convert(target)
	}
	if pointer {
		ptr := reflect.New(target)
		ptr.Elem().Set(value)
		value = ptr
	}
	field.ReflectValueOf(ctx, dst).Set(value)
	return nil
}

// Value implements schema.SerializerValuerInterface
func (s *ConversionSerializer) Value(ctx context.Context, field *schema.Field, dst reflect.Value, fieldValue any) (any, error) {
	if fieldValue == nil {
		return nil, nil
	}
	if rv := reflect.ValueOf(fieldValue); rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil, nil
		}
		fieldValue = rv.Elem().Interface()
	}

	out, err := s.converter.ConvertTo(fieldValue, stringType, s.hints)
	if err != nil {
		return nil, fmt.Errorf("store column %s: %w", field.DBName, err)
	}
	return out, nil
}
