package conversion

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

// Priorities of the built-in converters. Lower wins ties between equally scored pipes.
const (
	PriorityNumeric = 0
	PriorityText    = 5
	PriorityGeneric = 10
)

// DefaultsConfig configures the built-in converters
type DefaultsConfig struct {
	// DateFormatPattern is the Go time layout used when no hint is given
	DateFormatPattern string
	// Location is used when no zone-id hint is given
	Location *time.Location
	// Types resolves type names when no class-loader hint is given
	Types conversion.TypeResolver
}

func (d DefaultsConfig) withDefaults() DefaultsConfig {
	if d.DateFormatPattern == "" {
		d.DateFormatPattern = time.RFC3339
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Types == nil {
		d.Types = NewTypeRegistryWithDefaults()
	}
	return d
}

type number interface {
	int | int32 | int64 | uint64 | float32 | float64
}

// registration collects the first error of a sequence of registrations
type registration struct {
	catalog *Catalog
	count   int
	err     error
}

func register[S, T any](r *registration, fn func(S, conversion.Hints) (T, error), opts ...conversion.Option) {
	if r.err != nil {
		return
	}
	if err := RegisterFunc(r.catalog, fn, opts...); err != nil {
		r.err = err
		return
	}
	r.count++
}

// RegisterDefaults registers the built-in converters and factories
func RegisterDefaults(c *Catalog, cfg DefaultsConfig) error {
	cfg = cfg.withDefaults()
	r := &registration{catalog: c}

	registerNumeric(r)
	registerText(r)
	registerTemporal(r, cfg)
	registerDecimal(r)
	registerUUID(r)
	registerTypes(r, cfg)
	if r.err != nil {
		return fmt.Errorf("register default converters: %w", r.err)
	}

	for _, f := range []conversion.Factory{NewEnumFactory(), NewNumericKindFactory()} {
		if err := c.RegisterFactory(f); err != nil {
			return fmt.Errorf("register default factories: %w", err)
		}
	}

	c.logger.Info("Default converters registered",
		zap.Int("converters", r.count),
		zap.Int("factories", 2),
		zap.String("date_format_pattern", cfg.DateFormatPattern),
		zap.String("zone_id", cfg.Location.String()),
	)
	return nil
}

func numberConverter[S, T number](lossy bool) func(*registration) {
	return func(r *registration) {
		opts := []conversion.Option{conversion.WithPriority(PriorityNumeric)}
		if lossy {
			opts = append(opts, conversion.WithDistortion())
		}
		register(r, func(s S, _ conversion.Hints) (T, error) {
			return T(s), nil
		}, opts...)
	}
}

func numberText[T number](r *registration) {
	register(r, func(n T, _ conversion.Hints) (string, error) {
		return cast.ToStringE(n)
	}, conversion.WithPriority(PriorityText))
	register(r, parseNumber[T], conversion.WithPriority(PriorityText))
}

func parseNumber[T number](s string, _ conversion.Hints) (T, error) {
	s = strings.TrimSpace(s)
	var zero T
	switch any(zero).(type) {
	case int:
		n, err := strconv.ParseInt(s, 10, 0)
		return T(n), err
	case int32:
		n, err := strconv.ParseInt(s, 10, 32)
		return T(n), err
	case int64:
		n, err := strconv.ParseInt(s, 10, 64)
		return T(n), err
	case uint64:
		n, err := strconv.ParseUint(s, 10, 64)
		return T(n), err
	case float32:
		f, err := strconv.ParseFloat(s, 32)
		return T(f), err
	default:
		f, err := strconv.ParseFloat(s, 64)
		return T(f), err
	}
}

func registerNumeric(r *registration) {
	for _, reg := range []func(*registration){
		numberConverter[int, int32](true),
		numberConverter[int, int64](false),
		numberConverter[int, uint64](true),
		numberConverter[int, float32](true),
		numberConverter[int, float64](true),

		numberConverter[int32, int](false),
		numberConverter[int32, int64](false),
		numberConverter[int32, uint64](true),
		numberConverter[int32, float32](true),
		numberConverter[int32, float64](false),

		numberConverter[int64, int](false),
		numberConverter[int64, int32](true),
		numberConverter[int64, uint64](true),
		numberConverter[int64, float32](true),
		numberConverter[int64, float64](true),

		numberConverter[uint64, int](true),
		numberConverter[uint64, int32](true),
		numberConverter[uint64, int64](true),
		numberConverter[uint64, float32](true),
		numberConverter[uint64, float64](true),

		numberConverter[float32, int](true),
		numberConverter[float32, int32](true),
		numberConverter[float32, int64](true),
		numberConverter[float32, uint64](true),
		numberConverter[float32, float64](false),

		numberConverter[float64, int](true),
		numberConverter[float64, int32](true),
		numberConverter[float64, int64](true),
		numberConverter[float64, uint64](true),
		numberConverter[float64, float32](true),
	} {
		reg(r)
	}

	numberText[int](r)
	numberText[int32](r)
	numberText[int64](r)
	numberText[uint64](r)
	numberText[float32](r)
	numberText[float64](r)
}

func registerText(r *registration) {
	register(r, func(b bool, _ conversion.Hints) (string, error) {
		return strconv.FormatBool(b), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(s string, _ conversion.Hints) (bool, error) {
		return strconv.ParseBool(strings.TrimSpace(s))
	}, conversion.WithPriority(PriorityText))
	register(r, func(b []byte, _ conversion.Hints) (string, error) {
		return string(b), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(s string, _ conversion.Hints) ([]byte, error) {
		return []byte(s), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(s fmt.Stringer, _ conversion.Hints) (string, error) {
		return s.String(), nil
	}, conversion.WithPriority(PriorityGeneric))
}

func registerTemporal(r *registration, cfg DefaultsConfig) {
	formatter := func(h conversion.Hints) (conversion.DateFormatter, error) {
		if f, ok := h.DateFormatter(); ok {
			return f, nil
		}
		loc, err := h.Location(cfg.Location)
		if err != nil {
			return nil, err
		}
		return conversion.LayoutFormatter{
			Layout:   h.String(conversion.HintDateFormatPattern, cfg.DateFormatPattern),
			Location: loc,
		}, nil
	}

	register(r, func(s string, h conversion.Hints) (time.Time, error) {
		f, err := formatter(h)
		if err != nil {
			return time.Time{}, err
		}
		return f.Parse(strings.TrimSpace(s))
	}, conversion.WithPriority(PriorityText))
	register(r, func(t time.Time, h conversion.Hints) (string, error) {
		f, err := formatter(h)
		if err != nil {
			return "", err
		}
		return f.Format(t), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(t time.Time, _ conversion.Hints) (int64, error) {
		return t.UnixMilli(), nil
	})
	register(r, func(ms int64, h conversion.Hints) (time.Time, error) {
		loc, err := h.Location(cfg.Location)
		if err != nil {
			return time.Time{}, err
		}
		return time.UnixMilli(ms).In(loc), nil
	})
	register(r, func(d time.Duration, _ conversion.Hints) (string, error) {
		return d.String(), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(s string, _ conversion.Hints) (time.Duration, error) {
		return time.ParseDuration(strings.TrimSpace(s))
	}, conversion.WithPriority(PriorityText))
	register(r, func(d time.Duration, _ conversion.Hints) (int64, error) {
		return int64(d), nil
	})
	register(r, func(n int64, _ conversion.Hints) (time.Duration, error) {
		return time.Duration(n), nil
	})
}

func registerDecimal(r *registration) {
	register(r, func(n int64, _ conversion.Hints) (decimal.Decimal, error) {
		return decimal.NewFromInt(n), nil
	})
	register(r, func(d decimal.Decimal, _ conversion.Hints) (int64, error) {
		return d.IntPart(), nil
	}, conversion.WithDistortion())
	register(r, func(f float64, _ conversion.Hints) (decimal.Decimal, error) {
		return decimal.NewFromFloat(f), nil
	})
	register(r, func(d decimal.Decimal, _ conversion.Hints) (float64, error) {
		return d.InexactFloat64(), nil
	}, conversion.WithDistortion())
	register(r, func(s string, _ conversion.Hints) (decimal.Decimal, error) {
		return decimal.NewFromString(strings.TrimSpace(s))
	}, conversion.WithPriority(PriorityText))
	register(r, func(d decimal.Decimal, _ conversion.Hints) (string, error) {
		return d.String(), nil
	}, conversion.WithPriority(PriorityText))
}

func registerUUID(r *registration) {
	register(r, func(s string, _ conversion.Hints) (uuid.UUID, error) {
		return uuid.Parse(strings.TrimSpace(s))
	}, conversion.WithPriority(PriorityText))
	register(r, func(id uuid.UUID, _ conversion.Hints) (string, error) {
		return id.String(), nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(id uuid.UUID, _ conversion.Hints) ([]byte, error) {
		return id.MarshalBinary()
	}, conversion.WithPriority(PriorityText))
	register(r, func(b []byte, _ conversion.Hints) (uuid.UUID, error) {
		return uuid.FromBytes(b)
	}, conversion.WithPriority(PriorityText))
}

func registerTypes(r *registration, cfg DefaultsConfig) {
	register(r, func(name string, h conversion.Hints) (reflect.Type, error) {
		resolver := cfg.Types
		if hinted, ok := h.TypeResolver(); ok {
			resolver = hinted
		}
		t, ok := resolver.ResolveType(name)
		if !ok {
			return nil, fmt.Errorf("%w: unknown type '%s'", shared.ErrNotFound, name)
		}
		return t, nil
	}, conversion.WithPriority(PriorityText))
	register(r, func(t reflect.Type, _ conversion.Hints) (string, error) {
		return t.String(), nil
	}, conversion.WithPriority(PriorityText))
}
