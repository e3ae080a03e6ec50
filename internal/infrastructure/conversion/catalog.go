// Package conversion implements the converter catalog: the registry of
// original converters and factories, the cache of composed (synthetic)
// converters with their dependency index, the negative cache and the path
// search that discovers converter chains.
package conversion

import (
	"cmp"
	"fmt"
	"reflect"
	"slices"
	"sync"
	"time"

	"github.com/erp/conversion/internal/domain/conversion"
	"github.com/erp/conversion/internal/domain/shared"
	"go.uber.org/zap"
)

// Lookup outcomes reported to the MetricsRecorder
const (
	OutcomeIdentity = "identity"
	OutcomeCached   = "cached"
	OutcomeNegative = "negative"
	OutcomeResolved = "resolved"
	OutcomeFactory  = "factory"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid"
)

// Invalidation kinds reported to the MetricsRecorder
const (
	InvalidatedSynthetic = "synthetic"
	InvalidatedNegative  = "negative"
)

// MetricsRecorder receives catalog events
type MetricsRecorder interface {
	RecordLookup(outcome string)
	RecordSearch(found bool, depth int, duration time.Duration)
	RecordInvalidation(kind string, count int)
}

type nopRecorder struct{}

func (nopRecorder) RecordLookup(string)                   {}
func (nopRecorder) RecordSearch(bool, int, time.Duration) {}
func (nopRecorder) RecordInvalidation(string, int)        {}

// CatalogConfig configures a Catalog. Zero values select the defaults.
type CatalogConfig struct {
	Logger                *zap.Logger
	MaxNestingDepth       int
	NegativeCacheCapacity int
	Metrics               MetricsRecorder
	// Resolver replaces the PathResolver, mainly for tests
	Resolver Resolver
}

// Catalog is the registry of converters between runtime types.
// It is safe for concurrent use.
type Catalog struct {
	mu           sync.RWMutex
	converters   map[conversion.ConverterType]*conversion.Converter
	dependencies map[conversion.ConverterType]map[conversion.ConverterType]struct{}
	factories    map[reflect.Type]conversion.Factory
	negative     *negativeCache
	edges        []Edge
	generation   uint64

	resolver        Resolver
	maxNestingDepth int
	logger          *zap.Logger
	metrics         MetricsRecorder
}

// NewCatalog creates an empty catalog
func NewCatalog(cfg CatalogConfig) *Catalog {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	depth := cfg.MaxNestingDepth
	if depth <= 0 {
		depth = DefaultMaxNestingDepth
	}
	metrics := cfg.Metrics
	if metrics == nil {
		metrics = nopRecorder{}
	}
	resolver := cfg.Resolver
	if resolver == nil {
		resolver = NewPathResolver(logger.Named("resolver"))
	}
	return &Catalog{
		converters:      make(map[conversion.ConverterType]*conversion.Converter),
		dependencies:    make(map[conversion.ConverterType]map[conversion.ConverterType]struct{}),
		factories:       make(map[reflect.Type]conversion.Factory),
		negative:        newNegativeCache(cfg.NegativeCacheCapacity),
		resolver:        resolver,
		maxNestingDepth: depth,
		logger:          logger,
		metrics:         metrics,
	}
}

// MaxNestingDepth returns the depth used when a lookup does not specify one
func (c *Catalog) MaxNestingDepth() int {
	return c.maxNestingDepth
}

// Register adds conv as an original converter from source to target,
// replacing any converter already registered for the pair.
func (c *Catalog) Register(conv *conversion.Converter, source, target reflect.Type) error {
	if conv == nil || source == nil || target == nil {
		return fmt.Errorf("%w: converter %s", conversion.ErrInvalidRegistration,
			conversion.NewConverterType(source, target))
	}
	key := conversion.NewConverterType(source, target)

	c.mu.Lock()
	defer c.mu.Unlock()

	invalidated := 0
	if previous, exists := c.converters[key]; exists && previous != conv {
		invalidated = c.invalidateLocked(key)
	}
	delete(c.dependencies, key)
	c.converters[key] = conv
	cleared := c.negative.reset()
	c.rebuildEdgesLocked()
	c.generation++

	c.recordInvalidation(invalidated, cleared)
	c.logger.Debug("Converter registered",
		zap.Stringer("type", key),
		zap.Int("priority", conv.Priority()),
		zap.Bool("possible_distortion", conv.PossibleDistortion()),
		zap.Int("invalidated_synthetic", invalidated),
		zap.Int("cleared_negative", cleared),
	)
	return nil
}

// MustRegister is like Register but panics on an invalid registration
func (c *Catalog) MustRegister(conv *conversion.Converter, source, target reflect.Type) {
	if err := c.Register(conv, source, target); err != nil {
		panic(err)
	}
}

// RegisterFunc registers a typed conversion function from S to T
func RegisterFunc[S, T any](c *Catalog, fn func(S, conversion.Hints) (T, error), opts ...conversion.Option) error {
	ct := conversion.TypeFor[S, T]()
	return c.Register(conversion.NewConverter(conversion.Typed(fn), opts...), ct.Source, ct.Target)
}

// Deregister removes the converter registered for the pair together with
// every synthetic converter composed from it
func (c *Catalog) Deregister(source, target reflect.Type) error {
	key := conversion.NewConverterType(source, target)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.converters[key]; !exists {
		return fmt.Errorf("%w: converter %s", shared.ErrNotFound, key)
	}
	_, synthetic := c.dependencies[key]
	delete(c.converters, key)
	delete(c.dependencies, key)
	invalidated := 0
	if !synthetic {
		invalidated = c.invalidateLocked(key)
		c.rebuildEdgesLocked()
	}
	c.generation++

	c.recordInvalidation(invalidated, 0)
	c.logger.Debug("Converter deregistered",
		zap.Stringer("type", key),
		zap.Bool("synthetic", synthetic),
		zap.Int("invalidated_synthetic", invalidated),
	)
	return nil
}

// RegisterFactory adds a factory under its declared source type
func (c *Catalog) RegisterFactory(f conversion.Factory) error {
	if f == nil || f.SourceType() == nil {
		return fmt.Errorf("%w: factory without source type", conversion.ErrInvalidRegistration)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.factories[f.SourceType()] = f
	cleared := c.negative.reset()
	c.generation++

	c.recordInvalidation(0, cleared)
	c.logger.Debug("Converter factory registered",
		zap.Stringer("source", f.SourceType()),
		zap.String("factory", fmt.Sprintf("%T", f)),
	)
	return nil
}

// DeregisterFactory removes the factory registered under source
func (c *Catalog) DeregisterFactory(source reflect.Type) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.factories[source]; !exists {
		return fmt.Errorf("%w: factory for %v", shared.ErrNotFound, source)
	}
	delete(c.factories, source)
	c.generation++
	return nil
}

// Has reports whether a converter, original or synthetic, is stored for exactly this pair
func (c *Catalog) Has(source, target reflect.Type) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	_, exists := c.converters[conversion.NewConverterType(source, target)]
	return exists
}

// Lookup returns a converter from source to target.
// A maxNestingDepth of zero or less uses the catalog default.
func (c *Catalog) Lookup(source, target reflect.Type, maxNestingDepth int) (*conversion.Converter, bool) {
	if source == nil || target == nil {
		c.metrics.RecordLookup(OutcomeInvalid)
		return nil, false
	}
	if source.AssignableTo(target) {
		c.metrics.RecordLookup(OutcomeIdentity)
		return conversion.Identity(), true
	}
	if maxNestingDepth <= 0 {
		maxNestingDepth = c.maxNestingDepth
	}
	key := conversion.NewConverterType(source, target)

	c.mu.RLock()
	if conv, exists := c.converters[key]; exists {
		c.mu.RUnlock()
		c.metrics.RecordLookup(OutcomeCached)
		return conv, true
	}
	if c.negative.covers(source, target, maxNestingDepth) {
		c.mu.RUnlock()
		// factory predicates do not follow assignability, so a broader
		// negative entry says nothing about them
		if conv, ok := c.fromFactory(source, target); ok {
			c.metrics.RecordLookup(OutcomeFactory)
			return conv, true
		}
		c.metrics.RecordLookup(OutcomeNegative)
		return nil, false
	}
	edges := c.edges
	generation := c.generation
	c.mu.RUnlock()

	started := time.Now()
	resolution, found := c.resolver.Resolve(source, target, edges, maxNestingDepth)
	c.metrics.RecordSearch(found, maxNestingDepth, time.Since(started))

	if found {
		c.storeResolution(key, resolution, generation)
		c.metrics.RecordLookup(OutcomeResolved)
		return resolution.Converter, true
	}

	if conv, ok := c.fromFactory(source, target); ok {
		c.metrics.RecordLookup(OutcomeFactory)
		return conv, true
	}

	c.mu.Lock()
	if c.generation == generation {
		c.negative.add(key, maxNestingDepth)
	}
	c.mu.Unlock()
	c.metrics.RecordLookup(OutcomeNotFound)
	return nil, false
}

func (c *Catalog) storeResolution(key conversion.ConverterType, resolution *Resolution, generation uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// the registry changed while searching; the result is still valid for this
	// caller but may be stale for the next one
	if c.generation != generation {
		return
	}
	deps := make(map[conversion.ConverterType]struct{}, len(resolution.Pipe))
	for _, t := range resolution.Pipe {
		deps[t] = struct{}{}
	}
	c.converters[key] = resolution.Converter
	c.dependencies[key] = deps
	c.negative.remove(key)
}

func (c *Catalog) fromFactory(source, target reflect.Type) (*conversion.Converter, bool) {
	c.mu.RLock()
	candidates := make([]conversion.Factory, 0, len(c.factories))
	exact, hasExact := c.factories[source]
	for key, f := range c.factories {
		if !hasExact || key != source {
			candidates = append(candidates, f)
		}
	}
	c.mu.RUnlock()

	slices.SortFunc(candidates, func(a, b conversion.Factory) int {
		return cmp.Compare(a.SourceType().String(), b.SourceType().String())
	})
	if hasExact {
		candidates = append([]conversion.Factory{exact}, candidates...)
	}

	for _, f := range candidates {
		if !f.SupportsSource(source) || !f.SupportsTarget(target) {
			continue
		}
		conv, err := f.Create(target, nil, true)
		if err != nil {
			c.logger.Debug("Converter factory declined",
				zap.Stringer("source", source),
				zap.Stringer("target", target),
				zap.Error(err),
			)
			continue
		}
		if conv != nil {
			return conv, true
		}
	}
	return nil, false
}

// invalidateLocked removes every synthetic converter composed from edge
func (c *Catalog) invalidateLocked(edge conversion.ConverterType) int {
	removed := 0
	for key, deps := range c.dependencies {
		if _, uses := deps[edge]; !uses {
			continue
		}
		delete(c.converters, key)
		delete(c.dependencies, key)
		removed++
	}
	return removed
}

func (c *Catalog) rebuildEdgesLocked() {
	edges := make([]Edge, 0, len(c.converters))
	for key, conv := range c.converters {
		if _, synthetic := c.dependencies[key]; synthetic {
			continue
		}
		edges = append(edges, Edge{Type: key, Converter: conv})
	}
	sortEdges(edges)
	c.edges = edges
}

func (c *Catalog) recordInvalidation(synthetic, negative int) {
	if synthetic > 0 {
		c.metrics.RecordInvalidation(InvalidatedSynthetic, synthetic)
	}
	if negative > 0 {
		c.metrics.RecordInvalidation(InvalidatedNegative, negative)
	}
}

// Entry describes one stored converter
type Entry struct {
	Type               conversion.ConverterType
	Synthetic          bool
	NestingDepth       int
	Priority           int
	PossibleDistortion bool
	FailOnError        bool
	// DependsOn lists the original edges a synthetic converter was composed from
	DependsOn []conversion.ConverterType
}

// Entries returns all stored converters ordered by type name
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entries := make([]Entry, 0, len(c.converters))
	for key, conv := range c.converters {
		entry := Entry{
			Type:               key,
			NestingDepth:       conv.NestingDepth(),
			Priority:           conv.Priority(),
			PossibleDistortion: conv.PossibleDistortion(),
			FailOnError:        conv.FailOnError(),
		}
		if deps, synthetic := c.dependencies[key]; synthetic {
			entry.Synthetic = true
			for dep := range deps {
				entry.DependsOn = append(entry.DependsOn, dep)
			}
			slices.SortFunc(entry.DependsOn, compareTypes)
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return compareTypes(a.Type, b.Type)
	})
	return entries
}

func compareTypes(a, b conversion.ConverterType) int {
	return cmp.Compare(a.String(), b.String())
}

// Stats summarizes the catalog state
type Stats struct {
	Originals int `json:"originals"`
	Synthetic int `json:"synthetic"`
	Negative  int `json:"negative"`
	Factories int `json:"factories"`
}

// Stats returns the current catalog counters
func (c *Catalog) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Stats{
		Originals: len(c.converters) - len(c.dependencies),
		Synthetic: len(c.dependencies),
		Negative:  c.negative.size(),
		Factories: len(c.factories),
	}
}
