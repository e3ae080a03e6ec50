package conversion

import (
	"cmp"
	"reflect"
	"slices"

	"github.com/erp/conversion/internal/domain/conversion"
	"go.uber.org/zap"
)

// DefaultMaxNestingDepth is the longest converter chain searched when neither
// the catalog configuration nor the caller's hints say otherwise
const DefaultMaxNestingDepth = 3

const (
	lossyEdgeWeight    = 13
	losslessEdgeWeight = 3
)

// Edge is an original converter registered under its declared type pair
type Edge struct {
	Type      conversion.ConverterType
	Converter *conversion.Converter
}

// Resolution is a successful path search
type Resolution struct {
	Converter *conversion.Converter
	// Pipe lists the edges used, in source to target order
	Pipe []conversion.ConverterType
}

// Resolver finds a converter chain for a pair with no direct edge
type Resolver interface {
	Resolve(source, target reflect.Type, edges []Edge, maxNestingDepth int) (*Resolution, bool)
}

// PathResolver searches backwards from the target over original edges and
// composes the best pipe it finds within the nesting depth bound.
type PathResolver struct {
	logger *zap.Logger
}

// NewPathResolver creates a PathResolver. A nil logger disables search logging.
func NewPathResolver(logger *zap.Logger) *PathResolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PathResolver{logger: logger}
}

// pipe holds edges in discovery order: the edge producing the target first,
// the edge accepting the source last.
type pipe []Edge

func (p pipe) tail() Edge {
	return p[len(p)-1]
}

func (p pipe) contains(t conversion.ConverterType) bool {
	for _, e := range p {
		if e.Type == t {
			return true
		}
	}
	return false
}

func (p pipe) extend(e Edge) pipe {
	next := make(pipe, len(p), len(p)+1)
	copy(next, p)
	return append(next, e)
}

// score favours short pipes and pipes without lossy edges
func (p pipe) score() int {
	weight := 0
	for _, e := range p {
		if e.Converter.PossibleDistortion() {
			weight += lossyEdgeWeight
		} else {
			weight += losslessEdgeWeight
		}
	}
	return weight * len(p)
}

func (p pipe) priority() int {
	total := 0
	for _, e := range p {
		total += e.Converter.Priority()
	}
	return total
}

// types returns the pipe in source to target order
func (p pipe) types() []conversion.ConverterType {
	out := make([]conversion.ConverterType, len(p))
	for i, e := range p {
		out[len(p)-1-i] = e.Type
	}
	return out
}

func (p pipe) compose() *conversion.Converter {
	if len(p) == 1 {
		return p[0].Converter
	}
	steps := make([]*conversion.Converter, len(p))
	for i, e := range p {
		steps[len(p)-1-i] = e.Converter
	}
	return conversion.Compose(steps...)
}

func pipeNames(types []conversion.ConverterType) []string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.String()
	}
	return names
}

// Resolve searches edges for a pipe converting source into target using at
// most maxNestingDepth edges. Edges are expected in a deterministic order.
func (r *PathResolver) Resolve(source, target reflect.Type, edges []Edge, maxNestingDepth int) (*Resolution, bool) {
	if maxNestingDepth <= 0 {
		maxNestingDepth = DefaultMaxNestingDepth
	}
	request := conversion.NewConverterType(source, target)

	acceptsSource, producesTarget := false, false
	for _, e := range edges {
		acceptsSource = acceptsSource || e.Type.SourceMatches(source)
		producesTarget = producesTarget || e.Type.TargetMatches(target)
	}
	if !acceptsSource || !producesTarget {
		r.logger.Debug("Converter path search rejected",
			zap.Stringer("request", request),
			zap.Bool("source_accepted", acceptsSource),
			zap.Bool("target_produced", producesTarget),
		)
		return nil, false
	}

	budget := maxNestingDepth
	var queue, matched []pipe
	for _, e := range edges {
		if !e.Type.TargetMatches(target) {
			continue
		}
		seed := pipe{e}
		if e.Type.SourceMatches(source) {
			matched = append(matched, seed)
			budget = 1
			continue
		}
		queue = append(queue, seed)
	}

	broken := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if len(current) >= budget {
			continue
		}

		tail := current.tail()
		viable := false
		for _, candidate := range edges {
			if current.contains(candidate.Type) || !candidate.Type.TargetMatches(tail.Type.Source) {
				continue
			}
			next := current.extend(candidate)
			if candidate.Type.SourceMatches(source) {
				matched = append(matched, next)
				budget = min(budget, len(next))
				viable = true
				continue
			}
			if len(next) < budget {
				queue = append(queue, next)
				viable = true
			}
		}
		if !viable {
			broken++
		}
	}

	if len(matched) == 0 {
		r.logger.Debug("Converter path not found",
			zap.Stringer("request", request),
			zap.Int("max_nesting_depth", maxNestingDepth),
			zap.Int("broken_pipes", broken),
		)
		return nil, false
	}

	best := matched[0]
	for _, candidate := range matched[1:] {
		if better(candidate, best) {
			best = candidate
		}
	}

	resolution := &Resolution{Converter: best.compose(), Pipe: best.types()}
	r.logger.Debug("Converter path found",
		zap.Stringer("request", request),
		zap.Int("max_nesting_depth", maxNestingDepth),
		zap.Int("matched_pipes", len(matched)),
		zap.Int("broken_pipes", broken),
		zap.Int("score", best.score()),
		zap.Strings("pipe", pipeNames(resolution.Pipe)),
	)
	return resolution, true
}

// better reports whether a strictly beats b; ties keep the pipe found first
func better(a, b pipe) bool {
	if sa, sb := a.score(), b.score(); sa != sb {
		return sa < sb
	}
	return a.priority() < b.priority()
}

// sortEdges orders edges by priority then by type name so searches are repeatable
func sortEdges(edges []Edge) {
	slices.SortStableFunc(edges, func(a, b Edge) int {
		if c := cmp.Compare(a.Converter.Priority(), b.Converter.Priority()); c != 0 {
			return c
		}
		return cmp.Compare(a.Type.String(), b.Type.String())
	})
}
