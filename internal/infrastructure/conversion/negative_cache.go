package conversion

import (
	"reflect"

	"github.com/erp/conversion/internal/domain/conversion"
)

// DefaultNegativeCacheCapacity bounds the number of unresolvable pairs remembered
const DefaultNegativeCacheCapacity = 128

// negativeCache remembers pairs for which no converter could be found, together
// with the nesting depth that was searched. It is not safe for concurrent use;
// the Catalog guards it with its own lock.
//
// Inserting beyond capacity evicts one arbitrary entry.
type negativeCache struct {
	capacity int
	entries  map[conversion.ConverterType]int
}

func newNegativeCache(capacity int) *negativeCache {
	if capacity <= 0 {
		capacity = DefaultNegativeCacheCapacity
	}
	return &negativeCache{
		capacity: capacity,
		entries:  make(map[conversion.ConverterType]int, capacity),
	}
}

// covers reports whether a stored entry proves that (source, target) cannot be
// resolved within depth.
//
// A stored pair (ns, nt) covers the request when ns is assignable to source and
// target is assignable to nt: every path able to serve the request would also
// serve the stored pair, which was already searched without success. Factory
// predicates do not follow assignability, so a covered request still goes to
// the factories.
func (n *negativeCache) covers(source, target reflect.Type, depth int) bool {
	request := conversion.NewConverterType(source, target)
	if searched, ok := n.entries[request]; ok {
		return depth <= searched
	}
	for stored, searched := range n.entries {
		if depth <= searched && request.Matches(stored.Source, stored.Target) {
			return true
		}
	}
	return false
}

func (n *negativeCache) add(key conversion.ConverterType, depth int) {
	if searched, ok := n.entries[key]; ok {
		n.entries[key] = max(searched, depth)
		return
	}
	if len(n.entries) >= n.capacity {
		for evict := range n.entries {
			delete(n.entries, evict)
			break
		}
	}
	n.entries[key] = depth
}

func (n *negativeCache) remove(key conversion.ConverterType) {
	delete(n.entries, key)
}

func (n *negativeCache) reset() int {
	cleared := len(n.entries)
	clear(n.entries)
	return cleared
}

func (n *negativeCache) size() int {
	return len(n.entries)
}
