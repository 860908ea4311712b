package util

// BiMap is a bidirectional map between two comparable types.  It is intended
// for the fixed enumeration tables used during translation (storage classes to
// address spaces, comparison opcodes to predicates, builtin opcodes to names,
// etc.) where lookups are needed in both directions.  Entries are inserted
// pairwise; when several keys map to the same value, the first insertion wins
// the reverse direction.
type BiMap[K comparable, V comparable] struct {
	forward map[K]V
	reverse map[V]K
}

// NewBiMap creates a bidirectional map from a forward entry table.  Iteration
// order over a Go map is unspecified, so tables with many-to-one entries must
// use Add to fix which key owns the reverse mapping.
func NewBiMap[K comparable, V comparable](entries map[K]V) *BiMap[K, V] {
	bm := &BiMap[K, V]{
		forward: make(map[K]V, len(entries)),
		reverse: make(map[V]K, len(entries)),
	}

	for k, v := range entries {
		bm.Add(k, v)
	}

	return bm
}

// Add inserts a single pair.  It returns the map to allow chained table
// construction.
func (bm *BiMap[K, V]) Add(k K, v V) *BiMap[K, V] {
	bm.forward[k] = v

	if _, ok := bm.reverse[v]; !ok {
		bm.reverse[v] = k
	}

	return bm
}

// Map performs a forward lookup.
func (bm *BiMap[K, V]) Map(k K) (V, bool) {
	v, ok := bm.forward[k]
	return v, ok
}

// RMap performs a reverse lookup.
func (bm *BiMap[K, V]) RMap(v V) (K, bool) {
	k, ok := bm.reverse[v]
	return k, ok
}

// MustMap performs a forward lookup of a key that is known to be present.  It
// returns the zero value if the key is absent; callers that need to detect
// absence use Map.
func (bm *BiMap[K, V]) MustMap(k K) V {
	return bm.forward[k]
}

// MustRMap is the reverse-direction counterpart of MustMap.
func (bm *BiMap[K, V]) MustRMap(v V) K {
	return bm.reverse[v]
}

// -----------------------------------------------------------------------------

// MapBitMask remaps a bitmask through the map: every key whose bit is set in
// the input mask contributes its mapped value to the output mask.  Keys and
// values must be single-bit flags for the remapping to be meaningful.
func MapBitMask[K ~uint32, V ~uint32](bm *BiMap[K, V], mask K) V {
	var out V

	for k, v := range bm.forward {
		if mask&k != 0 {
			out |= v
		}
	}

	return out
}

// RMapBitMask remaps a bitmask through the reverse direction of the map.
func RMapBitMask[K ~uint32, V ~uint32](bm *BiMap[K, V], mask V) K {
	var out K

	for v, k := range bm.reverse {
		if mask&v != 0 {
			out |= k
		}
	}

	return out
}
