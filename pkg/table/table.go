package table

// TableSize is the number of slots of the prefix index, one per uint16 hash.
const TableSize = 1 << 16

// PrefixTable maps short byte keys, such as file signatures, to values and
// finds every stored key that is a prefix of a given input in a single pass
// over the input.
//
// Prefixes are hashed incrementally with h = h<<2 + b, so only the first
// eight bytes of a key fully contribute to its slot; longer keys still work
// but may share slots.
type PrefixTable[T any] struct {
	// index marks, for each hashed prefix, whether it is unknown, the
	// prefix of a longer key, or a key itself.
	index [TableSize]byte
	elems map[string]T
}

const (
	none = iota
	prefixMarker
	keyMarker
)

func New[T any]() *PrefixTable[T] {
	return &PrefixTable[T]{
		elems: make(map[string]T),
	}
}

// Insert stores v under key, replacing any previous value.
func (t *PrefixTable[T]) Insert(key []byte, v T) {
	var h uint16
	for _, b := range key {
		h = (h << 2) + uint16(b)
		t.index[h] = max(t.index[h], prefixMarker)
	}
	t.index[h] = keyMarker
	t.elems[string(key)] = v
}

func (t *PrefixTable[T]) Get(key []byte) (T, bool) {
	v, found := t.elems[string(key)]
	return v, found
}

// Walk calls onMatch, shortest first, for each stored key that is a prefix
// of input. It stops when onMatch returns true or when no stored key can
// extend the bytes consumed so far.
func (t *PrefixTable[T]) Walk(input []byte, onMatch func(T) bool) {
	var h uint16
	for i, b := range input {
		h = (h << 2) + uint16(b)

		switch t.index[h] {
		case none:
			return
		case keyMarker:
			// a hash slot can be shared, confirm the exact key
			if v, ok := t.elems[string(input[:i+1])]; ok && onMatch(v) {
				return
			}
		}
	}
}

// Size returns the number of stored keys.
func (t *PrefixTable[T]) Size() int {
	return len(t.elems)
}
