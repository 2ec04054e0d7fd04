package engine

import (
	"fmt"
	"strings"

	"github.com/omniql-engine/esql/internal/schema"
)

// hrow is one grouping key's accumulator state: the grouping tuple
// itself plus a lazily-populated map of descriptor key to
// Accumulator. A descriptor absent from acc has never been touched,
// and that absence IS the "uninitialised" state spec §4.4 describes,
// for both group-specific and (in principle) global descriptors.
type hrow struct {
	key []schema.Value
	acc map[string]*Accumulator
}

// hrows is an insertion-ordered map of grouping key to *hrow. Plain Go
// maps don't preserve insertion order, and spec §8's determinism
// property ("byte-identical output across repeated runs when
// order_by_depth is 0") requires H-rows to surface in first-seen
// order whenever no explicit ORDER BY reorders them.
type hrows struct {
	order []string
	index map[string]*hrow
}

func newHRows() *hrows {
	return &hrows{index: make(map[string]*hrow)}
}

func (h *hrows) getOrCreate(encodedKey string, key []schema.Value) *hrow {
	if r, ok := h.index[encodedKey]; ok {
		return r
	}
	r := &hrow{key: key, acc: make(map[string]*Accumulator)}
	h.index[encodedKey] = r
	h.order = append(h.order, encodedKey)
	return r
}

func (h *hrows) get(encodedKey string) (*hrow, bool) {
	r, ok := h.index[encodedKey]
	return r, ok
}

func (h *hrows) ordered() []*hrow {
	out := make([]*hrow, 0, len(h.order))
	for _, k := range h.order {
		out = append(out, h.index[k])
	}
	return out
}

// encodeKey builds a map key for a grouping tuple, tagging each value
// with its logical type so values of different types that happen to
// render identically never collide.
func encodeKey(values []schema.Value) string {
	var b strings.Builder
	for i, v := range values {
		if i > 0 {
			b.WriteByte(0x1f) // unit separator
		}
		fmt.Fprintf(&b, "%d:%s", v.Type, v.String())
	}
	return b.String()
}
