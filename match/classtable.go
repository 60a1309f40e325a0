// Package match implements the per-pass finite-state rule matcher (spec
// a class table maps a slot's glyph id to a column, and a transition
// table walks the slot stream to find candidate rule firings.
//
// Grounded on ot/parse_lookup_gsub.go's chaining-context matcher, which
// solves the same shape of problem for OpenType GSUB lookups — a
// backtrack/input/lookahead context window around a matched sequence is
// the same idea as Graphite's precontext/postcontext around a matched
// input frame.
package match

import (
	"sort"

	"github.com/npillmayer/graphite/fontdata"
)

// Range maps a contiguous glyph-id range to one class id, used for the
// sparse portion of a ClassTable ("binary-searched ranges for sparse ids").
type Range struct {
	Start, End fontdata.GlyphID
	Class      int16
}

// ClassTable maps a pass's glyph ids to the transition-table column they
// occupy: a dense array for small ids, and sorted ranges (binary search)
// for the rest.
type ClassTable struct {
	dense  []int16 // dense[g] is the class of glyph id g, for g < len(dense)
	ranges []Range
}

// NewClassTable builds a table from a dense prefix and a set of sparse
// ranges. Ranges must not overlap; the caller (the Silf class-table reader)
// is responsible for that invariant.
func NewClassTable(dense []int16, ranges []Range) *ClassTable {
	sorted := append([]Range(nil), ranges...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })
	return &ClassTable{dense: dense, ranges: sorted}
}

// Members enumerates, in ascending glyph-id order, every glyph this table
// assigns to class id. Enumeration walks the dense prefix and expands the
// sparse ranges directly; acceptable here since class definitions in
// practice cover at most a few hundred glyphs, and Members is only called
// from PUT_GLYPH_FROM_CLASS, never the matcher's hot path.
func (c *ClassTable) Members(class int16) []fontdata.GlyphID {
	var out []fontdata.GlyphID
	for g, cl := range c.dense {
		if cl == class {
			out = append(out, fontdata.GlyphID(g))
		}
	}
	for _, r := range c.ranges {
		if r.Class != class {
			continue
		}
		for g := r.Start; g <= r.End; g++ {
			out = append(out, g)
			if g == r.End {
				break // guards against End == max GlyphID wrapping to 0
			}
		}
	}
	return out
}

// Class returns g's class id for this table, or -1 if g is unmapped.
func (c *ClassTable) Class(g fontdata.GlyphID) int16 {
	if int(g) < len(c.dense) {
		if cl := c.dense[g]; cl != 0 {
			return cl
		}
	}
	i := sort.Search(len(c.ranges), func(i int) bool { return c.ranges[i].End >= g })
	if i < len(c.ranges) && c.ranges[i].Start <= g && g <= c.ranges[i].End {
		return c.ranges[i].Class
	}
	if int(g) < len(c.dense) {
		return c.dense[g]
	}
	return -1
}
