package match

import (
	"github.com/npillmayer/graphite/code"
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/segment"
)

// RuleID identifies one rule within a pass; tie-breaking among candidate
// rules at an accepting state prefers the lowest SortKey, and the lowest id
// only among rules sharing a SortKey.
type RuleID int

// Rule is a (constraint, action) byte-code pair guarded by the matcher.
type Rule struct {
	ID       RuleID
	SortKey  int
	Constraint *code.Program
	Action     *code.Program
}

// Table is one pass's compiled matcher: a transition table over a class
// table, a start state, and the rule set to try when an accepting state is
// reached.
type Table struct {
	Classes     *ClassTable
	Transitions [][]int16 // Transitions[state][class] -> next state, -1 = dead
	Start       int16
	Accepting   map[int16][]RuleID
	Rules       map[RuleID]*Rule

	Precontext  int // slots required to exist before the match start
	Postcontext int // slots required to exist after the match end

	// OutputClasses holds, for a class id also present in Classes, the
	// ordered glyph list PUT_GLYPH_FROM_CLASS substitutes into: a glyph at
	// position i in Classes.Members(id) is replaced by OutputClasses[id][i].
	OutputClasses map[int16][]fontdata.GlyphID
}

// ClassGlyph implements the vm.Context.ClassGlyph hook: locate g's position
// among class's input members and substitute the glyph at the same
// position in class's output members, leaving g unchanged if either side
// has no entry.
func (t *Table) ClassGlyph(class int32, g fontdata.GlyphID) fontdata.GlyphID {
	members := t.Classes.Members(int16(class))
	output := t.OutputClasses[int16(class)]
	for i, m := range members {
		if m == g {
			if i < len(output) {
				return output[i]
			}
			return g
		}
	}
	return g
}

// Frame is the input frame the matcher hands to the pass driver: the first
// and last slot of the matched region.
type Frame struct {
	Start, End segment.Handle
}

func countBack(seg *segment.Segment, from segment.Handle, n int) bool {
	h := from
	for i := 0; i < n; i++ {
		h = seg.Prev(h)
		if h.IsNil() {
			return false
		}
	}
	return true
}

func countForward(seg *segment.Segment, from segment.Handle, n int) bool {
	h := from
	for i := 0; i < n; i++ {
		h = seg.Next(h)
		if h.IsNil() {
			return false
		}
	}
	return true
}

// Match attempts one rule match starting at cursor, walking forward through
// the transition table and enforcing precontext and postcontext before
// accepting. It returns the matched frame and the winning candidate rule
// (see lowest), or ok=false if no accepting state was reached with
// satisfied context.
func (t *Table) Match(seg *segment.Segment, cursor segment.Handle) (Frame, *Rule, bool) {
	if cursor.IsNil() {
		return Frame{}, nil, false
	}
	if !countBack(seg, cursor, t.Precontext) {
		return Frame{}, nil, false
	}

	state := t.Start
	cur := cursor
	for !cur.IsNil() {
		if int(state) < 0 || int(state) >= len(t.Transitions) {
			return Frame{}, nil, false
		}
		cls := t.Classes.Class(seg.Glyph(cur))
		if int(cls) < 0 || int(cls) >= len(t.Transitions[state]) {
			return Frame{}, nil, false
		}
		next := t.Transitions[state][cls]
		if next < 0 {
			return Frame{}, nil, false
		}
		state = next

		if rules, ok := t.Accepting[state]; ok && len(rules) > 0 {
			if countForward(seg, cur, t.Postcontext) {
				best := t.lowest(rules)
				return Frame{Start: cursor, End: cur}, t.Rules[best], true
			}
		}
		cur = seg.Next(cur)
	}
	return Frame{}, nil, false
}

// lowest picks the winning rule among several simultaneously accepting at
// one state: the declared SortKey decides first, RuleID only breaks ties
// between rules sharing a SortKey.
func (t *Table) lowest(ids []RuleID) RuleID {
	best := ids[0]
	for _, id := range ids[1:] {
		bestKey, idKey := t.Rules[best].SortKey, t.Rules[id].SortKey
		if idKey < bestKey || (idKey == bestKey && id < best) {
			best = id
		}
	}
	return best
}
