package match

import (
	"testing"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSimpleTable recognizes glyph class 1 followed by class 2, with no
// pre/postcontext, firing rule 5.
func buildSimpleTable() *Table {
	classes := NewClassTable([]int16{0, 1, 2}, nil) // glyph 1 -> class 1, glyph 2 -> class 2
	transitions := [][]int16{
		0: {-1, 1, -1}, // start: class1 -> state1
		1: {-1, -1, 2}, // state1: class2 -> state2 (accepting)
	}
	return &Table{
		Classes:     classes,
		Transitions: transitions,
		Start:       0,
		Accepting:   map[int16][]RuleID{2: {5}},
		Rules:       map[RuleID]*Rule{5: {ID: 5}},
	}
}

func TestMatchFindsAcceptingState(t *testing.T) {
	seg := segment.New(2, 0)
	h0 := seg.SeedSlot(0, fontdata.GlyphID(1))
	seg.SeedSlot(1, fontdata.GlyphID(2))

	tbl := buildSimpleTable()
	frame, rule, ok := tbl.Match(seg, h0)
	require.True(t, ok)
	assert.Equal(t, RuleID(5), rule.ID)
	assert.Equal(t, h0, frame.Start)
	assert.Equal(t, seg.Next(h0), frame.End)
}

func TestMatchFailsWithoutSecondGlyph(t *testing.T) {
	seg := segment.New(1, 0)
	h0 := seg.SeedSlot(0, fontdata.GlyphID(1))

	tbl := buildSimpleTable()
	_, _, ok := tbl.Match(seg, h0)
	assert.False(t, ok)
}

func TestMatchEnforcesPrecontext(t *testing.T) {
	seg := segment.New(2, 0)
	h0 := seg.SeedSlot(0, fontdata.GlyphID(1))
	h1 := seg.SeedSlot(1, fontdata.GlyphID(2))

	tbl := buildSimpleTable()
	tbl.Precontext = 1
	_, _, ok := tbl.Match(seg, h0) // no slot before h0
	assert.False(t, ok)

	_, _, ok = tbl.Match(seg, h1)
	assert.False(t, ok) // h1's class doesn't start the automaton
}

// TestMatchPrefersLowerSortKeyOverRuleID checks that two rules accepting at
// the same state are resolved by SortKey, not by load-order RuleID: rule 9
// has the lower SortKey and wins despite its higher id.
func TestMatchPrefersLowerSortKeyOverRuleID(t *testing.T) {
	seg := segment.New(2, 0)
	h0 := seg.SeedSlot(0, fontdata.GlyphID(1))
	seg.SeedSlot(1, fontdata.GlyphID(2))

	tbl := buildSimpleTable()
	tbl.Accepting[2] = []RuleID{5, 9}
	tbl.Rules[5] = &Rule{ID: 5, SortKey: 10}
	tbl.Rules[9] = &Rule{ID: 9, SortKey: 1}

	_, rule, ok := tbl.Match(seg, h0)
	require.True(t, ok)
	assert.Equal(t, RuleID(9), rule.ID)
}

// TestMatchBreaksEqualSortKeyByRuleID checks the fallback: equal SortKeys
// resolve to the lowest RuleID.
func TestMatchBreaksEqualSortKeyByRuleID(t *testing.T) {
	seg := segment.New(2, 0)
	h0 := seg.SeedSlot(0, fontdata.GlyphID(1))
	seg.SeedSlot(1, fontdata.GlyphID(2))

	tbl := buildSimpleTable()
	tbl.Accepting[2] = []RuleID{9, 5}
	tbl.Rules[5] = &Rule{ID: 5, SortKey: 1}
	tbl.Rules[9] = &Rule{ID: 9, SortKey: 1}

	_, rule, ok := tbl.Match(seg, h0)
	require.True(t, ok)
	assert.Equal(t, RuleID(5), rule.ID)
}

func TestClassTableMembersEnumeratesDenseAndRanges(t *testing.T) {
	classes := NewClassTable([]int16{0, 1, 2}, []Range{{Start: 100, End: 102, Class: 1}})
	members := classes.Members(1)
	assert.Contains(t, members, fontdata.GlyphID(1))
	assert.Contains(t, members, fontdata.GlyphID(100))
	assert.Contains(t, members, fontdata.GlyphID(101))
	assert.Contains(t, members, fontdata.GlyphID(102))
	assert.Len(t, members, 4)
}

func TestClassGlyphSubstitutesByPosition(t *testing.T) {
	tbl := &Table{
		Classes: NewClassTable([]int16{0, 1, 1, 1}, nil), // glyphs 1,2,3 all class 1
		OutputClasses: map[int16][]fontdata.GlyphID{
			1: {10, 20, 30},
		},
	}
	assert.Equal(t, fontdata.GlyphID(10), tbl.ClassGlyph(1, 1))
	assert.Equal(t, fontdata.GlyphID(20), tbl.ClassGlyph(1, 2))
	assert.Equal(t, fontdata.GlyphID(30), tbl.ClassGlyph(1, 3))
}

func TestClassGlyphLeavesGlyphUnchangedWhenUnmapped(t *testing.T) {
	tbl := &Table{
		Classes:       NewClassTable([]int16{0, 1}, nil),
		OutputClasses: map[int16][]fontdata.GlyphID{},
	}
	assert.Equal(t, fontdata.GlyphID(1), tbl.ClassGlyph(1, 1))  // no output class at all
	assert.Equal(t, fontdata.GlyphID(99), tbl.ClassGlyph(2, 99)) // glyph not a class member
}
