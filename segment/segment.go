package segment

import "github.com/npillmayer/graphite/fontdata"

// CharInfo is the per-input-character metadata the segment maintains
// alongside the slot list.
type CharInfo struct {
	Unicode     rune
	BreakWeight int16
	Before      Handle // first slot claiming this input index
	After       Handle // last slot claiming this input index
}

// Segment is the mutable, per-shape result: a doubly-linked sequence of
// slots with stable identity under insertion and deletion, plus
// per-character metadata and a scratch pool of retired slots for O(1)
// recycling.
type Segment struct {
	slots    []slot
	freeList []int32

	first, last int32 // pool indices, -1 = empty
	nSlots      int

	charInfo   []CharInfo
	nUserAttrs int

	// Status carries the most recent non-finished VM/pass outcome, for
	// callers and tests to inspect after shaping.
	Status string

	// Advance is the segment's total advance, computed by positioning;
	// clamped to be non-negative.
	Advance float64

	// RightToLeft mirrors the pass-level directionality flag: when set,
	// positioning reverses pen-advance direction only.
	RightToLeft bool
}

// New creates an empty segment sized for nChars input characters, each slot
// carrying nUserAttrs user-attribute cells (spec: "fixed for the lifetime of
// a segment").
func New(nChars, nUserAttrs int) *Segment {
	return &Segment{
		first:      -1,
		last:       -1,
		charInfo:   make([]CharInfo, nChars),
		nUserAttrs: nUserAttrs,
	}
}

func (s *Segment) at(h Handle) *slot {
	sl := s.mustAt(h)
	return sl
}

// mustAt resolves a handle to its backing slot. A stale or out-of-range
// handle (one naming a recycled or never-allocated pool entry) returns a
// throwaway zero slot rather than panicking, so that a dangling reference
// from a buggy rule program degrades to a no-op instead of crashing the
// shaping call.
func (s *Segment) mustAt(h Handle) *slot {
	if h.idx < 0 || int(h.idx) >= len(s.slots) || s.slots[h.idx].gen != h.gen || !s.slots[h.idx].alive {
		return &slot{prev: -1, next: -1, attachTo: NilHandle}
	}
	return &s.slots[h.idx]
}

func (s *Segment) handleOf(idx int32) Handle {
	if idx < 0 {
		return NilHandle
	}
	return Handle{idx: idx, gen: s.slots[idx].gen}
}

// FirstSlot and LastSlot are the segment's iteration endpoints.
func (s *Segment) FirstSlot() Handle { return s.handleOf(s.first) }
func (s *Segment) LastSlot() Handle  { return s.handleOf(s.last) }

// Next and Prev walk the slot sequence; NilHandle marks either end.
func (s *Segment) Next(h Handle) Handle {
	if h.IsNil() {
		return NilHandle
	}
	return s.handleOf(s.mustAt(h).next)
}

func (s *Segment) Prev(h Handle) Handle {
	if h.IsNil() {
		return NilHandle
	}
	return s.handleOf(s.mustAt(h).prev)
}

// NSlots returns the current number of live slots.
func (s *Segment) NSlots() int { return s.nSlots }

// NCharInfo returns the number of input characters tracked.
func (s *Segment) NCharInfo() int { return len(s.charInfo) }

// CharInfoAt returns the per-character metadata for input index i.
func (s *Segment) CharInfoAt(i int) CharInfo {
	if i < 0 || i >= len(s.charInfo) {
		return CharInfo{}
	}
	return s.charInfo[i]
}

func (s *Segment) allocSlot() int32 {
	if n := len(s.freeList); n > 0 {
		idx := s.freeList[n-1]
		s.freeList = s.freeList[:n-1]
		gen := s.slots[idx].gen + 1
		s.slots[idx] = slot{gen: gen, alive: true, prev: -1, next: -1, attachTo: NilHandle, userAttrs: make([]int16, s.nUserAttrs)}
		return idx
	}
	s.slots = append(s.slots, slot{gen: 1, alive: true, prev: -1, next: -1, attachTo: NilHandle, userAttrs: make([]int16, s.nUserAttrs)})
	return int32(len(s.slots) - 1)
}

// SeedSlot appends a new root slot at the tail of the sequence during
// initial segment construction, claiming input index `original` with
// cluster span [original,original] and glyph id g.
func (s *Segment) SeedSlot(original int, g fontdata.GlyphID) Handle {
	idx := s.allocSlot()
	sl := &s.slots[idx]
	sl.glyph = g
	sl.original = original
	sl.before = original
	sl.after = original
	sl.prev = s.last
	sl.next = -1
	if s.last >= 0 {
		s.slots[s.last].next = idx
	} else {
		s.first = idx
	}
	s.last = idx
	s.nSlots++
	h := s.handleOf(idx)
	if original >= 0 && original < len(s.charInfo) {
		s.charInfo[original].Before = h
		s.charInfo[original].After = h
	}
	return h
}

// InsertBefore splices a new slot immediately before cursor (cursor may be
// NilHandle to append at the tail), used only by the VM's INSERT opcode.
// The new slot inherits cursor's cluster membership so before/after spans
// stay consistent until the rule program's writes settle.
func (s *Segment) InsertBefore(cursor Handle, g fontdata.GlyphID) Handle {
	idx := s.allocSlot()
	sl := &s.slots[idx]
	sl.glyph = g
	sl.canInsertBefore = true

	var before, after int32 = -1, -1
	if cursor.IsNil() {
		before = s.last
	} else {
		c := s.mustAt(cursor)
		sl.original = c.original
		sl.before = c.before
		sl.after = c.after
		before = c.prev
		after = cursorIdx(cursor)
	}

	sl.prev = before
	sl.next = after
	if before >= 0 {
		s.slots[before].next = idx
	} else {
		s.first = idx
	}
	if after >= 0 {
		s.slots[after].prev = idx
	} else {
		s.last = idx
	}
	s.nSlots++
	s.recomputeClusters(s.handleOf(idx))
	return s.handleOf(idx)
}

func cursorIdx(h Handle) int32 {
	if h.IsNil() {
		return -1
	}
	return h.idx
}

// Delete retires h once no other slot's attach_to references it, splicing
// it out of the list and moving it to the free pool for O(1) recycling.
// Afterwards the per-character Before/After claims are re-derived from the
// surviving slots (see recomputeClusters); the surviving slots' own
// before/after spans are not changed, so input indices only the deleted
// slot covered are not moved onto a survivor.
func (s *Segment) Delete(h Handle) bool {
	if h.IsNil() || int(h.idx) >= len(s.slots) || !s.slots[h.idx].alive {
		return false
	}
	for cur := s.FirstSlot(); !cur.IsNil(); cur = s.Next(cur) {
		if cur != h && s.AttachTo(cur) == h {
			return false // still referenced as a parent; caller must retry later
		}
	}
	sl := &s.slots[h.idx]
	prev, next := sl.prev, sl.next
	if prev >= 0 {
		s.slots[prev].next = next
	} else {
		s.first = next
	}
	if next >= 0 {
		s.slots[next].prev = prev
	} else {
		s.last = prev
	}
	sl.alive = false
	s.nSlots--
	s.freeList = append(s.freeList, h.idx)
	if next >= 0 {
		s.recomputeClusters(s.handleOf(next))
	} else if prev >= 0 {
		s.recomputeClusters(s.handleOf(prev))
	}
	return true
}

// recomputeClusters re-derives each affected input index's claiming slot by
// walking forward from the earliest affected slot and replaying
// before/after cluster-span maintenance rule. start is the
// first slot that might have changed; the walk continues to the end of the
// list since a single insertion/deletion can shift ownership of any later
// cluster.
func (s *Segment) recomputeClusters(start Handle) {
	for h := start; !h.IsNil(); h = s.Next(h) {
		sl := s.mustAt(h)
		if sl.before >= 0 && sl.before < len(s.charInfo) {
			s.charInfo[sl.before].Before = h
		}
		if sl.after >= 0 && sl.after < len(s.charInfo) {
			s.charInfo[sl.after].After = h
		}
	}
}

// Attr reads a slot attribute generically by AttrCode, the shape the VM's
// SLOT_ATTR family of opcodes needs. subindex selects among user[0..n) when
// code is AttrUserDefn or above.
func (s *Segment) Attr(h Handle, code AttrCode, subindex int) int32 {
	sl := s.at(h)
	switch {
	case code == AttrAdvX:
		x, _, _ := s.AdvanceOverride(h)
		return int32(x)
	case code == AttrAdvY:
		_, y, _ := s.AdvanceOverride(h)
		return int32(y)
	case code == AttrAttTo:
		if sl.attachTo.IsNil() {
			return -1
		}
		return sl.attachTo.idx
	case code == AttrAttX:
		return int32(sl.attachOffX)
	case code == AttrAttY:
		return int32(sl.attachOffY)
	case code == AttrBreak:
		return int32(sl.breakWeight)
	case code == AttrDir:
		return int32(sl.directionality)
	case code == AttrInsert:
		if sl.canInsertBefore {
			return 1
		}
		return 0
	case code == AttrPosX:
		return int32(sl.originX)
	case code == AttrPosY:
		return int32(sl.originY)
	case code == AttrShiftX:
		return int32(sl.shiftX)
	case code == AttrShiftY:
		return int32(sl.shiftY)
	case code == AttrCompRef:
		return int32(sl.original)
	case code >= AttrUserDefn:
		return int32(s.UserAttr(h, subindex))
	default:
		return 0
	}
}
