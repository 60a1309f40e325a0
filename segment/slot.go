package segment

import "github.com/npillmayer/graphite/fontdata"

// Handle is an opaque reference to a slot. It stays valid across most
// mutations but becomes stale (and detectable as such) once the slot it
// named has been deleted and its pool entry recycled.
// The zero Handle is not itself a valid reference; use NilHandle.
type Handle struct {
	idx int32
	gen uint32
}

// NilHandle is the "no slot" / "no parent" handle.
var NilHandle = Handle{idx: -1}

// IsNil reports whether h refers to no slot.
func (h Handle) IsNil() bool { return h.idx < 0 }

// slot is one positionable glyph instance.
type slot struct {
	alive bool
	gen   uint32

	glyph    fontdata.GlyphID
	original int // index into original input
	before   int
	after    int

	originX, originY float64
	shiftX, shiftY   float64
	advanceX         float64
	advanceY         float64
	advanceOverride  bool

	attachTo      Handle
	attachAt      int16 // parent-anchor attribute id
	attachWith    int16 // child-anchor attribute id
	attachOffX    float64
	attachOffY    float64

	justification   int16
	breakWeight     int16
	directionality  int8
	canInsertBefore bool

	userAttrs []int16

	prev, next int32 // pool indices, -1 = none
}

// Glyph returns the slot's current glyph id.
func (s *Segment) Glyph(h Handle) fontdata.GlyphID { return s.at(h).glyph }

// SetGlyph sets the slot's glyph id (VM opcodes PUT_GLYPH_ID and
// PUT_GLYPH_FROM_CLASS).
func (s *Segment) SetGlyph(h Handle, g fontdata.GlyphID) { s.mustAt(h).glyph = g }

// Original returns the input index this slot was originally seeded from.
func (s *Segment) Original(h Handle) int { return s.at(h).original }

// Before and After return the inclusive cluster span, in input indices,
// that this slot represents.
func (s *Segment) Before(h Handle) int { return s.at(h).before }
func (s *Segment) After(h Handle) int  { return s.at(h).after }

// Origin returns the slot's unpositioned (x,y) accumulator.
func (s *Segment) Origin(h Handle) (x, y float64) {
	sl := s.at(h)
	return sl.originX, sl.originY
}

// SetOrigin sets the slot's origin, written by the positioning stage.
func (s *Segment) SetOrigin(h Handle, x, y float64) {
	sl := s.mustAt(h)
	sl.originX, sl.originY = x, y
}

// Shift returns the slot's positioning shift.
func (s *Segment) Shift(h Handle) (x, y float64) {
	sl := s.at(h)
	return sl.shiftX, sl.shiftY
}

// SetShift sets the slot's positioning shift (VM PUT_SHIFT opcode).
func (s *Segment) SetShift(h Handle, x, y float64) {
	sl := s.mustAt(h)
	sl.shiftX, sl.shiftY = x, y
}

// AdvanceOverride returns the slot's advance override and whether one has
// been set; if not set, positioning falls back to the glyph's own advance.
func (s *Segment) AdvanceOverride(h Handle) (x, y float64, ok bool) {
	sl := s.at(h)
	return sl.advanceX, sl.advanceY, sl.advanceOverride
}

// SetAdvance overrides the slot's effective advance (VM PUT_ADVANCE).
func (s *Segment) SetAdvance(h Handle, x, y float64) {
	sl := s.mustAt(h)
	sl.advanceX, sl.advanceY, sl.advanceOverride = x, y, true
}

// AttachTo returns the slot's parent in the attachment forest, or NilHandle
// if it is a root.
func (s *Segment) AttachTo(h Handle) Handle { return s.at(h).attachTo }

// SetAttachment installs h as a child of parent, with the given
// parent-anchor/child-anchor attribute ids and numeric offset.
// Attaching h to itself, or to a slot from which h is reachable by
// following attach_to edges (which would create a cycle), is rejected so
// the forest invariant always holds.
func (s *Segment) SetAttachment(h, parent Handle, atID, withID int16, offX, offY float64) bool {
	if !parent.IsNil() && (parent == h || s.reachableFrom(parent, h)) {
		return false
	}
	sl := s.mustAt(h)
	sl.attachTo = parent
	sl.attachAt = atID
	sl.attachWith = withID
	sl.attachOffX = offX
	sl.attachOffY = offY
	return true
}

// reachableFrom reports whether target is reachable by following attachTo
// edges starting at h (used to reject cycles before they are created).
func (s *Segment) reachableFrom(h, target Handle) bool {
	seen := 0
	for cur := h; !cur.IsNil(); cur = s.AttachTo(cur) {
		if cur == target {
			return true
		}
		seen++
		if seen > len(s.slots) {
			return true // defensive: a cycle already exists upstream
		}
	}
	return false
}

// AttachAnchors returns the parent-anchor id, child-anchor id, and numeric
// offset recorded for h's attachment.
func (s *Segment) AttachAnchors(h Handle) (atID, withID int16, offX, offY float64) {
	sl := s.at(h)
	return sl.attachAt, sl.attachWith, sl.attachOffX, sl.attachOffY
}

// Justification, BreakWeight, Directionality, CanInsertBefore: the
// remaining per-slot flags.

func (s *Segment) Justification(h Handle) int16    { return s.at(h).justification }
func (s *Segment) SetJustification(h Handle, v int16) { s.mustAt(h).justification = v }

func (s *Segment) BreakWeight(h Handle) int16      { return s.at(h).breakWeight }
func (s *Segment) SetBreakWeight(h Handle, v int16) { s.mustAt(h).breakWeight = v }

func (s *Segment) Directionality(h Handle) int8      { return s.at(h).directionality }
func (s *Segment) SetDirectionality(h Handle, v int8) { s.mustAt(h).directionality = v }

func (s *Segment) CanInsertBefore(h Handle) bool      { return s.at(h).canInsertBefore }
func (s *Segment) SetCanInsertBefore(h Handle, v bool) { s.mustAt(h).canInsertBefore = v }

// UserAttr reads a per-slot user-attribute cell. i must be in
// [0, silf.n_user_attrs); out-of-range reads return 0.
func (s *Segment) UserAttr(h Handle, i int) int16 {
	sl := s.at(h)
	if i < 0 || i >= len(sl.userAttrs) {
		return 0
	}
	return sl.userAttrs[i]
}

// SetUserAttr writes a per-slot user-attribute cell; out-of-range writes are
// ignored (the VM's static bounds checking is expected to prevent them).
func (s *Segment) SetUserAttr(h Handle, i int, v int16) {
	sl := s.mustAt(h)
	if i < 0 || i >= len(sl.userAttrs) {
		return
	}
	sl.userAttrs[i] = v
}
