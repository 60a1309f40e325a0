// Package segment implements the Graphite segment and slot model: a
// mutable, doubly-linked slot sequence with stable identity under insertion
// and deletion, per-slot attributes, an attachment forest, and
// per-character metadata.
//
// The attachment relation is a forest whose edges point from child to
// parent. It is modeled as an index into the segment's slot pool plus a
// generation counter, never as an owning pointer — a handle referencing a
// deleted (and recycled) slot is detectably stale.
package segment

// AttrCode enumerates the slot attributes addressable through the external
// read API and through VM opcode SLOT_ATTR. The ordering
// mirrors attrCode in the reference implementation's SlotHandle.h, including
// its "user-defined attributes start 30 slots past the justification
// fields" rule, so indices stay stable relative to the font format this
// engine reads.
type AttrCode int

const (
	AttrAdvX AttrCode = iota
	AttrAdvY
	AttrAttTo
	AttrAttX
	AttrAttY
	AttrAttXOff
	AttrAttYOff
	AttrAttWithX
	AttrAttWithY
	AttrAttWithXOff
	AttrAttWithYOff
	AttrAttLevel
	AttrBreak
	AttrCompRef
	AttrDir
	AttrInsert
	AttrPosX
	AttrPosY
	AttrShiftX
	AttrShiftY
	AttrUserDefnV1
	AttrMeasureSol
	AttrMeasureEol
	AttrJStretch
	AttrJShrink
	AttrJStep
	AttrJWeight
	AttrJWidth

	// AttrUserDefn is the first of the per-font user-attribute cells
	// (user[0..n)); see Slot.UserAttr / SetUserAttr.
	AttrUserDefn = AttrJStretch + 30

	attrMax
	// AttrNoEffect marks a VM write target that deliberately does nothing
	// (some opcodes allow "attribute none" as a sentinel).
	AttrNoEffect = attrMax + 1
)
