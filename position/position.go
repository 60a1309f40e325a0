// Package position implements the post-pass positioning stage:
// resolving the segment's attachment forest into absolute coordinates and
// computing the segment's total advance.
//
// Grounded on otlayout/gpos_helpers.go's anchor/attachment resolution:
// mark-to-base attachment there (place a mark glyph's anchor point against
// its base glyph's anchor point, offset by the accumulated pen position) is
// the OpenType analog of Graphite's attach_to/attach_at/attach_with, so the
// same "resolve parent before child, add the anchor delta" recursion
// carries over directly.
package position

import (
	"math"

	"github.com/npillmayer/graphite/segment"
)

// GlyphMetrics supplies the face-side data positioning needs per glyph: its
// advance, its bounding box (both already scaled to the segment's font
// size), and the numeric (x,y) position of a glyph attribute pair — the
// anchor points attach_at/attach_with name.
type GlyphMetrics interface {
	Advance(g segment.Handle) (ax, ay float64)
	BBox(g segment.Handle) (xmin, ymin, xmax, ymax float64)
	Anchor(g segment.Handle, attrID int16) (x, y float64)
}

// Bounds is the segment's bounding region in origin-relative coordinates.
type Bounds struct {
	XMin, YMin, XMax, YMax float64
}

func (b *Bounds) extend(x0, y0, x1, y1 float64) {
	b.XMin = math.Min(b.XMin, x0)
	b.YMin = math.Min(b.YMin, y0)
	b.XMax = math.Max(b.XMax, x1)
	b.YMax = math.Max(b.YMax, y1)
}

// Resolve places every slot's origin, walking the attachment forest
// depth-first from each root, and returns the segment's total advance and
// bounding box.
func Resolve(seg *segment.Segment, metrics GlyphMetrics) (advance float64, bounds Bounds) {
	pen := 0.0
	sign := 1.0
	if seg.RightToLeft {
		sign = -1.0
	}

	roots := make([]segment.Handle, 0)
	for h := seg.FirstSlot(); !h.IsNil(); h = seg.Next(h) {
		if seg.AttachTo(h).IsNil() {
			roots = append(roots, h)
		}
	}

	for _, root := range roots {
		placeTree(seg, metrics, root, pen, 0, &bounds)

		effAx, effAy, hasOverride := seg.AdvanceOverride(root)
		if !hasOverride {
			effAx, effAy = metrics.Advance(root)
		}
		_ = effAy
		pen += sign * effAx
	}

	if pen < 0 {
		pen = 0
	}
	return pen, bounds
}

// placeTree sets root's origin to (baseX,baseY) plus its own shift, then
// recursively places every slot attached to root: a child's origin is the
// parent's origin plus (parent.attr(attach_at) − child.attr(attach_with))
// plus the rule-supplied numeric offsets. attach_at/attach_with are glyph
// attribute ids recorded by the VM's PUT_ATTACH opcode; metrics.Anchor
// resolves each to the (x,y) position the font declares for that glyph's
// anchor point.
func placeTree(seg *segment.Segment, metrics GlyphMetrics, root segment.Handle, baseX, baseY float64, bounds *Bounds) {
	shiftX, shiftY := seg.Shift(root)
	originX, originY := baseX+shiftX, baseY+shiftY
	seg.SetOrigin(root, originX, originY)

	x0, y0, x1, y1 := metrics.BBox(root)
	bounds.extend(originX+x0, originY+y0, originX+x1, originY+y1)

	for h := seg.FirstSlot(); !h.IsNil(); h = seg.Next(h) {
		if seg.AttachTo(h) != root {
			continue
		}
		atID, withID, offX, offY := seg.AttachAnchors(h)
		parentAX, parentAY := metrics.Anchor(root, atID)
		childAX, childAY := metrics.Anchor(h, withID)
		placeTree(seg, metrics, h, originX+(parentAX-childAX)+offX, originY+(parentAY-childAY)+offY, bounds)
	}
}
