package graphite

import (
	"encoding/binary"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/pass"
	"github.com/npillmayer/graphite/position"
	"github.com/npillmayer/graphite/segment"
	"github.com/npillmayer/graphite/vm"
	"golang.org/x/text/unicode/bidi"
)

// Encoding selects how Shape decodes its input text buffer.
type Encoding int

const (
	UTF8 Encoding = iota
	UTF16
	UTF32
)

// decodeRunes turns a raw text buffer into a rune sequence, matching the
// three forms the font-table-provider side of this engine is expected to
// accept. Malformed sequences decode to utf8.RuneError rather than
// stopping; a single bad code unit never aborts a whole shaping call.
func decodeRunes(buf []byte, enc Encoding) []rune {
	switch enc {
	case UTF16:
		var units []uint16
		for i := 0; i+1 < len(buf); i += 2 {
			units = append(units, binary.BigEndian.Uint16(buf[i:i+2]))
		}
		return utf16.Decode(units)
	case UTF32:
		var out []rune
		for i := 0; i+3 < len(buf); i += 4 {
			r := rune(binary.BigEndian.Uint32(buf[i : i+4]))
			if !utf8.ValidRune(r) {
				r = utf8.RuneError
			}
			out = append(out, r)
		}
		return out
	default:
		var out []rune
		for len(buf) > 0 {
			r, size := utf8.DecodeRune(buf)
			out = append(out, r)
			buf = buf[size:]
		}
		return out
	}
}

// segmentMetrics adapts a GlyphMetrics (keyed by glyph id) into
// position.GlyphMetrics (keyed by slot handle), reading each slot's current
// glyph id to bridge the two.
type segmentMetrics struct {
	seg  *segment.Segment
	gm   GlyphMetrics
	attr func(g fontdata.GlyphID, attrID uint16) int16
}

func (m segmentMetrics) Advance(h segment.Handle) (float64, float64) {
	if x, y, ok := m.seg.AdvanceOverride(h); ok {
		return x, y
	}
	return m.gm.Advance(m.seg.Glyph(h)), 0
}

func (m segmentMetrics) BBox(h segment.Handle) (xmin, ymin, xmax, ymax float64) {
	return m.gm.BBox(m.seg.Glyph(h))
}

// Anchor resolves an attach_at/attach_with attribute id to the (x,y) anchor
// point the font declares for h's glyph: x at attrID, y at the next
// attribute id, the pairing convention the glyph attribute store's run
// encoding uses throughout. A zero attrID (no attachment recorded) reads as
// the glyph's own origin, (0,0).
func (m segmentMetrics) Anchor(h segment.Handle, attrID int16) (x, y float64) {
	if attrID == 0 {
		return 0, 0
	}
	g := m.seg.Glyph(h)
	return float64(m.attr(g, uint16(attrID))), float64(m.attr(g, uint16(attrID)+1))
}

// Shape runs the full pipeline on text: cmap/pseudo-glyph seeding, every
// declared pass in order, then positioning. direction true selects
// right-to-left pen advance.
//
// features overrides feature defaults by id; callers that want a language's
// defaults should seed features from Face.SelectLanguage first.
func (f *Face) Shape(metrics GlyphMetrics, text []byte, enc Encoding, features map[uint32]int16, rightToLeft bool) *segment.Segment {
	runes := decodeRunes(text, enc)
	seg := segment.New(len(runes), f.tables.NUserAttrs())
	seg.RightToLeft = rightToLeft

	for i, r := range runes {
		g, ok := metrics.GlyphIndex(r)
		if !ok {
			g = f.tables.PseudoGlyph(r)
		}
		h := seg.SeedSlot(i, g)
		props, _ := bidi.LookupRune(r)
		seg.SetDirectionality(h, int8(props.Class()))
	}

	featureValue := func(id int32) int32 {
		if v, ok := features[uint32(id)]; ok {
			return int32(v)
		}
		return int32(f.tables.FeatureValue(uint32(id)))
	}
	ctx := &vm.Context{
		Seg:     seg,
		Feature: featureValue,
		GlyphMetric: func(g fontdata.GlyphID, metric int32) int32 {
			switch metric {
			case 0:
				return int32(metrics.Advance(g))
			default:
				xmin, ymin, xmax, ymax := metrics.BBox(g)
				switch metric {
				case 1:
					return int32(xmin)
				case 2:
					return int32(ymin)
				case 3:
					return int32(xmax)
				case 4:
					return int32(ymax)
				}
				return 0
			}
		},
		GlyphAttr: func(g fontdata.GlyphID, attrID int32) int32 {
			return int32(f.tables.GlyphAttr(g, uint16(attrID)))
		},
	}

	pass.RunAll(f.tables.Passes(), seg, ctx)

	advance, _ := position.Resolve(seg, segmentMetrics{seg: seg, gm: metrics, attr: f.tables.GlyphAttr})
	seg.Advance = advance
	return seg
}
