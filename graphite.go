// Package graphite is the public entry point to the shaping engine: it
// wires the table reader, glyph attribute store, rule matcher, stack
// machine, pass driver, and positioning stage into the two operations a
// caller needs — build a Face from a font, and shape text through it into a
// Segment.
//
// Grounded on opentype.go's convenience-constructor pattern: a thin facade
// in front of several internal packages, exposing only what a caller of the
// library actually needs to call.
package graphite

import (
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/silf"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace { return tracing.Select("graphite.face") }

// GlyphMetrics is the sized-font capability a Face needs beyond its tables:
// per-glyph advance width and outline bounding box at a chosen size, plus
// cmap lookup to seed a segment's initial glyph ids. sfntprovider.Metrics
// implements this.
type GlyphMetrics interface {
	GlyphIndex(r rune) (fontdata.GlyphID, bool)
	Advance(g fontdata.GlyphID) float64
	BBox(g fontdata.GlyphID) (xmin, ymin, xmax, ymax float64)
}

// Face is the immutable, long-lived object a shaping call is built from: a
// compiled set of Graphite tables. The sized-font metrics needed to turn
// code points into positioned glyphs are passed to each Shape call.
type Face struct {
	tables *silf.Face
}

// Option re-exports silf.Option so callers never need to import the silf
// package directly.
type Option = silf.Option

var (
	PreloadGlyphs        = silf.PreloadGlyphs
	DumbRendering        = silf.DumbRendering
	SegmentCacheCapacity = silf.SegmentCacheCapacity
)

// NewFace builds a Face from a table provider. It never panics on malformed
// input; call Errors or CriticalErrors on the result to check whether
// construction actually succeeded.
func NewFace(provider fontdata.Provider, opts ...Option) *Face {
	f := &Face{tables: silf.Load(provider, opts...)}
	tracer().Debugf("graphite: face built, %d critical errors", len(f.CriticalErrors()))
	return f
}

// Errors returns every fault recorded while building the Face.
func (f *Face) Errors() []fontdata.Fault { return f.tables.Errors() }

// CriticalErrors returns the subset of Errors severe enough to make the
// Face unusable for shaping.
func (f *Face) CriticalErrors() []fontdata.Fault { return f.tables.CriticalErrors() }

// NumFeatures and FeatureAt enumerate the face's declared features.
func (f *Face) NumFeatures() int                { return f.tables.NumFeatures() }
func (f *Face) FeatureAt(i int) *silf.Feature    { return f.tables.FeatureAt(i) }
func (f *Face) FeatureValue(id uint32) int16     { return f.tables.FeatureValue(id) }
func (f *Face) SelectLanguage(tag string) map[uint32]int16 {
	return f.tables.SelectLanguage(tag)
}
