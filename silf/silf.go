// Package silf reads the Graphite-private tables — Silf, Feat, Sill — and
// assembles them, together with the glyph table (fontdata) and the glyph
// attribute store (glat), into a Face: the immutable, long-lived object a
// shaping call is built from.
//
// Grounded on ot/ot.go's Font.Table/typed-table pattern (a thin typed view
// wrapping the raw bytes plus a parsed header) and otquery/name.go's
// localized-label decoding for the Feat table's names.
package silf

import (
	"strings"

	"github.com/npillmayer/graphite/code"
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/glat"
	"github.com/npillmayer/graphite/match"
	"github.com/npillmayer/graphite/pass"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/text/language"
)

func tracer() tracing.Trace { return tracing.Select("graphite.face") }

// Options configures Face construction: preload_glyphs, dumb_rendering,
// segment_cache_capacity.
type Options struct {
	preloadGlyphs        bool
	dumbRendering        bool
	segmentCacheCapacity int
}

// Option follows the same functional-option idiom as ot.ParseOption.
type Option func(*Options)

func PreloadGlyphs(v bool) Option { return func(o *Options) { o.preloadGlyphs = v } }
func DumbRendering(v bool) Option { return func(o *Options) { o.dumbRendering = v } }

// SegmentCacheCapacity records a segment-cache capacity in the Face's
// options. No segment cache is implemented: the value has no effect on
// shaping.
func SegmentCacheCapacity(n int) Option {
	return func(o *Options) { o.segmentCacheCapacity = n }
}

// Feature is one entry from the Feat table.
type Feature struct {
	ID      uint32
	Default int16
	Values  []int16
	labels  map[string]string // language tag -> localized label
}

// Label returns the feature's label for a language tag, falling back to the
// "" (default) label.
func (f *Feature) Label(lang string) string {
	if l, ok := f.labels[lang]; ok {
		return l
	}
	return f.labels[""]
}

// Face is the compiled, immutable representation of a font's Graphite
// tables (components A, B, C wired together).
type Face struct {
	opts Options

	glyphs *glat.Store
	passes []pass.Pass

	features    []Feature
	featureByID map[uint32]int

	languages   map[string]map[uint32]int16 // language tag -> feature id -> override value
	langKeys    []string                    // languages' keys, parallel to langMatcher's tag list
	langMatcher language.Matcher

	pseudoMap map[rune]fontdata.GlyphID

	numUserAttrs int

	faults *fontdata.Faults
}

// NUserAttrs returns the number of per-slot user-attribute cells this
// face's Silf declares; used to size a segment's slot pool.
func (f *Face) NUserAttrs() int { return f.numUserAttrs }

// Errors returns every fault recorded during construction; Critical faults
// mean the Face is not usable.
func (f *Face) Errors() []fontdata.Fault { return f.faults.All() }

// CriticalErrors returns only the faults severe enough to make the Face
// unusable.
func (f *Face) CriticalErrors() []fontdata.Fault { return f.faults.Critical() }

// NumFeatures and FeatureAt implement the feature-enumeration external
// interface.
func (f *Face) NumFeatures() int { return len(f.features) }
func (f *Face) FeatureAt(i int) *Feature {
	if i < 0 || i >= len(f.features) {
		return nil
	}
	return &f.features[i]
}

// FeatureValue resolves feat id -> default value, or 0 if unknown; used to
// seed a segment's feature value vector before caller overrides apply.
func (f *Face) FeatureValue(id uint32) int16 {
	if i, ok := f.featureByID[id]; ok {
		return f.features[i].Default
	}
	return 0
}

// SelectLanguage looks up a language tag's feature overrides. An exact tag
// match wins first; failing that, golang.org/x/text/language.Matcher
// resolves the requested tag to the declared language closest to it (e.g.
// "en-US" falls back to a Sill entry declared for plain "en").
func (f *Face) SelectLanguage(tag string) map[uint32]int16 {
	if overrides, ok := f.languages[tag]; ok {
		return overrides
	}
	if f.langMatcher == nil {
		return nil
	}
	requested, err := language.Parse(tag)
	if err != nil {
		return nil
	}
	_, index, confidence := f.langMatcher.Match(requested)
	if confidence == language.No {
		return nil
	}
	return f.languages[f.langKeys[index]]
}

// PseudoGlyph maps a code point to its pseudo-glyph id, falling back to
// glyph 0 (.notdef) when the Silf declares no mapping.
func (f *Face) PseudoGlyph(r rune) fontdata.GlyphID {
	if g, ok := f.pseudoMap[r]; ok {
		return g
	}
	return 0
}

// GlyphAttr reads a glyph's sparse attribute (component B), used by the VM
// context's GlyphAttr hook.
func (f *Face) GlyphAttr(g fontdata.GlyphID, attrID uint16) int16 {
	return f.glyphs.Attr(g, attrID)
}

// Passes returns the compiled pass list in declared order (component F's
// input).
func (f *Face) Passes() []pass.Pass { return f.passes }

// Load builds a Face from a table provider. It never panics on malformed
// input: every bounds violation is recorded as a Fault and, if critical,
// leaves the returned Face unusable but non-nil so callers can inspect
// Errors().
func Load(provider fontdata.Provider, opts ...Option) *Face {
	var o Options
	for _, apply := range opts {
		apply(&o)
	}

	faults := &fontdata.Faults{}
	f := &Face{
		opts:        o,
		featureByID: map[uint32]int{},
		languages:   map[string]map[uint32]int16{},
		pseudoMap:   map[rune]fontdata.GlyphID{},
		faults:      faults,
	}

	gloc, hasGloc := fontdata.OptionalTable(provider, fontdata.TagGloc)
	glatBytes, hasGlat := fontdata.OptionalTable(provider, fontdata.TagGlat)
	numGlyphs := readMaxp(provider)
	if hasGloc && hasGlat {
		f.glyphs = glat.Load(gloc, glatBytes, numGlyphs, faults)
	} else {
		// Gloc/Glat are optional: without them every glyph attribute reads 0.
		f.glyphs = &glat.Store{}
	}

	silfBytes, ok := fontdata.RequiredTable(provider, fontdata.TagSilf, faults)
	if !ok {
		return f
	}
	header := parseSilf(silfBytes, faults)
	f.passes = header.passes
	f.pseudoMap = header.pseudoMap
	f.numUserAttrs = header.numUserAttrs

	if featBytes, ok := fontdata.OptionalTable(provider, fontdata.TagFeat); ok {
		f.features = parseFeat(featBytes, faults)
		for i, feat := range f.features {
			f.featureByID[feat.ID] = i
		}
	}

	if sillBytes, ok := fontdata.OptionalTable(provider, fontdata.TagSill); ok {
		f.languages = parseSill(sillBytes, faults)
	}
	f.buildLanguageMatcher()

	tracer().Debugf("face: %d passes, %d features loaded", len(f.passes), len(f.features))
	return f
}

// buildLanguageMatcher parses every Sill-declared language tag and builds
// the language.Matcher SelectLanguage falls back to once an exact tag match
// fails. Keys are 4-byte Sill tags, so their trailing space padding is
// stripped before parsing. Tags the package can't parse (malformed Sill
// data) are skipped rather than aborting the whole face.
func (f *Face) buildLanguageMatcher() {
	var tags []language.Tag
	for key := range f.languages {
		tag, err := language.Parse(strings.TrimRight(key, " "))
		if err != nil {
			continue
		}
		f.langKeys = append(f.langKeys, key)
		tags = append(tags, tag)
	}
	if len(tags) > 0 {
		f.langMatcher = language.NewMatcher(tags)
	}
}

func readMaxp(provider fontdata.Provider) int {
	raw, ok := provider.GetTable(fontdata.TagMaxp)
	if !ok || len(raw) < 6 {
		return 0
	}
	b := fontdata.NewBytes(raw)
	n, _ := b.U16(4)
	return int(n)
}

// LoadRule compiles one rule body's constraint and action byte-code
// (component C) for use in a match.Rule.
func LoadRule(id match.RuleID, sortKey int, constraint, action []byte) (*match.Rule, code.LoadError) {
	cprog, cstatus := code.Load(fontdata.NewBytes(constraint), true)
	if cstatus != code.Loaded {
		return nil, cstatus
	}
	aprog, astatus := code.Load(fontdata.NewBytes(action), false)
	if astatus != code.Loaded {
		return nil, astatus
	}
	return &match.Rule{ID: id, SortKey: sortKey, Constraint: cprog, Action: aprog}, code.Loaded
}
