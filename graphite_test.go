package graphite

import (
	"testing"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// identityMetrics maps every rune to its own code point as a glyph id and
// gives every glyph a fixed advance, enough to exercise Shape end to end
// without a real font.
type identityMetrics struct{ adv float64 }

func (m identityMetrics) GlyphIndex(r rune) (fontdata.GlyphID, bool) {
	if r <= 0 || r > 0xffff {
		return 0, false
	}
	return fontdata.GlyphID(r), true
}
func (m identityMetrics) Advance(g fontdata.GlyphID) float64 { return m.adv }
func (m identityMetrics) BBox(g fontdata.GlyphID) (float64, float64, float64, float64) {
	return 0, 0, m.adv, 1
}

func minimalSilf(t *testing.T) fontdata.Provider {
	t.Helper()
	// version=1, numUserAttrs=0, numPasses=0, numPseudo=0
	silfBytes := []byte{0, 0, 0, 1, 0, 0, 0, 0, 0, 0}
	return fontdata.MapProvider{fontdata.TagSilf: silfBytes}
}

func TestEmptyShapingProducesNoSlots(t *testing.T) {
	f := NewFace(minimalSilf(t))
	require.Empty(t, f.CriticalErrors())

	seg := f.Shape(identityMetrics{adv: 10}, nil, UTF8, nil, false)
	assert.Equal(t, 0, seg.NSlots())
	assert.Equal(t, 0.0, seg.Advance)
}

func TestIdentityShapingPreservesGlyphsAndAdvances(t *testing.T) {
	f := NewFace(minimalSilf(t))
	seg := f.Shape(identityMetrics{adv: 10}, []byte("AB"), UTF8, nil, false)

	require.Equal(t, 2, seg.NSlots())
	first := seg.FirstSlot()
	second := seg.Next(first)
	assert.Equal(t, fontdata.GlyphID('A'), seg.Glyph(first))
	assert.Equal(t, fontdata.GlyphID('B'), seg.Glyph(second))

	x0, _ := seg.Origin(first)
	x1, _ := seg.Origin(second)
	assert.Less(t, x0, x1)
	assert.Equal(t, 20.0, seg.Advance)
}

func TestUnmappableCodePointFallsBackToNotdef(t *testing.T) {
	f := NewFace(minimalSilf(t))
	seg := f.Shape(identityMetrics{adv: 10}, []byte{0}, UTF8, nil, false)
	require.Equal(t, 1, seg.NSlots())
	assert.Equal(t, fontdata.GlyphID(0), seg.Glyph(seg.FirstSlot()))
}

func TestMissingSilfLeavesFaceCriticallyBroken(t *testing.T) {
	f := NewFace(fontdata.MapProvider{})
	assert.NotEmpty(t, f.CriticalErrors())
}
