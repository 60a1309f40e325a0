package silf

import (
	"bytes"
	"encoding/binary"
	"testing"
	"unicode/utf16"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/pass"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u16(buf *bytes.Buffer, v uint16) { binary.Write(buf, binary.BigEndian, v) }
func i16(buf *bytes.Buffer, v int16)  { binary.Write(buf, binary.BigEndian, v) }
func u32(buf *bytes.Buffer, v uint32) { binary.Write(buf, binary.BigEndian, v) }
func u8(buf *bytes.Buffer, v uint8)   { binary.Write(buf, binary.BigEndian, v) }

// buildSilfBytes assembles a minimal but complete Silf table: one
// substitution pass with an empty rule set but a populated output-class
// trailer, plus a header declaring user attributes and a pseudo-glyph map.
func buildSilfBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	u32(&buf, 1) // version
	u16(&buf, 3) // numUserAttrs
	u16(&buf, 1) // numPasses
	u32(&buf, 20) // passOffset[0]; pass data placed right after the pseudo map

	u16(&buf, 1)        // numPseudo
	u32(&buf, 0x41)     // codepoint 'A'
	u16(&buf, 7)        // glyph 7

	require.Equal(t, 20, buf.Len(), "pass offset must match actual layout")

	u8(&buf, 1)   // kind: substitution
	u8(&buf, 2)   // maxRuleLoop
	u16(&buf, 0)  // precontext
	u16(&buf, 0)  // postcontext
	u16(&buf, 0)  // numDense
	u16(&buf, 0)  // numRanges
	u16(&buf, 1)  // numStates
	u16(&buf, 1)  // numCols
	i16(&buf, -1) // transition[0][0]
	u16(&buf, 0)  // startState
	u16(&buf, 0)  // numAccepting
	u16(&buf, 0)  // numRules
	u16(&buf, 1)  // numOutputClasses
	u16(&buf, 0)  // classID
	u16(&buf, 2)  // numGlyphs
	u16(&buf, 5)  // glyph[0]
	u16(&buf, 6)  // glyph[1]

	return buf.Bytes()
}

func TestLoadReadsUserAttrsPseudoMapAndPasses(t *testing.T) {
	faults := &fontdata.Faults{}
	header := parseSilf(fontdata.NewBytes(buildSilfBytes(t)), faults)

	assert.Empty(t, faults.Critical())
	assert.Equal(t, 3, header.numUserAttrs)
	assert.Equal(t, fontdata.GlyphID(7), header.pseudoMap['A'])
	require.Len(t, header.passes, 1)

	p := header.passes[0]
	assert.Equal(t, pass.Substitution, p.Kind)
	assert.Equal(t, 2, p.MaxRuleLoop)
	assert.Equal(t, []fontdata.GlyphID{5, 6}, p.Table.OutputClasses[0])
}

func TestParseSilfTooShortRecordsCriticalFault(t *testing.T) {
	faults := &fontdata.Faults{}
	header := parseSilf(fontdata.NewBytes([]byte{0, 0, 0}), faults)

	assert.NotEmpty(t, faults.Critical())
	assert.Empty(t, header.passes)
}

func TestLoadWiresSilfIntoFace(t *testing.T) {
	provider := fontdata.MapProvider{fontdata.TagSilf: buildSilfBytes(t)}
	f := Load(provider)

	require.Empty(t, f.CriticalErrors())
	assert.Equal(t, 3, f.NUserAttrs())
	assert.Equal(t, fontdata.GlyphID(7), f.PseudoGlyph('A'))
	assert.Equal(t, fontdata.GlyphID(0), f.PseudoGlyph('Z')) // unmapped falls back to .notdef
	require.Len(t, f.Passes(), 1)
}

func encodeUTF16BE(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, len(units)*2)
	for i, u := range units {
		binary.BigEndian.PutUint16(out[i*2:], u)
	}
	return out
}

func buildFeatBytes(t *testing.T, langTag uint32, label string) []byte {
	t.Helper()
	var buf bytes.Buffer

	u16(&buf, 1) // numFeatures

	u32(&buf, 100) // id
	i16(&buf, 2)   // default
	u16(&buf, 2)   // numValues
	i16(&buf, 0)
	i16(&buf, 1)
	u16(&buf, 1) // numLabels

	labelOffset := buf.Len() + 8 // past this directory entry
	labelBytes := encodeUTF16BE(label)
	u32(&buf, langTag)
	u16(&buf, uint16(labelOffset))
	u16(&buf, uint16(len(labelBytes)))

	buf.Write(labelBytes)
	return buf.Bytes()
}

func TestParseFeatDecodesLabelsAndValues(t *testing.T) {
	tag := fontdata.ParseTag("en")
	faults := &fontdata.Faults{}
	features := parseFeat(fontdata.NewBytes(buildFeatBytes(t, uint32(tag), "Ligatures")), faults)

	require.Len(t, features, 1)
	require.Empty(t, faults.Critical())
	f := features[0]
	assert.Equal(t, uint32(100), f.ID)
	assert.Equal(t, int16(2), f.Default)
	assert.Equal(t, []int16{0, 1}, f.Values)
	assert.Equal(t, "Ligatures", f.Label(tag.String()))
}

func buildSillBytes(t *testing.T, langTag uint32, featID uint32, value int16) []byte {
	t.Helper()
	var buf bytes.Buffer
	u16(&buf, 1) // numLanguages
	u32(&buf, langTag)
	u16(&buf, 1) // numOverrides
	u32(&buf, featID)
	i16(&buf, value)
	return buf.Bytes()
}

func TestParseSillReadsLanguageOverrides(t *testing.T) {
	tag := fontdata.ParseTag("en")
	faults := &fontdata.Faults{}
	langs := parseSill(fontdata.NewBytes(buildSillBytes(t, uint32(tag), 100, 1)), faults)

	require.Contains(t, langs, tag.String())
	assert.Equal(t, int16(1), langs[tag.String()][100])
}

func TestLoadWiresFeatAndSillIntoFace(t *testing.T) {
	tag := fontdata.ParseTag("en")
	provider := fontdata.MapProvider{
		fontdata.TagSilf: buildSilfBytes(t),
		fontdata.TagFeat: buildFeatBytes(t, uint32(tag), "Ligatures"),
		fontdata.TagSill: buildSillBytes(t, uint32(tag), 100, 1),
	}
	f := Load(provider)

	require.Equal(t, 1, f.NumFeatures())
	assert.Equal(t, int16(2), f.FeatureValue(100))
	overrides := f.SelectLanguage(tag.String())
	require.NotNil(t, overrides)
	assert.Equal(t, int16(1), overrides[100])
}

func TestSelectLanguageFallsBackToClosestDeclaredTag(t *testing.T) {
	tag := fontdata.ParseTag("en")
	provider := fontdata.MapProvider{
		fontdata.TagSilf: buildSilfBytes(t),
		fontdata.TagSill: buildSillBytes(t, uint32(tag), 100, 1),
	}
	f := Load(provider)

	overrides := f.SelectLanguage("en-US") // no exact Sill entry for en-US
	require.NotNil(t, overrides)
	assert.Equal(t, int16(1), overrides[100])

	assert.Nil(t, f.SelectLanguage("ja")) // unrelated language, no match
}

func TestLoadWithoutSilfLeavesFaceCriticallyBroken(t *testing.T) {
	f := Load(fontdata.MapProvider{})
	assert.NotEmpty(t, f.CriticalErrors())
}
