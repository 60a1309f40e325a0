package glat

import (
	"encoding/binary"
	"testing"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildGlatV1Run builds one glyph's run-length attribute stream in the v1
// (1-byte header) format: a single run (startID=2, count=3, values 10,20,30).
func buildGlatV1Run() []byte {
	buf := []byte{2, 3}
	for _, v := range []int16{10, 20, 30} {
		b := make([]byte, 2)
		binary.BigEndian.PutUint16(b, uint16(v))
		buf = append(buf, b...)
	}
	return buf
}

// buildGloc assembles a Gloc table: u32 version, u16 locFlags, u16 numAttrs,
// then the location offset array, matching GlyphFaceCacheHeader::initialize's
// byte layout (version@0, locFlags@4, numAttrs@6, offsets@8).
func buildGloc(use32 bool, offsets []int, numAttrs uint16) []byte {
	hdr := make([]byte, 8)
	binary.BigEndian.PutUint32(hdr[0:4], 0x00010000)
	var flags uint16
	if use32 {
		flags = 1
	}
	binary.BigEndian.PutUint16(hdr[4:6], flags)
	binary.BigEndian.PutUint16(hdr[6:8], numAttrs)
	buf := hdr
	for _, off := range offsets {
		if use32 {
			b := make([]byte, 4)
			binary.BigEndian.PutUint32(b, uint32(off))
			buf = append(buf, b...)
		} else {
			b := make([]byte, 2)
			binary.BigEndian.PutUint16(b, uint16(off))
			buf = append(buf, b...)
		}
	}
	return buf
}

// TestLoadV1RunAndLookup covers the common two-glyph case: glyph 0 carries a
// real run, glyph 1 is empty (start==end). The location array holds 3
// entries, so nGlyphsWithAttrs is (14-8)/2 = 3; glyphs 0 and 1 find their
// start/end pairs (sharing offsets[1]), so neither glyph under test needs
// the past-the-end lookahead read that the trailing glyph triggers.
func TestLoadV1RunAndLookup(t *testing.T) {
	run := buildGlatV1Run()
	glatBuf := append([]byte{0, 1, 0, 0}, run...) // version 0x00010000 then the run
	gloc := buildGloc(false, []int{4, 4 + len(run), 4 + len(run)}, 40)

	var faults fontdata.Faults
	s := Load(fontdata.NewBytes(gloc), fontdata.NewBytes(glatBuf), 1, &faults)
	require.Empty(t, faults.Critical())

	assert.Equal(t, int16(10), s.Attr(0, 2))
	assert.Equal(t, int16(20), s.Attr(0, 3))
	assert.Equal(t, int16(30), s.Attr(0, 4))
	assert.Equal(t, int16(0), s.Attr(0, 5))
	assert.Equal(t, int16(0), s.Attr(0, 1))
	assert.Equal(t, int16(0), s.Attr(1, 2)) // glyph 1's run is empty

	// The last glyph nGlyphsWithAttrs counts (index 2, one past the
	// entries actually usable as a start/end pair) has no offsets[3] to
	// pair with, so it records a non-critical fault instead of reading
	// past the buffer the way the unchecked reference pointer arithmetic
	// would.
	assert.Len(t, faults.All(), 1)
	assert.Equal(t, fontdata.SeverityMajor, faults.All()[0].Severity)
}

func TestLoadMissingGlyphReturnsZero(t *testing.T) {
	gloc := buildGloc(false, []int{4, 4, 4}, 10)
	glatBuf := []byte{0, 1, 0, 0}
	var faults fontdata.Faults
	s := Load(fontdata.NewBytes(gloc), fontdata.NewBytes(glatBuf), 5, &faults)
	assert.Equal(t, int16(0), s.Attr(3, 0))
	assert.Equal(t, 5, s.NumGlyphs())
}

func TestLoadUnsupportedGlocVersion(t *testing.T) {
	gloc := make([]byte, 8)
	binary.BigEndian.PutUint32(gloc[0:4], 0x00020000)
	var faults fontdata.Faults
	s := Load(fontdata.NewBytes(gloc), fontdata.NewBytes(nil), 0, &faults)
	require.NotEmpty(t, faults.All())
	assert.Equal(t, fontdata.SeverityCritical, faults.All()[0].Severity)
	assert.Equal(t, 0, s.NumGlyphs())
}
