// Package glat implements the Graphite glyph attribute store:
// lowering the Gloc/Glat table pair into a per-glyph sparse representation
// with O(log k) attribute lookup, grounded on the reference implementation's
// GlyphFaceCache.cpp (table-version gating and Gloc offset-width selection)
// and GlyphFace.cpp (the glat_iterator / glat2_iterator run decoding).
package glat

import (
	"sort"

	"github.com/npillmayer/graphite/fontdata"
)

// Store holds the decoded per-glyph attribute lists for every glyph declared
// by Gloc, lowered once at face-construction time.
type Store struct {
	numAttrs int
	glyphs   []glyphAttrs
}

// glyphAttrs is one glyph's sparse attribute list: two parallel arrays
// (sorted keys, values) rather than a dense
// per-glyph array of length numAttrs — fonts may declare hundreds of
// attributes of which any glyph uses only 5-30.
type glyphAttrs struct {
	ids    []uint16
	values []int16
	// lowMask is a bitmap over attribute ids [0,64) present in ids, letting
	// the common case of dense low-id attributes (kerning/justification
	// attrs, which cluster at small ids) skip the binary search entirely.
	lowMask uint64
}

// Attr returns the value of attribute attrID on glyphID. Unknown ids (or a
// glyph id past the end of the table) return 0.
func (s *Store) Attr(glyphID fontdata.GlyphID, attrID uint16) int16 {
	if s == nil || int(glyphID) >= len(s.glyphs) {
		return 0
	}
	g := &s.glyphs[glyphID]
	if attrID < 64 && g.lowMask&(1<<attrID) == 0 {
		return 0
	}
	i := sort.Search(len(g.ids), func(i int) bool { return g.ids[i] >= attrID })
	if i < len(g.ids) && g.ids[i] == attrID {
		return g.values[i]
	}
	return 0
}

// NumGlyphs returns the number of glyphs the store has attribute data for.
func (s *Store) NumGlyphs() int {
	if s == nil {
		return 0
	}
	return len(s.glyphs)
}

// Load decodes a Store from the raw Gloc and Glat tables, following
// GlyphFaceCacheHeader::initialize and GlyphFace::GlyphFace in the reference
// implementation. numGlyphsWithGraphics is the glyph count from maxp, used
// (as in the original) to pad the store to at least that many entries even
// when Gloc declares fewer.
func Load(gloc, glat fontdata.Bytes, numGlyphsWithGraphics int, faults *fontdata.Faults) *Store {
	if gloc.Len() < 8 {
		faults.Add(fontdata.TagGloc, "header", "table shorter than minimum header", fontdata.SeverityCritical, 0)
		return &Store{}
	}
	// Header: u32 version, u16 locFlags, u16 numAttrs — matching
	// GlyphFaceCacheHeader::initialize's ((uint32*)m_pGloc)[0],
	// ((uint16*)m_pGloc)[2], ((uint16*)m_pGloc)[3] reads exactly.
	version := gloc.MustU32(0)
	if version != 0x00010000 {
		faults.Add(fontdata.TagGloc, "header", "unsupported Gloc version", fontdata.SeverityCritical, 0)
		return &Store{}
	}
	locFlags := gloc.MustU16(4)
	numAttrs := int(gloc.MustU16(6))
	use32Bit := locFlags&1 != 0

	var nGlyphsWithAttrs int
	if use32Bit {
		nGlyphsWithAttrs = (gloc.Len() - 10) / 4
	} else {
		nGlyphsWithAttrs = (gloc.Len() - 8) / 2
	}
	if nGlyphsWithAttrs < 0 {
		nGlyphsWithAttrs = 0
	}

	numGlyphs := nGlyphsWithAttrs
	if numGlyphsWithGraphics > numGlyphs {
		numGlyphs = numGlyphsWithGraphics
	}

	s := &Store{numAttrs: numAttrs, glyphs: make([]glyphAttrs, numGlyphs)}

	glatVersion := uint32(0x00010000)
	if glat.Len() >= 4 {
		glatVersion = glat.MustU32(0)
	}
	wideRuns := glatVersion >= 0x00020000

	// The location array starts right after the 8-byte header in both
	// widths: GlyphFace::GlyphFace indexes it as
	// ((uint32*)m_pGloc)[2+glyphid]/[3+glyphid] (byte 8+4*glyphid) or
	// ((uint16*)m_pGloc)[4+glyphid]/[5+glyphid] (byte 8+2*glyphid).
	locAt := func(i int) (int, bool) {
		if use32Bit {
			off := 8 + i*4
			if off+4 > gloc.Len() {
				return 0, false
			}
			return int(gloc.MustU32(off)), true
		}
		off := 8 + i*2
		if off+2 > gloc.Len() {
			return 0, false
		}
		return int(gloc.MustU16(off)), true
	}

	for gid := 0; gid < nGlyphsWithAttrs; gid++ {
		start, ok1 := locAt(gid)
		end, ok2 := locAt(gid + 1)
		if !ok1 || !ok2 || start < 0 || end < start || end > glat.Len() {
			faults.Add(fontdata.TagGlat, "glyph-run", "invalid Gloc offset pair", fontdata.SeverityMajor, start)
			continue
		}
		s.glyphs[gid] = decodeRuns(glat.Slice(start, end), wideRuns)
	}
	return s
}

// decodeRuns decodes one glyph's run-length-encoded attribute list.
//
// Each run is (startID, count) followed by count sequential uint16 values
// for attribute ids startID..startID+count-1: a 1-byte header pair in the v1
// format, a 2-byte header pair in the v2 (wideRuns) format. This mirrors
// glat_iterator/glat2_iterator exactly.
func decodeRuns(b fontdata.Bytes, wideRuns bool) glyphAttrs {
	var ids []uint16
	var values []int16
	var lowMask uint64

	off := 0
	for off < b.Len() {
		var startID, count int
		if wideRuns {
			if off+4 > b.Len() {
				break
			}
			startID = int(b.MustU16(off))
			count = int(b.MustU16(off + 2))
			off += 4
		} else {
			id, err := b.U8(off)
			if err != nil {
				break
			}
			cnt, err := b.U8(off + 1)
			if err != nil {
				break
			}
			startID, count = int(id), int(cnt)
			off += 2
		}
		for i := 0; i < count; i++ {
			if off+2 > b.Len() {
				break
			}
			v, _ := b.I16(off)
			off += 2
			attrID := startID + i
			ids = append(ids, uint16(attrID))
			values = append(values, v)
			if attrID < 64 {
				lowMask |= 1 << uint(attrID)
			}
		}
	}
	return glyphAttrs{ids: ids, values: values, lowMask: lowMask}
}
