// Package sfntprovider is the default font-table provider capability: it
// parses an SFNT container's table directory and hands back raw table bytes
// by tag, exactly the shape fontdata.Provider needs.
//
// golang.org/x/image/font/sfnt does not expose a generic "raw bytes for any
// tag" accessor — its Font type only
// understands the standard outline tables it needs for rendering, and has no
// method to retrieve a private table such as Graphite's Silf or Glat. This
// package therefore reads the table directory itself (a 12-byte offset
// table followed by 16-byte table records, straight off the OpenType spec)
// and keeps golang.org/x/image/font/sfnt only for the one thing it is good
// for here: resolving the font's display name for tracing, exactly as
// font.go does.
package sfntprovider

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

func tracer() tracing.Trace {
	return tracing.Select("graphite.face")
}

// Font is a parsed SFNT container exposing raw table bytes by tag.
type Font struct {
	Name   string
	Binary []byte
	tables map[uint32][]byte
}

// Load reads and parses an SFNT font (TTF or OTF) from a file path.
func Load(path string) (*Font, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(raw)
}

// Parse parses an SFNT font already resident in memory. The returned Font
// retains a reference to data; callers must keep it alive as long as the
// Font (and any fontdata.Provider built from it) is in use.
func Parse(data []byte) (*Font, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("sfntprovider: file too short to be an SFNT container (%d bytes)", len(data))
	}
	numTables := int(binary.BigEndian.Uint16(data[4:6]))
	const recordSize = 16
	const directoryStart = 12
	need := directoryStart + numTables*recordSize
	if len(data) < need {
		return nil, fmt.Errorf("sfntprovider: table directory truncated: need %d bytes, have %d", need, len(data))
	}
	tables := make(map[uint32][]byte, numTables)
	for i := 0; i < numTables; i++ {
		rec := data[directoryStart+i*recordSize:]
		tag := binary.BigEndian.Uint32(rec[0:4])
		offset := binary.BigEndian.Uint32(rec[8:12])
		length := binary.BigEndian.Uint32(rec[12:16])
		end := uint64(offset) + uint64(length)
		if end > uint64(len(data)) {
			// Malformed table entry: skip rather than abort the whole face.
			continue
		}
		tables[tag] = data[offset:end]
	}
	f := &Font{Binary: data, tables: tables}
	if sf, err := sfnt.Parse(data); err == nil {
		if name, err := sf.Name(nil, sfnt.NameIDFull); err == nil {
			f.Name = name
			tracer().Debugf("sfntprovider: parsed font %q with %d tables", name, numTables)
		}
	}
	return f, nil
}

// GetTable implements fontdata.Provider.
func (f *Font) GetTable(tag fontdata.Tag) ([]byte, bool) {
	b, ok := f.tables[uint32(tag)]
	return b, ok
}

var _ fontdata.Provider = (*Font)(nil)

// Metrics wraps golang.org/x/image/font/sfnt's cmap and outline-metric
// lookups, the two capabilities this package's table-directory reader
// cannot provide on its own: glyph advance and bounding box are derived
// from the glyf/hmtx outline tables, not a flat byte range.
type Metrics struct {
	sf   *sfnt.Font
	ppem fixed.Int26_6
	buf  sfnt.Buffer
}

// NewMetrics builds a Metrics view of data at the given pixels-per-em size.
func NewMetrics(data []byte, ppem float64) (*Metrics, error) {
	sf, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("sfntprovider: parsing metrics font: %w", err)
	}
	return &Metrics{sf: sf, ppem: fixed.I(int(ppem))}, nil
}

// GlyphIndex maps a code point through the font's cmap, returning ok=false
// for an unmapped rune (the caller falls back to the Silf pseudo-glyph map,
// then to .notdef, glyph 0).
func (m *Metrics) GlyphIndex(r rune) (fontdata.GlyphID, bool) {
	gi, err := m.sf.GlyphIndex(&m.buf, r)
	if err != nil || gi == 0 {
		return 0, false
	}
	return fontdata.GlyphID(gi), true
}

// Advance returns glyph g's unhinted advance in the Metrics' ppem, 0 on any
// lookup failure (an unknown glyph id advances by nothing rather than
// panicking).
func (m *Metrics) Advance(g fontdata.GlyphID) float64 {
	adv, err := m.sf.GlyphAdvance(&m.buf, sfnt.GlyphIndex(g), m.ppem, font.HintingNone)
	if err != nil {
		return 0
	}
	return float64(adv) / 64
}

// BBox returns glyph g's unhinted bounding box in the Metrics' ppem.
func (m *Metrics) BBox(g fontdata.GlyphID) (xmin, ymin, xmax, ymax float64) {
	r, _, err := m.sf.GlyphBounds(&m.buf, sfnt.GlyphIndex(g), m.ppem, font.HintingNone)
	if err != nil {
		return 0, 0, 0, 0
	}
	return float64(r.Min.X) / 64, float64(r.Min.Y) / 64, float64(r.Max.X) / 64, float64(r.Max.Y) / 64
}
