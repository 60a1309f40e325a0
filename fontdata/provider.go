package fontdata

// Provider is the font-table provider capability consumed by this engine:
// a single operation that hands back the raw bytes of one OpenType/Graphite
// table, or ok=false if the table is absent.
//
// The engine never owns these bytes; a Provider implementation guarantees
// they live at least as long as the Face built from it. Concrete
// implementations (e.g. package sfntprovider) typically wrap a parsed SFNT
// container; tests may use a plain map-backed Provider.
type Provider interface {
	GetTable(tag Tag) (data []byte, ok bool)
}

// MapProvider is a Provider backed by an in-memory map, useful for tests and
// for synthetic fonts.
type MapProvider map[Tag][]byte

// GetTable implements Provider.
func (m MapProvider) GetTable(tag Tag) ([]byte, bool) {
	b, ok := m[tag]
	return b, ok
}

// RequiredTable fetches a table and reports a critical Fault through faults
// if it is absent. It returns ok=false when the table could not be found,
// mirroring GlyphFaceCacheHeader::initialize in the reference implementation,
// which fails fast if any of loca/head/glyf/hmtx/hhea/Glat/Gloc is missing.
func RequiredTable(p Provider, tag Tag, faults *Faults) (Bytes, bool) {
	raw, ok := p.GetTable(tag)
	if !ok {
		faults.Add(tag, "", "required table missing", SeverityCritical, 0)
		return Bytes{}, false
	}
	return NewBytes(raw), true
}

// OptionalTable fetches a table without recording a fault when absent.
func OptionalTable(p Provider, tag Tag) (Bytes, bool) {
	raw, ok := p.GetTable(tag)
	if !ok {
		return Bytes{}, false
	}
	return NewBytes(raw), true
}

// Well-known Graphite and OpenType table tags used by this engine.
var (
	TagSilf = ParseTag("Silf")
	TagGloc = ParseTag("Gloc")
	TagGlat = ParseTag("Glat")
	TagFeat = ParseTag("Feat")
	TagSill = ParseTag("Sill")
	TagMaxp = ParseTag("maxp")
	TagHead = ParseTag("head")
	TagHhea = ParseTag("hhea")
	TagHmtx = ParseTag("hmtx")
	TagGlyf = ParseTag("glyf")
	TagLoca = ParseTag("loca")
	TagCmap = ParseTag("cmap")
)
