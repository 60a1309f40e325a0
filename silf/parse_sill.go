package silf

import "github.com/npillmayer/graphite/fontdata"

// Sill table layout: a flat array of per-language override blocks, read the
// same bounds-checked way as the Feat and Silf tables.
//
//	u16 numLanguages
//	{u32 langTag, u16 numOverrides, {u32 featureID, i16 value}[numOverrides]}[numLanguages]
func parseSill(b fontdata.Bytes, faults *fontdata.Faults) map[string]map[uint32]int16 {
	out := map[string]map[uint32]int16{}
	if b.Len() < 2 {
		faults.Add(fontdata.TagSill, "header", "table too short", fontdata.SeverityMinor, 0)
		return out
	}
	numLanguages, _ := b.U16(0)
	pos := 2
	for i := 0; i < int(numLanguages); i++ {
		langTag, e1 := b.U32(pos)
		numOverrides, e2 := b.U16(pos + 4)
		if e1 != nil || e2 != nil {
			faults.Add(fontdata.TagSill, "language", "language block truncated", fontdata.SeverityMinor, pos)
			break
		}
		pos += 6

		overrides := map[uint32]int16{}
		for j := 0; j < int(numOverrides); j++ {
			featID, e1 := b.U32(pos)
			value, e2 := b.I16(pos + 4)
			if e1 != nil || e2 != nil {
				faults.Add(fontdata.TagSill, "override", "override entry truncated", fontdata.SeverityMinor, pos)
				break
			}
			overrides[featID] = value
			pos += 6
		}
		out[fontdata.Tag(langTag).String()] = overrides
	}
	return out
}
