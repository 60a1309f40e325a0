package silf

import (
	"golang.org/x/text/encoding/unicode"

	"github.com/npillmayer/graphite/fontdata"
)

// Feat table layout: a flat array of feature records followed by a label
// string pool, mirroring the directory+pool shape used to read the
// OpenType name table (otquery/name.go).
//
//	u16 numFeatures
//	{u32 id, i16 default, u16 numValues, i16 value[numValues],
//	 u16 numLabels, {u32 langTag, u16 labelOffset, u16 labelLen}[numLabels]}[numFeatures]
//
// Label offsets are relative to the start of the Feat table; labels are
// UTF-16BE, decoded with golang.org/x/text/encoding/unicode the same way the
// teacher decodes OpenType 'name' table records.
func parseFeat(b fontdata.Bytes, faults *fontdata.Faults) []Feature {
	if b.Len() < 2 {
		faults.Add(fontdata.TagFeat, "header", "table too short", fontdata.SeverityMinor, 0)
		return nil
	}
	numFeatures, _ := b.U16(0)
	pos := 2
	decoder := unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewDecoder()

	var out []Feature
	for i := 0; i < int(numFeatures); i++ {
		id, e1 := b.U32(pos)
		def, e2 := b.I16(pos + 4)
		numValues, e3 := b.U16(pos + 6)
		if e1 != nil || e2 != nil || e3 != nil {
			faults.Add(fontdata.TagFeat, "record", "feature record truncated", fontdata.SeverityMinor, pos)
			break
		}
		pos += 8
		values := make([]int16, numValues)
		for j := range values {
			v, err := b.I16(pos)
			if err != nil {
				faults.Add(fontdata.TagFeat, "record", "value enumeration truncated", fontdata.SeverityMinor, pos)
				break
			}
			values[j] = v
			pos += 2
		}

		numLabels, err := b.U16(pos)
		if err != nil {
			faults.Add(fontdata.TagFeat, "record", "label count truncated", fontdata.SeverityMinor, pos)
			break
		}
		pos += 2
		labels := map[string]string{}
		for j := 0; j < int(numLabels); j++ {
			langTag, e1 := b.U32(pos)
			labelOff, e2 := b.U16(pos + 4)
			labelLen, e3 := b.U16(pos + 6)
			pos += 8
			if e1 != nil || e2 != nil || e3 != nil {
				faults.Add(fontdata.TagFeat, "label", "label directory entry truncated", fontdata.SeverityMinor, pos)
				break
			}
			raw := b.Slice(int(labelOff), int(labelOff)+int(labelLen)).Raw()
			text, err := decoder.Bytes(raw)
			if err != nil {
				continue
			}
			tag := fontdata.Tag(langTag).String()
			labels[tag] = string(text)
		}

		out = append(out, Feature{ID: id, Default: def, Values: values, labels: labels})
	}
	return out
}
