package silf

import (
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/match"
	"github.com/npillmayer/graphite/pass"
)

// silfHeader is the result of reading everything in the Silf table that
// sits outside the per-pass blocks: the user-attribute count, the pseudo-
// glyph map, and the compiled passes themselves.
type silfHeader struct {
	numUserAttrs int
	pseudoMap    map[rune]fontdata.GlyphID
	passes       []pass.Pass
}

// Silf on-disk layout (big-endian throughout, matching fontdata's
// bounds-checked accessors):
//
//	u32  version
//	u16  numUserAttrs
//	u16  numPasses
//	u32  passOffset[numPasses]   (relative to the start of the Silf table)
//	u16  numPseudo
//	{u32 codepoint, u16 glyph}[numPseudo]
//
// Each pass block:
//
//	u8   kind        (0 linebreak, 1 substitution, 2 positioning, 3 justification)
//	u8   maxRuleLoop
//	u16  precontext
//	u16  postcontext
//	u16  numClassesDense
//	i16  denseClass[numClassesDense]
//	u16  numRanges
//	{u16 start, u16 end, i16 class}[numRanges]
//	u16  numStates
//	u16  numCols
//	i16  transition[numStates*numCols]
//	u16  startState
//	u16  numAccepting
//	{u16 state, u16 numRuleIDs, u16 ruleID[numRuleIDs]}[numAccepting]
//	u16  numRules
//	{u16 ruleID, u16 sortKey, u16 constraintLen, u8 constraint[constraintLen],
//	 u16 actionLen, u8 action[actionLen]}[numRules]
//	u16  numOutputClasses        (optional trailer; absent if truncated here)
//	{u16 classID, u16 numGlyphs, u16 glyph[numGlyphs]}[numOutputClasses]
func parseSilf(b fontdata.Bytes, faults *fontdata.Faults) silfHeader {
	if b.Len() < 8 {
		faults.Add(fontdata.TagSilf, "header", "table too short", fontdata.SeverityCritical, 0)
		return silfHeader{pseudoMap: map[rune]fontdata.GlyphID{}}
	}
	numUserAttrs, _ := b.U16(4)
	numPasses, _ := b.U16(6)

	var entries []pass.Pass
	pos := 8
	for i := 0; i < int(numPasses); i++ {
		off, err := b.U32(pos)
		pos += 4
		if err != nil {
			faults.Add(fontdata.TagSilf, "passOffset", "offset table truncated", fontdata.SeverityMajor, pos)
			break
		}
		entry, ok := parsePass(b, int(off), faults)
		if ok {
			entries = append(entries, entry)
		}
	}

	pseudoMap := map[rune]fontdata.GlyphID{}
	if numPseudo, err := b.U16(pos); err == nil {
		pos += 2
		for i := 0; i < int(numPseudo); i++ {
			cp, e1 := b.U32(pos)
			g, e2 := b.U16(pos + 4)
			if e1 != nil || e2 != nil {
				faults.Add(fontdata.TagSilf, "pseudoMap", "pseudo-glyph entry truncated", fontdata.SeverityMinor, pos)
				break
			}
			pseudoMap[rune(cp)] = fontdata.GlyphID(g)
			pos += 6
		}
	}

	return silfHeader{numUserAttrs: int(numUserAttrs), pseudoMap: pseudoMap, passes: entries}
}

func parsePass(b fontdata.Bytes, at int, faults *fontdata.Faults) (pass.Pass, bool) {
	pos := at
	kindByte, err := b.U8(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "pass", "pass header out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	maxRuleLoop, _ := b.U8(pos + 1)
	precontext, _ := b.U16(pos + 2)
	postcontext, _ := b.U16(pos + 4)
	pos += 6

	numDense, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "pass", "class table out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2
	dense := make([]int16, numDense)
	for i := range dense {
		v, err := b.I16(pos)
		if err != nil {
			faults.Add(fontdata.TagSilf, "classTable", "dense class array truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		dense[i] = v
		pos += 2
	}

	numRanges, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "classTable", "range count out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2
	var ranges []match.Range
	for i := 0; i < int(numRanges); i++ {
		start, e1 := b.U16(pos)
		end, e2 := b.U16(pos + 2)
		cls, e3 := b.I16(pos + 4)
		if e1 != nil || e2 != nil || e3 != nil {
			faults.Add(fontdata.TagSilf, "classTable", "range entry truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		ranges = append(ranges, match.Range{Start: fontdata.GlyphID(start), End: fontdata.GlyphID(end), Class: cls})
		pos += 6
	}
	classes := match.NewClassTable(dense, ranges)

	numStates, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "transitions", "state count out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2
	numCols, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "transitions", "column count out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2

	transitions := make([][]int16, numStates)
	for s := 0; s < int(numStates); s++ {
		row := make([]int16, numCols)
		for c := 0; c < int(numCols); c++ {
			v, err := b.I16(pos)
			if err != nil {
				faults.Add(fontdata.TagSilf, "transitions", "transition table truncated", fontdata.SeverityMajor, pos)
				return pass.Pass{}, false
			}
			row[c] = v
			pos += 2
		}
		transitions[s] = row
	}

	startState, _ := b.U16(pos)
	pos += 2
	numAccepting, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "accepting", "accepting-state count out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2
	accepting := map[int16][]match.RuleID{}
	for i := 0; i < int(numAccepting); i++ {
		state, e1 := b.U16(pos)
		numIDs, e2 := b.U16(pos + 2)
		if e1 != nil || e2 != nil {
			faults.Add(fontdata.TagSilf, "accepting", "accepting entry truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		pos += 4
		ids := make([]match.RuleID, numIDs)
		for j := range ids {
			id, err := b.U16(pos)
			if err != nil {
				faults.Add(fontdata.TagSilf, "accepting", "rule id list truncated", fontdata.SeverityMajor, pos)
				return pass.Pass{}, false
			}
			ids[j] = match.RuleID(id)
			pos += 2
		}
		accepting[int16(state)] = ids
	}

	numRules, err := b.U16(pos)
	if err != nil {
		faults.Add(fontdata.TagSilf, "rules", "rule count out of bounds", fontdata.SeverityMajor, pos)
		return pass.Pass{}, false
	}
	pos += 2
	rules := map[match.RuleID]*match.Rule{}
	for i := 0; i < int(numRules); i++ {
		ruleID, e1 := b.U16(pos)
		sortKey, e2 := b.U16(pos + 2)
		if e1 != nil || e2 != nil {
			faults.Add(fontdata.TagSilf, "rules", "rule header truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		pos += 4

		cLen, err := b.U16(pos)
		if err != nil {
			faults.Add(fontdata.TagSilf, "rules", "constraint length truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		pos += 2
		cBytes := b.Slice(pos, pos+int(cLen))
		pos += int(cLen)

		aLen, err := b.U16(pos)
		if err != nil {
			faults.Add(fontdata.TagSilf, "rules", "action length truncated", fontdata.SeverityMajor, pos)
			return pass.Pass{}, false
		}
		pos += 2
		aBytes := b.Slice(pos, pos+int(aLen))
		pos += int(aLen)

		rule, loadStatus := LoadRule(match.RuleID(ruleID), int(sortKey), cBytes.Raw(), aBytes.Raw())
		if loadStatus != 0 { // code.Loaded == 0
			faults.Add(fontdata.TagSilf, "rules", "rule byte-code rejected: "+loadStatus.String(), fontdata.SeverityMinor, pos)
			continue
		}
		rules[match.RuleID(ruleID)] = rule
	}

	// Output-class table: optional, trailing. Older or minimal passes may
	// omit it entirely, in which case PUT_GLYPH_FROM_CLASS becomes a no-op
	// (its ClassGlyph lookup finds no output members and returns the glyph
	// unchanged).
	outputClasses := map[int16][]fontdata.GlyphID{}
	if numOutputClasses, err := b.U16(pos); err == nil {
		pos += 2
		for i := 0; i < int(numOutputClasses); i++ {
			classID, e1 := b.U16(pos)
			numGlyphs, e2 := b.U16(pos + 2)
			if e1 != nil || e2 != nil {
				faults.Add(fontdata.TagSilf, "outputClasses", "output-class entry truncated", fontdata.SeverityMinor, pos)
				break
			}
			pos += 4
			glyphs := make([]fontdata.GlyphID, numGlyphs)
			truncated := false
			for j := range glyphs {
				g, err := b.U16(pos)
				if err != nil {
					faults.Add(fontdata.TagSilf, "outputClasses", "output glyph list truncated", fontdata.SeverityMinor, pos)
					truncated = true
					break
				}
				glyphs[j] = fontdata.GlyphID(g)
				pos += 2
			}
			if truncated {
				break
			}
			outputClasses[int16(classID)] = glyphs
		}
	}

	tbl := &match.Table{
		Classes:       classes,
		Transitions:   transitions,
		Start:         int16(startState),
		Accepting:     accepting,
		Rules:         rules,
		Precontext:    int(precontext),
		Postcontext:   int(postcontext),
		OutputClasses: outputClasses,
	}
	entry := pass.Pass{
		MaxRuleLoop: int(maxRuleLoop),
		Kind:        kindFromByte(kindByte),
		Table:       tbl,
	}
	return entry, true
}

func kindFromByte(b byte) pass.Kind {
	switch b {
	case 0:
		return pass.Linebreak
	case 1:
		return pass.Substitution
	case 2:
		return pass.Positioning
	case 3:
		return pass.Justification
	default:
		return pass.Substitution
	}
}
