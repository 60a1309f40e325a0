// Package pass implements the per-pass rule-application driver:
// repeatedly match, constrain, and act across a segment's slot stream, one
// pass at a time, in the order the face's Silf declares.
//
// Grounded on otshape/plan.go and otshape/pipeline.go's staged-pipeline
// shape (a fixed, ordered list of stages each run to completion before the
// next starts) and otshape/shape_runtime.go's per-stage status bookkeeping.
package pass

import (
	"github.com/npillmayer/graphite/match"
	"github.com/npillmayer/graphite/segment"
	"github.com/npillmayer/graphite/vm"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace { return tracing.Select("graphite.pass") }

// Kind distinguishes the four pass kinds a Silf can declare. The driver
// treats all kinds uniformly; only the rule programs' own opcodes differ in
// which slot fields they touch.
type Kind int

const (
	Linebreak Kind = iota
	Substitution
	Positioning
	Justification
)

// Pass is one entry in a Silf's pass list: a compiled matcher plus the loop
// bound that keeps a misbehaving rule from expanding the slot stream
// without limit.
type Pass struct {
	Kind        Kind
	Table       *match.Table
	MaxRuleLoop int // exceeding this advances the cursor by one slot unconditionally
}

// defaultMaxRuleLoop mirrors the reference implementation's conservative
// per-position rule-firing cap.
const defaultMaxRuleLoop = 4

// Run drives one pass to completion over seg, returning the first
// non-Finished VM status encountered, or vm.Finished if every rule match
// ran cleanly.
func Run(p *Pass, seg *segment.Segment, ctx *vm.Context) vm.Status {
	maxLoop := p.MaxRuleLoop
	if maxLoop <= 0 {
		maxLoop = defaultMaxRuleLoop
	}
	ctx.ClassGlyph = p.Table.ClassGlyph

	cursor := seg.FirstSlot()
	for !cursor.IsNil() {
		frame, rule, ok := p.Table.Match(seg, cursor)
		if !ok {
			cursor = seg.Next(cursor)
			continue
		}

		fired := 0
		for fired < maxLoop {
			cval, cstatus := vm.Run(rule.Constraint, ctx, cursor, frame.Start, frame.Start, frame.End)
			if cstatus != vm.Finished {
				return cstatus
			}
			if cval == 0 {
				break
			}

			_, astatus := vm.Run(rule.Action, ctx, cursor, frame.Start, frame.Start, frame.End)
			if astatus != vm.Finished {
				return astatus
			}
			fired++

			nextFrame, nextRule, matched := p.Table.Match(seg, cursor)
			if !matched {
				break
			}
			frame, rule = nextFrame, nextRule
		}

		if fired == 0 {
			cursor = seg.Next(cursor)
			continue
		}
		if fired >= maxLoop {
			tracer().Debugf("pass: maxRuleLoop exceeded at cursor, forcing advance")
			cursor = seg.Next(cursor)
			continue
		}
		next := seg.Next(frame.End)
		if next.IsNil() {
			break
		}
		cursor = next
	}
	return vm.Finished
}

// RunAll drives every pass in order, recording the most recent non-Finished
// status on seg.Status. A failing pass does not prevent later passes from
// running — only that pass's remaining rule applications are abandoned.
func RunAll(passes []Pass, seg *segment.Segment, ctx *vm.Context) {
	for i := range passes {
		status := Run(&passes[i], seg, ctx)
		if status != vm.Finished {
			seg.Status = status.String()
			tracer().Debugf("pass %d: %s", i, status)
		}
	}
}
