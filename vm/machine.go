package vm

import (
	"github.com/npillmayer/graphite/code"
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/segment"
	"github.com/npillmayer/schuko/tracing"
)

func tracer() tracing.Trace { return tracing.Select("graphite.vm") }

// Guard is the number of sentinel cells kept below the usable stack region,
// mirroring direct_machine.cpp's STACK_GUARD. A run that would push or pop
// past the guard reports StackOverflow/StackUnderflow instead of touching
// memory outside the reserved array.
const Guard = 1

// Context supplies the external reads a rule program can make: feature
// values, glyph metrics/attributes from the face, and class-table lookups
// for PUT_GLYPH_FROM_CLASS. All fields are optional; a nil field reads as
// zero, the same fallback used for any other unknown id.
type Context struct {
	Seg *segment.Segment

	Feature     func(id int32) int32
	GlyphMetric func(g fontdata.GlyphID, metric int32) int32
	GlyphAttr   func(g fontdata.GlyphID, attrID int32) int32
	ClassGlyph  func(classID int32, g fontdata.GlyphID) fontdata.GlyphID
	EngineFlag  func(id int32) int32
}

func (c *Context) feature(id int32) int32 {
	if c.Feature == nil {
		return 0
	}
	return c.Feature(id)
}

func (c *Context) glyphMetric(g fontdata.GlyphID, m int32) int32 {
	if c.GlyphMetric == nil {
		return 0
	}
	return c.GlyphMetric(g, m)
}

func (c *Context) glyphAttr(g fontdata.GlyphID, a int32) int32 {
	if c.GlyphAttr == nil {
		return 0
	}
	return c.GlyphAttr(g, a)
}

func (c *Context) classGlyph(class int32, g fontdata.GlyphID) fontdata.GlyphID {
	if c.ClassGlyph == nil {
		return 0
	}
	return c.ClassGlyph(class, g)
}

func (c *Context) engineFlag(id int32) int32 {
	if c.EngineFlag == nil {
		return 0
	}
	return c.EngineFlag(id)
}

// Machine is one rule-program execution: registers plus a guarded stack.
// A Machine is created fresh per Run call and never escapes it.
type Machine struct {
	stack []int32
	sp    int // index of the next free stack cell
	top   int // one past the highest usable index

	ip int // instruction pointer, an index into Program.Instrs
	dp int // count of instructions executed so far (diagnostic)

	is, isb, isf, isl segment.Handle
	savedIs           segment.Handle

	copies uint64 // bitmap of COPY invocations this run, low 64 slots
}

func newMachine(maxStack int) *Machine {
	return &Machine{
		stack: make([]int32, Guard+maxStack+Guard),
		sp:    Guard,
		top:   Guard + maxStack,
	}
}

func (m *Machine) push(v int32) bool {
	if m.sp >= m.top {
		return false
	}
	m.stack[m.sp] = v
	m.sp++
	return true
}

func (m *Machine) pop() (int32, bool) {
	if m.sp <= Guard {
		return 0, false
	}
	m.sp--
	return m.stack[m.sp], true
}

func b2i(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

// moveFrom walks n slots forward (n>0) or backward (n<0) from start,
// reporting failure if the walk would run off either end of the segment.
func moveFrom(seg *segment.Segment, start segment.Handle, n int32) (segment.Handle, bool) {
	h := start
	for ; n > 0; n-- {
		h = seg.Next(h)
		if h.IsNil() {
			return h, false
		}
	}
	for ; n < 0; n++ {
		h = seg.Prev(h)
		if h.IsNil() {
			return h, false
		}
	}
	return h, true
}

// runFrame bundles the mutable state one Run call threads through its
// opcode handlers, plus the first fault encountered so the dispatch loop
// can abort cleanly and report the right Status.
type runFrame struct {
	m      *Machine
	ctx    *Context
	fault  Status
	failed bool
}

func (f *runFrame) push(v int32) bool {
	if f.failed {
		return false
	}
	if !f.m.push(v) {
		f.fault, f.failed = StackOverflow, true
		return false
	}
	return true
}

func (f *runFrame) pop() (int32, bool) {
	if f.failed {
		return 0, false
	}
	v, ok := f.m.pop()
	if !ok {
		f.fault, f.failed = StackUnderflow, true
	}
	return v, ok
}

func (f *runFrame) pop2() (a, b int32, ok bool) {
	if b, ok = f.pop(); !ok {
		return 0, 0, false
	}
	if a, ok = f.pop(); !ok {
		return 0, 0, false
	}
	return a, b, true
}

func (f *runFrame) move(start segment.Handle, n int32) (segment.Handle, bool) {
	if f.failed {
		return segment.NilHandle, false
	}
	h, ok := moveFrom(f.ctx.Seg, start, n)
	if !ok {
		f.fault, f.failed = SlotOffsetOutBounds, true
	}
	return h, ok
}

// mutatesSegment reports whether op writes to the segment's slots or slot
// stream. A constraint program is read-only by definition, so Run refuses to
// execute one of these instead of letting a malformed constraint byte-code
// mutate the segment ahead of its rule's own action.
func mutatesSegment(op code.Opcode) bool {
	switch op {
	case code.PutGlyphID, code.PutUserAttr, code.PutAttach, code.PutBreakWeight,
		code.PutInsertPerm, code.PutShift, code.PutAdvance,
		code.Copy, code.Insert, code.Delete, code.PutGlyphFromClass:
		return true
	default:
		return false
	}
}

// Run executes prog against ctx.Seg, starting the slot cursor at is, with
// isb/isf/isl the read-only start-slot/input-frame markers for this match
//. It returns the program's result value and the run status.
//
// Per direct_machine.cpp's run(): the returned value is taken from the
// stack after execution stops, regardless of why it stopped — if exactly
// one value remains above the guard region it is returned, otherwise 0.
func Run(prog *code.Program, ctx *Context, is, isb, isf, isl segment.Handle) (int32, Status) {
	m := newMachine(prog.MaxStack)
	m.is, m.isb, m.isf, m.isl = is, isb, isf, isl
	f := &runFrame{m: m, ctx: ctx}

loop:
	for m.ip < len(prog.Instrs) {
		instr := prog.Instrs[m.ip]
		next := m.ip + 1

		if prog.IsConstr && mutatesSegment(instr.Op) {
			f.fault, f.failed = MutationInConstraint, true
			break
		}

		switch instr.Op {
		case code.PushByte, code.PushLong:
			f.push(instr.Arg[0])
		case code.PopRet:
			break loop

		case code.Add:
			if a, b, ok := f.pop2(); ok {
				f.push(a + b)
			}
		case code.Sub:
			if a, b, ok := f.pop2(); ok {
				f.push(a - b)
			}
		case code.Mul:
			if a, b, ok := f.pop2(); ok {
				f.push(a * b)
			}
		case code.Div:
			if a, b, ok := f.pop2(); ok {
				if b == 0 {
					f.push(0)
				} else {
					f.push(a / b)
				}
			}
		case code.Neg:
			if a, ok := f.pop(); ok {
				f.push(-a)
			}
		case code.And:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a != 0 && b != 0))
			}
		case code.Or:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a != 0 || b != 0))
			}
		case code.Not:
			if a, ok := f.pop(); ok {
				f.push(b2i(a == 0))
			}
		case code.Eq:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a == b))
			}
		case code.Ne:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a != b))
			}
		case code.Lt:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a < b))
			}
		case code.Le:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a <= b))
			}
		case code.Gt:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a > b))
			}
		case code.Ge:
			if a, b, ok := f.pop2(); ok {
				f.push(b2i(a >= b))
			}
		case code.Cond:
			// Pops (c, a, b) with c on top; pushes b if c != 0, else a. See
			// the Cond entry in code/opcodes.go for the worked derivation.
			if c, ok := f.pop(); ok {
				if a, ok := f.pop(); ok {
					if b, ok := f.pop(); ok {
						if c != 0 {
							f.push(b)
						} else {
							f.push(a)
						}
					}
				}
			}

		case code.CursorAdvance:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				m.is = target
			}
		case code.CursorSelect:
			if target, ok := f.move(m.isb, instr.Arg[0]); ok {
				m.is = target
			}
		case code.CursorSave:
			m.savedIs = m.is
		case code.CursorRestore:
			m.is = m.savedIs

		case code.GlyphMetric:
			if target, ok := f.move(m.is, instr.Arg[1]); ok {
				f.push(ctx.glyphMetric(ctx.Seg.Glyph(target), instr.Arg[0]))
			}
		case code.GlyphAttr:
			if target, ok := f.move(m.is, instr.Arg[1]); ok {
				f.push(ctx.glyphAttr(ctx.Seg.Glyph(target), instr.Arg[0]))
			}
		case code.SlotAttr:
			if target, ok := f.move(m.is, instr.Arg[2]); ok {
				f.push(ctx.Seg.Attr(target, segment.AttrCode(instr.Arg[0]), int(instr.Arg[1])))
			}
		case code.SlotUserAttr:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(int32(ctx.Seg.UserAttr(target, int(instr.Arg[1]))))
			}
		case code.SlotAttachedTo:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(b2i(!ctx.Seg.AttachTo(target).IsNil()))
			}
		case code.SlotBreak:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(int32(ctx.Seg.BreakWeight(target)))
			}
		case code.SlotDirectionality:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(int32(ctx.Seg.Directionality(target)))
			}
		case code.SlotClusterBefore:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(int32(ctx.Seg.Before(target)))
			}
		case code.SlotClusterAfter:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				f.push(int32(ctx.Seg.After(target)))
			}

		case code.PutGlyphID:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if v, ok := f.pop(); ok {
					ctx.Seg.SetGlyph(target, fontdata.GlyphID(v))
				}
			}
		case code.PutUserAttr:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if v, ok := f.pop(); ok {
					ctx.Seg.SetUserAttr(target, int(instr.Arg[1]), int16(v))
				}
			}
		case code.PutAttach:
			if self, ok := f.move(m.is, instr.Arg[0]); ok {
				if parent, ok := f.move(m.is, instr.Arg[1]); ok {
					if offX, offY, ok := f.pop2(); ok {
						ctx.Seg.SetAttachment(self, parent, int16(instr.Arg[2]), int16(instr.Arg[3]), float64(offX), float64(offY))
					}
				}
			}
		case code.PutBreakWeight:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if v, ok := f.pop(); ok {
					ctx.Seg.SetBreakWeight(target, int16(v))
				}
			}
		case code.PutInsertPerm:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if v, ok := f.pop(); ok {
					ctx.Seg.SetCanInsertBefore(target, v != 0)
				}
			}
		case code.PutShift:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if x, y, ok := f.pop2(); ok {
					ctx.Seg.SetShift(target, float64(x), float64(y))
				}
			}
		case code.PutAdvance:
			if target, ok := f.move(m.is, instr.Arg[0]); ok {
				if x, y, ok := f.pop2(); ok {
					ctx.Seg.SetAdvance(target, float64(x), float64(y))
				}
			}

		case code.Copy:
			if src, ok := f.move(m.is, instr.Arg[0]); ok {
				ctx.Seg.InsertBefore(m.is, ctx.Seg.Glyph(src))
				m.copies |= 1 << (uint(m.dp) % 64)
			}
		case code.Insert:
			ctx.Seg.InsertBefore(m.is, 0)
		case code.Delete:
			nxt := ctx.Seg.Next(m.is)
			if ctx.Seg.Delete(m.is) {
				m.is = nxt
			}
		case code.PutGlyphFromClass:
			if target, ok := f.move(m.is, instr.Arg[1]); ok {
				ctx.Seg.SetGlyph(target, ctx.classGlyph(instr.Arg[0], ctx.Seg.Glyph(target)))
			}

		case code.Skip:
			next = m.ip + 1 + int(instr.Arg[0])
		case code.CondSkip:
			if c, ok := f.pop(); ok && c != 0 {
				next = m.ip + 1 + int(instr.Arg[0])
			}

		case code.PushFeature:
			f.push(ctx.feature(instr.Arg[0]))
		case code.PushEngineFlag:
			f.push(ctx.engineFlag(instr.Arg[0]))

		default:
			// The loader guarantees every decoded opcode is known and
			// implemented; this is unreachable outside a loader defect.
			tracer().Errorf("vm: unhandled opcode %s", instr.Op.Name())
		}

		if f.failed {
			break
		}
		m.dp++
		m.ip = next
	}

	status := f.fault
	depth := m.sp - Guard
	var result int32
	if depth == 1 {
		m.sp--
		result = m.stack[m.sp]
	} else if depth > 1 && !f.failed {
		status = StackNotEmpty
	}
	return result, status
}
