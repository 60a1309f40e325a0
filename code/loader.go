package code

import "github.com/npillmayer/graphite/fontdata"

// StackMax is the largest stack depth any program may statically require
// (Graphite2's SlotMap/Machine use 512; see basic_test.cpp's STACK_ORDER
// comment). The loader rejects any program whose computed high-water mark
// exceeds it, before the VM ever runs.
const StackMax = 512

// LoadError enumerates the ways Load can fail, matching the named error
// conditions basic_test.cpp exercises one-for-one, plus a static stack
// overflow case the loader (not the VM) must catch before a program ever
// runs.
type LoadError int

const (
	Loaded LoadError = iota
	ErrAllocFailed
	ErrInvalidOpcode
	ErrUnimplementedOpcode
	ErrJumpPastEnd
	ErrArgumentsExhausted
	ErrMissingReturn
	ErrStackOverflow
)

var loadErrorNames = [...]string{
	"loaded",
	"alloc_failed",
	"invalid_opcode",
	"unimplemented_opcode_used",
	"jump_past_end",
	"arguments_exhausted",
	"missing_return",
	"stack_overflow",
}

func (e LoadError) String() string {
	if int(e) < 0 || int(e) >= len(loadErrorNames) {
		return "unknown"
	}
	return loadErrorNames[e]
}

func (e LoadError) Error() string { return "code: " + e.String() }

// decode reads one instruction's immediate operands starting at byte offset
// pos in raw, returning the populated Instr.
// The caller has already confirmed op's immBytes fit within raw.
func decode(op Opcode, raw fontdata.Bytes, pos int) Instr {
	in := Instr{Op: op}
	meta := table[op]
	switch meta.immBytes {
	case 0:
	case 1:
		b, _ := raw.U8(pos)
		in.Arg[0] = int32(int8(b))
	case 2:
		b0, _ := raw.U8(pos)
		b1, _ := raw.U8(pos + 1)
		if op == PushFeature {
			// A single big-endian uint16 feature index, not two independent
			// byte operands.
			in.Arg[0] = int32(b0)<<8 | int32(b1)
		} else {
			in.Arg[0] = int32(b0)
			in.Arg[1] = int32(int8(b1))
		}
	case 3:
		b0, _ := raw.U8(pos)
		b1, _ := raw.U8(pos + 1)
		b2, _ := raw.U8(pos + 2)
		in.Arg[0] = int32(b0)
		in.Arg[1] = int32(b1)
		in.Arg[2] = int32(int8(b2))
	case 4:
		if op == PushLong {
			v, _ := raw.U32(pos)
			in.Arg[0] = int32(v)
		} else {
			b0, _ := raw.U8(pos)
			b1, _ := raw.U8(pos + 1)
			b2, _ := raw.U8(pos + 2)
			b3, _ := raw.U8(pos + 3)
			in.Arg[0] = int32(int8(b0))
			in.Arg[1] = int32(int8(b1))
			in.Arg[2] = int32(b2)
			in.Arg[3] = int32(b3)
		}
	}
	return in
}

// Load decodes raw into an executable Program, running every static check
// before the VM is allowed to see it: every opcode must be in range and
// implemented, every immediate operand must fit inside raw,
// relative jump targets (SKIP/COND_SKIP) must land inside the decoded
// instruction stream or just past its end, the program must end on a
// terminal opcode (POP_RET), and the statically-computed stack high-water
// mark must not exceed StackMax. isConstraint marks a constraint program;
// bytecode that mutates the segment is not rejected here, but vm.Run
// refuses to execute a segment-writing opcode in a constraint program and
// reports MutationInConstraint instead.
func Load(raw fontdata.Bytes, isConstraint bool) (*Program, LoadError) {
	if raw.Len() == 0 {
		return nil, ErrAllocFailed
	}

	var instrs []Instr
	pos := 0
	dataSize := 0
	for pos < raw.Len() {
		b, err := raw.U8(pos)
		if err != nil {
			return nil, ErrArgumentsExhausted
		}
		op := Opcode(b)
		if int(op) >= int(opCount) {
			return nil, ErrInvalidOpcode
		}
		meta := table[op]
		if meta.reserved {
			return nil, ErrUnimplementedOpcode
		}
		if pos+1+meta.immBytes > raw.Len() {
			return nil, ErrArgumentsExhausted
		}
		instrs = append(instrs, decode(op, raw, pos+1))
		pos += 1 + meta.immBytes
		dataSize += meta.immBytes
	}
	if len(instrs) == 0 {
		return nil, ErrMissingReturn
	}
	last := instrs[len(instrs)-1]
	if !table[last.Op].terminal {
		return nil, ErrMissingReturn
	}

	for i, in := range instrs {
		if in.Op == Skip || in.Op == CondSkip {
			target := i + 1 + int(in.Arg[0])
			if target < 0 || target > len(instrs) {
				return nil, ErrJumpPastEnd
			}
		}
	}

	depth := 0
	high := 0
	for _, in := range instrs {
		meta := table[in.Op]
		depth -= meta.pop
		if depth < 0 {
			depth = 0 // the VM, not the loader, reports underflow at run time
		}
		depth += meta.push
		if depth > high {
			high = depth
		}
	}
	if high > StackMax {
		return nil, ErrStackOverflow
	}

	return &Program{
		Instrs:   instrs,
		IsConstr: isConstraint,
		MaxStack: high,
		dataSize: dataSize,
	}, Loaded
}
