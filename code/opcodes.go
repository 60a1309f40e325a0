// Package code implements the Graphite rule byte-code loader and validator:
// it decodes a raw constraint or action program into an executable Program,
// statically verifies stack-depth bounds and operand bounds, and reports
// seven distinct loader error conditions up front rather than letting the
// virtual machine discover them at run time.
//
// Grounded on the reference implementation's direct_machine.cpp (the shape
// of the opcode set: what each instruction pops/pushes and what immediate
// operands it reads) and tests/vm/basic_test.cpp (the PUSH_BYTE/PUSH_LONG/
// ADD/SUB/COND/POP_RET worked example and the named error enums).
package code

// Opcode identifies one VM instruction.
type Opcode byte

const (
	// Constants / stack.
	PushByte Opcode = iota
	PushLong
	PopRet

	// Arithmetic / logic.
	Add
	Sub
	Mul
	Div
	Neg
	And
	Or
	Not
	Eq
	Ne
	Lt
	Le
	Gt
	Ge
	Cond // ternary selector; see doc comment on Cond below

	// Slot cursor.
	CursorAdvance
	CursorSelect
	CursorSave
	CursorRestore

	// Slot reads.
	GlyphMetric
	GlyphAttr
	SlotAttr
	SlotUserAttr
	SlotAttachedTo
	SlotBreak
	SlotDirectionality
	SlotClusterBefore
	SlotClusterAfter

	// Slot writes.
	PutGlyphID
	PutUserAttr
	PutAttach
	PutBreakWeight
	PutInsertPerm
	PutShift
	PutAdvance

	// Structural edits.
	Copy
	Insert
	Delete
	PutGlyphFromClass

	// Control flow.
	Skip
	CondSkip

	// Features and environment.
	PushFeature
	PushEngineFlag

	// opReserved is not implemented; the loader must reject any program
	// that references it with ErrUnimplementedOpcode.
	opReserved

	opCount
)

// info describes one opcode's static shape: how many immediate bytes it
// consumes from the instruction stream, and its stack effect (push - pop),
// used by the loader to compute the running stack depth without executing
// anything.
type info struct {
	name      string
	immBytes  int
	pop, push int
	terminal  bool // a program must end on a terminal opcode
	reserved  bool // unimplemented; always rejected
}

// immBytes sentinel: CursorSelect/Skip/CondSkip read one signed-byte relative
// operand; PushFeature/PutUserAttr etc. read small fixed-width operands.
var table = [opCount]info{
	PushByte: {"PUSH_BYTE", 1, 0, 1, false, false},
	PushLong: {"PUSH_LONG", 4, 0, 1, false, false},
	// POP_RET does not itself pop: it terminates the program and leaves the
	// result, if any, for Machine.run to collect from the stack (see
	// direct_machine.cpp's run() exit check: exactly one value above the
	// guard region is returned, anything else yields 0).
	PopRet: {"POP_RET", 0, 0, 0, true, false},

	Add:  {"ADD", 0, 2, 1, false, false},
	Sub:  {"SUB", 0, 2, 1, false, false},
	Mul:  {"MUL", 0, 2, 1, false, false},
	Div:  {"DIV", 0, 2, 1, false, false},
	Neg:  {"NEG", 0, 1, 1, false, false},
	And:  {"AND", 0, 2, 1, false, false},
	Or:   {"OR", 0, 2, 1, false, false},
	Not:  {"NOT", 0, 1, 1, false, false},
	Eq:   {"EQ", 0, 2, 1, false, false},
	Ne:   {"NE", 0, 2, 1, false, false},
	Lt:   {"LT", 0, 2, 1, false, false},
	Le:   {"LE", 0, 2, 1, false, false},
	Gt:   {"GT", 0, 2, 1, false, false},
	Ge:   {"GE", 0, 2, 1, false, false},
	// Cond pops (c, a, b), c on top, and pushes b if c != 0, else a. This
	// asymmetric-looking rule is pinned by the worked example
	// 43,42,11,13,ADD,4,SUB,COND ⇒ 43: after the arithmetic the stack holds
	// [43, 42, 20], and COND must discard 42 and 20 to leave 43, so c != 0
	// selects the deepest operand, not the middle one.
	Cond: {"COND", 0, 3, 1, false, false},

	CursorAdvance: {"CURS_ADV", 1, 0, 0, false, false},
	CursorSelect:  {"CURS_SEL", 1, 0, 0, false, false},
	CursorSave:    {"CURS_SAVE", 0, 0, 0, false, false},
	CursorRestore: {"CURS_RESTORE", 0, 0, 0, false, false},

	GlyphMetric:        {"GLYPH_METRIC", 2, 0, 1, false, false},
	GlyphAttr:          {"GLYPH_ATTR", 2, 0, 1, false, false},
	SlotAttr:           {"SLOT_ATTR", 3, 0, 1, false, false},
	SlotUserAttr:       {"SLOT_USER_ATTR", 2, 0, 1, false, false},
	SlotAttachedTo:     {"SLOT_ATTACHED_TO", 1, 0, 1, false, false},
	SlotBreak:          {"SLOT_BREAK", 1, 0, 1, false, false},
	SlotDirectionality: {"SLOT_DIR", 1, 0, 1, false, false},
	SlotClusterBefore:  {"SLOT_CLUSTER_BEFORE", 1, 0, 1, false, false},
	SlotClusterAfter:   {"SLOT_CLUSTER_AFTER", 1, 0, 1, false, false},

	PutGlyphID:     {"PUT_GLYPH_ID", 1, 1, 0, false, false},
	PutUserAttr:    {"PUT_USER_ATTR", 2, 1, 0, false, false},
	PutAttach:      {"PUT_ATTACH", 4, 2, 0, false, false},
	PutBreakWeight: {"PUT_BREAK_WEIGHT", 1, 1, 0, false, false},
	PutInsertPerm:  {"PUT_INSERT_PERM", 1, 1, 0, false, false},
	PutShift:       {"PUT_SHIFT", 1, 2, 0, false, false},
	PutAdvance:     {"PUT_ADVANCE", 1, 2, 0, false, false},

	Copy:              {"COPY", 1, 0, 0, false, false},
	Insert:            {"INSERT", 0, 0, 0, false, false},
	Delete:            {"DELETE", 0, 0, 0, false, false},
	PutGlyphFromClass: {"PUT_GLYPH_FROM_CLASS", 2, 0, 0, false, false},

	Skip:     {"SKIP", 1, 0, 0, false, false},
	CondSkip: {"COND_SKIP", 1, 1, 0, false, false},

	PushFeature:    {"PUSH_FEATURE", 2, 0, 1, false, false},
	PushEngineFlag: {"PUSH_ENGINE_FLAG", 1, 0, 1, false, false},

	opReserved: {"RESERVED", 0, 0, 0, false, true},
}

// Name returns the opcode's mnemonic, or "" if op is out of range.
func (op Opcode) Name() string {
	if int(op) < 0 || int(op) >= len(table) {
		return ""
	}
	return table[op].name
}
