package vm

import (
	"testing"

	"github.com/npillmayer/graphite/code"
	"github.com/npillmayer/graphite/fontdata"
	"github.com/npillmayer/graphite/segment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadOrFail(t *testing.T, bytes ...byte) *code.Program {
	t.Helper()
	prog, status := code.Load(fontdata.NewBytes(bytes), false)
	require.Equal(t, code.Loaded, status)
	return prog
}

// TestArithmeticWorkedExample checks a worked arithmetic program: run
// status finished, returned value 43.
func TestArithmeticWorkedExample(t *testing.T) {
	prog := loadOrFail(t,
		byte(code.PushByte), 43,
		byte(code.PushByte), 42,
		byte(code.PushByte), 11,
		byte(code.PushByte), 13,
		byte(code.Add),
		byte(code.PushByte), 4,
		byte(code.Sub),
		byte(code.Cond),
		byte(code.PopRet),
	)
	seg := segment.New(0, 0)
	result, status := Run(prog, &Context{Seg: seg}, segment.NilHandle, segment.NilHandle, segment.NilHandle, segment.NilHandle)
	assert.Equal(t, Finished, status)
	assert.Equal(t, int32(43), result)
}

// TestUnderflowReportsAtRunTime checks that an extra COND beyond what the
// stack holds reports stack_underflow, and the
// segment is unmodified (there is nothing in this program that writes to
// the segment, so this exercises the "no mutation" half implicitly).
func TestUnderflowReportsAtRunTime(t *testing.T) {
	prog := loadOrFail(t,
		byte(code.PushByte), 43,
		byte(code.PushByte), 42,
		byte(code.PushByte), 11,
		byte(code.PushByte), 13,
		byte(code.Add),
		byte(code.PushByte), 4,
		byte(code.Sub),
		byte(code.Cond),
		byte(code.Cond),
		byte(code.PopRet),
	)
	seg := segment.New(0, 0)
	_, status := Run(prog, &Context{Seg: seg}, segment.NilHandle, segment.NilHandle, segment.NilHandle, segment.NilHandle)
	assert.Equal(t, StackUnderflow, status)
}

func TestPopRetOnlyProgramReturnsZero(t *testing.T) {
	prog := loadOrFail(t, byte(code.PopRet))
	seg := segment.New(0, 0)
	result, status := Run(prog, &Context{Seg: seg}, segment.NilHandle, segment.NilHandle, segment.NilHandle, segment.NilHandle)
	assert.Equal(t, Finished, status)
	assert.Equal(t, int32(0), result)
}

func TestSlotWritesMutateSegment(t *testing.T) {
	seg := segment.New(1, 0)
	h := seg.SeedSlot(0, 5)

	// PUSH_BYTE 9; PUT_GLYPH_ID 0 (self); POP_RET
	prog := loadOrFail(t,
		byte(code.PushByte), 9,
		byte(code.PutGlyphID), 0,
		byte(code.PopRet),
	)
	_, status := Run(prog, &Context{Seg: seg}, h, h, h, h)
	assert.Equal(t, Finished, status)
	assert.Equal(t, fontdata.GlyphID(9), seg.Glyph(h))
}

// TestConstraintProgramRejectsMutation checks that a constraint byte-code
// containing a PUT_GLYPH_ID never reaches the segment write: Run reports
// mutation_in_constraint instead, and the glyph is left untouched.
func TestConstraintProgramRejectsMutation(t *testing.T) {
	seg := segment.New(1, 0)
	h := seg.SeedSlot(0, 5)

	prog, status := code.Load(fontdata.NewBytes([]byte{
		byte(code.PushByte), 9,
		byte(code.PutGlyphID), 0,
		byte(code.PopRet),
	}), true)
	require.Equal(t, code.Loaded, status)

	_, runStatus := Run(prog, &Context{Seg: seg}, h, h, h, h)
	assert.Equal(t, MutationInConstraint, runStatus)
	assert.Equal(t, fontdata.GlyphID(5), seg.Glyph(h))
}

func TestSlotOffsetOutOfBoundsAborts(t *testing.T) {
	seg := segment.New(1, 0)
	h := seg.SeedSlot(0, 5)

	// SLOT_BREAK at offset +1, with only one slot in the segment.
	prog := loadOrFail(t, byte(code.SlotBreak), 1, byte(code.PopRet))
	_, status := Run(prog, &Context{Seg: seg}, h, h, h, h)
	assert.Equal(t, SlotOffsetOutBounds, status)
}

func TestCursorAdvanceAndSlotBreak(t *testing.T) {
	seg := segment.New(2, 0)
	h0 := seg.SeedSlot(0, 5)
	seg.SeedSlot(1, 7)
	seg.SetBreakWeight(seg.Next(h0), 3)

	// CURS_ADV 1; SLOT_BREAK 0; POP_RET
	prog := loadOrFail(t,
		byte(code.CursorAdvance), 1,
		byte(code.SlotBreak), 0,
		byte(code.PopRet),
	)
	result, status := Run(prog, &Context{Seg: seg}, h0, h0, h0, h0)
	assert.Equal(t, Finished, status)
	assert.Equal(t, int32(3), result)
}

func TestFeatureAndEngineFlagReads(t *testing.T) {
	seg := segment.New(0, 0)
	ctx := &Context{
		Seg:        seg,
		Feature:    func(id int32) int32 { return id * 2 },
		EngineFlag: func(id int32) int32 { return 1 },
	}
	prog := loadOrFail(t,
		byte(code.PushFeature), 0, 5,
		byte(code.PushEngineFlag), 0,
		byte(code.Add),
		byte(code.PopRet),
	)
	result, status := Run(prog, ctx, segment.NilHandle, segment.NilHandle, segment.NilHandle, segment.NilHandle)
	assert.Equal(t, Finished, status)
	assert.Equal(t, int32(11), result)
}

func TestSkipJumpsForward(t *testing.T) {
	seg := segment.New(0, 0)
	// PUSH_BYTE 1; SKIP 1 (jumps over PUSH_BYTE 9); PUSH_BYTE 9 (skipped);
	// PUSH_BYTE 5; ADD; POP_RET  =>  1 + 5 = 6
	prog := loadOrFail(t,
		byte(code.PushByte), 1,
		byte(code.Skip), 1,
		byte(code.PushByte), 9,
		byte(code.PushByte), 5,
		byte(code.Add),
		byte(code.PopRet),
	)
	result, status := Run(prog, &Context{Seg: seg}, segment.NilHandle, segment.NilHandle, segment.NilHandle, segment.NilHandle)
	assert.Equal(t, Finished, status)
	assert.Equal(t, int32(6), result)
}
