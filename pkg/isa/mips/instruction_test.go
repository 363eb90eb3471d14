package mips

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/isa"
)

func TestDecodeNop(t *testing.T) {
	instr := Decode(0, 0x80000400, 0, isa.AbiO32)

	assert.True(t, instr.IsValid())
	assert.True(t, instr.IsNop())
	assert.Equal(t, "nop", instr.Mnemonic())
}

func TestDecodeLui(t *testing.T) {
	// lui $gp, 0x8001
	raw := uint32(0o017)<<26 | uint32(28)<<16 | 0x8001
	instr := Decode(0x10, 0x80000410, raw, isa.AbiO32)

	assert.True(t, instr.IsValid())
	assert.Equal(t, "lui", instr.Mnemonic())
	assert.True(t, instr.OpcodeCanBeHi())
	rt, ok := instr.FieldRt()
	assert.True(t, ok)
	assert.Equal(t, isa.Register(28), rt)
	imm, ok := instr.GetProcessedImmediate()
	assert.True(t, ok)
	assert.Equal(t, int32(0x8001), imm)
}

func TestDecodeAddiuLoAndZeroExtendedAndi(t *testing.T) {
	// addiu $gp, $gp, -0x7ff0
	addiu := uint32(0o011)<<26 | uint32(28)<<21 | uint32(28)<<16 | uint32(uint16(-0x7ff0))
	instr := Decode(0x14, 0x80000414, addiu, isa.AbiO32)
	assert.True(t, instr.OpcodeCanBeLo())
	assert.False(t, instr.OpcodeCanBeUnsignedLo())
	imm, ok := instr.GetProcessedImmediate()
	assert.True(t, ok)
	assert.Equal(t, int32(-0x7ff0), imm)

	// andi $v0, $v0, 0xFFFF
	andi := uint32(0o014)<<26 | uint32(2)<<21 | uint32(2)<<16 | 0xFFFF
	andiInstr := Decode(0x18, 0x80000418, andi, isa.AbiO32)
	assert.True(t, andiInstr.OpcodeCanBeUnsignedLo())
	assert.False(t, andiInstr.OpcodeCanBeLo())
	andiImm, ok := andiInstr.GetProcessedImmediate()
	assert.True(t, ok)
	assert.Equal(t, int32(0xFFFF), andiImm, "andi's immediate is zero-extended, not sign-extended")
}

func TestDecodeBeqBranchTarget(t *testing.T) {
	// beq $zero, $zero, 4 (branch 4 instructions forward)
	raw := uint32(0o04)<<26 | 4
	instr := Decode(0x20, 0x80000420, raw, isa.AbiO32)

	assert.True(t, instr.IsBranch())
	assert.True(t, instr.IsUnconditionalBranch())
	target, ok := instr.GetBranchVramGeneric()
	assert.True(t, ok)
	assert.Equal(t, addresses.Vram(0x80000420+4+4*4), target)
}

func TestDecodeJReturn(t *testing.T) {
	// jr $ra
	raw := uint32(31)<<21 | uint32(0o10)
	instr := Decode(0x24, 0x80000424, raw, isa.AbiO32)

	assert.True(t, instr.IsReturn())
	assert.True(t, instr.HasDelaySlot())
	rs, ok := instr.FieldRs()
	assert.True(t, ok)
	assert.Equal(t, isa.RegRa, rs)
}

func TestDecodeUnknownOpcode(t *testing.T) {
	// primary opcode 0o77 (SD) is known; pick an actually-unassigned one instead
	raw := uint32(0o72) << 26
	instr := Decode(0x28, 0x80000428, raw, isa.AbiO32)

	assert.False(t, instr.IsValid())
}

func TestMoveDetectionFlagOnlyOnRTypeAlu(t *testing.T) {
	// addu $v0, $v1, $zero  -- a move idiom
	raw := uint32(2)<<11 | uint32(3)<<21 | uint32(0o41)
	instr := Decode(0x2C, 0x8000042C, raw, isa.AbiO32)

	assert.True(t, instr.OpcodeMaybeIsMove())
	rd, ok := instr.FieldRd()
	assert.True(t, ok)
	assert.Equal(t, isa.Register(2), rd)
}
