package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/isa/mips"
)

func decodeAt(rom uint32, vram uint32, word uint32) isa.Instruction {
	return mips.Decode(addresses.Rom(rom), addresses.Vram(vram), word, isa.AbiO32)
}

func rFormat(funct uint32, rs, rt, rd isa.Register) uint32 {
	return uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | funct
}

func iFormat(opcode uint32, rs, rt isa.Register, imm uint16) uint32 {
	return opcode<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(imm)
}

// TestProcessRegOpAddRegisterComposesHiGp exercises on_reg_op's genuine
// register-register add path (comment 1): `add $v1, $gp, $t0` where $t0
// carries a %hi value must compose ValHiGp, not fall through to the
// default clear. "add" never qualifies as a move idiom so it always
// reaches the arithmetic switch.
func TestProcessRegOpAddRegisterComposesHiGp(t *testing.T) {
	gpConfig := config.NewNonPicGpConfig(addresses.Vram(0x80010000))
	tracker := NewTracker(nil, &gpConfig)

	// lui $t0, 0x8001
	hi := decodeAt(0, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegT0, 0x8001))
	tracker.ProcessInstruction(hi, &gpConfig, nil, config.EndianBig)
	require.Equal(t, ValHi, tracker.Get(isa.RegT0).Kind)

	// add $v1, $gp, $t0
	add := decodeAt(4, 0x80000404, rFormat(0o40, isa.RegGp, isa.RegT0, isa.RegV1))
	result := tracker.ProcessInstruction(add, &gpConfig, nil, config.EndianBig)

	assert.Equal(t, ResUnhandledOpcode, result.Kind)
	assert.Equal(t, "add", result.Mnemonic)
	v1 := tracker.Get(isa.RegV1)
	require.Equal(t, ValHiGp, v1.Kind)
	assert.Equal(t, gpConfig.GpValue().Inner()+0x80010000, v1.Value32)
}

// TestProcessRegOpSubRegisterShrinksStack exercises the sub path: `subu
// $sp, $sp, $t0` where $t0 holds a small constant must shrink the
// tracked stack offset via SubRegister, not clear $sp to garbage.
func TestProcessRegOpSubRegisterShrinksStack(t *testing.T) {
	tracker := NewTracker(nil, nil)

	// ori $t0, $zero, 0x20 (bare unpaired constant)
	ori := decodeAt(0, 0x80000400, iFormat(0o015, isa.RegZero, isa.RegT0, 0x20))
	tracker.ProcessInstruction(ori, nil, nil, config.EndianBig)
	require.Equal(t, ValSmallConstant, tracker.Get(isa.RegT0).Kind)

	// subu $sp, $sp, $t0
	sub := decodeAt(4, 0x80000404, rFormat(0o43, isa.RegSp, isa.RegT0, isa.RegSp))
	result := tracker.ProcessInstruction(sub, nil, nil, config.EndianBig)

	assert.Equal(t, ResUnhandledOpcode, result.Kind)
	sp := tracker.Get(isa.RegSp)
	require.Equal(t, ValStackPointer, sp.Kind)
	assert.Equal(t, int32(-0x20), sp.Offset)
}

// TestProcessRegOpAndRegisterAbsorbsZero exercises the and path directly:
// `and $v0, $zero, $t0` must softly zero $v0 via AndRegister.
func TestProcessRegOpAndRegisterAbsorbsZero(t *testing.T) {
	tracker := NewTracker(nil, nil)

	and := decodeAt(0, 0x80000400, rFormat(0o44, isa.RegZero, isa.RegT0, isa.RegV0))
	tracker.ProcessInstruction(and, nil, nil, config.EndianBig)

	assert.Equal(t, ValSoftZero, tracker.Get(isa.RegV0).Kind)
}

// TestGpDispPrologueRecognizesTriple walks the three-instruction PIC
// _gp_disp idiom (comment 2): lui $gp,hi; addiu $gp,$gp,lo; addu
// $gp,$gp,$t9 must reconstruct $gp from $t9 (the function's own address)
// and record both hi/lo halves in GpSets as a PIC pairing.
func TestGpDispPrologueRecognizesTriple(t *testing.T) {
	functionVram := addresses.Vram(0x80000400)
	gpConfig := config.NewPicGpConfig(addresses.Vram(0x80010400))
	tracker := NewTracker(&functionVram, &gpConfig)

	require.Equal(t, ValGivenAddress, tracker.Get(isa.RegT9).Kind)

	// lui $gp, 1 -> displacement upper half
	hi := decodeAt(0, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegGp, 1))
	hiResult := tracker.ProcessInstruction(hi, &gpConfig, nil, config.EndianBig)
	require.Equal(t, ResHi, hiResult.Kind)

	// addiu $gp, $gp, 0 -> displacement lo half, composes 0x00010000
	lo := decodeAt(4, 0x80000404, iFormat(0o011, isa.RegGp, isa.RegGp, 0))
	loResult := tracker.ProcessInstruction(lo, &gpConfig, nil, config.EndianBig)
	require.Equal(t, ResPairedLo, loResult.Kind)
	require.Equal(t, ValRawAddress, tracker.Get(isa.RegGp).Kind)

	// addu $gp, $gp, $t9 -> third leg, composes funcVram + displacement
	triple := decodeAt(8, 0x80000408, rFormat(0o41, isa.RegGp, isa.RegT9, isa.RegGp))
	tripleResult := tracker.ProcessInstruction(triple, &gpConfig, nil, config.EndianBig)

	require.Equal(t, ResGpSet, tripleResult.Kind)
	gp := tracker.Get(isa.RegGp)
	require.Equal(t, ValGlobalPointer, gp.Kind)
	assert.Equal(t, gpConfig.GpValue().Inner(), gp.Gp.Inner())

	gpSets := tracker.GpSets()
	require.Contains(t, gpSets, addresses.Rom(0))
	require.Contains(t, gpSets, addresses.Rom(4))
	assert.True(t, gpSets[addresses.Rom(0)].IsHi)
	assert.True(t, gpSets[addresses.Rom(0)].Pic)
	assert.False(t, gpSets[addresses.Rom(4)].IsHi)
	assert.True(t, tracker.CploadRoms()[addresses.Rom(4)])
}

// TestLuiOriComposesPairedConstant exercises the constant path end-to-end
// (comment 3): lui $t0,0x7FFF; ori $t0,$t0,0xFFFF composes 0x7FFFFFFF and
// must classify as ResConstant, never a %hi/%lo symbol pair.
func TestLuiOriComposesPairedConstant(t *testing.T) {
	tracker := NewTracker(nil, nil)

	hi := decodeAt(0, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegT0, 0x7FFF))
	hiResult := tracker.ProcessInstruction(hi, nil, nil, config.EndianBig)
	require.Equal(t, ResHi, hiResult.Kind)

	ori := decodeAt(4, 0x80000404, iFormat(0o015, isa.RegT0, isa.RegT0, 0xFFFF))
	oriResult := tracker.ProcessInstruction(ori, nil, nil, config.EndianBig)

	require.Equal(t, ResConstant, oriResult.Kind)
	assert.Equal(t, uint32(0x7FFFFFFF), oriResult.Constant)
	assert.Equal(t, addresses.Rom(0), oriResult.HiRom)
	assert.Equal(t, ValConstant, tracker.Get(isa.RegT0).Kind)
}

// TestBareOriProducesUnpairedConstant exercises a bare `ori $rd, $zero,
// imm` with no preceding lui: it must classify as ResUnpairedConstant.
func TestBareOriProducesUnpairedConstant(t *testing.T) {
	tracker := NewTracker(nil, nil)

	ori := decodeAt(0, 0x80000400, iFormat(0o015, isa.RegZero, isa.RegT0, 0x1234))
	result := tracker.ProcessInstruction(ori, nil, nil, config.EndianBig)

	require.Equal(t, ResUnpairedConstant, result.Kind)
	assert.Equal(t, uint32(0x1234), result.Constant)
}

// TestAddImm16RejectsUpperNegativeComposedValue exercises the upper-
// negative rejection (comment 4): lui 0x8000; addiu -1 composes
// 0x7FFFFFFF, which has its sign bit clear and must be rejected as
// dangling rather than emitted as a %hi/%lo pair to a symbol.
func TestAddImm16RejectsUpperNegativeComposedValue(t *testing.T) {
	tracker := NewTracker(nil, nil)

	hi := decodeAt(0, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegT0, 0x8000))
	tracker.ProcessInstruction(hi, nil, nil, config.EndianBig)
	require.Equal(t, ValHi, tracker.Get(isa.RegT0).Kind)

	addiu := decodeAt(4, 0x80000404, iFormat(0o011, isa.RegT0, isa.RegT0, uint16(0xFFFF)))
	result := tracker.ProcessInstruction(addiu, nil, nil, config.EndianBig)

	assert.Equal(t, ResDanglingLo, result.Kind)
	assert.Equal(t, addresses.Vram(0), result.Vram)
	assert.Equal(t, ValGarbage, tracker.Get(isa.RegT0).Kind)
}

// TestAddImm16AcceptsGpSmallValueDespiteNonNegativeSignBit checks the $gp
// exemption alongside the previous test: a small, non-pointer-looking
// composed value is still accepted when the destination is $gp, since
// that's exactly the shape the non-PIC `lui $gp,%hi(_gp); addiu
// $gp,$gp,%lo(_gp)` idiom produces.
func TestAddImm16AcceptsGpSmallValueDespiteNonNegativeSignBit(t *testing.T) {
	tracker := NewTracker(nil, nil)
	gpConfig := config.NewNonPicGpConfig(addresses.Vram(0x00100000))

	hi := decodeAt(0, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegGp, 0x10))
	tracker.ProcessInstruction(hi, &gpConfig, nil, config.EndianBig)

	addiu := decodeAt(4, 0x80000404, iFormat(0o011, isa.RegGp, isa.RegGp, 0))
	result := tracker.ProcessInstruction(addiu, &gpConfig, nil, config.EndianBig)

	require.Equal(t, ResGpSet, result.Kind)
	assert.Equal(t, ValGlobalPointer, tracker.Get(isa.RegGp).Kind)
}
