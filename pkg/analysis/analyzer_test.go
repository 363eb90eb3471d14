package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/isa"
)

func jFormat(opcode uint32, targetVram uint32) uint32 {
	index := (targetVram & 0x0FFFFFFF) >> 2
	return opcode<<26 | index
}

// TestRescueIndirectTargetsRecoversCallClobberedByIntermediateCall builds
// a function where $t0 is loaded with a function pointer, an unrelated
// call happens in between (which conservatively clobbers every caller-
// saved register per the o32 ABI, $t0 included), and only then is $t0
// used for an indirect call. The forward tracker alone loses the pointer
// at the intervening call; the backward rescue pass must recover it since
// no instruction actually targeted $t0 in between.
func TestRescueIndirectTargetsRecoversCallClobberedByIntermediateCall(t *testing.T) {
	funcVram := addresses.Vram(0x80000400)
	helperTarget := uint32(0x80009000)
	pointerTarget := addresses.Vram(0x80001230)

	instrs := []isa.Instruction{
		decodeAt(0x00, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegT0, 0x8000)), // lui $t0, 0x8000
		decodeAt(0x04, 0x80000404, iFormat(0o011, isa.RegT0, isa.RegT0, 0x1230)),   // addiu $t0, $t0, 0x1230
		decodeAt(0x08, 0x80000408, jFormat(0o03, helperTarget)),                    // jal helper
		decodeAt(0x0C, 0x8000040C, 0),                                             // nop (delay slot)
		decodeAt(0x10, 0x80000410, rFormat(0o11, isa.RegT0, isa.RegZero, isa.RegRa)), // jalr $t0
		decodeAt(0x14, 0x80000414, 0),                                             // nop (delay slot)
	}

	refs, result := AnalyzeFunction(config.GlobalConfig{}, nil, nil, funcVram, instrs)

	require.Contains(t, result.IndirectFunctionCall, addresses.Rom(0x10))
	assert.Equal(t, pointerTarget, result.IndirectFunctionCall[addresses.Rom(0x10)])
	assert.True(t, result.ReferencedVrams[pointerTarget])

	var rescued *Reference
	for i := range refs {
		if refs[i].FromVram == addresses.Vram(0x80000410) {
			rescued = &refs[i]
		}
	}
	require.NotNil(t, rescued, "rescue must emit a reference from the jalr's own vram")
	assert.Equal(t, pointerTarget, rescued.ToVram)
	assert.True(t, rescued.IsFunctionCall)
}

// TestRescueIndirectTargetsStopsAtGenuineClobber checks the rescue pass
// does NOT guess past an instruction that actually overwrote the
// register to something unresolved: a real clobber must block the rescue
// rather than reach further back to a stale, no-longer-true value.
func TestRescueIndirectTargetsStopsAtGenuineClobber(t *testing.T) {
	funcVram := addresses.Vram(0x80000400)

	instrs := []isa.Instruction{
		decodeAt(0x00, 0x80000400, iFormat(0o017, isa.RegZero, isa.RegT0, 0x8000)),       // lui $t0, 0x8000
		decodeAt(0x04, 0x80000404, iFormat(0o011, isa.RegT0, isa.RegT0, 0x1230)),         // addiu $t0, $t0, 0x1230
		decodeAt(0x08, 0x80000408, iFormat(0o043, isa.RegSp, isa.RegT0, 0)),              // lw $t0, 0($sp) -- genuine clobber
		decodeAt(0x0C, 0x8000040C, rFormat(0o11, isa.RegT0, isa.RegZero, isa.RegRa)),     // jalr $t0
		decodeAt(0x10, 0x80000410, 0),                                                    // nop (delay slot)
	}

	_, result := AnalyzeFunction(config.GlobalConfig{}, nil, nil, funcVram, instrs)

	assert.NotContains(t, result.IndirectFunctionCall, addresses.Rom(0x0C))
}
