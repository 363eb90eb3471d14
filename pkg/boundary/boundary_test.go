package boundary_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/boundary"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/isa/mips"
)

// words is a tiny two-function stream: addiu $v0,$v0,1; jr $ra; nop (fn 1),
// then addiu $v0,$v0,2; jr $ra; nop (fn 2).
func words() []uint32 {
	addiu := func(imm uint16) uint32 { return uint32(0o11)<<26 | uint32(2)<<21 | uint32(2)<<16 | uint32(imm) }
	jr := func(rs uint32) uint32 { return rs<<21 | uint32(0o10) }
	return []uint32{
		addiu(1), jr(31), 0,
		addiu(2), jr(31), 0,
	}
}

func TestFindFunctionsSplitsAtReturn(t *testing.T) {
	base := addresses.Vram(0x80000400)
	raw := words()
	instrs := make([]isa.Instruction, len(raw))
	for i, w := range raw {
		instrs[i] = mips.Decode(addresses.Rom(i*4), base.Add(uint32(i*4)), w, isa.AbiO32)
	}

	finder := boundary.NewFinder(config.GlobalConfig{DetectRedundantFunctionEnd: true})
	results := finder.FindFunctions(instrs, map[addresses.Vram]bool{base: true})

	require.Len(t, results, 2)
	assert.Equal(t, base, results[0].StartVram)
	assert.Equal(t, base.Add(12), results[1].StartVram)
}
