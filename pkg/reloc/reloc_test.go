package reloc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/analysis"
	"mipsdisasm/pkg/reloc"
)

// TestFromResultDistinguishesCallFromGot exercises comment 5's function-
// vs-data distinction: the same ResGpGotGlobal classification renders as
// %call16 when the caller says the register feeds a jalr, and %got16
// otherwise.
func TestFromResultDistinguishesCallFromGot(t *testing.T) {
	result := analysis.ProcessedResult{Kind: analysis.ResGpGotGlobal, Vram: addresses.Vram(0x80001000)}

	call, ok := reloc.FromResult(result, true)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeCall16, call.Type)

	data, ok := reloc.FromResult(result, false)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeGot16, data.Type)
}

// TestFromResultLazyResolverAlsoDistinguishes checks the lazy-resolver
// variant gets the same function/data split as a plain global GOT entry.
func TestFromResultLazyResolverAlsoDistinguishes(t *testing.T) {
	result := analysis.ProcessedResult{Kind: analysis.ResGpGotLazyResolver, Vram: addresses.Vram(0x80001010)}

	call, ok := reloc.FromResult(result, true)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeCall16, call.Type)

	data, ok := reloc.FromResult(result, false)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeGot16, data.Type)
}

// TestClassifyHiAndLoGotFunction checks the got_hi/lo vs call_hi/lo split
// for a plain %hi/%lo pair whose composed address also happens to be a
// GOT entry's target (comment 5).
func TestClassifyHiAndLoGotFunction(t *testing.T) {
	pairedFunc := analysis.ProcessedResult{Kind: analysis.ResPairedLo, GotTarget: true, GotFunction: true}
	assert.Equal(t, reloc.TypeCallHi16, reloc.ClassifyHi(pairedFunc))
	assert.Equal(t, reloc.TypeCallLo16, reloc.ClassifyLo(pairedFunc))

	pairedData := analysis.ProcessedResult{Kind: analysis.ResPairedLo, GotTarget: true, GotFunction: false}
	assert.Equal(t, reloc.TypeGotHi16, reloc.ClassifyHi(pairedData))
	assert.Equal(t, reloc.TypeGotLo16, reloc.ClassifyLo(pairedData))

	plain := analysis.ProcessedResult{Kind: analysis.ResPairedLo}
	assert.Equal(t, reloc.TypeHi16, reloc.ClassifyHi(plain))
	assert.Equal(t, reloc.TypeLo16, reloc.ClassifyLo(plain))
}

// TestFromResultConstantPath checks comment 3's constant relocations are
// actually reachable through FromResult now, for both the paired
// (lui;ori) and unpaired (bare ori) constant shapes.
func TestFromResultConstantPath(t *testing.T) {
	paired := analysis.ProcessedResult{Kind: analysis.ResConstant, Constant: 0x7FFFFFFF}
	r, ok := reloc.FromResult(paired, false)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeCustomConstantLo, r.Type)
	assert.Equal(t, reloc.TypeCustomConstantHi, reloc.ClassifyHi(paired))

	unpaired := analysis.ProcessedResult{Kind: analysis.ResUnpairedConstant, Constant: 0x1234}
	r, ok = reloc.FromResult(unpaired, false)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypeCustomConstantLo, r.Type)
}

// TestFromResultCallVsBranchTarget checks the 26-bit jump-form vs
// PC-relative branch split for direct calls/tail calls.
func TestFromResultCallVsBranchTarget(t *testing.T) {
	direct := analysis.ProcessedResult{Kind: analysis.ResDirectLinkingCall, TargetVram: addresses.Vram(0x80002000)}

	jumpForm, ok := reloc.FromResult(direct, true)
	assert.True(t, ok)
	assert.Equal(t, reloc.Type26, jumpForm.Type)

	branchForm, ok := reloc.FromResult(direct, false)
	assert.True(t, ok)
	assert.Equal(t, reloc.TypePc16, branchForm.Type)
}

// TestRelocationTypeStringNames checks the assembler-facing names used
// when a relocation is reported, including the synthetic constant kinds.
func TestRelocationTypeStringNames(t *testing.T) {
	assert.Equal(t, "R_MIPS_CALL16", reloc.TypeCall16.String())
	assert.Equal(t, "R_MIPS_GOT_HI16", reloc.TypeGotHi16.String())
	assert.Equal(t, "R_CUSTOM_CONSTANT_HI", reloc.TypeCustomConstantHi.String())
	assert.Equal(t, "R_CUSTOM_CONSTANT_LO", reloc.TypeCustomConstantLo.String())
}
