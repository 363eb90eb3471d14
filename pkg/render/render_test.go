package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/analysis"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/metadata"
	"mipsdisasm/pkg/reloc"
	"mipsdisasm/pkg/render"
	"mipsdisasm/pkg/sections"
)

func newSegment() *metadata.SegmentMetadata {
	rng := addresses.NewRomVramRange(0, 0x100, 0x80000000, 0x80000100)
	return metadata.NewSegmentMetadata("global", rng)
}

func TestAutodetectSizesUsesDistanceToNextSymbol(t *testing.T) {
	seg := newSegment()
	a := seg.GetOrCreateSymbol(0x80000000, metadata.SymbolWord)
	_ = seg.GetOrCreateSymbol(0x80000010, metadata.SymbolWord)

	render.AutodetectSizes(seg)

	assert.NotNil(t, a.Size)
	assert.Equal(t, addresses.Size(0x10), *a.Size)
}

func TestAutodetectSizesSizesLastSymbolAgainstSegmentEnd(t *testing.T) {
	seg := newSegment()
	last := seg.GetOrCreateSymbol(0x800000F0, metadata.SymbolWord)

	render.AutodetectSizes(seg)

	assert.NotNil(t, last.Size)
	assert.Equal(t, addresses.Size(0x10), *last.Size)
}

func TestGeneratedNamePrefersUserDeclaredName(t *testing.T) {
	sym := metadata.NewSymbolMetadata(0x80000000, metadata.SymbolFunction)
	sym.UserDeclaredName = "my_func"

	name := render.GeneratedName(config.DefaultNameGeneration(), sym)

	assert.Equal(t, "my_func", name)
}

func TestGeneratedNameUsesVramSuffixWhenConfigured(t *testing.T) {
	sym := metadata.NewSymbolMetadata(0x80000400, metadata.SymbolFunction)

	name := render.GeneratedName(config.DefaultNameGeneration(), sym)

	assert.Equal(t, "func_80000400", name)
}

func TestFunctionDirectivesGlabelVsGnuStyle(t *testing.T) {
	assert.Equal(t, []string{"glabel func_80000400"}, render.FunctionDirectives(config.MacroLabelGlabel, "func_80000400"))

	gnu := render.FunctionDirectives(config.MacroLabelDotType, "func_80000400")
	assert.Equal(t, []string{
		".globl func_80000400",
		".type func_80000400, @function",
		"func_80000400:",
	}, gnu)
}

func TestRenderDataSymbolCString(t *testing.T) {
	sym := metadata.NewSymbolMetadata(0x80001000, metadata.SymbolCString)
	lines := render.RenderDataSymbol(config.GlobalConfig{NameGen: config.DefaultNameGeneration()}, sym, []byte("hi\x00"), config.EndianBig)

	assert.Contains(t, lines, `.asciz "hi"`)
}

func TestRenderFunctionBackfillsSizeWhenUnset(t *testing.T) {
	sym := metadata.NewSymbolMetadata(0x80000400, metadata.SymbolFunction)
	fn := &sections.Function{Symbol: sym}

	render.RenderFunction(config.GlobalConfig{NameGen: config.DefaultNameGeneration(), MacroLabelStyle: config.MacroLabelGlabel}, fn, func(int) string { return "" })

	assert.NotNil(t, sym.Size)
	assert.Equal(t, addresses.Size(0), *sym.Size)
}

// TestRelocOperandDisplayResultResolvesHiThroughItsPairedLo checks that a
// `lui`'s own ProcessedResult (which never carries the composed value)
// gets swapped for its paired %lo's result, the lookup the renderer
// needs to print the right literal.
func TestRelocOperandDisplayResultResolvesHiThroughItsPairedLo(t *testing.T) {
	hiRom := addresses.Rom(0x10)
	pairedLo := analysis.ProcessedResult{Kind: analysis.ResPairedLo, Vram: addresses.Vram(0x80001234)}
	fn := &sections.Function{
		Analysis: analysis.InstructionAnalysisResult{
			HiPairLo: map[addresses.Rom]analysis.ProcessedResult{hiRom: pairedLo},
		},
	}

	hiResult := analysis.ProcessedResult{Kind: analysis.ResHi, Value32: 0x80000000}
	resolved := render.RelocOperandDisplayResult(fn, hiRom, hiResult)

	assert.Equal(t, pairedLo, resolved)
}

// TestRelocOperandTextRendersConstantLiterals checks comment 3's literal
// shifted/masked forms, not a fake %hi/%lo symbol, for a hi/lo pair that
// only ever composed a numeric constant.
func TestRelocOperandTextRendersConstantLiterals(t *testing.T) {
	result := analysis.ProcessedResult{Constant: 0x7FFFFFFF}

	hiText, ok := render.RelocOperandText(reloc.Relocation{Type: reloc.TypeCustomConstantHi}, result)
	assert.True(t, ok)
	assert.Equal(t, "(0x7FFFFFFF >> 16)", hiText)

	loText, ok := render.RelocOperandText(reloc.Relocation{Type: reloc.TypeCustomConstantLo}, result)
	assert.True(t, ok)
	assert.Equal(t, "(0x7FFFFFFF & 0xFFFF)", loText)
}

// TestRelocOperandTextRendersGotAndCallForms checks the got/call operand
// text the reloc synthesizer's new classifications (comment 5) need.
func TestRelocOperandTextRendersGotAndCallForms(t *testing.T) {
	result := analysis.ProcessedResult{Vram: addresses.Vram(0x80001000)}

	text, ok := render.RelocOperandText(reloc.Relocation{Type: reloc.TypeCall16}, result)
	assert.True(t, ok)
	assert.Equal(t, "%call16(0x80001000)", text)

	text, ok = render.RelocOperandText(reloc.Relocation{Type: reloc.TypeGotHi16}, result)
	assert.True(t, ok)
	assert.Equal(t, "%got_hi(0x80001000)", text)
}
