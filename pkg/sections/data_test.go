package sections_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/metadata"
	"mipsdisasm/pkg/sections"
)

func newContextAndSegment() (*mctx.Context, *metadata.SegmentMetadata) {
	rng := addresses.NewRomVramRange(0, 0x100, 0x80000000, 0x80000100)
	ctx := mctx.New(config.GlobalConfig{}, rng)
	return ctx, ctx.GlobalSegment
}

func TestDataSectionClassifiesCString(t *testing.T) {
	ctx, seg := newContextAndSegment()
	rom := addresses.Rom(0x80)
	vramRange := addresses.VramRange{Start: 0x80000080, End: 0x80000088}
	raw := []byte("ABCDEFG\x00") // exactly 8 bytes: printable text ending in a single NUL

	seg.GetOrCreateSymbol(vramRange.Start, metadata.SymbolWord)

	sections.PreheatData(ctx, rom, vramRange, raw, seg, addresses.VramRange{}, false)
	section, err := sections.NewDataSection(ctx, rom, mctx.SectionData, vramRange, raw, seg, addresses.VramRange{}, false)
	require.NoError(t, err)
	require.Len(t, section.Symbols, 1)

	assert.Equal(t, metadata.SymbolCString, section.Symbols[0].Symbol.Kind)
}

func TestDataSectionCreateTwiceFails(t *testing.T) {
	ctx, seg := newContextAndSegment()
	rom := addresses.Rom(0x80)
	vramRange := addresses.VramRange{Start: 0x80000080, End: 0x80000084}
	raw := []byte{0, 0, 0, 1}

	sections.PreheatData(ctx, rom, vramRange, raw, seg, addresses.VramRange{}, false)
	_, err := sections.NewDataSection(ctx, rom, mctx.SectionData, vramRange, raw, seg, addresses.VramRange{}, false)
	require.NoError(t, err)

	_, err = sections.NewDataSection(ctx, rom, mctx.SectionData, vramRange, raw, seg, addresses.VramRange{}, false)
	assert.ErrorIs(t, err, mctx.ErrSectionAlreadyCreated)
}

func TestDataSectionRequiresPreheat(t *testing.T) {
	ctx, seg := newContextAndSegment()
	rom := addresses.Rom(0x80)
	vramRange := addresses.VramRange{Start: 0x80000080, End: 0x80000084}

	_, err := sections.NewDataSection(ctx, rom, mctx.SectionData, vramRange, []byte{0, 0, 0, 0}, seg, addresses.VramRange{}, false)
	assert.ErrorIs(t, err, mctx.ErrSegmentNotPreheated)
}

func TestBssSectionSizesFromUserDeclaration(t *testing.T) {
	ctx, seg := newContextAndSegment()
	vramRange := addresses.VramRange{Start: 0x800000A0, End: 0x800000B0}

	section, err := sections.NewBssSection(ctx, vramRange, seg, map[addresses.Vram]addresses.Size{
		0x800000A0: 8,
	})
	require.NoError(t, err)
	require.Len(t, section.Symbols, 1)
	assert.Equal(t, addresses.Size(8), *section.Symbols[0].Size)
}

func TestBssSectionCreateTwiceAtSameVramFails(t *testing.T) {
	ctx, seg := newContextAndSegment()
	vramRange := addresses.VramRange{Start: 0x800000A0, End: 0x800000B0}
	declared := map[addresses.Vram]addresses.Size{0x800000A0: 8}

	_, err := sections.NewBssSection(ctx, vramRange, seg, declared)
	require.NoError(t, err)

	_, err = sections.NewBssSection(ctx, vramRange, seg, declared)
	assert.ErrorIs(t, err, mctx.ErrSectionAlreadyCreated)
}

func TestGccExceptTableRecordsInRangeReferences(t *testing.T) {
	ctx, seg := newContextAndSegment()
	rom := addresses.Rom(0x90)
	vramRange := addresses.VramRange{Start: 0x80000090, End: 0x80000098}
	raw := make([]byte, 8)
	raw[0], raw[1], raw[2], raw[3] = 0x80, 0x00, 0x00, 0x50 // 0x80000050, inside the segment

	ctx.MarkPreheated(rom)
	section, err := sections.NewGccExceptTableSection(ctx, rom, vramRange, raw, seg, false)
	require.NoError(t, err)
	assert.Contains(t, section.ReferencedVrams, addresses.Vram(0x80000050))
}
