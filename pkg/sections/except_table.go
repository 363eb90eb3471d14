package sections

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/metadata"
)

// GccExceptTableSection is a thin pass-through over a .gcc_except_table
// section: it records which VRAMs the section's words reference (so they
// aren't mistaken for dangling constants elsewhere) without attempting to
// decode the DWARF call-frame/LSDA encoding the section actually holds.
type GccExceptTableSection struct {
	Rom             addresses.Rom
	VramRange       addresses.VramRange
	Segment         *metadata.SegmentMetadata
	ReferencedVrams []addresses.Vram
}

// NewGccExceptTableSection registers a single except-table symbol spanning
// the whole section and records every word inside it that names a VRAM
// inside the section itself or inside its owning segment's VRAM range.
func NewGccExceptTableSection(ctx *mctx.Context, rom addresses.Rom, vramRange addresses.VramRange, raw []byte, seg *metadata.SegmentMetadata, littleEndian bool) (*GccExceptTableSection, error) {
	if err := ctx.CheckCreatable(rom, mctx.SectionGccExceptTable); err != nil {
		return nil, err
	}

	sym := seg.GetOrCreateSymbol(vramRange.Start, metadata.SymbolExceptTable)
	sym.Defined = true
	size := addresses.Size(len(raw))
	sym.Size = &size

	section := &GccExceptTableSection{Rom: rom, VramRange: vramRange, Segment: seg}
	for _, w := range wordsAsVrams(raw, littleEndian) {
		if vramRange.Contains(w) || seg.Range.Vram.Contains(w) {
			section.ReferencedVrams = append(section.ReferencedVrams, w)
		}
	}

	return section, nil
}
