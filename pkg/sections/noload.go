package sections

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/metadata"
)

// BssSection is a noload section: it reserves space for symbols but has no
// backing bytes in the input image, so it is keyed for preheat/creation
// purposes by (parent segment, vram start) rather than by ROM.
type BssSection struct {
	VramRange addresses.VramRange
	Segment   *metadata.SegmentMetadata
	Symbols   []*metadata.SymbolMetadata
}

// NewBssSection registers every user-declared symbol inside vramRange as a
// bss symbol, sized either by user declaration or, failing that, left for
// render.AutodetectSizes to fill in from inter-symbol distance. bss has no
// ROM, so creation is guarded by (segment, vram start) instead of the
// (rom, kind) pairs CheckCreatable enforces for the other section kinds.
func NewBssSection(ctx *mctx.Context, vramRange addresses.VramRange, seg *metadata.SegmentMetadata, declared map[addresses.Vram]addresses.Size) (*BssSection, error) {
	if err := ctx.CheckCreatableNoload(seg, vramRange.Start); err != nil {
		return nil, err
	}

	section := &BssSection{VramRange: vramRange, Segment: seg}

	for v, size := range declared {
		if !vramRange.Contains(v) {
			continue
		}
		sym := seg.GetOrCreateSymbol(v, metadata.SymbolWord)
		sym.Defined = true
		s := size
		sym.Size = &s
		section.Symbols = append(section.Symbols, sym)
	}

	return section, nil
}
