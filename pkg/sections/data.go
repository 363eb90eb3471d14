package sections

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/dataguess"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/metadata"
)

// DataSymbol is one located, classified word-run within a data or rodata
// section: its raw bytes plus the metadata the classifier settled on.
type DataSymbol struct {
	Symbol *metadata.SymbolMetadata
	Raw    []byte
}

// DataSection is the processed form of a data or rodata section: every
// word classified by dataguess into a run of same-kind bytes, each backed
// by a registered symbol.
type DataSection struct {
	Rom       addresses.Rom
	VramRange addresses.VramRange
	Kind      mctx.SectionKind
	Segment   *metadata.SegmentMetadata
	Symbols   []*DataSymbol
}

// wordsOf reinterprets raw as a sequence of big/little-endian 32-bit words,
// the unit dataguess classifies at.
func wordsOf(raw []byte, endian byte) []uint32 {
	words := make([]uint32, 0, len(raw)/4)
	for i := 0; i+4 <= len(raw); i += 4 {
		if endian == 'L' {
			words = append(words, uint32(raw[i])|uint32(raw[i+1])<<8|uint32(raw[i+2])<<16|uint32(raw[i+3])<<24)
		} else {
			words = append(words, uint32(raw[i])<<24|uint32(raw[i+1])<<16|uint32(raw[i+2])<<8|uint32(raw[i+3]))
		}
	}
	return words
}

// PreheatData runs the symbol-discovery half of preheating for a data or
// rodata section: every word that plausibly names a pointer into codeRange
// gets a placeholder symbol registered, mirroring how text preheating
// registers every %hi/%lo target before any section is finalized.
func PreheatData(ctx *mctx.Context, rom addresses.Rom, vramRange addresses.VramRange, raw []byte, seg *metadata.SegmentMetadata, codeRange addresses.VramRange, littleEndian bool) {
	endian := byte('B')
	if littleEndian {
		endian = 'L'
	}
	base := vramRange.Start
	for i, w := range wordsOf(raw, endian) {
		v := addresses.Vram(w)
		if dataguess.GuessPointer(v, []addresses.VramRange{codeRange, vramRange}) {
			seg.GetOrCreateSymbol(base.Add(uint32(i*4)), metadata.SymbolWord)
		}
	}
	ctx.MarkPreheated(rom)
}

// NewDataSection builds the processed form of a data or rodata section:
// one DataSymbol per distinct address the segment already knows about
// (from preheating or from a %hi/%lo reference registered while analyzing
// text), each sized up to the next known symbol and classified by
// dataguess.ClassifySymbol from its raw bytes and observed access types.
func NewDataSection(ctx *mctx.Context, rom addresses.Rom, kind mctx.SectionKind, vramRange addresses.VramRange, raw []byte, seg *metadata.SegmentMetadata, codeRange addresses.VramRange, littleEndian bool) (*DataSection, error) {
	if err := ctx.CheckCreatable(rom, kind); err != nil {
		return nil, err
	}

	section := &DataSection{Rom: rom, VramRange: vramRange, Kind: kind, Segment: seg}

	starts := symbolStartsIn(seg, vramRange)
	for i, v := range starts {
		end := vramRange.End
		if i+1 < len(starts) {
			end = starts[i+1]
		}

		startOff := uint32(v.Sub(vramRange.Start))
		endOff := uint32(end.Sub(vramRange.Start))
		if int(endOff) > len(raw) {
			endOff = uint32(len(raw))
		}
		if startOff >= endOff {
			continue
		}
		chunk := raw[startOff:endOff]

		sym := seg.Symbols[v]
		sym.Defined = true

		dominant, _ := sym.AccessTypes.Dominant()
		var jumptableCandidates []addresses.Vram
		if sym.Kind == metadata.SymbolJumptable || allWordAccesses(sym.AccessTypes) {
			jumptableCandidates = wordsAsVrams(chunk, littleEndian)
		}

		if sym.Kind == metadata.SymbolFunction || sym.Kind == metadata.SymbolUserCustom {
			// already classified by the caller (e.g. a user-declared type); leave it alone
		} else {
			sym.Kind = dataguess.ClassifySymbol(chunk, isa.AccessType(dominant), codeRange, jumptableCandidates)
		}

		if sym.Size == nil {
			size := addresses.Size(len(chunk))
			sym.Size = &size
		}

		section.Symbols = append(section.Symbols, &DataSymbol{Symbol: sym, Raw: chunk})
	}

	return section, nil
}

func symbolStartsIn(seg *metadata.SegmentMetadata, r addresses.VramRange) []addresses.Vram {
	var out []addresses.Vram
	for v := range seg.Symbols {
		if r.Contains(v) {
			out = append(out, v)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

func allWordAccesses(h metadata.AccessTypeHistogram) bool {
	if len(h) != 1 {
		return false
	}
	_, ok := h[int(isa.AccessWord)]
	return ok
}

func wordsAsVrams(raw []byte, littleEndian bool) []addresses.Vram {
	endian := byte('B')
	if littleEndian {
		endian = 'L'
	}
	var out []addresses.Vram
	for _, w := range wordsOf(raw, endian) {
		out = append(out, addresses.Vram(w))
	}
	return out
}
