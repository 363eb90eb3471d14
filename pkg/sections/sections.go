// Package sections turns a raw run of decoded instructions or data words
// into the engine's processed section types, enforcing the preheat-then-
// create discipline Context exposes: every section must be scanned for
// cross-section %hi/%lo references before any section is finalized.
package sections

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/analysis"
	"mipsdisasm/pkg/boundary"
	"mipsdisasm/pkg/got"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/metadata"
	"mipsdisasm/pkg/reloc"
)

// Function is one located, analyzed function within a text section.
type Function struct {
	Symbol *metadata.SymbolMetadata
	Instrs []isa.Instruction
	Labels []*metadata.LabelMetadata
	// Relocations holds the synthesized relocation for every instruction
	// rom whose immediate field encodes half of a symbol reference,
	// keyed the way the renderer looks them up: by the instruction's own
	// rom, never by the reference's target.
	Relocations map[addresses.Rom]reloc.Relocation
	Analysis    analysis.InstructionAnalysisResult
}

// TextSection is the processed form of an executable section: its
// instructions split into functions, with every symbol and label
// reference already registered into the owning segment.
type TextSection struct {
	Rom       addresses.Rom
	VramRange addresses.VramRange
	Segment   *metadata.SegmentMetadata
	Functions []*Function
}

// Preheat runs the reference-discovery pass over instrs without creating
// any Function or TextSection objects yet, registering every symbol and
// label it recognizes into seg. This must run before NewTextSection for
// every section in a segment, because a %lo in one section may reference
// a %hi discovered in a section visited later.
func Preheat(ctx *mctx.Context, rom addresses.Rom, instrs []isa.Instruction, seg *metadata.SegmentMetadata, gotTable *got.Table, finder *boundary.Finder) {
	for _, fnInstrs := range splitIntoFunctions(instrs, finder) {
		refs, _ := analysis.AnalyzeFunction(ctx.Config, ctx.Config.Gp, gotTable, fnInstrs[0].Vram(), fnInstrs)
		registerReferences(ctx, seg, refs)
	}
	ctx.MarkPreheated(rom)
}

// NewTextSection builds the processed section. rom must already have been
// preheated, and a given (rom, SectionText) pair can only be created once.
func NewTextSection(ctx *mctx.Context, rom addresses.Rom, vramRange addresses.VramRange, instrs []isa.Instruction, seg *metadata.SegmentMetadata, gotTable *got.Table, finder *boundary.Finder) (*TextSection, error) {
	if err := ctx.CheckCreatable(rom, mctx.SectionText); err != nil {
		return nil, err
	}

	section := &TextSection{Rom: rom, VramRange: vramRange, Segment: seg}

	for _, fnInstrs := range splitIntoFunctions(instrs, finder) {
		entryVram := fnInstrs[0].Vram()
		sym := seg.GetOrCreateSymbol(entryVram, metadata.SymbolFunction)
		sym.Defined = true

		refs, result := analysis.AnalyzeFunction(ctx.Config, ctx.Config.Gp, gotTable, entryVram, fnInstrs)
		registerReferences(ctx, seg, refs)

		var labels []*metadata.LabelMetadata
		for _, ref := range refs {
			if !ref.IsBranchLabel || !seg.Owns(ref.ToVram) {
				continue
			}
			l := seg.GetOrCreateLabel(ref.ToVram, metadata.SymbolBranchLabel)
			l.AddReferrer(ref.FromVram)
			labels = append(labels, l)
		}

		relocs := computeRelocations(fnInstrs, result, gotTable)
		section.Functions = append(section.Functions, &Function{Symbol: sym, Instrs: fnInstrs, Labels: labels, Relocations: relocs, Analysis: result})
	}

	return section, nil
}

// computeRelocations turns one function's InstructionAnalysisResult into
// the relocation every hi/lo/branch/call instruction rom should carry. A
// `lui` is only classifiable once its %lo pair is known, so the paired
// lo's own result is looked up by the hi instruction's rom before handing
// both to reloc.ClassifyHi.
func computeRelocations(instrs []isa.Instruction, result analysis.InstructionAnalysisResult, gotTable *got.Table) map[addresses.Rom]reloc.Relocation {
	relocs := make(map[addresses.Rom]reloc.Relocation)

	for i, entry := range result.Instructions {
		if i >= len(instrs) {
			break
		}
		instr := instrs[i]

		switch entry.Result.Kind {
		case analysis.ResHi:
			pairedLo, ok := result.HiPairLo[entry.Rom]
			if !ok {
				continue
			}
			relocs[entry.Rom] = reloc.Relocation{Type: reloc.ClassifyHi(pairedLo)}

		case analysis.ResGpGotGlobal, analysis.ResGpGotLazyResolver:
			// entry.Result.Vram is the address the GOT entry resolved to,
			// not the GOT slot, so look the entry up by its value.
			isFunctionTarget := false
			if gotTable != nil {
				isFunctionTarget, _ = gotTable.FindEntryByTarget(entry.Result.Vram)
			}
			if r, ok := reloc.FromResult(entry.Result, isFunctionTarget); ok {
				relocs[entry.Rom] = r
			}

		case analysis.ResPairedLo, analysis.ResConstant, analysis.ResUnpairedConstant,
			analysis.ResGpRel, analysis.ResGpGotLocal, analysis.ResPairedGpGotLo,
			analysis.ResBranch, analysis.ResDirectLinkingCall, analysis.ResLinkingBranch, analysis.ResMaybeDirectTailCall:
			isFunctionTarget := instr.OpcodeIsJumpWithAddress()
			if r, ok := reloc.FromResult(entry.Result, isFunctionTarget); ok {
				relocs[entry.Rom] = r
			}
		}
	}

	return relocs
}

func splitIntoFunctions(instrs []isa.Instruction, finder *boundary.Finder) [][]isa.Instruction {
	if len(instrs) == 0 {
		return nil
	}

	knownStarts := map[addresses.Vram]bool{instrs[0].Vram(): true}
	ranges := finder.FindFunctions(instrs, knownStarts)

	var out [][]isa.Instruction
	idx := 0
	for _, r := range ranges {
		var fn []isa.Instruction
		for idx < len(instrs) && instrs[idx].Vram() < r.EndVram {
			fn = append(fn, instrs[idx])
			idx++
		}
		if len(fn) > 0 {
			out = append(out, fn)
		}
	}
	return out
}

// registerReferences records every reference the analyzer recognized into
// whichever segment actually owns the target address, creating a new
// symbol or label there on first reference.
func registerReferences(ctx *mctx.Context, from *metadata.SegmentMetadata, refs []analysis.Reference) {
	for _, ref := range refs {
		targetSeg, err := ctx.FindReferencedSegment(ref.ToVram)
		if err != nil || targetSeg == nil {
			targetSeg = from
		}

		switch {
		case ref.IsBranchLabel:
			l := targetSeg.GetOrCreateLabel(ref.ToVram, metadata.SymbolBranchLabel)
			l.AddReferrer(ref.FromVram)

		case ref.IsFunctionCall:
			sym := targetSeg.GetOrCreateSymbol(ref.ToVram, metadata.SymbolFunction)
			sym.AddReferrer(ref.FromVram)

		case ref.IsJumptableJump:
			sym := targetSeg.GetOrCreateSymbol(ref.ToVram, metadata.SymbolJumptable)
			sym.AddReferrer(ref.FromVram)

		default:
			sym := targetSeg.GetOrCreateSymbol(ref.ToVram, metadata.SymbolWord)
			sym.AddReferrer(ref.FromVram)
			sym.GpRelative = sym.GpRelative || ref.GpRelative
			if ref.GotAccess != metadata.GotAccessNone {
				sym.Got = ref.GotAccess
			}
			if ref.Access.Type != isa.AccessNone {
				sym.AccessTypes.Bump(int(ref.Access.Type))
			}
		}
	}
}
