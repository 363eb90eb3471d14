package analysis

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/got"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/metadata"
)

// Reference is one resolved cross-reference discovered while analyzing a
// function: an instruction at FromVram touches ToVram, shaped by the
// fields below.
type Reference struct {
	FromVram        addresses.Vram
	ToVram          addresses.Vram
	Access          isa.AccessInfo
	IsBranchLabel   bool
	IsFunctionCall  bool
	IsJumptableJump bool
	GotAccess       metadata.GotAccessKind
	GpRelative      bool
}

// HiInstrInfo records the register and raw 16-bit immediate a `lui`
// instruction loaded, independent of whether it ever found a %lo pair.
type HiInstrInfo struct {
	Reg isa.Register
	Imm uint32
}

// instrRecord is one instruction's rom/vram alongside the tracker's
// classification of it, kept around so the backward pass can revisit
// earlier instructions once a later one needs their context.
type instrRecord struct {
	instr  isa.Instruction
	rom    addresses.Rom
	vram   addresses.Vram
	result ProcessedResult
}

// InstructionAnalysisResult is the full per-function analysis output: every
// map a disassembler pass needs to emit symbols, labels and relocations,
// keyed the way the renderer wants to look them up -- by the rom of
// whichever instruction the fact belongs to, or by the vram it refers to.
type InstructionAnalysisResult struct {
	// BranchTargets holds every vram a branch inside this function jumps
	// to; BranchTargetsOutside holds the subset that lands outside the
	// function's own vram range (a loop that jumps into a neighboring
	// function, or a miscategorized tail call).
	BranchTargets        map[addresses.Vram]bool
	BranchTargetsOutside map[addresses.Vram]bool

	// BranchCalls holds jal-shaped branches (ResLinkingBranch); FuncCalls
	// holds every recognized call regardless of shape; MaybeTailCalls
	// holds j-with-address instructions that could be a tail call or a
	// plain intra-function jump depending on context the tracker alone
	// can't resolve.
	BranchCalls    map[addresses.Rom]addresses.Vram
	FuncCalls      map[addresses.Rom]addresses.Vram
	MaybeTailCalls map[addresses.Rom]addresses.Vram

	// ReferencedJumptables holds every vram reached through a dereferenced
	// jr, the signal that vram holds a jump table rather than code.
	ReferencedJumptables map[addresses.Vram]bool

	// AddressPerHiInstr and AddressPerLoInstr record, per instruction rom,
	// what a hi or lo half resolved to: the raw 16-bit immediate for a
	// `lui`, and the composed vram for a paired or dangling %lo.
	AddressPerHiInstr map[addresses.Rom]HiInstrInfo
	AddressPerLoInstr map[addresses.Rom]addresses.Vram

	// GlobalGotAddresses, PairedLocalGotAddresses and
	// UnpairedLocalGotAddresses split GOT-derived references by which of
	// the table's three regions produced them.
	GlobalGotAddresses        map[addresses.Rom]addresses.Vram
	PairedLocalGotAddresses   map[addresses.Rom]addresses.Vram
	UnpairedLocalGotAddresses map[addresses.Rom]addresses.Vram

	// TypeInfoPerAddress records the access shape (byte/half/word/...) of
	// the last paired %lo load or store to each vram. Earlier accesses to
	// the same vram are overwritten, not accumulated, and $gp-relative and
	// GOT accesses are not recorded here.
	TypeInfoPerAddress map[addresses.Vram]isa.AccessType

	// GpSets and CploadRoms are the tracker's own $gp-reconstruction
	// bookkeeping, copied out so the renderer can label both halves of a
	// `_gp`/`_gp_disp` idiom without re-running the tracker.
	GpSets     map[addresses.Rom]GpSetInfo
	CploadRoms map[addresses.Rom]bool

	// ConstantPerInstr records, per lo instruction rom, the 32-bit numeric
	// constant a `lui;ori` (or bare `ori $r,$zero,imm`) pair composed.
	ConstantPerInstr map[addresses.Rom]uint32

	// ReferencedVrams is the union of every vram this function refers to
	// by any means -- branch target, call target, or data reference.
	ReferencedVrams map[addresses.Vram]bool

	// HiPairLo maps a `lui`'s own rom to the full ProcessedResult of the
	// %lo instruction it paired with, so a renderer can describe both
	// halves of a hi/lo (or constant) pair using the one place that knows
	// the composed value.
	HiPairLo map[addresses.Rom]ProcessedResult

	// IndirectFunctionCall holds the roms of jalr/jr instructions whose
	// target register held a known vram rather than a literal operand.
	IndirectFunctionCall map[addresses.Rom]addresses.Vram

	// Instructions is the raw per-instruction trace in program order,
	// kept for callers (the reloc synthesizer, in particular) that need
	// the full ProcessedResult rather than one of the summary maps above.
	Instructions []InstrEntry
}

// InstrEntry pairs one instruction's rom/vram with the tracker's
// classification of it.
type InstrEntry struct {
	Rom    addresses.Rom
	Vram   addresses.Vram
	Result ProcessedResult
}

// ResultByRom returns the ProcessedResult this function's analysis
// recorded for rom, if any instruction landed there.
func (r InstructionAnalysisResult) ResultByRom(rom addresses.Rom) (ProcessedResult, bool) {
	for _, entry := range r.Instructions {
		if entry.Rom == rom {
			return entry.Result, true
		}
	}
	return ProcessedResult{}, false
}

func newAnalysisResult() InstructionAnalysisResult {
	return InstructionAnalysisResult{
		BranchTargets:             make(map[addresses.Vram]bool),
		BranchTargetsOutside:      make(map[addresses.Vram]bool),
		BranchCalls:               make(map[addresses.Rom]addresses.Vram),
		FuncCalls:                 make(map[addresses.Rom]addresses.Vram),
		MaybeTailCalls:            make(map[addresses.Rom]addresses.Vram),
		ReferencedJumptables:      make(map[addresses.Vram]bool),
		AddressPerHiInstr:         make(map[addresses.Rom]HiInstrInfo),
		AddressPerLoInstr:         make(map[addresses.Rom]addresses.Vram),
		GlobalGotAddresses:        make(map[addresses.Rom]addresses.Vram),
		PairedLocalGotAddresses:   make(map[addresses.Rom]addresses.Vram),
		UnpairedLocalGotAddresses: make(map[addresses.Rom]addresses.Vram),
		TypeInfoPerAddress:        make(map[addresses.Vram]isa.AccessType),
		ConstantPerInstr:          make(map[addresses.Rom]uint32),
		ReferencedVrams:           make(map[addresses.Vram]bool),
		IndirectFunctionCall:      make(map[addresses.Rom]addresses.Vram),
		HiPairLo:                  make(map[addresses.Rom]ProcessedResult),
	}
}

// AnalyzeFunction walks instrs (one function's worth, in vram order)
// feeding each to a fresh Tracker. It returns the flat reference list that
// callers use to register symbols and labels, plus the full
// InstructionAnalysisResult that the relocation synthesizer and any
// deeper inspection needs.
//
// After the forward walk it makes one backward pass over the collected
// instructions to rescue indirect call/jump targets that a branch's
// alternate path clobbered in the tracker's (necessarily linear, non-
// control-flow-aware) register state: the classic case is a pointer set
// up once before a conditional, read again after it, where the forward
// walk alone sees only the clobber.
func AnalyzeFunction(cfg config.GlobalConfig, gpConfig *config.GpConfig, gotTable *got.Table, functionVram addresses.Vram, instrs []isa.Instruction) ([]Reference, InstructionAnalysisResult) {
	tracker := NewTracker(&functionVram, gpConfig)
	var refs []Reference
	var records []instrRecord

	funcStart := functionVram
	funcEnd := functionVram
	if len(instrs) > 0 {
		funcEnd = instrs[len(instrs)-1].Vram().Add(4)
	}

	for _, instr := range instrs {
		result := tracker.ProcessInstruction(instr, gpConfig, gotTable, cfg.Endian)
		records = append(records, instrRecord{instr: instr, rom: instr.Rom(), vram: instr.Vram(), result: result})

		if ref, ok := referenceFromResult(instr, result); ok {
			refs = append(refs, ref)
		}

		if instr.IsFunctionCall() {
			tracker.UnsetRegistersAfterFuncCall()
		}
	}

	rescued := rescueIndirectTargets(records)
	refs = append(refs, rescued...)

	out := newAnalysisResult()
	out.GpSets = tracker.GpSets()
	out.CploadRoms = tracker.CploadRoms()
	out.Instructions = make([]InstrEntry, len(records))
	for i, rec := range records {
		out.Instructions[i] = InstrEntry{Rom: rec.rom, Vram: rec.vram, Result: rec.result}
		populateAnalysisMaps(&out, rec, funcStart, funcEnd)
	}
	for _, ref := range rescued {
		out.IndirectFunctionCall[romFor(records, ref.FromVram)] = ref.ToVram
		out.ReferencedVrams[ref.ToVram] = true
	}

	return refs, out
}

// romFor finds the rom of the instruction at vram, used only to key the
// rescue pass's results the same way the forward pass does.
func romFor(records []instrRecord, vram addresses.Vram) addresses.Rom {
	for _, rec := range records {
		if rec.vram == vram {
			return rec.rom
		}
	}
	return 0
}

// populateAnalysisMaps files one instruction's ProcessedResult into every
// summary map of out that it belongs in.
func populateAnalysisMaps(out *InstructionAnalysisResult, rec instrRecord, funcStart, funcEnd addresses.Vram) {
	result := rec.result

	switch result.Kind {
	case ResBranch:
		out.BranchTargets[result.TargetVram] = true
		if result.TargetVram < funcStart || result.TargetVram >= funcEnd {
			out.BranchTargetsOutside[result.TargetVram] = true
		}
		out.ReferencedVrams[result.TargetVram] = true

	case ResLinkingBranch:
		out.BranchCalls[rec.rom] = result.TargetVram
		out.FuncCalls[rec.rom] = result.TargetVram
		out.ReferencedVrams[result.TargetVram] = true

	case ResDirectLinkingCall:
		out.FuncCalls[rec.rom] = result.TargetVram
		out.ReferencedVrams[result.TargetVram] = true

	case ResMaybeDirectTailCall:
		out.MaybeTailCalls[rec.rom] = result.TargetVram
		out.ReferencedVrams[result.TargetVram] = true

	case ResDereferencedRegisterLink, ResRawRegisterLink:
		out.FuncCalls[rec.rom] = result.JrReg.Address
		out.IndirectFunctionCall[rec.rom] = result.JrReg.Address
		out.ReferencedVrams[result.JrReg.Address] = true

	case ResJumptableJump:
		out.ReferencedJumptables[result.JrReg.Address] = true
		out.ReferencedVrams[result.JrReg.Address] = true

	case ResHi:
		out.AddressPerHiInstr[rec.rom] = HiInstrInfo{Reg: result.DstReg, Imm: result.Value32 >> 16}

	case ResPairedLo:
		out.AddressPerLoInstr[rec.rom] = result.Vram
		out.ReferencedVrams[result.Vram] = true
		out.HiPairLo[result.HiRom] = result
		if access, ok := rec.instr.AccessInfo(); ok {
			out.TypeInfoPerAddress[result.Vram] = access.Type
		}

	case ResDanglingLo:
		if result.Vram != 0 {
			out.AddressPerLoInstr[rec.rom] = result.Vram
			out.ReferencedVrams[result.Vram] = true
		}

	case ResGpRel:
		out.AddressPerLoInstr[rec.rom] = result.Vram
		out.ReferencedVrams[result.Vram] = true

	case ResGpGotGlobal, ResGpGotLazyResolver:
		out.GlobalGotAddresses[rec.rom] = result.Vram
		out.ReferencedVrams[result.Vram] = true

	case ResGpGotLocal:
		out.UnpairedLocalGotAddresses[rec.rom] = result.Vram
		out.ReferencedVrams[result.Vram] = true

	case ResPairedGpGotLo:
		out.PairedLocalGotAddresses[rec.rom] = result.Vram
		out.ReferencedVrams[result.Vram] = true

	case ResConstant, ResUnpairedConstant:
		out.ConstantPerInstr[rec.rom] = result.Constant
		if result.Kind == ResConstant {
			out.HiPairLo[result.HiRom] = result
		}
	}
}

// rescueIndirectTargets implements the backward pass: when a jalr/jr
// couldn't resolve its register (the tracker's state at that point was
// garbage, most often because a branch's untaken path clobbered the
// register after the pointer was set up on the taken path), scan back
// through the instructions already processed for the nearest earlier one
// that wrote the same register to a known vram, and trust that instead.
// It stops at the first intervening write that produced no address at
// all, since that's a genuine clobber rather than a branch artifact.
func rescueIndirectTargets(records []instrRecord) []Reference {
	var out []Reference

	for i, rec := range records {
		var reg isa.Register
		var isCall bool
		switch rec.result.Kind {
		case ResUnknownJumpAndLinkRegister:
			reg, isCall = rec.result.Reg, true
		case ResUnknownRegInfoJump:
			reg, isCall = rec.result.Reg, false
		default:
			continue
		}

		for j := i - 1; j >= 0; j-- {
			earlier := records[j]
			written, vram, ok := writesKnownVram(earlier.instr, earlier.result)
			if !ok {
				continue
			}
			if written != reg {
				continue
			}
			if vram == 0 {
				break
			}
			out = append(out, Reference{
				FromVram:        rec.vram,
				ToVram:          vram,
				IsFunctionCall:  isCall,
				IsJumptableJump: !isCall,
			})
			break
		}
	}

	return out
}

// writesKnownVram reports whether instr's result wrote dst to a resolved
// vram (true, vram!=0), wrote dst to an unresolved/garbage value (true,
// vram==0, the clobber case the backward scan must stop at), or didn't
// touch a destination register the rescue pass cares about at all
// (false).
func writesKnownVram(instr isa.Instruction, result ProcessedResult) (dst isa.Register, vram addresses.Vram, ok bool) {
	switch result.Kind {
	case ResPairedLo, ResGpRel, ResGpGotGlobal, ResGpGotLazyResolver, ResGpGotLocal, ResPairedGpGotLo:
		if rt, ok := instr.FieldRt(); ok {
			return rt, result.Vram, true
		}
		if rd, ok := instr.FieldRd(); ok {
			return rd, result.Vram, true
		}
	case ResDanglingLo, ResHi, ResUnhandledOpcode:
		if rd, ok := instr.FieldRd(); ok {
			return rd, 0, true
		}
		if rt, ok := instr.FieldRt(); ok {
			return rt, 0, true
		}
	}
	return 0, 0, false
}

func referenceFromResult(instr isa.Instruction, result ProcessedResult) (Reference, bool) {
	from := instr.Vram()

	switch result.Kind {
	case ResLinkingBranch, ResDirectLinkingCall:
		return Reference{FromVram: from, ToVram: result.TargetVram, IsFunctionCall: true}, true

	case ResMaybeDirectTailCall:
		return Reference{FromVram: from, ToVram: result.TargetVram}, true

	case ResBranch:
		return Reference{FromVram: from, ToVram: result.TargetVram, IsBranchLabel: true}, true

	case ResDereferencedRegisterLink, ResRawRegisterLink:
		return Reference{FromVram: from, ToVram: result.JrReg.Address, IsFunctionCall: true}, true

	case ResJumptableJump:
		return Reference{FromVram: from, ToVram: result.JrReg.Address, IsJumptableJump: true}, true

	case ResPairedLo, ResDanglingLo:
		if result.Vram == 0 {
			return Reference{}, false
		}
		access, _ := instr.AccessInfo()
		return Reference{FromVram: from, ToVram: result.Vram, Access: access}, true

	case ResGpRel:
		access, _ := instr.AccessInfo()
		return Reference{FromVram: from, ToVram: result.Vram, Access: access, GpRelative: true}, true

	case ResGpGotGlobal:
		access, _ := instr.AccessInfo()
		return Reference{FromVram: from, ToVram: result.Vram, Access: access, GotAccess: metadata.GotAccessNormal}, true

	case ResGpGotLocal, ResGpGotLazyResolver:
		access, _ := instr.AccessInfo()
		return Reference{FromVram: from, ToVram: result.Vram, Access: access, GotAccess: metadata.GotAccessNormal}, true

	case ResPairedGpGotLo:
		access, _ := instr.AccessInfo()
		return Reference{FromVram: from, ToVram: result.Vram, Access: access, GotAccess: metadata.GotAccessGot16CoupledWithLo}, true

	default:
		return Reference{}, false
	}
}
