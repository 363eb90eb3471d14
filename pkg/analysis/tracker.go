package analysis

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/got"
	"mipsdisasm/pkg/isa"
)

// ResultKind tags the outcome of feeding one instruction to a Tracker.
type ResultKind int

const (
	ResInvalidInstr ResultKind = iota
	ResLinkingBranch
	ResDirectLinkingCall
	ResMaybeDirectTailCall
	ResDereferencedRegisterLink
	ResRawRegisterLink
	ResUnknownJumpAndLinkRegister
	ResJumptableJump
	ResUnknownRegInfoJump
	ResBranch
	ResHi
	ResPairedLo
	ResGpRel
	ResGpGotGlobal
	ResGpGotLazyResolver
	ResGpGotLocal
	ResPairedGpGotLo
	ResDanglingLo
	ResConstant
	ResUnpairedConstant
	ResGpSet
	ResUnhandledOpcode
)

// GpSetInfo names one instruction that is half of a recognized $gp
// reconstruction idiom -- either the two-instruction non-PIC
// `lui $gp, %hi(_gp); addiu $gp, $gp, %lo(_gp)` form or the three-
// instruction PIC `_gp_disp` prologue -- so the renderer can point both
// halves at the right pseudo-symbol.
type GpSetInfo struct {
	IsHi    bool
	PairRom addresses.Rom
	Pic     bool
}

// ProcessedResult classifies what ProcessInstruction just did, carrying
// only the fields relevant to its Kind. Callers (the function/instruction
// analyzer) use this to decide what symbol or label reference to record.
type ProcessedResult struct {
	Kind ResultKind

	TargetVram addresses.Vram
	JrReg      isa.JrRegData
	Reg        isa.Register
	DstReg     isa.Register

	Value32 uint32

	HiImm uint16
	HiRom addresses.Rom

	Imm  int16
	Vram addresses.Vram

	UpperImm int16
	UpperRom addresses.Rom

	Constant uint32

	// GotTarget and GotFunction flag a plain (non-$gp-based) hi/lo pair
	// whose composed address also turned out to be a GOT entry's target,
	// the signal that it should render as %got_hi/%got_lo (or
	// %call_hi/%call_lo, if the entry names a function) instead of a
	// plain %hi/%lo.
	GotTarget   bool
	GotFunction bool

	Mnemonic string
}

// callerSavedRegisters are the o32 registers a function call is free to
// clobber: the assembler temporary, arguments, return values, and
// temporaries t0-t9. Saved registers, $gp, $sp, $fp and $ra survive a call.
var callerSavedRegisters = []isa.Register{
	isa.RegAt, isa.RegV0, isa.RegV1,
	isa.RegA0, isa.RegA1, isa.RegA2, isa.RegA3,
	isa.RegT0, isa.RegT1, isa.RegT2, isa.RegT3, isa.RegT4, isa.RegT5, isa.RegT6, isa.RegT7,
	isa.RegT8, isa.RegT9,
}

// Tracker holds one symbolic Value per GPR and threads it forward through
// a function's instructions in program order.
type Tracker struct {
	regs       [isa.RegisterCount]Value
	gpSets     map[addresses.Rom]GpSetInfo
	cploadRoms map[addresses.Rom]bool
}

// NewTracker seeds every register with its entry-state value: zero, $gp,
// a stack base, or (under PIC) $t9 holding the function's own address.
func NewTracker(functionAddress *addresses.Vram, gpConfig *config.GpConfig) *Tracker {
	t := &Tracker{
		gpSets:     make(map[addresses.Rom]GpSetInfo),
		cploadRoms: make(map[addresses.Rom]bool),
	}
	for i := 0; i < isa.RegisterCount; i++ {
		t.regs[i] = New(isa.Register(i), functionAddress, gpConfig)
	}
	return t
}

// recordGpSet marks hiRom/loRom as the two halves of a recognized $gp
// reconstruction, keyed by each instruction's own rom so the renderer can
// look either one up directly.
func (t *Tracker) recordGpSet(hiRom, loRom addresses.Rom, pic bool) {
	t.gpSets[hiRom] = GpSetInfo{IsHi: true, PairRom: loRom, Pic: pic}
	t.gpSets[loRom] = GpSetInfo{IsHi: false, PairRom: hiRom, Pic: pic}
	if pic {
		t.cploadRoms[loRom] = true
	}
}

// GpSets returns every instruction rom that is part of a recognized $gp
// reconstruction idiom, keyed by that instruction's own rom.
func (t *Tracker) GpSets() map[addresses.Rom]GpSetInfo { return t.gpSets }

// CploadRoms returns the lo-half roms of every PIC _gp_disp reconstruction
// found.
func (t *Tracker) CploadRoms() map[addresses.Rom]bool { return t.cploadRoms }

// Get returns the current symbolic value of reg.
func (t *Tracker) Get(reg isa.Register) Value { return t.regs[reg] }

// Set overwrites reg's value, except $zero is never written.
func (t *Tracker) Set(reg isa.Register, v Value) {
	if reg != isa.RegZero {
		t.regs[reg] = v
	}
}

// ClearReg resets reg to an untracked (garbage) value.
func (t *Tracker) ClearReg(reg isa.Register) {
	if reg != isa.RegZero {
		t.regs[reg] = Value{Kind: ValGarbage}
	}
}

// UnsetRegistersAfterFuncCall drops every caller-saved register's tracked
// value, since a called function is free to have clobbered them.
func (t *Tracker) UnsetRegistersAfterFuncCall() {
	for _, r := range callerSavedRegisters {
		t.ClearReg(r)
	}
}

// ProcessBranch marks reg's current dereferenced value (if any) as having
// survived to a branch, the signal later stages use to trust a load as a
// genuine data reference rather than speculative garbage.
func (t *Tracker) ProcessBranch(reg isa.Register) {
	t.regs[reg] = t.regs[reg].ApplyBranch()
}

// ProcessInstruction feeds one decoded instruction through the tracker,
// updating whichever register it writes and reporting what kind of
// reference (if any) the instruction represents.
func (t *Tracker) ProcessInstruction(instr isa.Instruction, gpConfig *config.GpConfig, gotTable *got.Table, endian config.Endian) ProcessedResult {
	if !instr.IsValid() {
		return ProcessedResult{Kind: ResInvalidInstr}
	}

	switch {
	case instr.OpcodeDoesLink():
		return t.processLink(instr)

	case instr.OpcodeIsJump():
		return t.processJump(instr)

	case instr.IsBranch():
		if target, ok := instr.GetBranchVramGeneric(); ok {
			if rs, ok := instr.FieldRs(); ok {
				t.ProcessBranch(rs)
			}
			if rt, ok := instr.FieldRt(); ok {
				t.ProcessBranch(rt)
			}
			return ProcessedResult{Kind: ResBranch, TargetVram: target}
		}
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}

	case instr.OpcodeCanBeHi():
		return t.processHi(instr)

	case instr.OpcodeCanBeLo() || instr.OpcodeCanBeUnsignedLo():
		return t.processLo(instr, gpConfig, gotTable, endian)

	case isRegOpMnemonic(instr.Mnemonic()):
		return t.processRegOp(instr, gpConfig)

	default:
		if rd, ok := instr.FieldRd(); ok {
			t.ClearReg(rd)
		} else if rt, ok := instr.FieldRt(); ok && !instr.OpcodeReadsRt() {
			t.ClearReg(rt)
		}
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}
}

func (t *Tracker) processLink(instr isa.Instruction) ProcessedResult {
	if instr.OpcodeIsJumpWithAddress() {
		if target, ok := instr.GetInstrIndexAsVram(); ok {
			return ProcessedResult{Kind: ResDirectLinkingCall, TargetVram: target}
		}
	}
	if target, ok := instr.GetBranchVramGeneric(); ok {
		return ProcessedResult{Kind: ResLinkingBranch, TargetVram: target}
	}

	rs, ok := instr.FieldRs()
	if !ok {
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}
	val := t.Get(rs)
	if addr, ok := val.DereferencedVram(); ok {
		return ProcessedResult{Kind: ResDereferencedRegisterLink, JrReg: isa.JrRegData{Reg: rs, Address: addr, Known: true}}
	}
	if addr, ok := val.KnownVram(); ok {
		return ProcessedResult{Kind: ResRawRegisterLink, JrReg: isa.JrRegData{Reg: rs, Address: addr, Known: true}}
	}
	return ProcessedResult{Kind: ResUnknownJumpAndLinkRegister, Reg: rs}
}

func (t *Tracker) processJump(instr isa.Instruction) ProcessedResult {
	if instr.OpcodeIsJumpWithAddress() {
		if target, ok := instr.GetInstrIndexAsVram(); ok {
			return ProcessedResult{Kind: ResMaybeDirectTailCall, TargetVram: target}
		}
	}

	rs, ok := instr.FieldRs()
	if !ok {
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}
	val := t.Get(rs)
	if addr, ok := val.DereferencedVram(); ok {
		return ProcessedResult{Kind: ResJumptableJump, JrReg: isa.JrRegData{Reg: rs, Address: addr, Known: true}}
	}
	return ProcessedResult{Kind: ResUnknownRegInfoJump, Reg: rs}
}

func (t *Tracker) processHi(instr isa.Instruction) ProcessedResult {
	dstReg, ok := instr.FieldRt()
	if !ok {
		dstReg, ok = instr.FieldRd()
	}
	imm, immOk := instr.GetProcessedImmediate()
	if !ok || !immOk {
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}

	value := uint32(uint16(imm)) << 16
	t.Set(dstReg, Value{Kind: ValHi, Value32: value, HiRom: instr.Rom()})
	return ProcessedResult{Kind: ResHi, DstReg: dstReg, Value32: value}
}

func (t *Tracker) processLo(instr isa.Instruction, gpConfig *config.GpConfig, gotTable *got.Table, endian config.Endian) ProcessedResult {
	rs, ok := instr.FieldRs()
	imm, immOk := instr.GetProcessedImmediate()
	if !ok || !immOk {
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}

	base := t.Get(rs)

	dstReg, hasDst := instr.FieldRt()
	if !hasDst {
		dstReg, hasDst = instr.FieldRd()
	}

	if instr.OpcodeDoesDereference() {
		accessInfo, _ := instr.AccessInfo()
		newVal := base.Dereference(int16(imm), instr.Rom(), accessInfo, gotTable, endian)
		if hasDst {
			t.Set(dstReg, newVal)
		}
		return loResultFromValue(base, newVal, int16(imm))
	}

	// ori's unsigned immediate completes a 32-bit constant rather than an
	// address: route it through OrImm16 so `lui; ori` pairs land on
	// Constant/UnpairedConstant instead of being forced through address
	// arithmetic.
	if instr.Mnemonic() == "ori" {
		newVal := base.OrImm16(uint16(imm), instr.Rom())
		if hasDst {
			t.Set(dstReg, newVal)
		}
		return constantResultFromValue(newVal, int16(imm))
	}

	newVal := base.AddImm16(int16(imm), instr.Rom(), gpConfig, dstReg)
	if hasDst {
		t.Set(dstReg, newVal)
	}
	if base.Kind == ValHi {
		if newVal.Kind == ValGlobalPointer && dstReg == isa.RegGp {
			t.recordGpSet(base.HiRom, instr.Rom(), false)
			return ProcessedResult{Kind: ResGpSet, HiRom: base.HiRom, UpperRom: instr.Rom()}
		}
		if newVal.Kind == ValRawAddress {
			isFunc, flagged := gotTargetFlag(gotTable, newVal.Vram)
			return ProcessedResult{Kind: ResPairedLo, HiRom: base.HiRom, Imm: int16(imm), Vram: newVal.Vram, GotTarget: flagged, GotFunction: isFunc}
		}
		// AddImm16 rejected the pair (e.g. the upper-negative/non-pointer
		// check): it never names a symbol, so it's dangling, not a paired
		// lo with a zero vram.
		return ProcessedResult{Kind: ResDanglingLo, Imm: int16(imm)}
	}
	return ProcessedResult{Kind: ResDanglingLo, Imm: int16(imm)}
}

// gotTargetFlag reports whether vram is a known GOT entry's target, the
// signal that a plain %hi/%lo pair should instead render as %got_hi/%lo
// (or %call_hi/%lo for a function entry).
func gotTargetFlag(gotTable *got.Table, vram addresses.Vram) (isFunction, ok bool) {
	if gotTable == nil {
		return false, false
	}
	return gotTable.FindEntryByTarget(vram)
}

// constantResultFromValue classifies an `ori` pairing: a hi/lo pair whose
// composed value never looked like a pointer is a 32-bit constant load
// rather than a relocatable address.
func constantResultFromValue(result Value, imm int16) ProcessedResult {
	switch result.Kind {
	case ValConstant:
		return ProcessedResult{Kind: ResConstant, HiRom: result.HiRom, Constant: result.Value32}
	case ValSmallConstant:
		return ProcessedResult{Kind: ResUnpairedConstant, Constant: result.Value32}
	default:
		return ProcessedResult{Kind: ResDanglingLo, Imm: imm}
	}
}

// loResultFromValue classifies a completed %lo-style pairing by looking at
// what base was (before the dereference) so the analyzer knows which
// relocation shape to synthesize.
func loResultFromValue(base Value, result Value, imm int16) ProcessedResult {
	switch base.Kind {
	case ValHi:
		return ProcessedResult{Kind: ResPairedLo, HiRom: base.HiRom, Imm: imm, Vram: result.Vram}
	case ValGlobalPointer:
		switch result.RawKind {
		case RawGpGotLazyResolver:
			return ProcessedResult{Kind: ResGpGotLazyResolver, Imm: imm, Vram: result.Vram}
		case RawGpGotLocal:
			return ProcessedResult{Kind: ResGpGotLocal, Imm: imm, Vram: result.Vram}
		case RawGpGotGlobal:
			return ProcessedResult{Kind: ResGpGotGlobal, Imm: imm, Vram: result.Vram}
		default:
			return ProcessedResult{Kind: ResGpRel, Imm: imm, Vram: result.Vram}
		}
	case ValRawAddress:
		if base.RawKind == RawGpGotLocal {
			return ProcessedResult{Kind: ResPairedGpGotLo, UpperRom: base.SetterRom, Imm: imm, Vram: result.Vram}
		}
		return ProcessedResult{Kind: ResDanglingLo, Imm: imm}
	default:
		return ProcessedResult{Kind: ResDanglingLo, Imm: imm}
	}
}

// isRegOpMnemonic reports whether mnemonic is one of on_reg_op's register-
// register ALU variants: add, sub, or, and (move is one of this set too,
// folded into processRegOp rather than dispatched separately).
func isRegOpMnemonic(mnemonic string) bool {
	switch mnemonic {
	case "add", "addu", "sub", "subu", "or", "and":
		return true
	default:
		return false
	}
}

// processRegOp implements on_reg_op: the register-register ALU
// transition for add/addu/sub/subu/or/and. `addu $gp, $gp, $t9` -- the
// third leg of the PIC `_gp_disp` prologue -- is tried first, since it
// must perform real addition even though both its operands are non-zero
// and would otherwise qualify for move detection.
func (t *Tracker) processRegOp(instr isa.Instruction, gpConfig *config.GpConfig) ProcessedResult {
	rd, okRd := instr.FieldRd()
	rs, okRs := instr.FieldRs()
	rt, okRt := instr.FieldRt()
	if !okRd || !okRs || !okRt {
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: instr.Mnemonic()}
	}

	mnemonic := instr.Mnemonic()
	isAdd := mnemonic == "add" || mnemonic == "addu"

	if isAdd && rd == isa.RegGp && rs != isa.RegZero && rt != isa.RegZero {
		if result, ok := t.tryGpDispTriple(rd, rs, rt, instr, gpConfig); ok {
			return result
		}
	}

	if instr.OpcodeMaybeIsMove() {
		if src, ok := t.moveSource(rd, rs, rt); ok {
			t.Set(rd, t.Get(src))
		} else {
			t.ClearReg(rd)
		}
		return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: mnemonic, DstReg: rd}
	}

	a, b := t.Get(rs), t.Get(rt)
	var result Value
	switch mnemonic {
	case "add", "addu":
		result = a.AddRegister(b, instr.Rom(), gpConfig)
	case "sub", "subu":
		result = a.SubRegister(b, instr.Rom())
	case "or":
		result = a.OrRegister(b, instr.Rom())
	case "and":
		result = a.AndRegister(b)
	default:
		result = Value{Kind: ValGarbage}
	}
	t.Set(rd, result)
	return ProcessedResult{Kind: ResUnhandledOpcode, Mnemonic: mnemonic, DstReg: rd}
}

// tryGpDispTriple recognizes the third leg of a PIC $gp-reconstruction
// prologue: the prior two instructions must have left $gp holding a
// %hi/%lo-paired displacement and $t9 holding the function's own address,
// with their sum equal to the configured $gp.
func (t *Tracker) tryGpDispTriple(rd, rs, rt isa.Register, instr isa.Instruction, gpConfig *config.GpConfig) (ProcessedResult, bool) {
	a, b := t.Get(rs), t.Get(rt)
	result := a.AddRegister(b, instr.Rom(), gpConfig)
	if result.Kind != ValGlobalPointer || result.GpHiRom == nil {
		return ProcessedResult{}, false
	}
	t.Set(rd, result)
	t.recordGpSet(*result.GpHiRom, result.LoRom, true)
	return ProcessedResult{Kind: ResGpSet, HiRom: *result.GpHiRom, UpperRom: result.LoRom}, true
}

// moveSource applies move detection for an opcode that may be a move:
// when exactly one source is $zero the other wins outright; with both
// non-zero, a source carrying hi/gp info beats one that doesn't, and a
// tie between two carriers goes to whichever register is named the same
// as rd.
func (t *Tracker) moveSource(rd, rs, rt isa.Register) (isa.Register, bool) {
	rsZero, rtZero := rs == isa.RegZero, rt == isa.RegZero
	switch {
	case rsZero && rtZero:
		return 0, false
	case rsZero:
		return rt, true
	case rtZero:
		return rs, true
	}

	hasHiGpInfo := func(r isa.Register) bool {
		k := t.Get(r).Kind
		return k == ValHi || k == ValHiGp
	}
	rsInfo, rtInfo := hasHiGpInfo(rs), hasHiGpInfo(rt)
	switch {
	case rsInfo && !rtInfo:
		return rs, true
	case rtInfo && !rsInfo:
		return rt, true
	case rd == rt:
		return rt, true
	default:
		return rs, true
	}
}
