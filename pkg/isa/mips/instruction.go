package mips

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/utils"
)

// Instruction is a decoded MIPS machine word, implementing isa.Instruction
// against a static descriptor looked up from the raw encoding.
type Instruction struct {
	rom   addresses.Rom
	vram  addresses.Vram
	raw   uint32
	abi   isa.Abi
	desc  descriptor
	valid bool
}

// Decode decodes one 32-bit MIPS word at the given rom/vram. The returned
// Instruction is always usable; an unrecognized encoding just comes back
// with IsValid() false rather than an error, matching how the analysis
// core treats a decode miss as "nothing learned here" rather than fatal.
func Decode(rom addresses.Rom, vram addresses.Vram, raw uint32, abi isa.Abi) Instruction {
	if raw == 0 {
		return Instruction{rom: rom, vram: vram, raw: raw, abi: abi, desc: nopDescriptor, valid: true}
	}

	view := utils.CreateBitView(&raw)
	opcode := view.Read(26, 6)

	var desc descriptor
	var ok bool

	switch opcode {
	case 0:
		desc, ok = specialTable[view.Read(0, 6)]
	case 1:
		desc, ok = regimmTable[view.Read(16, 5)]
	default:
		desc, ok = mainTable[opcode]
	}

	return Instruction{rom: rom, vram: vram, raw: raw, abi: abi, desc: desc, valid: ok}
}

func (i Instruction) view() utils.BitView[uint32] { return utils.CreateBitView(&i.raw) }

func (i Instruction) Rom() addresses.Rom   { return i.rom }
func (i Instruction) Vram() addresses.Vram { return i.vram }
func (i Instruction) Raw() uint32          { return i.raw }
func (i Instruction) Abi() isa.Abi         { return i.abi }

func (i Instruction) Mnemonic() string { return i.desc.Mnemonic }
func (i Instruction) IsValid() bool    { return i.valid }
func (i Instruction) IsNop() bool      { return i.raw == 0 }

func (i Instruction) rs() isa.Register { return isa.Register(i.view().Read(21, 5)) }
func (i Instruction) rt() isa.Register { return isa.Register(i.view().Read(16, 5)) }
func (i Instruction) rd() isa.Register { return isa.Register(i.view().Read(11, 5)) }

func (i Instruction) FieldRs() (isa.Register, bool) {
	if i.desc.Format == formatR || i.desc.Format == formatI {
		return i.rs(), true
	}
	return 0, false
}

func (i Instruction) FieldRt() (isa.Register, bool) {
	if i.desc.Format == formatR || i.desc.Format == formatI {
		return i.rt(), true
	}
	return 0, false
}

func (i Instruction) FieldRd() (isa.Register, bool) {
	if i.desc.Format == formatR {
		return i.rd(), true
	}
	return 0, false
}

// FieldFs, FieldFt and FieldFd report no coprocessor-1 register fields:
// this decoder only resolves the integer pipeline's view of a float
// load/store's base/target (through FieldRs/FieldRt), never the FPU
// register number itself.
func (i Instruction) FieldFs() (isa.Register, bool) { return 0, false }
func (i Instruction) FieldFt() (isa.Register, bool) { return 0, false }
func (i Instruction) FieldFd() (isa.Register, bool) { return 0, false }

// GetProcessedImmediate returns the instruction's 16-bit immediate field,
// sign-extended except for `lui` and the bitwise-immediate opcodes
// (andi/ori/xori), whose immediates are returned zero-extended.
func (i Instruction) GetProcessedImmediate() (int32, bool) {
	if i.desc.Format != formatI {
		return 0, false
	}
	imm16 := uint16(i.view().Read(0, 16))
	if i.desc.CanBeUnsignedLo || i.desc.CanBeHi {
		return int32(imm16), true
	}
	return int32(int16(imm16)), true
}

func (i Instruction) GetInstrIndexAsVram() (addresses.Vram, bool) {
	if i.desc.Format != formatJ {
		return 0, false
	}
	index := i.view().Read(0, 26)
	target := (i.vram.Inner() & 0xF0000000) | (index << 2)
	return addresses.Vram(target), true
}

func (i Instruction) GetBranchVramGeneric() (addresses.Vram, bool) {
	if !i.desc.IsBranch {
		return 0, false
	}
	imm, ok := i.GetProcessedImmediate()
	if !ok {
		return 0, false
	}
	return i.vram.Add(4).AddOffset(imm << 2), true
}

func (i Instruction) IsBranch() bool { return i.desc.IsBranch }

func (i Instruction) IsUnconditionalBranch() bool {
	if i.desc.Mnemonic == "j" {
		return true
	}
	if i.desc.Mnemonic == "beq" && i.rs() == i.rt() {
		return true
	}
	return false
}

func (i Instruction) IsFunctionCall() bool { return i.desc.DoesLink }

// IsJumptableJump always reports false: whether a register-indirect jump
// is really a jumptable dispatch depends on what the register tracker
// inferred was loaded into the register, not on the opcode alone.
func (i Instruction) IsJumptableJump() bool { return false }

func (i Instruction) IsReturn() bool {
	return i.desc.Mnemonic == "jr" && i.rs() == isa.RegRa
}

func (i Instruction) OpcodeCanBeHi() bool         { return i.desc.CanBeHi }
func (i Instruction) OpcodeCanBeLo() bool         { return i.desc.CanBeLo }
func (i Instruction) OpcodeCanBeUnsignedLo() bool { return i.desc.CanBeUnsignedLo }
func (i Instruction) OpcodeDoesDereference() bool { return i.desc.DoesDereference }
func (i Instruction) OpcodeDoesLoad() bool        { return i.desc.DoesLoad }
func (i Instruction) OpcodeDoesLink() bool        { return i.desc.DoesLink }
func (i Instruction) OpcodeIsJump() bool          { return i.desc.IsJump }
func (i Instruction) OpcodeIsJumpWithAddress() bool { return i.desc.IsJumpWithAddress }

func (i Instruction) OpcodeReadsRs() bool { return i.desc.ReadsRs }
func (i Instruction) OpcodeReadsRt() bool { return i.desc.ReadsRt }
func (i Instruction) OpcodeReadsRd() bool { return i.desc.ReadsRd }
func (i Instruction) OpcodeReadsFs() bool { return false }
func (i Instruction) OpcodeReadsFt() bool { return false }
func (i Instruction) OpcodeReadsFd() bool { return false }

func (i Instruction) OpcodeMaybeIsMove() bool { return i.desc.MaybeIsMove }

func (i Instruction) OpcodeCausesUnconditionalException() bool {
	return i.desc.CausesUnconditionalException
}
func (i Instruction) OpcodeCausesReturnableException() bool {
	return i.desc.CausesReturnableException
}

func (i Instruction) HasDelaySlot() bool { return i.desc.HasDelaySlot }

func (i Instruction) AccessInfo() (isa.AccessInfo, bool) {
	if i.desc.Access == isa.AccessNone {
		return isa.AccessInfo{}, false
	}
	return isa.AccessInfo{Type: i.desc.Access, Unsigned: i.desc.Unsigned}, true
}

var _ isa.Instruction = Instruction{}
