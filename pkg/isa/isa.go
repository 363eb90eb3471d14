// Package isa declares the narrow interface the analysis core uses to query
// a decoded MIPS instruction. Decoding a 32-bit word into this shape is an
// external concern (an instruction-decoding library); the core only ever
// consumes it through this interface, never concerning itself with how a
// word became an Instruction.
package isa

import "mipsdisasm/pkg/addresses"

// Abi identifies the MIPS calling convention in effect, which changes how
// $zero/$gp/$sp/$t9 map onto physical register numbers.
type Abi int

const (
	AbiO32 Abi = iota
	AbiN32
	AbiN64
)

// Register is an abstract general purpose register identifier (0-31),
// following the standard o32 numbering regardless of Abi.
type Register uint8

const (
	RegZero Register = 0
	RegAt   Register = 1
	RegV0   Register = 2
	RegV1   Register = 3
	RegA0   Register = 4
	RegA1   Register = 5
	RegA2   Register = 6
	RegA3   Register = 7
	RegT0   Register = 8
	RegT1   Register = 9
	RegT2   Register = 10
	RegT3   Register = 11
	RegT4   Register = 12
	RegT5   Register = 13
	RegT6   Register = 14
	RegT7   Register = 15
	RegS0   Register = 16
	RegS1   Register = 17
	RegS2   Register = 18
	RegS3   Register = 19
	RegS4   Register = 20
	RegS5   Register = 21
	RegS6   Register = 22
	RegS7   Register = 23
	RegT8   Register = 24
	RegT9   Register = 25
	RegK0   Register = 26
	RegK1   Register = 27
	RegGp   Register = 28
	RegSp   Register = 29
	RegFp   Register = 30
	RegRa   Register = 31

	RegisterCount = 32
)

var regNames = [RegisterCount]string{
	"zero", "at", "v0", "v1", "a0", "a1", "a2", "a3",
	"t0", "t1", "t2", "t3", "t4", "t5", "t6", "t7",
	"s0", "s1", "s2", "s3", "s4", "s5", "s6", "s7",
	"t8", "t9", "k0", "k1", "gp", "sp", "fp", "ra",
}

// Name returns the conventional o32 register name, e.g. "gp" or "t9".
func (r Register) Name(Abi) string {
	if int(r) < len(regNames) {
		return regNames[r]
	}
	return "?"
}

func (r Register) IsZero(Abi) bool           { return r == RegZero }
func (r Register) IsGlobalPointer(Abi) bool  { return r == RegGp }
func (r Register) IsStackPointer(Abi) bool   { return r == RegSp }
func (r Register) IsReturnAddress(Abi) bool  { return r == RegRa }

// AccessType classifies the width and shape of a memory access performed by
// a load or store instruction.
type AccessType int

const (
	AccessNone AccessType = iota
	AccessByte
	AccessShort
	AccessWord
	AccessDoubleword
	AccessFloat32
	AccessFloat64
	AccessUnalignedWordLeft
	AccessUnalignedWordRight
	AccessUnalignedDoublewordLeft
	AccessUnalignedDoublewordRight
)

// AccessInfo pairs a memory access's shape with its signedness; signedness
// is meaningless for float and unaligned accesses but kept for uniformity
// with the byte/short/word integer loads that care about it.
type AccessInfo struct {
	Type     AccessType
	Unsigned bool
}

// JrRegData describes what a register-indirect jump (jr/jalr) is jumping
// through: the register read, and the address it was found to hold, if any.
type JrRegData struct {
	Reg     Register
	Address addresses.Vram
	Known   bool
}

// Instruction is the read-only view the analysis core needs of a decoded
// MIPS instruction. An external decoder library is expected to implement
// it; the core never decodes raw words itself.
type Instruction interface {
	Rom() addresses.Rom
	Vram() addresses.Vram
	Raw() uint32
	Abi() Abi

	Mnemonic() string
	IsValid() bool
	IsNop() bool

	FieldRs() (Register, bool)
	FieldRt() (Register, bool)
	FieldRd() (Register, bool)
	FieldFs() (Register, bool)
	FieldFt() (Register, bool)
	FieldFd() (Register, bool)

	// GetProcessedImmediate returns the instruction's sign- or
	// zero-extended 16-bit immediate, already widened to 32 bits.
	GetProcessedImmediate() (int32, bool)
	// GetInstrIndexAsVram returns the absolute target of a `j`/`jal`
	// instr_index-form jump.
	GetInstrIndexAsVram() (addresses.Vram, bool)
	// GetBranchVramGeneric returns the absolute target of any
	// PC-relative branch (conditional or the unconditional `b`/`bal`).
	GetBranchVramGeneric() (addresses.Vram, bool)

	IsBranch() bool
	IsUnconditionalBranch() bool
	IsFunctionCall() bool
	IsJumptableJump() bool
	IsReturn() bool

	OpcodeCanBeHi() bool
	OpcodeCanBeLo() bool
	OpcodeCanBeUnsignedLo() bool
	OpcodeDoesDereference() bool
	OpcodeDoesLoad() bool
	OpcodeDoesLink() bool
	OpcodeIsJump() bool
	OpcodeIsJumpWithAddress() bool

	OpcodeReadsRs() bool
	OpcodeReadsRt() bool
	OpcodeReadsRd() bool
	OpcodeReadsFs() bool
	OpcodeReadsFt() bool
	OpcodeReadsFd() bool

	OpcodeMaybeIsMove() bool
	OpcodeCausesUnconditionalException() bool
	OpcodeCausesReturnableException() bool

	HasDelaySlot() bool

	// AccessInfo reports the memory access shape for loads/stores; the
	// second return value is false for instructions that don't touch
	// memory.
	AccessInfo() (AccessInfo, bool)
}
