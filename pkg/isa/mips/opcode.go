// Package mips is a concrete, table-driven decoder for the plain MIPS I/II
// integer instruction set, implementing the isa.Instruction interface the
// analysis core consumes. It follows the opcode/instruction descriptor
// table pattern used elsewhere in this module's instruction set code: one
// static descriptor per opcode, looked up by the raw word's encoding
// fields rather than branching on mnemonics by hand.
package mips

import "mipsdisasm/pkg/isa"

// format identifies which of the three classic MIPS encoding shapes an
// opcode uses, driving which fields Decode bothers to extract.
type format int

const (
	formatR format = iota
	formatI
	formatJ
)

// descriptor is the static, immutable information about one MIPS opcode:
// everything the analysis core's isa.Instruction queries reduce to a table
// lookup against, keyed by (opcode, funct) or (opcode, rt) for the SPECIAL
// and REGIMM opcode families.
type descriptor struct {
	Mnemonic string
	Format   format

	IsBranch               bool
	IsUnconditionalBranch  bool
	IsFunctionCall         bool
	IsReturn               bool
	IsJumptableJump        bool
	HasDelaySlot           bool

	CanBeHi            bool
	CanBeLo            bool
	CanBeUnsignedLo    bool
	DoesDereference    bool
	DoesLoad           bool
	DoesLink           bool
	IsJump             bool
	IsJumpWithAddress  bool

	ReadsRs bool
	ReadsRt bool
	ReadsRd bool

	MaybeIsMove                      bool
	CausesUnconditionalException    bool
	CausesReturnableException       bool

	Access   isa.AccessType
	Unsigned bool
}

// mainTable is indexed by the raw word's 6-bit primary opcode field, for
// every opcode except SPECIAL (0) and REGIMM (1), which dispatch through
// specialTable and regimmTable instead.
var mainTable = map[uint32]descriptor{
	0o04: {Mnemonic: "beq", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true, ReadsRt: true},
	0o05: {Mnemonic: "bne", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true, ReadsRt: true},
	0o06: {Mnemonic: "blez", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o07: {Mnemonic: "bgtz", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o10: {Mnemonic: "addi", Format: formatI, CanBeLo: true, ReadsRs: true},
	0o11: {Mnemonic: "addiu", Format: formatI, CanBeLo: true, ReadsRs: true},
	0o12: {Mnemonic: "slti", Format: formatI, CanBeLo: true, ReadsRs: true},
	0o13: {Mnemonic: "sltiu", Format: formatI, CanBeLo: true, ReadsRs: true},
	0o14: {Mnemonic: "andi", Format: formatI, CanBeUnsignedLo: true, ReadsRs: true},
	0o15: {Mnemonic: "ori", Format: formatI, CanBeUnsignedLo: true, ReadsRs: true},
	0o16: {Mnemonic: "xori", Format: formatI, CanBeUnsignedLo: true, ReadsRs: true},
	0o17: {Mnemonic: "lui", Format: formatI, CanBeHi: true},
	0o20: {Mnemonic: "cop0", Format: formatI},
	0o21: {Mnemonic: "cop1", Format: formatI},
	0o22: {Mnemonic: "cop2", Format: formatI},
	0o24: {Mnemonic: "beql", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true, ReadsRt: true},
	0o25: {Mnemonic: "bnel", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true, ReadsRt: true},
	0o26: {Mnemonic: "blezl", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o27: {Mnemonic: "bgtzl", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o40: {Mnemonic: "lb", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessByte},
	0o41: {Mnemonic: "lh", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessShort},
	0o42: {Mnemonic: "lwl", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessUnalignedWordLeft},
	0o43: {Mnemonic: "lw", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessWord},
	0o44: {Mnemonic: "lbu", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessByte, Unsigned: true},
	0o45: {Mnemonic: "lhu", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessShort, Unsigned: true},
	0o46: {Mnemonic: "lwr", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessUnalignedWordRight},
	0o50: {Mnemonic: "sb", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessByte},
	0o51: {Mnemonic: "sh", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessShort},
	0o52: {Mnemonic: "swl", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessUnalignedWordLeft},
	0o53: {Mnemonic: "sw", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessWord},
	0o56: {Mnemonic: "swr", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessUnalignedWordRight},
	0o57: {Mnemonic: "cache", Format: formatI, CanBeLo: true, ReadsRs: true},
	0o61: {Mnemonic: "lwc1", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessFloat32},
	0o65: {Mnemonic: "ldc1", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessFloat64},
	0o71: {Mnemonic: "swc1", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, Access: isa.AccessFloat32},
	0o75: {Mnemonic: "sdc1", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, Access: isa.AccessFloat64},
	0o67: {Mnemonic: "ld", Format: formatI, CanBeLo: true, DoesDereference: true, DoesLoad: true, ReadsRs: true, Access: isa.AccessDoubleword},
	0o77: {Mnemonic: "sd", Format: formatI, CanBeLo: true, DoesDereference: true, ReadsRs: true, ReadsRt: true, Access: isa.AccessDoubleword},
	0o02: {Mnemonic: "j", Format: formatJ, IsJump: true, IsJumpWithAddress: true, HasDelaySlot: true},
	0o03: {Mnemonic: "jal", Format: formatJ, IsJump: true, IsJumpWithAddress: true, HasDelaySlot: true, DoesLink: true},
}

// specialTable is indexed by the raw word's 6-bit funct field when the
// primary opcode is SPECIAL (0) -- the register-register ALU and jump
// instructions.
var specialTable = map[uint32]descriptor{
	0o00: {Mnemonic: "sll", Format: formatR, ReadsRt: true},
	0o02: {Mnemonic: "srl", Format: formatR, ReadsRt: true},
	0o03: {Mnemonic: "sra", Format: formatR, ReadsRt: true},
	0o04: {Mnemonic: "sllv", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o06: {Mnemonic: "srlv", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o07: {Mnemonic: "srav", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o10: {Mnemonic: "jr", Format: formatR, IsJump: true, HasDelaySlot: true, ReadsRs: true},
	0o11: {Mnemonic: "jalr", Format: formatR, IsJump: true, HasDelaySlot: true, DoesLink: true, ReadsRs: true},
	0o14: {Mnemonic: "syscall", Format: formatR, CausesReturnableException: true},
	0o15: {Mnemonic: "break", Format: formatR, CausesUnconditionalException: true},
	0o20: {Mnemonic: "mfhi", Format: formatR},
	0o21: {Mnemonic: "mthi", Format: formatR, ReadsRs: true},
	0o22: {Mnemonic: "mflo", Format: formatR},
	0o23: {Mnemonic: "mtlo", Format: formatR, ReadsRs: true},
	0o30: {Mnemonic: "mult", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o31: {Mnemonic: "multu", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o32: {Mnemonic: "div", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o33: {Mnemonic: "divu", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o40: {Mnemonic: "add", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o41: {Mnemonic: "addu", Format: formatR, ReadsRs: true, ReadsRt: true, MaybeIsMove: true},
	0o42: {Mnemonic: "sub", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o43: {Mnemonic: "subu", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o44: {Mnemonic: "and", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o45: {Mnemonic: "or", Format: formatR, ReadsRs: true, ReadsRt: true, MaybeIsMove: true},
	0o46: {Mnemonic: "xor", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o47: {Mnemonic: "nor", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o52: {Mnemonic: "slt", Format: formatR, ReadsRs: true, ReadsRt: true},
	0o53: {Mnemonic: "sltu", Format: formatR, ReadsRs: true, ReadsRt: true},
}

// regimmTable is indexed by the raw word's rt field when the primary
// opcode is REGIMM (1) -- the zero-compare branches.
var regimmTable = map[uint32]descriptor{
	0o00: {Mnemonic: "bltz", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o01: {Mnemonic: "bgez", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o02: {Mnemonic: "bltzl", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o03: {Mnemonic: "bgezl", Format: formatI, IsBranch: true, HasDelaySlot: true, ReadsRs: true},
	0o20: {Mnemonic: "bltzal", Format: formatI, IsBranch: true, HasDelaySlot: true, DoesLink: true, ReadsRs: true},
	0o21: {Mnemonic: "bgezal", Format: formatI, IsBranch: true, HasDelaySlot: true, DoesLink: true, ReadsRs: true},
}

var nopDescriptor = descriptor{Mnemonic: "nop", Format: formatR}
