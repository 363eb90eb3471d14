// Package reloc synthesizes the MIPS relocation that should decorate an
// instruction's immediate field, given what the register tracker figured
// out about the reference it makes. No ELF relocation table is consulted;
// everything here is inferred purely from the instruction stream.
package reloc

import (
	"mipsdisasm/pkg/analysis"
	"mipsdisasm/pkg/isa"
)

// Type names the MIPS relocation kinds the synthesizer can produce.
type Type int

const (
	TypeNone Type = iota
	TypeHi16
	TypeLo16
	TypeGpRel16
	Type26
	TypePc16
	TypeGot16
	TypeCall16
	TypeGotHi16
	TypeGotLo16
	TypeCallHi16
	TypeCallLo16
	// TypeCustomConstantHi and TypeCustomConstantLo mark a %hi/%lo pair
	// that never resolved to an address -- a pure numeric constant spread
	// across two instructions, still worth rendering symbolically so the
	// two halves stay visually paired.
	TypeCustomConstantHi
	TypeCustomConstantLo
)

func (t Type) String() string {
	switch t {
	case TypeHi16:
		return "R_MIPS_HI16"
	case TypeLo16:
		return "R_MIPS_LO16"
	case TypeGpRel16:
		return "R_MIPS_GPREL16"
	case Type26:
		return "R_MIPS_26"
	case TypePc16:
		return "R_MIPS_PC16"
	case TypeGot16:
		return "R_MIPS_GOT16"
	case TypeCall16:
		return "R_MIPS_CALL16"
	case TypeGotHi16:
		return "R_MIPS_GOT_HI16"
	case TypeGotLo16:
		return "R_MIPS_GOT_LO16"
	case TypeCallHi16:
		return "R_MIPS_CALL_HI16"
	case TypeCallLo16:
		return "R_MIPS_CALL_LO16"
	case TypeCustomConstantHi:
		return "R_CUSTOM_CONSTANT_HI"
	case TypeCustomConstantLo:
		return "R_CUSTOM_CONSTANT_LO"
	default:
		return "R_MIPS_NONE"
	}
}

// Relocation is a synthesized relocation describing which half of a
// reference an instruction's immediate field encodes.
type Relocation struct {
	Type Type
	// Addend is the extra byte offset between the relocation's nominal
	// target and the real reference, needed when an access type realigns
	// to a differently sized or shaped field than a plain 16-bit pair.
	Addend int32
}

// FromResult synthesizes the relocation an instruction's immediate field
// should carry, given the tracker's classification of it. isFunctionTarget
// distinguishes a 26-bit jump-form target (j/jal) from a PC-relative
// branch displacement, which otherwise share the same ProcessedResult
// kinds.
func FromResult(result analysis.ProcessedResult, isFunctionTarget bool) (Relocation, bool) {
	switch result.Kind {
	case analysis.ResHi:
		return Relocation{Type: TypeHi16}, true
	case analysis.ResPairedLo, analysis.ResConstant, analysis.ResUnpairedConstant:
		return Relocation{Type: ClassifyLo(result)}, true
	case analysis.ResGpRel:
		return Relocation{Type: TypeGpRel16}, true
	case analysis.ResGpGotGlobal, analysis.ResGpGotLazyResolver:
		// A global or lazy-resolver GOT entry that also prepares $t9 for
		// a jalr is the function-call idiom (%call16); the same entry
		// read for its own sake (a plain data pointer) is %got16.
		if isFunctionTarget {
			return Relocation{Type: TypeCall16}, true
		}
		return Relocation{Type: TypeGot16}, true
	case analysis.ResGpGotLocal:
		return Relocation{Type: TypeGot16}, true
	case analysis.ResPairedGpGotLo:
		return Relocation{Type: TypeGotLo16}, true
	case analysis.ResDirectLinkingCall, analysis.ResLinkingBranch, analysis.ResMaybeDirectTailCall:
		if isFunctionTarget {
			return Relocation{Type: Type26}, true
		}
		return Relocation{Type: TypePc16}, true
	case analysis.ResBranch:
		return Relocation{Type: TypePc16}, true
	default:
		return Relocation{}, false
	}
}

// ClassifyHi decides, once the paired %lo instruction has been seen,
// whether a `lui` should keep its plain %hi(symbol) relocation, be
// downgraded to a synthetic constant pairing, or be upgraded to the
// %got_hi/%call_hi form a GOT-aliased pair needs.
func ClassifyHi(pairedLo analysis.ProcessedResult) Type {
	switch {
	case pairedLo.Kind == analysis.ResConstant || pairedLo.Kind == analysis.ResUnpairedConstant:
		return TypeCustomConstantHi
	case pairedLo.Kind == analysis.ResPairedLo && pairedLo.GotTarget && pairedLo.GotFunction:
		return TypeCallHi16
	case pairedLo.Kind == analysis.ResPairedLo && pairedLo.GotTarget:
		return TypeGotHi16
	default:
		return TypeHi16
	}
}

// ClassifyLo mirrors ClassifyHi for the paired instruction itself.
func ClassifyLo(pairedLo analysis.ProcessedResult) Type {
	switch {
	case pairedLo.Kind == analysis.ResConstant || pairedLo.Kind == analysis.ResUnpairedConstant:
		return TypeCustomConstantLo
	case pairedLo.Kind == analysis.ResPairedLo && pairedLo.GotTarget && pairedLo.GotFunction:
		return TypeCallLo16
	case pairedLo.Kind == analysis.ResPairedLo && pairedLo.GotTarget:
		return TypeGotLo16
	default:
		return TypeLo16
	}
}

// RealignForAccess zeroes out a synthesized addend for the unaligned
// access shapes, whose %lo already encodes the true byte offset inside
// the Dereference math rather than through a separate relocation addend.
func RealignForAccess(r Relocation, accessType isa.AccessType) Relocation {
	switch accessType {
	case isa.AccessUnalignedWordLeft, isa.AccessUnalignedWordRight,
		isa.AccessUnalignedDoublewordLeft, isa.AccessUnalignedDoublewordRight:
		r.Addend = 0
	}
	return r
}
