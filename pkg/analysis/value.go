// Package analysis implements the register-value symbolic tracker and the
// per-instruction analysis loop that drives it: the part of the engine
// that recovers %hi/%lo pairs, $gp-relative and GOT accesses, and turns
// them into concrete address references without ever executing the code.
package analysis

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/got"
	"mipsdisasm/pkg/isa"
)

// ValueKind tags which variant of the register-value sum type a Value
// holds. Only the fields relevant to the active Kind are meaningful; the
// rest are zero.
type ValueKind int

const (
	ValGarbage ValueKind = iota
	ValHardwiredZero
	ValSoftZero
	ValGlobalPointer
	ValStackPointer
	ValGivenAddress
	ValHi
	ValHiGp
	ValConstant
	ValSmallConstant
	ValOredHi
	ValRawAddress
	ValDereferenced
	ValDereferencedBranchChecked
	ValDereferencedAddedWithGp
)

// RawAddressKind distinguishes the ways a RawAddress value was computed,
// mirroring which relocation pairing produced it.
type RawAddressKind int

const (
	RawHiLo RawAddressKind = iota
	RawGpRel
	RawGpGotGlobal
	RawGpGotLazyResolver
	RawGpGotLocal
	RawPairedGpGotLo
	RawHiLoGp
)

// DerefKind distinguishes the ways a Dereferenced value was computed.
type DerefKind int

const (
	DerefHi DerefKind = iota
	DerefHiLo
	DerefGpRel
	DerefRawGpRel
	DerefGpGotGlobal
	DerefGpGotLocal
	DerefPairedGpGotLo
	DerefHiLoGp
	DerefHiUnaligned
	DerefGpRelUnaligned
)

// Value is a symbolic abstraction of what a GPR currently holds, tracked
// forward through a basic block purely from the instruction stream.
type Value struct {
	Kind ValueKind

	Gp     config.GpValue
	GpHiRom *addresses.Rom

	Offset int32

	Vram      addresses.Vram
	SetterRom addresses.Rom

	Value32 uint32
	HiRom   addresses.Rom

	RawKind        RawAddressKind
	UpperRom       addresses.Rom

	DerefKind         DerefKind
	DerefRom          addresses.Rom
	AccessInfo        isa.AccessInfo
	Addend            int16
	LoRom             addresses.Rom
	UnaddendedAddress addresses.Vram
}

func isZero(k ValueKind) bool { return k == ValHardwiredZero || k == ValSoftZero }

func isDereferenced(k ValueKind) bool {
	return k == ValDereferenced || k == ValDereferencedBranchChecked || k == ValDereferencedAddedWithGp
}

func isPointerish(k ValueKind) bool {
	return k == ValHi || k == ValHiGp || k == ValRawAddress
}

func isConstantInfo(k ValueKind) bool {
	return k == ValConstant || k == ValSmallConstant || k == ValOredHi
}

// New builds the starting value for reg at the top of a function: a hard
// zero for $zero, $gp's configured address for $gp, a fresh stack frame
// for $sp, the function's own address for $t9 under PIC, garbage
// otherwise.
func New(reg isa.Register, functionAddress *addresses.Vram, gpConfig *config.GpConfig) Value {
	switch {
	case reg.IsZero(isa.AbiO32):
		return Value{Kind: ValHardwiredZero}
	case reg.IsGlobalPointer(isa.AbiO32):
		if gpConfig != nil {
			return Value{Kind: ValGlobalPointer, Gp: gpConfig.GpValue()}
		}
		return Value{Kind: ValGarbage}
	case reg.IsStackPointer(isa.AbiO32):
		return Value{Kind: ValStackPointer}
	case reg == isa.RegT9:
		if functionAddress != nil && gpConfig != nil && gpConfig.Pic() {
			return Value{Kind: ValGivenAddress, Vram: *functionAddress}
		}
		return Value{Kind: ValGarbage}
	default:
		return Value{Kind: ValGarbage}
	}
}

// ApplyBranch marks a dereferenced value as having survived to a branch
// instruction, which later analysis uses to decide whether a load is
// trustworthy enough to treat as a real data reference.
func (v Value) ApplyBranch() Value {
	if v.Kind == ValDereferenced || v.Kind == ValDereferencedBranchChecked {
		v.Kind = ValDereferencedBranchChecked
	}
	return v
}

// AddImm16 applies `addiu $dst, $self, imm` (or the other immediate
// opcodes processLo sends here, such as `addi`, with the immediate taken
// as a signed 16-bit value). `ori` goes through OrImm16 instead.
func (v Value) AddImm16(imm int16, currentRom addresses.Rom, gpConfig *config.GpConfig, dstReg isa.Register) Value {
	switch v.Kind {
	case ValHardwiredZero, ValSoftZero:
		if imm == 0 {
			return Value{Kind: ValSoftZero}
		}
		return Value{Kind: ValGarbage}

	case ValGlobalPointer:
		return Value{
			Kind:      ValRawAddress,
			Vram:      addresses.Vram(v.Gp).AddOffset(int32(imm)),
			SetterRom: currentRom,
			RawKind:   RawGpRel,
		}

	case ValStackPointer:
		return Value{Kind: ValStackPointer, Offset: v.Offset + int32(imm)}

	case ValHi:
		if imm < 0 && uint32(-int32(imm)) > v.Value32 {
			return Value{Kind: ValGarbage}
		}
		newValue := v.Value32 + uint32(imm)
		// A real address in this disassembler's target space always has
		// its sign bit set (KSEG0/KSEG1 and above); a pair that composes
		// to something smaller never names a symbol and is rejected as
		// dangling instead. $gp reconstruction is exempt: both the plain
		// %hi/%lo(_gp) form and the _gp_disp prologue's intermediate
		// displacement are small, non-pointer-looking values by design.
		if dstReg != isa.RegGp && int32(newValue) >= 0 {
			return Value{Kind: ValGarbage}
		}
		if gpConfig != nil && gpConfig.GpValue().Inner() == newValue && dstReg == isa.RegGp {
			hiRom := v.HiRom
			return Value{Kind: ValGlobalPointer, Gp: config.GpValue(addresses.Vram(newValue)), GpHiRom: &hiRom}
		}
		return Value{
			Kind:      ValRawAddress,
			Vram:      addresses.Vram(newValue),
			SetterRom: currentRom,
			RawKind:   RawHiLo,
			HiRom:     v.HiRom,
		}

	case ValRawAddress:
		if v.RawKind == RawGpGotLocal {
			return Value{
				Kind:      ValRawAddress,
				Vram:      v.Vram.AddOffset(int32(imm)),
				SetterRom: currentRom,
				RawKind:   RawPairedGpGotLo,
				UpperRom:  v.SetterRom,
			}
		}
		return Value{Kind: ValGarbage}

	default:
		return Value{Kind: ValGarbage}
	}
}

// unalignedOffset returns the offset to apply to an unaligned access's
// address for the given access shape and endianness (false when none
// applies), matching the handedness MIPS uses for lwl/lwr and
// ldl/ldr: left-half loads pair with %lo+3/+7 on little endian, right-half
// loads pair with %lo+3/+7 on big endian.
func unalignedOffset(accessType isa.AccessType, endian config.Endian) (int32, bool) {
	switch {
	case accessType == isa.AccessUnalignedWordLeft && endian == config.EndianLittle:
		return -0x3, true
	case accessType == isa.AccessUnalignedWordRight && endian == config.EndianBig:
		return -0x3, true
	case accessType == isa.AccessUnalignedDoublewordLeft && endian == config.EndianLittle:
		return -0x7, true
	case accessType == isa.AccessUnalignedDoublewordRight && endian == config.EndianBig:
		return -0x7, true
	default:
		return 0, false
	}
}

// Dereference applies a load/store using self as the base register, e.g.
// `lw $rt, imm($self)`.
func (v Value) Dereference(imm int16, currentRom addresses.Rom, accessInfo isa.AccessInfo, gotTable *got.Table, endian config.Endian) Value {
	switch v.Kind {
	case ValGlobalPointer:
		vram := addresses.Vram(v.Gp).AddOffset(int32(imm))
		if gotTable != nil {
			if req, ok := gotTable.RequestAddress(vram); ok {
				newAddr := addresses.Vram(req.Address)
				switch req.Kind {
				case got.KindLazyResolver:
					return Value{Kind: ValRawAddress, Vram: newAddr, SetterRom: currentRom, RawKind: RawGpGotLazyResolver}
				case got.KindLocal:
					return Value{Kind: ValRawAddress, Vram: newAddr, SetterRom: currentRom, RawKind: RawGpGotLocal}
				default:
					return Value{Kind: ValRawAddress, Vram: newAddr, SetterRom: currentRom, RawKind: RawGpGotGlobal}
				}
			}
		}

		derefKind := DerefGpRel
		var unaddended addresses.Vram
		if offset, ok := unalignedOffset(accessInfo.Type, endian); ok {
			derefKind = DerefGpRelUnaligned
			unaddended = vram.AddOffset(offset)
		}
		return Value{Kind: ValDereferenced, Vram: vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: derefKind, UnaddendedAddress: unaddended}

	case ValStackPointer:
		// Stack slots are not tracked as addresses.
		return Value{Kind: ValGarbage}

	case ValHi:
		originalAddress := addresses.Vram(v.Value32).AddOffset(int32(imm))
		derefKind := DerefHi
		var unaddended addresses.Vram
		if offset, ok := unalignedOffset(accessInfo.Type, endian); ok {
			derefKind = DerefHiUnaligned
			unaddended = originalAddress.AddOffset(offset)
		}
		return Value{
			Kind: ValDereferenced, Vram: originalAddress, DerefRom: currentRom, AccessInfo: accessInfo,
			DerefKind: derefKind, HiRom: v.HiRom, UnaddendedAddress: unaddended,
		}

	case ValHiGp:
		vram := addresses.Vram(v.Value32).AddOffset(int32(imm))
		if gotTable != nil {
			if req, ok := gotTable.RequestAddress(vram); ok {
				return Value{
					Kind: ValRawAddress, Vram: addresses.Vram(req.Address), SetterRom: currentRom,
					RawKind: RawHiLoGp, HiRom: v.HiRom,
				}
			}
		}
		return Value{Kind: ValGarbage}

	case ValRawAddress:
		switch v.RawKind {
		case RawHiLo:
			return Value{Kind: ValDereferenced, Vram: v.Vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefHiLo, LoRom: v.SetterRom, Addend: imm}
		case RawGpRel:
			return Value{Kind: ValDereferenced, Vram: v.Vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefRawGpRel, LoRom: v.SetterRom, Addend: imm}
		case RawGpGotGlobal:
			return Value{Kind: ValDereferenced, Vram: v.Vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefGpGotGlobal, UpperRom: v.SetterRom, Addend: imm}
		case RawGpGotLazyResolver:
			return Value{Kind: ValGarbage}
		case RawGpGotLocal:
			originalAddress := v.Vram.AddOffset(int32(imm))
			return Value{Kind: ValDereferenced, Vram: originalAddress, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefGpGotLocal, UpperRom: v.SetterRom}
		case RawPairedGpGotLo:
			return Value{Kind: ValDereferenced, Vram: v.Vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefPairedGpGotLo, LoRom: v.SetterRom, Addend: imm}
		case RawHiLoGp:
			return Value{Kind: ValDereferenced, Vram: v.Vram, DerefRom: currentRom, AccessInfo: accessInfo, DerefKind: DerefHiLoGp, LoRom: v.SetterRom, Addend: imm}
		}
		return Value{Kind: ValGarbage}

	default:
		return Value{Kind: ValGarbage}
	}
}

// OrImm16 applies `ori $dst, $self, imm`.
func (v Value) OrImm16(imm uint16, currentRom addresses.Rom) Value {
	switch v.Kind {
	case ValHardwiredZero, ValSoftZero:
		if imm == 0 {
			return Value{Kind: ValSoftZero}
		}
		return Value{Kind: ValSmallConstant, Value32: uint32(imm), SetterRom: currentRom}

	case ValHi:
		return Value{Kind: ValConstant, Value32: v.Value32 | uint32(imm), HiRom: v.HiRom, SetterRom: currentRom}

	case ValOredHi:
		return Value{Kind: ValConstant, Value32: v.Value32 | uint32(imm), HiRom: v.HiRom, SetterRom: currentRom}

	default:
		return Value{Kind: ValGarbage}
	}
}

// AddRegister applies `add`/`addu $dst, $self, $other`. Addition is
// symmetrical: AddRegister(a, b) and AddRegister(b, a) give the same
// result.
func (a Value) AddRegister(b Value, currentRom addresses.Rom, gpConfig *config.GpConfig) Value {
	switch {
	case isZero(a.Kind) && isZero(b.Kind):
		return Value{Kind: ValSoftZero}
	case isZero(b.Kind):
		return a
	case isZero(a.Kind):
		return b
	case b.Kind == ValGarbage:
		return a
	case a.Kind == ValGarbage:
		return b

	case isPointerish(a.Kind) && isDereferenced(b.Kind):
		return a
	case isDereferenced(a.Kind) && isPointerish(b.Kind):
		return b

	case a.Kind == ValGlobalPointer && b.Kind == ValGlobalPointer:
		return Value{Kind: ValGarbage}
	case a.Kind == ValGlobalPointer && b.Kind == ValHi:
		return Value{Kind: ValHiGp, Value32: a.Gp.Inner() + b.Value32, SetterRom: currentRom, HiRom: b.HiRom}
	case a.Kind == ValHi && b.Kind == ValGlobalPointer:
		return Value{Kind: ValHiGp, Value32: b.Gp.Inner() + a.Value32, SetterRom: currentRom, HiRom: a.HiRom}

	case a.Kind == ValGlobalPointer && isDereferenced(b.Kind):
		b.Kind = ValDereferencedAddedWithGp
		return b
	case isDereferenced(a.Kind) && b.Kind == ValGlobalPointer:
		a.Kind = ValDereferencedAddedWithGp
		return a

	case a.Kind == ValGlobalPointer && (b.Kind == ValStackPointer || b.Kind == ValGivenAddress || b.Kind == ValHiGp || isConstantInfo(b.Kind) || b.Kind == ValRawAddress || b.Kind == ValDereferencedAddedWithGp):
		return Value{Kind: ValGarbage}
	case b.Kind == ValGlobalPointer && (a.Kind == ValStackPointer || a.Kind == ValGivenAddress || a.Kind == ValHiGp || isConstantInfo(a.Kind) || a.Kind == ValRawAddress || a.Kind == ValDereferencedAddedWithGp):
		return Value{Kind: ValGarbage}

	case a.Kind == ValStackPointer && b.Kind == ValStackPointer:
		return Value{Kind: ValGarbage}
	case a.Kind == ValStackPointer && b.Kind == ValHi:
		return Value{Kind: ValStackPointer, Offset: a.Offset + int32(b.Value32)}
	case a.Kind == ValHi && b.Kind == ValStackPointer:
		return Value{Kind: ValStackPointer, Offset: b.Offset + int32(a.Value32)}
	case a.Kind == ValStackPointer && b.Kind == ValRawAddress:
		if b.RawKind == RawHiLo {
			return Value{Kind: ValStackPointer, Offset: a.Offset + int32(b.Vram.Inner())}
		}
		return Value{Kind: ValGarbage}
	case a.Kind == ValRawAddress && b.Kind == ValStackPointer:
		if a.RawKind == RawHiLo {
			return Value{Kind: ValStackPointer, Offset: b.Offset + int32(a.Vram.Inner())}
		}
		return Value{Kind: ValGarbage}
	case a.Kind == ValStackPointer && (b.Kind == ValGivenAddress || b.Kind == ValHiGp || isConstantInfo(b.Kind) || isDereferenced(b.Kind)):
		return Value{Kind: ValGarbage}
	case b.Kind == ValStackPointer && (a.Kind == ValGivenAddress || a.Kind == ValHiGp || isConstantInfo(a.Kind) || isDereferenced(a.Kind)):
		return Value{Kind: ValGarbage}

	case a.Kind == ValGivenAddress && b.Kind == ValGivenAddress:
		return Value{Kind: ValGarbage}
	case a.Kind == ValGivenAddress && b.Kind == ValRawAddress:
		return addGivenToRaw(a.Vram, b, currentRom, gpConfig)
	case a.Kind == ValRawAddress && b.Kind == ValGivenAddress:
		return addGivenToRaw(b.Vram, a, currentRom, gpConfig)
	case a.Kind == ValGivenAddress && (b.Kind == ValHi || b.Kind == ValHiGp || isDereferenced(b.Kind) || isConstantInfo(b.Kind)):
		return Value{Kind: ValGarbage}
	case b.Kind == ValGivenAddress && (a.Kind == ValHi || a.Kind == ValHiGp || isDereferenced(a.Kind) || isConstantInfo(a.Kind)):
		return Value{Kind: ValGarbage}

	case isConstantInfo(a.Kind) || isConstantInfo(b.Kind):
		return Value{Kind: ValGarbage}

	case a.Kind == ValHi && b.Kind == ValHi:
		return Value{Kind: ValGarbage}
	case a.Kind == ValHi && (b.Kind == ValHiGp || b.Kind == ValRawAddress):
		return Value{Kind: ValGarbage}
	case (a.Kind == ValHiGp || a.Kind == ValRawAddress) && b.Kind == ValHi:
		return Value{Kind: ValGarbage}
	case a.Kind == ValHiGp && b.Kind == ValHiGp:
		return Value{Kind: ValGarbage}
	case a.Kind == ValHiGp && b.Kind == ValRawAddress:
		return Value{Kind: ValGarbage}
	case a.Kind == ValRawAddress && b.Kind == ValHiGp:
		return Value{Kind: ValGarbage}
	case a.Kind == ValRawAddress && b.Kind == ValRawAddress:
		return Value{Kind: ValGarbage}

	case isDereferenced(a.Kind) && isDereferenced(b.Kind):
		return Value{Kind: ValGarbage}

	default:
		return Value{Kind: ValGarbage}
	}
}

// addGivenToRaw handles GivenAddress + RawAddress::HiLo, the idiom PIC code
// uses to recompute $gp from $t9 plus a %hi/%lo-paired displacement.
func addGivenToRaw(givenAddress addresses.Vram, raw Value, currentRom addresses.Rom, gpConfig *config.GpConfig) Value {
	if raw.RawKind != RawHiLo {
		return Value{Kind: ValGarbage}
	}
	result := givenAddress.Inner() + raw.Vram.Inner()
	if gpConfig != nil && gpConfig.GpValue().Inner() == result {
		hiRom := raw.HiRom
		return Value{Kind: ValGlobalPointer, Gp: config.GpValue(addresses.Vram(result)), GpHiRom: &hiRom, LoRom: raw.SetterRom}
	}
	return Value{Kind: ValGarbage}
}

// SubRegister applies `sub`/`subu $dst, $self, $other`.
func (a Value) SubRegister(b Value, _ addresses.Rom) Value {
	switch {
	case a.Kind == ValHardwiredZero && isZero(b.Kind):
		return Value{Kind: ValSoftZero}
	case isZero(b.Kind):
		return a
	case a.Kind == ValStackPointer && b.Kind == ValConstant:
		return Value{Kind: ValStackPointer, Offset: a.Offset - int32(b.Value32)}
	case a.Kind == ValStackPointer && b.Kind == ValSmallConstant:
		return Value{Kind: ValStackPointer, Offset: a.Offset - int32(b.Value32)}
	case a.Kind == ValStackPointer && b.Kind == ValOredHi:
		return Value{Kind: ValGarbage}
	default:
		return Value{Kind: ValGarbage}
	}
}

// OrRegister applies `or $dst, $self, $other`. Or'ing is symmetrical.
func (a Value) OrRegister(b Value, currentRom addresses.Rom) Value {
	isGarbageDerefOrSmall := func(k ValueKind) bool {
		return k == ValGarbage || isDereferenced(k) || k == ValSmallConstant
	}
	switch {
	case isZero(a.Kind) && isZero(b.Kind):
		return Value{Kind: ValSoftZero}
	case isZero(b.Kind):
		return a
	case isZero(a.Kind):
		return b
	case a.Kind == ValHi && isGarbageDerefOrSmall(b.Kind):
		return Value{Kind: ValOredHi, Value32: a.Value32, HiRom: a.HiRom, SetterRom: currentRom}
	case b.Kind == ValHi && isGarbageDerefOrSmall(a.Kind):
		return Value{Kind: ValOredHi, Value32: b.Value32, HiRom: b.HiRom, SetterRom: currentRom}
	default:
		return Value{Kind: ValGarbage}
	}
}

// AndRegister applies `and $dst, $self, $other`. Unlike Add/Or, a bitwise
// and of two tracked pointers never yields a meaningful address, so the
// only case worth preserving is the all-zero absorption.
func (a Value) AndRegister(b Value) Value {
	if isZero(a.Kind) || isZero(b.Kind) {
		return Value{Kind: ValSoftZero}
	}
	return Value{Kind: ValGarbage}
}

// KnownVram returns the address this value is known to represent, covering
// every variant that denotes a concrete (not necessarily dereferenced)
// address.
func (v Value) KnownVram() (addresses.Vram, bool) {
	switch v.Kind {
	case ValGlobalPointer:
		return addresses.Vram(v.Gp), true
	case ValGivenAddress, ValRawAddress:
		return v.Vram, true
	default:
		return 0, false
	}
}

// DereferencedVram returns the address a Dereferenced-family value points
// at, i.e. the address that was read from or written to.
func (v Value) DereferencedVram() (addresses.Vram, bool) {
	if isDereferenced(v.Kind) {
		return v.Vram, true
	}
	return 0, false
}
