// Package dataguess classifies the contents of an undeclared data symbol
// -- string, float, jumptable, or plain pointer -- purely from its raw
// bytes and how code referenced it, since nothing in the binary itself
// declares a type for data symbols.
package dataguess

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/metadata"
)

func isPrintableAscii(b byte) bool {
	return b == '\t' || b == '\n' || b == '\r' || (b >= 0x20 && b < 0x7F)
}

// GuessCString reports whether data, read from its start, looks like a
// NUL-terminated string literal: every byte before the first NUL is
// printable ASCII, and the NUL isn't the very first byte.
func GuessCString(data []byte) (length int, ok bool) {
	if len(data) == 0 {
		return 0, false
	}
	for i, b := range data {
		if b == 0 {
			if i == 0 {
				return 0, false
			}
			return i + 1, true
		}
		if !isPrintableAscii(b) {
			return 0, false
		}
	}
	return 0, false
}

// GuessFloat32 reports whether bits, read as an IEEE-754 single, looks
// like a plausible hand-written constant rather than an arbitrary word:
// zero/subnormal and infinity/NaN exponents are rejected.
func GuessFloat32(bits uint32) bool {
	exponent := (bits >> 23) & 0xFF
	return exponent != 0 && exponent != 0xFF
}

// GuessFloat64 mirrors GuessFloat32 for IEEE-754 doubles.
func GuessFloat64(bits uint64) bool {
	exponent := (bits >> 52) & 0x7FF
	return exponent != 0 && exponent != 0x7FF
}

// GuessJumptableEntry reports whether value looks like one case label of
// a compiler-generated jumptable: word-aligned and landing inside the
// owning segment's executable range.
func GuessJumptableEntry(value addresses.Vram, codeRange addresses.VramRange) bool {
	return codeRange.Contains(value) && value.Inner()%4 == 0
}

// GuessPointer reports whether value could plausibly be a pointer into
// any of the given VRAM ranges, the fallback evidence used when nothing
// more specific (string, float, jumptable) matched.
func GuessPointer(value addresses.Vram, ranges []addresses.VramRange) bool {
	for _, r := range ranges {
		if r.Contains(value) {
			return true
		}
	}
	return false
}

// ClassifySymbol guesses the most likely SymbolKind for an undeclared
// data symbol, preferring, in order: a jumptable (if there is at least one
// jumptable candidate and every one is a word-aligned address in the code
// range), a C string filling the whole of data, then the kind matching
// dominantAccess (float32, float64, byte, short, dword), falling back to a
// plain word.
func ClassifySymbol(data []byte, dominantAccess isa.AccessType, codeRange addresses.VramRange, jumptableCandidates []addresses.Vram) metadata.SymbolKind {
	if len(jumptableCandidates) > 0 {
		allInCode := true
		for _, v := range jumptableCandidates {
			if !GuessJumptableEntry(v, codeRange) {
				allInCode = false
				break
			}
		}
		if allInCode {
			return metadata.SymbolJumptable
		}
	}

	if length, ok := GuessCString(data); ok && length == len(data) {
		return metadata.SymbolCString
	}

	switch dominantAccess {
	case isa.AccessFloat32:
		return metadata.SymbolFloat32
	case isa.AccessFloat64:
		return metadata.SymbolFloat64
	case isa.AccessByte:
		return metadata.SymbolByte
	case isa.AccessShort:
		return metadata.SymbolShort
	case isa.AccessDoubleword:
		return metadata.SymbolDword
	default:
		return metadata.SymbolWord
	}
}
