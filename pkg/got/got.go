// Package got models the MIPS Global Offset Table used by
// position-independent code to find the absolute address of a symbol
// through a small, linker-populated indirection table at $gp ± offset.
package got

import "mipsdisasm/pkg/addresses"

// GlobalEntry is one entry of the GOT's "globals" region: a dynamic symbol
// carrying its own address plus whether it names a function.
type GlobalEntry struct {
	Initial    uint32
	SymbolValue uint32
	IsFunction bool
}

// RequestedKind identifies which of the three GOT regions satisfied a
// request_address lookup.
type RequestedKind int

const (
	KindLocal RequestedKind = iota
	KindGlobal
	KindLazyResolver
)

// RequestedAddress is the result of resolving a $gp-relative access against
// the GOT: which region answered, and the address it resolved to.
type RequestedAddress struct {
	Kind    RequestedKind
	Address uint32
}

// Table is the Global Offset Table attached to a segment that runs PIC
// code. It is built once from ELF .got/.dynsym data and never mutated
// afterwards.
type Table struct {
	base    addresses.Vram
	locals  []addresses.Vram // index 0 is always the lazy-resolver slot
	globals []GlobalEntry
}

// NewTable builds a GOT from its base VRAM, the raw local entries (32-bit
// words, possibly zero), and the parsed global entries.
func NewTable(base addresses.Vram, locals []addresses.Vram, globals []GlobalEntry) *Table {
	localsCopy := make([]addresses.Vram, len(locals))
	copy(localsCopy, locals)
	globalsCopy := make([]GlobalEntry, len(globals))
	copy(globalsCopy, globals)
	return &Table{base: base, locals: localsCopy, globals: globalsCopy}
}

// Base returns the GOT's base VRAM.
func (t *Table) Base() addresses.Vram { return t.base }

// LocalCount returns the number of local slots, including the lazy
// resolver at index 0.
func (t *Table) LocalCount() int { return len(t.locals) }

// GlobalCount returns the number of global (dynsym-backed) slots.
func (t *Table) GlobalCount() int { return len(t.globals) }

// indexForAddress converts a vram of the form gp+signed_imm into a GOT
// word index, or false if it doesn't land on an entry boundary.
func (t *Table) indexForAddress(vram addresses.Vram) (int, bool) {
	delta := vram.Sub(t.base)
	if delta < 0 || delta%4 != 0 {
		return 0, false
	}
	index := int(delta / 4)
	if index >= len(t.locals)+len(t.globals) {
		return 0, false
	}
	return index, true
}

// RequestAddress resolves a vram equal to gp+signed_imm against the table,
// returning the local entry, the global entry, or the lazy-resolver tag.
func (t *Table) RequestAddress(vram addresses.Vram) (RequestedAddress, bool) {
	index, ok := t.indexForAddress(vram)
	if !ok {
		return RequestedAddress{}, false
	}

	if index == 0 {
		return RequestedAddress{Kind: KindLazyResolver, Address: uint32(t.locals[0])}, true
	}

	if index < len(t.locals) {
		return RequestedAddress{Kind: KindLocal, Address: uint32(t.locals[index])}, true
	}

	global := t.globals[index-len(t.locals)]
	return RequestedAddress{Kind: KindGlobal, Address: global.SymbolValue}, true
}

// IsFunctionGlobal reports whether the global entry resolved from a
// successful RequestAddress call names a function symbol.
func (t *Table) IsFunctionGlobal(vram addresses.Vram) bool {
	index, ok := t.indexForAddress(vram)
	if !ok || index < len(t.locals) {
		return false
	}
	return t.globals[index-len(t.locals)].IsFunction
}

// FindEntryByTarget scans the GOT for an entry whose value equals target,
// the reverse of RequestAddress: used to recognize a plain %hi/%lo pair
// that happens to reconstruct an address the GOT also hands out, which
// gets flagged for %got_hi/%got_lo relocation instead of plain %hi/%lo.
func (t *Table) FindEntryByTarget(target addresses.Vram) (isFunction, ok bool) {
	word := uint32(target)
	for _, local := range t.locals {
		if uint32(local) == word {
			return false, true
		}
	}
	for _, g := range t.globals {
		if g.SymbolValue == word {
			return g.IsFunction, true
		}
	}
	return false, false
}
