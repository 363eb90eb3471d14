// Package metadata holds the per-symbol and per-segment bookkeeping the
// analysis core accumulates while it walks a binary: what a symbol is
// called, what kind it is, who references it, and which segment owns it.
package metadata

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/got"
)

// SymbolKind classifies what a symbol denotes, driving both how it gets
// disassembled and how its name gets generated when the user never
// declared one.
type SymbolKind int

const (
	SymbolFunction SymbolKind = iota
	SymbolBranchLabel
	SymbolJumptable
	SymbolJumptableLabel
	SymbolAlternativeEntry
	SymbolExceptTable
	SymbolExceptTableLabel
	SymbolByte
	SymbolShort
	SymbolWord
	SymbolDword
	SymbolFloat32
	SymbolFloat64
	SymbolCString
	SymbolUserCustom
)

// GotAccessKind records how a symbol is reached through PIC code, if at all.
type GotAccessKind int

const (
	GotAccessNone GotAccessKind = iota
	GotAccessNormal
	GotAccessCall16
	GotAccessGot16CoupledWithLo
)

// AccessTypeHistogram counts, per isa.AccessType, how many times a symbol
// was dereferenced that way. It drives the guess of what sized unit a data
// symbol is really made of when the user never declared a type.
type AccessTypeHistogram map[int]uint32

// Bump records one more observed access of the given access type.
func (h AccessTypeHistogram) Bump(accessType int) {
	h[accessType]++
}

// Dominant returns the access type with the most observations, and false
// if nothing was ever recorded.
func (h AccessTypeHistogram) Dominant() (int, bool) {
	best := 0
	bestCount := uint32(0)
	found := false
	for k, v := range h {
		if !found || v > bestCount || (v == bestCount && k < best) {
			best = k
			bestCount = v
			found = true
		}
	}
	return best, found
}

// SymbolMetadata is everything the engine knows, or has guessed, about one
// symbol: its address, its declared or invented name, its kind, and the
// trail of evidence (referrers, access shapes) gathered while scanning.
type SymbolMetadata struct {
	Vram addresses.Vram

	UserDeclaredName string
	GeneratedName    string

	Kind SymbolKind

	// Size is nil until either the user declares it or the post-processor
	// autodetects it from the distance to the next symbol.
	Size *addresses.Size

	// CompilerHint records a detected toolchain-specific convention, such
	// as an IDO-style handwritten jumptable prologue, purely for
	// diagnostic display; it never changes analysis behavior.
	CompilerHint string

	Got GotAccessKind

	// GpRelative marks a symbol that was reached through a $gp-relative
	// small-data access rather than a %hi/%lo pair.
	GpRelative bool

	// FirstLoReferenceRom is the ROM of the first %lo (or small-data)
	// reference to this symbol, used to break ties when two candidate
	// symbols sit at the same VRAM.
	FirstLoReferenceRom *addresses.Rom

	AccessTypes AccessTypeHistogram

	// Referrers is the set of VRAMs of instructions that reference this
	// symbol, used for both diagnostics and disambiguating overlapping
	// guesses.
	Referrers map[addresses.Vram]bool

	// Defined is true once this symbol has actually been placed in some
	// section; false for symbols that exist only because something
	// referenced them (a forward reference not yet resolved).
	Defined bool

	UserCustom bool
}

// NewSymbolMetadata creates a not-yet-defined symbol at the given VRAM.
func NewSymbolMetadata(vram addresses.Vram, kind SymbolKind) *SymbolMetadata {
	return &SymbolMetadata{
		Vram:        vram,
		Kind:        kind,
		AccessTypes: AccessTypeHistogram{},
		Referrers:   map[addresses.Vram]bool{},
	}
}

// AddReferrer records an instruction at referrerVram as referencing this symbol.
func (s *SymbolMetadata) AddReferrer(referrerVram addresses.Vram) {
	s.Referrers[referrerVram] = true
}

// Name returns the user-declared name if present, otherwise the generated
// one, otherwise an empty string (the caller is expected to generate one
// on demand using config.NameGeneration).
func (s *SymbolMetadata) Name() string {
	if s.UserDeclaredName != "" {
		return s.UserDeclaredName
	}
	return s.GeneratedName
}

// LabelMetadata is a lightweight symbol with no owned byte range: branch
// targets, jumptable-entry labels, alternative function entries.
type LabelMetadata struct {
	Vram addresses.Vram
	Kind SymbolKind

	GeneratedName string
	Referrers     map[addresses.Vram]bool
}

func NewLabelMetadata(vram addresses.Vram, kind SymbolKind) *LabelMetadata {
	return &LabelMetadata{Vram: vram, Kind: kind, Referrers: map[addresses.Vram]bool{}}
}

func (l *LabelMetadata) AddReferrer(referrerVram addresses.Vram) {
	l.Referrers[referrerVram] = true
}

// OverlayCategory names a group of mutually exclusive segments that all
// occupy the same VRAM range, e.g. the set of overworld-area overlays in a
// game that get loaded one at a time into the same memory window.
type OverlayCategory string

// SegmentMetadata owns a contiguous ROM/VRAM range and every symbol and
// label whose VRAM falls inside it.
type SegmentMetadata struct {
	Name  string
	Range addresses.RomVramRange

	// Category and Priority are unset for the global segment and for user
	// segments; overlay segments sharing a Category compete for the same
	// VRAM window and are tried in ascending Priority order when more
	// than one plausibly owns a reference.
	Category *OverlayCategory
	Priority int

	Symbols map[addresses.Vram]*SymbolMetadata
	Labels  map[addresses.Vram]*LabelMetadata

	Got *got.Table

	// Unknown marks the fallback segment synthesized to hold references
	// that fell outside every known range; it never overlaps a real one.
	Unknown bool
}

// NewSegmentMetadata creates an empty segment spanning the given range.
func NewSegmentMetadata(name string, rng addresses.RomVramRange) *SegmentMetadata {
	return &SegmentMetadata{
		Name:    name,
		Range:   rng,
		Symbols: map[addresses.Vram]*SymbolMetadata{},
		Labels:  map[addresses.Vram]*LabelMetadata{},
	}
}

// NewUnknownSegmentMetadata creates the catch-all segment for references
// that match no known range.
func NewUnknownSegmentMetadata() *SegmentMetadata {
	s := NewSegmentMetadata("unknown", addresses.RomVramRange{})
	s.Unknown = true
	return s
}

// Owns reports whether vram falls inside this segment's VRAM span. The
// unknown segment owns nothing by range; it's always consulted last.
func (s *SegmentMetadata) Owns(vram addresses.Vram) bool {
	if s.Unknown {
		return false
	}
	return s.Range.Vram.Contains(vram)
}

// FindSymbol returns the symbol at vram if one has been registered.
func (s *SegmentMetadata) FindSymbol(vram addresses.Vram) (*SymbolMetadata, bool) {
	sym, ok := s.Symbols[vram]
	return sym, ok
}

// GetOrCreateSymbol returns the existing symbol at vram, or registers and
// returns a new one of the given kind.
func (s *SegmentMetadata) GetOrCreateSymbol(vram addresses.Vram, kind SymbolKind) *SymbolMetadata {
	if sym, ok := s.Symbols[vram]; ok {
		return sym
	}
	sym := NewSymbolMetadata(vram, kind)
	s.Symbols[vram] = sym
	return sym
}

// FindLabel returns the label at vram if one has been registered.
func (s *SegmentMetadata) FindLabel(vram addresses.Vram) (*LabelMetadata, bool) {
	l, ok := s.Labels[vram]
	return l, ok
}

// GetOrCreateLabel returns the existing label at vram, or registers and
// returns a new one of the given kind.
func (s *SegmentMetadata) GetOrCreateLabel(vram addresses.Vram, kind SymbolKind) *LabelMetadata {
	if l, ok := s.Labels[vram]; ok {
		return l
	}
	l := NewLabelMetadata(vram, kind)
	s.Labels[vram] = l
	return l
}

// UserSegmentMetadata describes a platform/intrinsic segment the user
// configured up front (libultra, the OS, etc.) rather than one discovered
// from ELF section headers -- its symbols are always user-declared and
// never grow from analysis.
type UserSegmentMetadata struct {
	Segment *SegmentMetadata
	Gp      *config.GpConfig
}

func NewUserSegmentMetadata(name string, rng addresses.RomVramRange, gp *config.GpConfig) *UserSegmentMetadata {
	return &UserSegmentMetadata{Segment: NewSegmentMetadata(name, rng), Gp: gp}
}
