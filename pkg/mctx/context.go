// Package mctx holds Context, the top-level object that owns every
// segment discovered or configured for a disassembly run and answers
// cross-segment symbol and label lookups.
package mctx

import (
	"errors"
	"sort"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/metadata"
	"mipsdisasm/pkg/utils"
)

// ErrSegmentNotPreheated is returned when code tries to build a processed
// section before the preheat pass has registered its cross-section
// %hi/%lo references.
var ErrSegmentNotPreheated = errors.New("section rom not preheated")

// ErrSectionAlreadyCreated is returned when the same (rom, kind) section is
// built twice.
var ErrSectionAlreadyCreated = errors.New("section already created at this rom")

// ErrOwnedSegmentNotFound mirrors the original's error when an address is
// asked for a segment it cannot possibly belong to.
var ErrOwnedSegmentNotFound = errors.New("no segment owns this address")

// SectionKind distinguishes the five section shapes the preheat bookkeeping
// tracks separately, since a before_proc -> processed transition happens
// independently for each.
type SectionKind int

const (
	SectionText SectionKind = iota
	SectionData
	SectionRodata
	SectionGccExceptTable
	SectionBss
)

type sectionKey struct {
	rom  addresses.Rom
	kind SectionKind
}

// noloadKey identifies a bss section, which has no ROM of its own: it is
// keyed by its owning segment and the VRAM it starts at instead.
type noloadKey struct {
	segment   *metadata.SegmentMetadata
	vramStart addresses.Vram
}

// OverlayCategoryState is the set of segments competing for one overlay
// category's shared VRAM window, in descending priority order, plus
// whichever one is currently considered loaded (if any).
type OverlayCategoryState struct {
	Segments []*metadata.SegmentMetadata
	Active   *metadata.SegmentMetadata
}

// Context is the root of the segment graph: one global segment, an
// optional user (platform-intrinsic) segment, zero or more overlay
// categories, and the unknown-segment fallback.
type Context struct {
	Config config.GlobalConfig

	GlobalSegment *metadata.SegmentMetadata
	UserSegment   *metadata.SegmentMetadata
	UnknownSegment *metadata.SegmentMetadata

	Overlays map[metadata.OverlayCategory]*OverlayCategoryState

	preheated map[addresses.Rom]bool
	created   map[sectionKey]bool
	noload    map[noloadKey]bool
}

// New creates a Context with an empty global segment spanning globalRange
// and no user segment or overlays configured yet.
func New(cfg config.GlobalConfig, globalRange addresses.RomVramRange) *Context {
	return &Context{
		Config:         cfg,
		GlobalSegment:  metadata.NewSegmentMetadata("global", globalRange),
		UnknownSegment: metadata.NewUnknownSegmentMetadata(),
		Overlays:       map[metadata.OverlayCategory]*OverlayCategoryState{},
		preheated:      map[addresses.Rom]bool{},
		created:        map[sectionKey]bool{},
		noload:         map[noloadKey]bool{},
	}
}

// SetUserSegment installs the platform/intrinsic segment, replacing any
// previous one.
func (c *Context) SetUserSegment(seg *metadata.SegmentMetadata) {
	c.UserSegment = seg
}

// AddOverlaySegment registers seg under category, at the given priority
// (lower value wins ties when more than one segment could plausibly own
// a reference). Segments are kept sorted by ascending priority.
func (c *Context) AddOverlaySegment(category metadata.OverlayCategory, seg *metadata.SegmentMetadata, priority int) {
	seg.Category = &category
	seg.Priority = priority

	state, ok := c.Overlays[category]
	if !ok {
		state = &OverlayCategoryState{}
		c.Overlays[category] = state
	}
	state.Segments = append(state.Segments, seg)
	sort.SliceStable(state.Segments, func(i, j int) bool {
		return state.Segments[i].Priority < state.Segments[j].Priority
	})
}

// ActivateOverlay marks seg as the currently loaded segment of its
// category, as if a game had just swapped that overlay into memory.
func (c *Context) ActivateOverlay(category metadata.OverlayCategory, seg *metadata.SegmentMetadata) {
	state, ok := c.Overlays[category]
	if !ok {
		state = &OverlayCategoryState{}
		c.Overlays[category] = state
	}
	state.Active = seg
}

func (c *Context) sortedCategories() []metadata.OverlayCategory {
	keys := make([]metadata.OverlayCategory, 0, len(c.Overlays))
	for k := range c.Overlays {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FindOwnedSegment returns the single segment whose VRAM range contains
// vram: the user segment first, then the global segment, then whichever
// overlay segment is currently active in its category. Returns the unknown
// segment and false if nothing owns it.
func (c *Context) FindOwnedSegment(vram addresses.Vram) (*metadata.SegmentMetadata, bool) {
	if c.UserSegment != nil && c.UserSegment.Owns(vram) {
		return c.UserSegment, true
	}
	if c.GlobalSegment.Owns(vram) {
		return c.GlobalSegment, true
	}
	for _, cat := range c.sortedCategories() {
		state := c.Overlays[cat]
		if state.Active != nil && state.Active.Owns(vram) {
			return state.Active, true
		}
	}
	return c.UnknownSegment, false
}

// findFromOverlaySegments runs the prioritized overlay lookup shared by
// symbol and label resolution: categories with an unambiguous single
// segment are tried first, then each category's active segment, and only
// then every remaining segment in priority order.
func findFromOverlaySegments[T any](c *Context, lookup func(*metadata.SegmentMetadata) (T, bool)) (T, *metadata.SegmentMetadata, bool) {
	var zero T
	categories := c.sortedCategories()

	for _, cat := range categories {
		state := c.Overlays[cat]
		if len(state.Segments) == 1 {
			if v, ok := lookup(state.Segments[0]); ok {
				return v, state.Segments[0], true
			}
		}
	}

	for _, cat := range categories {
		state := c.Overlays[cat]
		if len(state.Segments) <= 1 || state.Active == nil {
			continue
		}
		if v, ok := lookup(state.Active); ok {
			return v, state.Active, true
		}
	}

	for _, cat := range categories {
		state := c.Overlays[cat]
		if len(state.Segments) <= 1 {
			continue
		}
		for _, seg := range state.Segments {
			if seg == state.Active {
				continue
			}
			if v, ok := lookup(seg); ok {
				return v, seg, true
			}
		}
	}

	return zero, nil, false
}

// FindSymbolFromAnySegment resolves vram to a symbol, trying from (the
// segment currently being analyzed, if any) first, then the user segment,
// then the global segment, then the overlay segments in priority order,
// and finally the unknown-segment fallback.
func (c *Context) FindSymbolFromAnySegment(vram addresses.Vram, from *metadata.SegmentMetadata) (*metadata.SymbolMetadata, *metadata.SegmentMetadata, bool) {
	if from != nil {
		if sym, ok := from.FindSymbol(vram); ok {
			return sym, from, true
		}
	}
	if c.UserSegment != nil {
		if sym, ok := c.UserSegment.FindSymbol(vram); ok {
			return sym, c.UserSegment, true
		}
	}
	if sym, ok := c.GlobalSegment.FindSymbol(vram); ok {
		return sym, c.GlobalSegment, true
	}
	if sym, seg, ok := findFromOverlaySegments(c, func(s *metadata.SegmentMetadata) (*metadata.SymbolMetadata, bool) {
		return s.FindSymbol(vram)
	}); ok {
		return sym, seg, true
	}
	if sym, ok := c.UnknownSegment.FindSymbol(vram); ok {
		return sym, c.UnknownSegment, true
	}
	return nil, nil, false
}

// FindLabelFromAnySegment mirrors FindSymbolFromAnySegment for labels.
func (c *Context) FindLabelFromAnySegment(vram addresses.Vram, from *metadata.SegmentMetadata) (*metadata.LabelMetadata, *metadata.SegmentMetadata, bool) {
	if from != nil {
		if l, ok := from.FindLabel(vram); ok {
			return l, from, true
		}
	}
	if c.UserSegment != nil {
		if l, ok := c.UserSegment.FindLabel(vram); ok {
			return l, c.UserSegment, true
		}
	}
	if l, ok := c.GlobalSegment.FindLabel(vram); ok {
		return l, c.GlobalSegment, true
	}
	if l, seg, ok := findFromOverlaySegments(c, func(s *metadata.SegmentMetadata) (*metadata.LabelMetadata, bool) {
		return s.FindLabel(vram)
	}); ok {
		return l, seg, true
	}
	if l, ok := c.UnknownSegment.FindLabel(vram); ok {
		return l, c.UnknownSegment, true
	}
	return nil, nil, false
}

// FindReferencedSegment locates the segment that should own a freshly
// discovered reference at vram: an already-owning segment if one exists,
// otherwise the unknown segment, which grows new symbols on demand.
func (c *Context) FindReferencedSegment(vram addresses.Vram) (*metadata.SegmentMetadata, error) {
	seg, owned := c.FindOwnedSegment(vram)
	if !owned && seg == c.UnknownSegment {
		return c.UnknownSegment, nil
	}
	return seg, nil
}

// MarkPreheated records that the preheat pass has finished scanning the
// section occupying rom, making it eligible for CheckCreatable.
func (c *Context) MarkPreheated(rom addresses.Rom) {
	c.preheated[rom] = true
}

// IsPreheated reports whether rom has been through the preheat pass.
func (c *Context) IsPreheated(rom addresses.Rom) bool {
	return c.preheated[rom]
}

// CheckCreatable enforces the preheat-then-create-once discipline: a
// section can only be turned into its processed form after preheating,
// and only once.
func (c *Context) CheckCreatable(rom addresses.Rom, kind SectionKind) error {
	if !c.preheated[rom] {
		return utils.MakeError(ErrSegmentNotPreheated, "rom %v", rom)
	}
	key := sectionKey{rom: rom, kind: kind}
	if c.created[key] {
		return utils.MakeError(ErrSectionAlreadyCreated, "rom %v", rom)
	}
	c.created[key] = true
	return nil
}

// CheckCreatableNoload enforces the create-once discipline for a bss
// section, which has no ROM and so is keyed by (owning segment, vram
// start) instead of CheckCreatable's (rom, kind).
func (c *Context) CheckCreatableNoload(seg *metadata.SegmentMetadata, vramStart addresses.Vram) error {
	key := noloadKey{segment: seg, vramStart: vramStart}
	if c.noload[key] {
		return utils.MakeError(ErrSectionAlreadyCreated, "bss at %v in segment %q", vramStart, seg.Name)
	}
	c.noload[key] = true
	return nil
}
