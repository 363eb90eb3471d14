// Package addresses provides the newtypes used to keep ROM offsets and
// virtual addresses from ever being mixed together by accident.
package addresses

import "fmt"

// Rom is a byte offset into the input binary image.
type Rom uint32

// Inner returns the raw offset value.
func (r Rom) Inner() uint32 { return uint32(r) }

// Add returns the ROM offset shifted by a byte count.
func (r Rom) Add(n uint32) Rom { return Rom(uint32(r) + n) }

// Sub returns the distance in bytes between two ROM offsets.
func (r Rom) Sub(other Rom) int64 { return int64(r) - int64(other) }

func (r Rom) String() string { return fmt.Sprintf("0x%06X", uint32(r)) }

// Vram is a virtual address, as seen by the CPU while executing code.
type Vram uint32

// Inner returns the raw address value.
func (v Vram) Inner() uint32 { return uint32(v) }

// AddOffset applies a signed byte offset, wrapping on overflow exactly like
// the 32-bit pointer arithmetic it models.
func (v Vram) AddOffset(offset int32) Vram {
	return Vram(uint32(int64(uint32(v)) + int64(offset)))
}

// Add shifts the address by an unsigned byte count.
func (v Vram) Add(n uint32) Vram { return Vram(uint32(v) + n) }

// Sub returns the signed distance in bytes from other to v.
func (v Vram) Sub(other Vram) int64 { return int64(v) - int64(other) }

func (v Vram) String() string { return fmt.Sprintf("0x%08X", uint32(v)) }

// Size is a non-negative byte count.
type Size uint32

func (s Size) Inner() uint32 { return uint32(s) }

// RomRange is a half-open [Start, End) range of ROM offsets.
type RomRange struct {
	Start Rom
	End   Rom
}

// Size returns the length in bytes of the range.
func (r RomRange) Size() Size { return Size(uint32(r.End) - uint32(r.Start)) }

// Contains reports whether rom falls inside [Start, End).
func (r RomRange) Contains(rom Rom) bool { return rom >= r.Start && rom < r.End }

// VramRange is a half-open [Start, End) range of virtual addresses.
type VramRange struct {
	Start Vram
	End   Vram
}

// Size returns the length in bytes of the range.
func (r VramRange) Size() Size { return Size(uint32(r.End) - uint32(r.Start)) }

// Contains reports whether vram falls inside [Start, End).
func (r VramRange) Contains(vram Vram) bool { return vram >= r.Start && vram < r.End }

// RomVramRange bundles a ROM range and a VRAM range of equal size, letting
// callers translate addresses between the two address spaces.
type RomVramRange struct {
	Rom  RomRange
	Vram VramRange
}

// NewRomVramRange builds a range pairing, panicking if the two spans don't
// have matching sizes -- a mismatch here is an internal consistency bug,
// never something caused by malformed input.
func NewRomVramRange(romStart, romEnd Rom, vramStart, vramEnd Vram) RomVramRange {
	r := RomRange{Start: romStart, End: romEnd}
	v := VramRange{Start: vramStart, End: vramEnd}
	if r.Size() != v.Size() {
		panic(fmt.Sprintf("mismatched rom/vram range sizes: rom %v bytes, vram %v bytes", r.Size(), v.Size()))
	}
	return RomVramRange{Rom: r, Vram: v}
}

// Size returns the shared length in bytes of the rom and vram spans.
func (r RomVramRange) Size() Size { return r.Rom.Size() }

// VramToRom translates a VRAM inside this range's VRAM span to the matching
// ROM offset. Returns false if vram falls outside the range.
func (r RomVramRange) VramToRom(vram Vram) (Rom, bool) {
	if !r.Vram.Contains(vram) {
		return 0, false
	}
	delta := vram.Sub(r.Vram.Start)
	return r.Rom.Start.Add(uint32(delta)), true
}

// RomToVram translates a ROM offset inside this range's ROM span to the
// matching VRAM. Returns false if rom falls outside the range.
func (r RomVramRange) RomToVram(rom Rom) (Vram, bool) {
	if !r.Rom.Contains(rom) {
		return 0, false
	}
	delta := rom.Sub(r.Rom.Start)
	return r.Vram.Start.Add(uint32(delta)), true
}
