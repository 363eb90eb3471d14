package got_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/got"
)

func sampleTable() *got.Table {
	locals := []addresses.Vram{0x80000000, 0x80001000, 0x80002000}
	globals := []got.GlobalEntry{
		{Initial: 0x80003000, SymbolValue: 0x80003000, IsFunction: false},
		{Initial: 0x80004000, SymbolValue: 0x80004000, IsFunction: true},
	}
	return got.NewTable(addresses.Vram(0x80010000), locals, globals)
}

func TestRequestAddressResolvesEachRegion(t *testing.T) {
	table := sampleTable()

	lazy, ok := table.RequestAddress(addresses.Vram(0x80010000))
	require.True(t, ok)
	assert.Equal(t, got.KindLazyResolver, lazy.Kind)
	assert.Equal(t, uint32(0x80000000), lazy.Address)

	local, ok := table.RequestAddress(addresses.Vram(0x80010004))
	require.True(t, ok)
	assert.Equal(t, got.KindLocal, local.Kind)
	assert.Equal(t, uint32(0x80001000), local.Address)

	global, ok := table.RequestAddress(addresses.Vram(0x8001000C))
	require.True(t, ok)
	assert.Equal(t, got.KindGlobal, global.Kind)
	assert.Equal(t, uint32(0x80003000), global.Address)
}

func TestRequestAddressRejectsOutOfRangeAndMisaligned(t *testing.T) {
	table := sampleTable()

	_, ok := table.RequestAddress(addresses.Vram(0x7FFFFFFF))
	assert.False(t, ok)

	_, ok = table.RequestAddress(addresses.Vram(0x80010001))
	assert.False(t, ok, "not word-aligned inside the table")

	_, ok = table.RequestAddress(addresses.Vram(0x80010000 + 5*4))
	assert.False(t, ok, "past the last entry")
}

func TestIsFunctionGlobal(t *testing.T) {
	table := sampleTable()

	assert.True(t, table.IsFunctionGlobal(addresses.Vram(0x80010010)))
	assert.False(t, table.IsFunctionGlobal(addresses.Vram(0x8001000C)))
	assert.False(t, table.IsFunctionGlobal(addresses.Vram(0x80010004)), "a local slot is never a function global")
}

// TestFindEntryByTargetMatchesLocalAndGlobal exercises the reverse lookup
// comment 5's classification depends on: recognizing that a plain
// %hi/%lo pair's composed address also happens to be a GOT entry, so it
// can be flagged for %got_hi/%lo or %call_hi/%lo instead of a plain
// %hi/%lo.
func TestFindEntryByTargetMatchesLocalAndGlobal(t *testing.T) {
	table := sampleTable()

	isFunc, ok := table.FindEntryByTarget(addresses.Vram(0x80001000))
	require.True(t, ok)
	assert.False(t, isFunc)

	isFunc, ok = table.FindEntryByTarget(addresses.Vram(0x80004000))
	require.True(t, ok)
	assert.True(t, isFunc)

	_, ok = table.FindEntryByTarget(addresses.Vram(0x80005000))
	assert.False(t, ok)
}
