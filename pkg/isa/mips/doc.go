package mips

import (
	"fmt"
	"sort"
	"strings"
)

// docLines renders one opcode table as a sorted list of "mnemonic (key=N)"
// entries, keyed by the field the table dispatches on.
func docLines(title string, table map[uint32]descriptor) []string {
	keys := make([]uint32, 0, len(table))
	for k := range table {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	lines := []string{title + ":"}
	for _, k := range keys {
		d := table[k]
		lines = append(lines, fmt.Sprintf("  %-8s (0o%02o)", d.Mnemonic, k))
	}
	return lines
}

// TableDocString dumps every mnemonic this package can decode, grouped by
// which opcode table resolves it. Intended for a CLI "docs" subcommand, the
// way a generated instruction-set reference would be.
func TableDocString() string {
	var lines []string
	lines = append(lines, docLines("main opcodes", mainTable)...)
	lines = append(lines, docLines("special (funct) opcodes", specialTable)...)
	lines = append(lines, docLines("regimm (rt) opcodes", regimmTable)...)
	return strings.Join(lines, "\n")
}
