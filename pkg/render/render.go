// Package render turns processed symbol and section metadata into
// assembler-facing text: directives, generated names, and label
// placement. Rendering the operand text of an individual instruction is
// outside this package -- that's the external instruction-decoding
// library's job -- but everything that wraps around it (labels, symbol
// directives, generated names, sizes) lives here.
package render

import (
	"fmt"
	"sort"
	"strings"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/analysis"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/metadata"
	"mipsdisasm/pkg/reloc"
	"mipsdisasm/pkg/sections"
)

// AutodetectSizes fills in the Size of every symbol in seg that the user
// never declared a size for, using the distance to the next symbol (by
// VRAM) as the estimate. The segment's last symbol is sized against the
// end of the segment's own VRAM range.
func AutodetectSizes(seg *metadata.SegmentMetadata) {
	vrams := make([]addresses.Vram, 0, len(seg.Symbols))
	for v := range seg.Symbols {
		vrams = append(vrams, v)
	}
	sort.Slice(vrams, func(i, j int) bool { return vrams[i] < vrams[j] })

	for i, v := range vrams {
		sym := seg.Symbols[v]
		if sym.Size != nil {
			continue
		}

		end := seg.Range.Vram.End
		if i+1 < len(vrams) {
			end = vrams[i+1]
		}
		if end <= v {
			continue
		}

		size := addresses.Size(end.Sub(v))
		sym.Size = &size
	}
}

// GeneratedName invents a name for sym following cfg's naming
// conventions. It returns the user-declared name unchanged if there is
// one.
func GeneratedName(cfg config.NameGeneration, sym *metadata.SymbolMetadata) string {
	if sym.UserDeclaredName != "" {
		return sym.UserDeclaredName
	}

	var prefix string
	switch sym.Kind {
	case metadata.SymbolFunction:
		prefix = cfg.FunctionPrefix
	case metadata.SymbolJumptable:
		prefix = cfg.JumptablePrefix
	default:
		prefix = cfg.DataPrefix
	}

	if cfg.UseVramInName {
		return fmt.Sprintf("%s%08X", prefix, sym.Vram.Inner())
	}
	return prefix
}

func labelName(cfg config.NameGeneration, l *metadata.LabelMetadata) string {
	if cfg.UseVramInName {
		return fmt.Sprintf("L%08X", l.Vram.Inner())
	}
	return fmt.Sprintf("label_%d", l.Vram.Inner())
}

// FunctionDirectives returns the directive lines that should precede a
// function's first instruction, following either the `glabel` convention
// or the GNU `.globl`/`.type` convention depending on style.
func FunctionDirectives(style config.MacroLabelStyle, name string) []string {
	if style == config.MacroLabelDotType {
		return []string{
			fmt.Sprintf(".globl %s", name),
			fmt.Sprintf(".type %s, @function", name),
			fmt.Sprintf("%s:", name),
		}
	}
	return []string{fmt.Sprintf("glabel %s", name)}
}

// RenderFunction formats a processed function as assembly text: its
// leading directive(s), then one line per instruction with in-function
// labels inserted where a branch target lands. mnemonicOf renders the
// i-th instruction's full mnemonic and operand text; producing that text
// is the external decoder's responsibility, not this package's.
func RenderFunction(cfg config.GlobalConfig, fn *sections.Function, mnemonicOf func(index int) string) []string {
	name := GeneratedName(cfg.NameGen, fn.Symbol)
	lines := FunctionDirectives(cfg.MacroLabelStyle, name)

	labelsByVram := make(map[addresses.Vram]*metadata.LabelMetadata, len(fn.Labels))
	for _, l := range fn.Labels {
		labelsByVram[l.Vram] = l
	}

	for i, instr := range fn.Instrs {
		if l, ok := labelsByVram[instr.Vram()]; ok {
			lines = append(lines, fmt.Sprintf(".%s:", labelName(cfg.NameGen, l)))
		}
		lines = append(lines, "    "+mnemonicOf(i))
	}

	if fn.Symbol.Size == nil {
		size := addresses.Size(len(fn.Instrs) * 4)
		fn.Symbol.Size = &size
	}

	return lines
}

// RelocOperandDisplayResult resolves the ProcessedResult that best
// describes what a relocated instruction's operand should show: a `lui`
// shows its paired %lo's own result (the composed value both halves
// share, which the hi half's own ProcessedResult never carries), every
// other relocated instruction shows its own result unchanged.
func RelocOperandDisplayResult(fn *sections.Function, rom addresses.Rom, result analysis.ProcessedResult) analysis.ProcessedResult {
	if result.Kind == analysis.ResHi {
		if paired, ok := fn.Analysis.HiPairLo[rom]; ok {
			return paired
		}
	}
	return result
}

// RelocOperandText renders the literal or symbolic operand text a
// relocation contributes to an instruction, given the ProcessedResult that
// carries the composed value (for a `lui`, that's its paired %lo's
// result). A hi/lo pair that never resolved to an address -- a pure
// numeric constant split across two instructions -- renders as the
// shifted/masked literal form rather than a %hi/%lo symbol reference, so
// the two halves stay visually paired without inventing a fake symbol.
func RelocOperandText(r reloc.Relocation, result analysis.ProcessedResult) (string, bool) {
	switch r.Type {
	case reloc.TypeCustomConstantHi:
		return fmt.Sprintf("(0x%08X >> 16)", result.Constant), true
	case reloc.TypeCustomConstantLo:
		return fmt.Sprintf("(0x%08X & 0xFFFF)", result.Constant), true
	case reloc.TypeHi16:
		return fmt.Sprintf("%%hi(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeLo16:
		return fmt.Sprintf("%%lo(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeGpRel16:
		return fmt.Sprintf("%%gp_rel(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeGot16:
		return fmt.Sprintf("%%got(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeCall16:
		return fmt.Sprintf("%%call16(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeGotHi16:
		return fmt.Sprintf("%%got_hi(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeGotLo16:
		return fmt.Sprintf("%%got_lo(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeCallHi16:
		return fmt.Sprintf("%%call_hi(0x%08X)", result.Vram.Inner()), true
	case reloc.TypeCallLo16:
		return fmt.Sprintf("%%call_lo(0x%08X)", result.Vram.Inner()), true
	default:
		return "", false
	}
}

func readWord(raw []byte, endian config.Endian) uint32 {
	if endian == config.EndianLittle {
		return uint32(raw[0]) | uint32(raw[1])<<8 | uint32(raw[2])<<16 | uint32(raw[3])<<24
	}
	return uint32(raw[0])<<24 | uint32(raw[1])<<16 | uint32(raw[2])<<8 | uint32(raw[3])
}

// RenderDataSymbol formats the directive and literal contents for a
// single data symbol, choosing the assembler directive that matches its
// guessed or declared kind.
func RenderDataSymbol(cfg config.GlobalConfig, sym *metadata.SymbolMetadata, raw []byte, endian config.Endian) []string {
	name := GeneratedName(cfg.NameGen, sym)
	lines := []string{fmt.Sprintf(".globl %s", name), fmt.Sprintf("%s:", name)}

	switch sym.Kind {
	case metadata.SymbolCString:
		text := strings.TrimRight(string(raw), "\x00")
		lines = append(lines, fmt.Sprintf(".asciz %q", text))
	case metadata.SymbolByte:
		for _, b := range raw {
			lines = append(lines, fmt.Sprintf(".byte 0x%02X", b))
		}
	case metadata.SymbolShort:
		for i := 0; i+2 <= len(raw); i += 2 {
			var v uint16
			if endian == config.EndianLittle {
				v = uint16(raw[i]) | uint16(raw[i+1])<<8
			} else {
				v = uint16(raw[i])<<8 | uint16(raw[i+1])
			}
			lines = append(lines, fmt.Sprintf(".short 0x%04X", v))
		}
	case metadata.SymbolDword, metadata.SymbolFloat64:
		for i := 0; i+8 <= len(raw); i += 8 {
			hi, lo := readWord(raw[i:i+4], endian), readWord(raw[i+4:i+8], endian)
			lines = append(lines, fmt.Sprintf(".dword 0x%08X%08X", hi, lo))
		}
	case metadata.SymbolFloat32:
		for i := 0; i+4 <= len(raw); i += 4 {
			lines = append(lines, fmt.Sprintf(".float 0x%08X", readWord(raw[i:i+4], endian)))
		}
	default:
		for i := 0; i+4 <= len(raw); i += 4 {
			lines = append(lines, fmt.Sprintf(".word 0x%08X", readWord(raw[i:i+4], endian)))
		}
	}

	return lines
}
