package mipsdis

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/boundary"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/isa"
	"mipsdisasm/pkg/isa/mips"
	"mipsdisasm/pkg/mctx"
	"mipsdisasm/pkg/render"
	"mipsdisasm/pkg/sections"
)

var (
	disasmBaseVram   uint32
	disasmGp         uint32
	disasmHasGp      bool
	disasmPic        bool
	disasmLittle     bool
	disasmDotType    bool
)

var disassembleCmd = &cobra.Command{
	Use:   "disasm <file>",
	Short: "Disassemble a raw MIPS code blob",
	Long: `Decodes a raw MIPS instruction stream (no ELF container: just the
bytes of a single executable segment, loaded at --base-vram), finds its
function boundaries, and prints each function as annotated assembly text.`,
	Args: cobra.ExactArgs(1),
	Run:  runDisassemble,
}

func init() {
	disassembleCmd.Flags().Uint32Var(&disasmBaseVram, "base-vram", 0x80000000, "VRAM the first byte of the file is loaded at")
	disassembleCmd.Flags().Uint32Var(&disasmGp, "gp", 0, "value of $gp, if the binary has one")
	disassembleCmd.Flags().BoolVar(&disasmHasGp, "has-gp", false, "enable $gp-relative analysis using --gp")
	disassembleCmd.Flags().BoolVar(&disasmPic, "pic", false, "treat $gp as a GOT base (position-independent code) instead of a small-data pointer")
	disassembleCmd.Flags().BoolVar(&disasmLittle, "little-endian", false, "input words are little-endian (default big-endian, as on real MIPS targets)")
	disassembleCmd.Flags().BoolVar(&disasmDotType, "gnu-labels", false, "emit .globl/.type labels instead of glabel directives")
}

func runDisassemble(cmd *cobra.Command, args []string) {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading %s: %v\n", path, err)
		os.Exit(1)
	}
	if len(data)%4 != 0 {
		fmt.Fprintf(os.Stderr, "error: %s is not a whole number of 32-bit words (%d bytes)\n", path, len(data))
		os.Exit(1)
	}

	cfg := buildConfig()
	instrs := decodeWords(data, addresses.Vram(disasmBaseVram), cfg)

	vramRange := addresses.VramRange{Start: addresses.Vram(disasmBaseVram), End: addresses.Vram(disasmBaseVram).Add(uint32(len(data)))}
	globalRange := addresses.NewRomVramRange(0, addresses.Rom(len(data)), vramRange.Start, vramRange.End)

	ctx := mctx.New(cfg, globalRange)
	seg := ctx.GlobalSegment
	finder := boundary.NewFinder(cfg)

	sections.Preheat(ctx, 0, instrs, seg, seg.Got, finder)
	section, err := sections.NewTextSection(ctx, 0, vramRange, instrs, seg, seg.Got, finder)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error building text section: %v\n", err)
		os.Exit(1)
	}

	render.AutodetectSizes(seg)
	printSection(cfg, section, instrs)
}

func buildConfig() config.GlobalConfig {
	endian := config.EndianBig
	if disasmLittle {
		endian = config.EndianLittle
	}

	style := config.MacroLabelGlabel
	if disasmDotType {
		style = config.MacroLabelDotType
	}

	var gp *config.GpConfig
	if disasmHasGp {
		g := config.NewNonPicGpConfig(addresses.Vram(disasmGp))
		if disasmPic {
			g = config.NewPicGpConfig(addresses.Vram(disasmGp))
		}
		gp = &g
	}

	return config.GlobalConfig{
		Endian:                      endian,
		Gp:                          gp,
		MacroLabelStyle:             style,
		NameGen:                     config.DefaultNameGeneration(),
		DetectRedundantFunctionEnd:  true,
		NegativeBranchAsFunctionEnd: true,
		JAsBranch:                   false,
		AllowLateRodataStrings:      true,
	}
}

func decodeWords(data []byte, baseVram addresses.Vram, cfg config.GlobalConfig) []isa.Instruction {
	instrs := make([]isa.Instruction, 0, len(data)/4)
	for i := 0; i+4 <= len(data); i += 4 {
		var word uint32
		if cfg.Endian == config.EndianLittle {
			word = binary.LittleEndian.Uint32(data[i:])
		} else {
			word = binary.BigEndian.Uint32(data[i:])
		}
		rom := addresses.Rom(i)
		vram := baseVram.Add(uint32(i))
		instrs = append(instrs, mips.Decode(rom, vram, word, isa.AbiO32))
	}
	return instrs
}

func printSection(cfg config.GlobalConfig, section *sections.TextSection, instrs []isa.Instruction) {
	header := color.New(color.FgHiBlack)
	directive := color.New(color.FgGreen)
	mnemonicColor := color.New(color.FgCyan)

	for _, fn := range section.Functions {
		header.Fprintf(os.Stderr, "; function at %s, %d instructions\n", fn.Symbol.Vram, len(fn.Instrs))

		lines := render.RenderFunction(cfg, fn, func(index int) string {
			text := mnemonicColor.Sprint(fn.Instrs[index].Mnemonic())

			rom := fn.Instrs[index].Rom()
			reloc, hasReloc := fn.Relocations[rom]
			if !hasReloc {
				return text
			}
			result, ok := fn.Analysis.ResultByRom(rom)
			if !ok {
				return text
			}
			result = render.RelocOperandDisplayResult(fn, rom, result)
			if operand, ok := render.RelocOperandText(reloc, result); ok {
				text += " " + operand
			}
			return text
		})

		for _, line := range lines {
			if len(line) > 0 && line[0] != ' ' {
				directive.Println(line)
			} else {
				fmt.Println(line)
			}
		}
	}
}
