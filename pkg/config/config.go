// Package config holds the analysis-wide settings threaded explicitly
// through the core: endianness, the $gp configuration, and the naming
// preferences used when the engine has to invent a symbol name.
package config

import "mipsdisasm/pkg/addresses"

// Endian identifies the byte order of the input binary.
type Endian int

const (
	EndianBig Endian = iota
	EndianLittle
)

// GpValue is the 32-bit address identifying $gp.
type GpValue addresses.Vram

func (g GpValue) Inner() uint32 { return addresses.Vram(g).Inner() }

// GpConfig describes how $gp is used: either as a small-data pointer
// (non-PIC) or as the base of a Global Offset Table (PIC).
type GpConfig struct {
	value addresses.Vram
	pic   bool
}

// NewNonPicGpConfig builds a $gp configuration for small-data (non-PIC) code.
func NewNonPicGpConfig(gp addresses.Vram) GpConfig {
	return GpConfig{value: gp, pic: false}
}

// NewPicGpConfig builds a $gp configuration for position-independent code.
func NewPicGpConfig(gp addresses.Vram) GpConfig {
	return GpConfig{value: gp, pic: true}
}

// GpValue returns the configured address of $gp.
func (c GpConfig) GpValue() GpValue { return GpValue(c.value) }

// Pic reports whether this configuration enables GOT interpretation.
func (c GpConfig) Pic() bool { return c.pic }

// MacroLabelStyle controls how in-function branch labels and alternative
// entries are named when no user-declared name is available.
type MacroLabelStyle int

const (
	// MacroLabelGlabel uses the `glabel` directive style (e.g. IDO/splat conventions).
	MacroLabelGlabel MacroLabelStyle = iota
	// MacroLabelDotType uses `.type`/`.globl` GNU-as style directives.
	MacroLabelDotType
)

// NameGeneration controls how the engine invents names for symbols that
// were never declared by the user.
type NameGeneration struct {
	// FunctionPrefix prefixes autogenerated function names, e.g. "func_".
	FunctionPrefix string
	// DataPrefix prefixes autogenerated data symbol names, e.g. "D_".
	DataPrefix string
	// JumptablePrefix prefixes autogenerated jumptable names, e.g. "jtbl_".
	JumptablePrefix string
	// UseVramInName appends the symbol's VRAM in hex to the generated name.
	UseVramInName bool
}

// DefaultNameGeneration returns the conventional splat/spimdisasm-style
// naming scheme.
func DefaultNameGeneration() NameGeneration {
	return NameGeneration{
		FunctionPrefix:  "func_",
		DataPrefix:      "D_",
		JumptablePrefix: "jtbl_",
		UseVramInName:   true,
	}
}

// GlobalConfig is the top-level, read-only configuration shared by every
// segment and section in a Context.
type GlobalConfig struct {
	Endian Endian
	// Gp is nil when the binary carries no $gp at all (e.g. some overlays).
	Gp *GpConfig
	MacroLabelStyle MacroLabelStyle
	NameGen NameGeneration

	// DetectRedundantFunctionEnd enables the IDO `jr $ra; nop; jr $ra; nop`
	// redundant-epilogue tolerance in the function boundary finder.
	DetectRedundantFunctionEnd bool
	// NegativeBranchAsFunctionEnd treats an unconditional branch to a
	// strictly smaller VRAM as a function end (loop-to-self idiom).
	NegativeBranchAsFunctionEnd bool
	// JAsBranch, when true, treats `j` as an in-function unconditional
	// branch instead of a possible direct tail call.
	JAsBranch bool
	// AllowLateRodataStrings permits the string guesser to run over
	// rodata regions placed after a function's late-rodata constants.
	AllowLateRodataStrings bool
}
