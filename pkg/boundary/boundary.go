// Package boundary finds function boundaries in a stream of decoded
// instructions using a forward scan: a function can't end until every
// branch discovered so far inside it has been passed.
package boundary

import (
	"mipsdisasm/pkg/addresses"
	"mipsdisasm/pkg/config"
	"mipsdisasm/pkg/isa"
)

// Result describes one located function's VRAM range, end exclusive.
type Result struct {
	StartVram addresses.Vram
	EndVram   addresses.Vram
}

// Finder splits a section's instructions into function ranges.
type Finder struct {
	cfg config.GlobalConfig
}

func NewFinder(cfg config.GlobalConfig) *Finder {
	return &Finder{cfg: cfg}
}

// FindFunctions splits instrs (in vram order, covering one section) into
// function ranges. knownStarts are VRAMs the caller already trusts as
// function entry points (typically from an ELF symbol table); the finder
// always breaks a function there even if its own "ended" predicate hasn't
// fired yet.
func (f *Finder) FindFunctions(instrs []isa.Instruction, knownStarts map[addresses.Vram]bool) []Result {
	if len(instrs) == 0 {
		return nil
	}

	var results []Result
	start := 0
	var farthestBranch addresses.Vram

	for i := 0; i < len(instrs); i++ {
		instr := instrs[i]
		if instr.IsBranch() {
			if target, ok := instr.GetBranchVramGeneric(); ok && target > farthestBranch {
				farthestBranch = target
			}
		} else if f.cfg.JAsBranch && instr.IsUnconditionalBranch() && !instr.IsFunctionCall() {
			if target, ok := instr.GetInstrIndexAsVram(); ok && target > farthestBranch {
				farthestBranch = target
			}
		}

		ended := f.instructionEndsFunction(instr, instrs, i, farthestBranch)
		if ended && instr.HasDelaySlot() && i+1 < len(instrs) {
			// the delay slot still belongs to the function that just ended
			i++
		}
		nextIsKnownStart := i+1 < len(instrs) && knownStarts[instrs[i+1].Vram()]

		if ended || nextIsKnownStart {
			results = append(results, Result{
				StartVram: instrs[start].Vram(),
				EndVram:   instrs[i].Vram().Add(4),
			})
			start = i + 1
			farthestBranch = 0
		}
	}

	if start < len(instrs) {
		results = append(results, Result{
			StartVram: instrs[start].Vram(),
			EndVram:   instrs[len(instrs)-1].Vram().Add(4),
		})
	}

	return results
}

func (f *Finder) instructionEndsFunction(instr isa.Instruction, instrs []isa.Instruction, i int, farthestBranch addresses.Vram) bool {
	vram := instr.Vram()

	// A branch found earlier in the function may still land past this
	// instruction; the function can't end until that branch is passed.
	if vram < farthestBranch {
		return false
	}

	if instr.IsReturn() {
		if f.cfg.DetectRedundantFunctionEnd && HasRedundantEpilogue(instrs, i) {
			return false
		}
		return true
	}

	if instr.IsUnconditionalBranch() && !instr.IsFunctionCall() {
		target, ok := instr.GetBranchVramGeneric()
		if !ok {
			target, ok = instr.GetInstrIndexAsVram()
		}
		if !ok {
			return false
		}

		if f.cfg.JAsBranch && target <= vram {
			return false
		}
		if f.cfg.NegativeBranchAsFunctionEnd && target < vram {
			return true
		}
		if target > farthestBranch {
			return true
		}
	}

	return false
}

// HasRedundantEpilogue recognizes the IDO idiom of emitting a dead second
// `jr $ra; nop` right after the real one, so the caller can fold it into
// the preceding function instead of starting a spurious new one.
func HasRedundantEpilogue(instrs []isa.Instruction, returnIndex int) bool {
	if returnIndex+2 >= len(instrs) {
		return false
	}
	return instrs[returnIndex+2].IsReturn()
}
