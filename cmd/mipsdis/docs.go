package mipsdis

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mipsdisasm/pkg/isa/mips"
)

var docsOutputFile string

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Dump the supported MIPS opcode table",
	Long: `Prints every mnemonic this decoder recognizes, grouped by which
opcode table resolves it (main opcode, SPECIAL funct, REGIMM rt).`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		doc := mips.TableDocString()
		if docsOutputFile == "" {
			fmt.Println(doc)
			return
		}
		if err := os.WriteFile(docsOutputFile, []byte(doc+"\n"), 0o644); err != nil {
			fmt.Fprintln(os.Stderr, "error writing", docsOutputFile, ":", err)
			os.Exit(1)
		}
	},
}

func init() {
	docsCmd.Flags().StringVarP(&docsOutputFile, "output", "o", "", "output file (default stdout)")
}
