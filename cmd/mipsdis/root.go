// Package mipsdis is the command line front-end for the disassembly
// engine: flag parsing, config file loading, and the I/O around a raw
// binary image live here, entirely outside the analysis core's concern.
package mipsdis

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd is the base command when mipsdis is called without a subcommand.
var RootCmd = &cobra.Command{
	Use:   "mipsdis",
	Short: "A MIPS symbolizing disassembler",
	Long: `mipsdis recovers function boundaries, symbol references and data
types from a raw MIPS binary image purely through static analysis of the
instruction stream, the way a decompilation toolchain's front-end does.`,
}

// Execute adds every subcommand to RootCmd and runs it. Called once from main.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	RootCmd.AddCommand(disassembleCmd)
	RootCmd.AddCommand(docsCmd)
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.mipsdis.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".mipsdis")
	}

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
