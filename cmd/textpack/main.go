// Package main implements the textpack CLI.
//
// Usage:
//
//	# Compress a file and keep an archive for lossless decoding
//	textpack compress notes.txt --out notes.txpk
//
//	# Decode it again
//	textpack decompress notes.txpk
//
//	# Serve the HTTP API
//	textpack serve --config ~/.config/textpack/config.yaml
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// configPath overrides the default config file location
	configPath string
	// logLevel overrides logging.level from the config
	logLevel string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "textpack",
	Short: "Reversible multi-stage text compression",
	Long: `textpack compresses text with a pipeline of substitution, context modelling,
run-length and statistical stages. Results carry side-channel mappings so
they can be decoded exactly.

Configuration is read from ~/.config/textpack/config.yaml and TEXTPACK_*
environment variables.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.config/textpack/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace, debug, info, warn, error)")
	rootCmd.SetVersionTemplate(fmt.Sprintf("textpack by Fyrsmith Labs\nVersion:    %s\nCommit:     %s\nBuild Date: %s\n",
		version, gitCommit, buildDate))

	rootCmd.AddCommand(compressCmd)
	rootCmd.AddCommand(decompressCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(profileCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(healthCmd)
}
