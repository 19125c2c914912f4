// Package cmd wires the docforge command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/internal/config"
)

const version = "0.1.0"

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "docforge",
	Short: "Docforge: document generation orchestration service",
	Long: `Docforge turns document request trees into rendered documents: it
resolves template addresses through a TTL-bounded cache, renders each
template item with the engine for its output format, and writes result
locations back onto the request tree.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to HCL config file")
}

func loadConfig() (*config.Config, error) {
	return config.Load(cfgPath)
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
