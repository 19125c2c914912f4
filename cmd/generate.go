package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/api"
)

var (
	generateIn  string
	generateOut string
)

func init() {
	generateCmd.Flags().StringVar(&generateIn, "in", "", "Path to the request tree JSON (required)")
	generateCmd.Flags().StringVar(&generateOut, "out", "", "Path for the reconciled tree JSON (stdout when omitted)")
	_ = generateCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Process one document request tree from a JSON file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		comps, err := buildComponents(cfg)
		if err != nil {
			return err
		}
		defer comps.close()

		raw, err := os.ReadFile(generateIn)
		if err != nil {
			return err
		}
		var req api.Request
		if err := json.Unmarshal(raw, &req); err != nil {
			return fmt.Errorf("parse %s: %w", generateIn, err)
		}

		if err := comps.pipe.Process(cmd.Context(), &req, "cli"); err != nil {
			return err
		}

		out, err := json.MarshalIndent(&req, "", "  ")
		if err != nil {
			return err
		}
		return writeOutput(generateOut, out)
	},
}

func writeOutput(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
