package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/api"
	"github.com/agentic-research/docforge/internal/server"
)

var (
	batchIn  string
	batchOut string
)

func init() {
	batchCmd.Flags().StringVar(&batchIn, "in", "", "Path to the batch records JSON (required)")
	batchCmd.Flags().StringVar(&batchOut, "out", "", "Path for the batch response JSON (stdout when omitted)")
	_ = batchCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(batchCmd)
}

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Process a batch of independent request trees from a JSON file",
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

		raw, err := os.ReadFile(batchIn)
		if err != nil {
			return err
		}
		var batch api.BatchRequest
		if err := json.Unmarshal(raw, &batch); err != nil {
			return fmt.Errorf("parse %s: %w", batchIn, err)
		}

		resp := server.RunBatch(cmd.Context(), comps.pipe, batch, "cli")

		out, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return err
		}
		if err := writeOutput(batchOut, out); err != nil {
			return err
		}
		if resp.Failed > 0 {
			return fmt.Errorf("%d of %d records failed", resp.Failed, resp.Processed)
		}
		return nil
	},
}
