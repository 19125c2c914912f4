package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/internal/ledger"
)

var (
	historyLimit int
	historyBatch string
)

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum batches to list")
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Show the documents of one batch instead")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent generation batches from the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.Ledger.Disabled {
			return errors.New("the ledger is disabled in configuration")
		}

		led, err := ledger.Open(cfg.Ledger.Path)
		if err != nil {
			return err
		}
		defer func() { _ = led.Close() }()

		if historyBatch != "" {
			docs, err := led.Documents(cmd.Context(), historyBatch)
			if err != nil {
				return err
			}
			for _, d := range docs {
				detail := d.Location
				if d.Status != ledger.StatusOK {
					detail = "error: " + d.Error
				}
				fmt.Printf("%3d  %-40s  %-5s  %s\n", d.JobIndex, d.Address, d.Format, detail)
			}
			return nil
		}

		batches, err := led.Recent(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		for _, b := range batches {
			fmt.Printf("%s  %-6s  %-36s  total=%d ok=%d failed=%d\n",
				b.ReceivedAt.Format(time.RFC3339), b.Source, b.ID,
				b.Total, b.Succeeded, b.Failed)
		}
		return nil
	},
}
