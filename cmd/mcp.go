package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/docforge/internal/mcpserv"
)

func init() {
	rootCmd.AddCommand(mcpCmd)
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve MCP over stdio",
	Long: `Serve the Model Context Protocol on stdin/stdout, exposing document
generation (generate_documents) and template resolution (resolve_template)
as tools.`,
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

		return mcpserv.New(comps.pipe, comps.resolver, version).ServeStdio()
	},
}
