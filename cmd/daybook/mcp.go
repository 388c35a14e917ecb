package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unowned-ai/daybook/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the daybook MCP server (stdio)",
	Long: `Start a Model Context Protocol (MCP) server that exposes daybook entries
and tags as MCP tools via STDIO.

The database is chosen the same way as for every other command: the config file,
the DB_* environment variables, or the --db flag.

Example:
  daybook mcp
  daybook mcp --db daybook.db`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		stderr := cmd.ErrOrStderr()
		// Log to stderr so we don't contaminate the JSON-RPC stream on stdout.
		logger := cliLogger(cfg, stderr)

		loader, closeFn, err := localLoader(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer closeFn()

		srv := mcp.NewDaybookMCPServer(loader)

		fmt.Fprintf(stderr, "Daybook MCP server started. Driver: %s\n", cfg.Database.Driver)
		fmt.Fprintln(stderr, "Available tools: ping, get_entry, update_entry, create_entry, list_tags")
		fmt.Fprintln(stderr, "Listening for MCP JSON-RPC on STDIN/STDOUT ... (Ctrl+C to quit)")

		// Run the server (blocks until stdio closes).
		return srv.Start()
	},
}
