package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/docqa/docqa/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document question answering and retrieval tools to AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		store, cleanup, err := buildStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		engine, err := newEngine(cfg, store)
		if err != nil {
			return err
		}

		// Set version from the cmd package variable.
		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "docqa MCP server started on stdio (%d chunks indexed)\n", store.Index().Count())

		srv := mcpserver.NewServer(engine, store)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
