package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/addestra-labs/addestra/internal/corrections"
	"github.com/addestra-labs/addestra/internal/mcp"
	"github.com/addestra-labs/addestra/internal/rules"
	"github.com/addestra-labs/addestra/internal/training"
)

var mcpTenant string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Exposes the tenant's training data (rules, corrections, conversation
transcripts) to AI agents over the Model Context Protocol. The server
is pinned to one tenant for its whole lifetime.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if mcpTenant == "" {
			return fmt.Errorf("--tenant is required")
		}

		database, err := openDatabase()
		if err != nil {
			return err
		}
		defer database.Close()

		srv := mcp.NewServer(mcpTenant,
			training.NewStore(database),
			corrections.NewStore(database),
			rules.NewStore(database))
		return srv.Serve()
	},
}

func init() {
	mcpCmd.Flags().StringVar(&mcpTenant, "tenant", "", "tenant to expose")
	rootCmd.AddCommand(mcpCmd)
}
