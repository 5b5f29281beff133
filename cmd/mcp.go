package cmd

import (
	"context"
	"os/signal"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/joescharf/reviewbot/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP stdio server",
	Long: `Start an MCP (Model Context Protocol) server on stdio so assistants can
create reviews, record feedback and manage tasks. Configure a client with:

  {
    "mcpServers": {
      "reviewbot": { "command": "reviewbot", "args": ["mcp"] }
    }
  }

Available tools: review_create, review_list, review_get, review_feedback,
review_approve, review_set_status, task_list, task_create`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcpRun()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpRun serves until stdin closes or the process is signalled. Stdout
// carries the protocol, so nothing else may write there.
func mcpRun() error {
	reviews, tasks, err := getServices()
	if err != nil {
		return err
	}
	defer func() { _ = dataStore.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), shutdownSignals()...)
	defer stop()

	log.Debug().Str("version", buildVersion).Msg("mcp server starting")
	if err := mcp.NewServer(reviews, tasks, buildVersion).ServeStdio(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
