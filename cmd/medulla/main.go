// Medulla: project-scoped knowledge engine for AI coding agents.
//
// Entities (decisions, tasks, notes, prompts, components, links) live in a
// conflict-free document committed alongside the code; a derived SQLite
// cache answers search and graph queries; an MCP server exposes the whole
// thing to agents.
//
// Usage:
//
//	medulla init       # create .medulla/ in the current directory
//	medulla serve      # start the MCP server (stdio transport)
//	medulla add task "Ship it"
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medullahq/medulla/internal/cli"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "medulla",
		Short:         "Project memory for AI coding agents",
		Version:       cli.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(cli.InitCmd())
	rootCmd.AddCommand(cli.ServeCmd())
	rootCmd.AddCommand(cli.SnapshotCmd())
	rootCmd.AddCommand(cli.RebuildCmd())
	rootCmd.AddCommand(cli.StatusCmd())
	rootCmd.AddCommand(cli.HookCmd())

	rootCmd.AddCommand(cli.AddCmd())
	rootCmd.AddCommand(cli.GetCmd())
	rootCmd.AddCommand(cli.ListCmd())
	rootCmd.AddCommand(cli.UpdateCmd())
	rootCmd.AddCommand(cli.DeleteCmd())
	rootCmd.AddCommand(cli.SearchCmd())

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}
