package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medullahq/medulla/internal/githook"
)

// SnapshotCmd returns the snapshot command.
func SnapshotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot",
		Short: "Regenerate the markdown snapshot under .medulla/snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			stats, err := svc.GenerateSnapshot()
			if err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "Snapshot written: %d files\n", stats.Files)
			fmt.Fprintf(cmd.OutOrStdout(),
				"  %d decisions, %d tasks (%d active), %d notes, %d prompts, %d components, %d links\n",
				stats.Decisions, stats.TasksTotal, stats.TasksActive,
				stats.Notes, stats.Prompts, stats.Components, stats.Links)
			return nil
		},
	}
}

// RebuildCmd returns the rebuild command.
func RebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Rebuild the derived SQLite cache from the document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			if err := svc.RebuildCache(); err != nil {
				return err
			}
			green.Fprintln(cmd.OutOrStdout(), "Cache rebuilt")
			return nil
		},
	}
}

// StatusCmd returns the status command.
func StatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show project statistics and health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			report, err := svc.Stats()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Project: %s\n\n", root)
			total := 0
			for _, typ := range []string{"decision", "task", "note", "prompt", "component", "link"} {
				n := report.Entities[typ]
				total += n
				fmt.Fprintf(out, "  %-11s %d\n", typ+"s:", n)
			}
			fmt.Fprintf(out, "  %-11s %d\n", "total:", total)
			fmt.Fprintf(out, "  %-11s %d\n", "relations:", report.Relations)
			fmt.Fprintf(out, "  %-11s %d\n\n", "embeddings:", report.Embeddings)
			fmt.Fprintf(out, "  document:  %d bytes\n", report.CRDTFileSize)
			fmt.Fprintf(out, "  cache:     %d bytes\n", report.DBSize)
			if report.SyncedAt != "" {
				fmt.Fprintf(out, "  synced at: %s\n", report.SyncedAt)
			}

			hookState, err := githook.Status(root)
			if err == nil {
				fmt.Fprintf(out, "  hook:      %s\n", hookState)
			}
			for _, w := range report.Warnings {
				yellow.Fprintf(out, "\nwarning: %s\n", w)
			}
			return nil
		},
	}
}

// HookCmd returns the hook command group.
func HookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Manage the pre-commit snapshot hook",
	}

	var force bool
	install := &cobra.Command{
		Use:   "install",
		Short: "Install the pre-commit hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			if err := githook.Install(root, force); err != nil {
				return err
			}
			green.Fprintln(cmd.OutOrStdout(), "Pre-commit hook installed")
			return nil
		},
	}
	install.Flags().BoolVar(&force, "force", false, "replace an existing custom hook")

	uninstall := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove the pre-commit hook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			if err := githook.Uninstall(root); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Pre-commit hook removed")
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether the pre-commit hook is installed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := projectRoot()
			if err != nil {
				return err
			}
			state, err := githook.Status(root)
			if err != nil {
				return err
			}
			switch state {
			case githook.Installed:
				green.Fprintln(cmd.OutOrStdout(), state)
			case githook.Foreign:
				red.Fprintln(cmd.OutOrStdout(), state)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), state)
			}
			return nil
		},
	}

	cmd.AddCommand(install, uninstall, status)
	return cmd
}
