package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/medullahq/medulla/internal/githook"
	"github.com/medullahq/medulla/internal/store"
)

// InitCmd returns the init command.
func InitCmd() *cobra.Command {
	var withHook bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a medulla project in the current directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("getting working directory: %w", err)
			}
			if _, err := store.Init(cwd); err != nil {
				return err
			}
			green.Fprintf(cmd.OutOrStdout(), "Initialized medulla project in %s\n",
				filepath.Join(cwd, store.DirName))

			if withHook {
				if err := githook.Install(cwd, false); err != nil {
					yellow.Fprintf(cmd.ErrOrStderr(), "hook not installed: %v\n", err)
				} else {
					fmt.Fprintln(cmd.OutOrStdout(), "Installed pre-commit hook")
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withHook, "hook", false, "also install the pre-commit hook")
	return cmd
}
