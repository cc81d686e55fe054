package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medullahq/medulla/internal/server"
)

// ServeCmd returns the serve command.
func ServeCmd() *cobra.Command {
	var httpAddr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server (stdio by default)",
		Long: `Serve the project over the Model Context Protocol.

Without flags the server speaks stdio, which is what MCP clients spawn.
With --http it serves streamable HTTP sessions on the given address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := openService()
			if err != nil {
				return err
			}
			defer svc.Close()

			srv := server.New(svc, Version)
			if httpAddr != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "medulla v%s serving on %s\n", Version, httpAddr)
				return srv.ServeHTTP(cmd.Context(), httpAddr)
			}
			return srv.Run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address instead of stdio")
	return cmd
}
