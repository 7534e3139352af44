package main

import (
	"github.com/spf13/cobra"

	"github.com/REZICS/PolyPress/internal/log"
	"github.com/REZICS/PolyPress/internal/server"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:     "serve",
		Short:   "Serve the local API for a UI front end",
		GroupID: GroupServer,
		Args:    cobra.NoArgs,
		Long: `Serve the workspace and publication operations over HTTP, with a
websocket at /api/events that streams update progress and the selected
file's publications.

The listener defaults to [server] addr in the config or $POLYPRESS_ADDR.
Stop with Ctrl-C.`,
		Example: `  polypress serve
  polypress serve --addr 127.0.0.1:9000 -v`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc := stateFrom(ctx).service(ctx)
			return server.New(svc, log.FromContext(ctx).Logger).Run(ctx, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	return cmd
}
