package main

import (
	"github.com/spf13/cobra"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/application/httpapi"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the family tree HTTP API",
		Long:  "Serves /api/family-trees and /metrics until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withDeps(func(d *Deps) error {
				if addr == "" {
					addr = d.Config.Server.Addr
				}
				srv := httpapi.NewServer(httpapi.Handlers{
					Trees:   d.Trees,
					Members: d.Members,
					Search:  d.Search,
				}, d.Logger)
				return srv.ListenAndServe(ctx, addr)
			})
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")

	return cmd
}
