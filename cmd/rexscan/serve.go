package main

import (
	"github.com/spf13/cobra"

	"rgehrsitz/rexscan/pkg/api"
)

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the upload and query HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			st, err := a.openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close()

			cat, err := a.loadCatalog(ctx, st)
			if err != nil {
				return err
			}
			ing, err := a.newIngester()
			if err != nil {
				return err
			}
			return api.NewServer(st, a.newEngine(cat), ing).Run(ctx, a.cfg.ServerAddress)
		},
	}
	cmd.Flags().String("addr", ":8080", "listen address")
	cobra.CheckErr(a.v.BindPFlag("server.address", cmd.Flags().Lookup("addr")))
	return cmd
}
