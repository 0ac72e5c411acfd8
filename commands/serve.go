package commands

import (
	"github.com/siegeai/jsonkit/server"
	"github.com/spf13/cobra"
)

func (a *app) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve schema inference over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s := server.New(server.Options{
				Engine: a.cfg.Engine(),
				Read:   a.cfg.ReadOptions(),
				Dot:    a.cfg.DotOptions(),
				Logger: a.log,
			})
			return s.ListenAndServe(cmd.Context(), a.cfg.Server.Addr)
		},
	}
	cmd.Flags().String("addr", ":8080", "Address to listen on")
	bind(cmd.Flags(), "addr", "server.addr")
	dotFlags(cmd.Flags())
	return cmd
}
