package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cabewaldrop/bplusviz/internal/metrics"
	"github.com/cabewaldrop/bplusviz/internal/session"
	"github.com/cabewaldrop/bplusviz/internal/web"
	"github.com/spf13/cobra"
)

func newServeCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the web UI and JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			m := metrics.New()
			reg := session.NewRegistry(
				session.WithLogger(a.log),
				session.WithObserver(m),
				session.WithMaxHistory(cfg.History.MaxEntries),
			)
			srv := web.NewServer(web.Options{
				Config:   cfg,
				Registry: reg,
				Metrics:  m,
				Logger:   a.log,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx)
		},
	}
	cmd.Flags().IntVar(&port, "port", 8080, "HTTP port (overrides server.port)")
	return cmd
}
