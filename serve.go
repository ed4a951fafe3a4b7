package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"feedback_agent/config"
	"feedback_agent/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, func(c *config.Config) {
			if serveAddr != "" {
				c.Server.Addr = serveAddr
			}
		})
		if err != nil {
			return err
		}
		defer a.Close(cmd.Context())

		srv, err := server.New(a.intake, a.pipeline, a.store, a.pub, a.cfg.Server, a.log)
		if err != nil {
			return err
		}
		return srv.ListenAndServe(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
