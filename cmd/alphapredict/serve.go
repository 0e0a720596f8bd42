package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/seenimoa/alphapredict/api"
)

// --- Serve Command (HTTP Server) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cfg, log)
		if err != nil {
			return err
		}
		defer a.Close()

		srv, err := api.NewServer(cfg, api.Deps{
			Dashboard: a.dash,
			Gate:      a.gate,
			Resolver:  a.resolver,
			Secrets:   a.secrets,
			Logger:    log,
			Version:   version,
		})
		if err != nil {
			return err
		}

		addr, _ := cmd.Flags().GetString("addr")
		if addr == "" {
			addr = fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return srv.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: api.host:api.port)")
}
