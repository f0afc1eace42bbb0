package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"doris-rag/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the chat page and API over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.logger.Sync() //nolint:errcheck

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		qs, err := a.buildQueryStack(ctx)
		if err != nil {
			return err
		}
		defer qs.Close()

		addr := a.cfg.App.ListenAddr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := server.New(server.Config{Addr: addr}, qs.svc, a.catalog, a.metrics, a.logger)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address; overrides app.listen_addr")
}
