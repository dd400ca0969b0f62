package cli

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"ragpipe/internal/transport/sse"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries over HTTP with SSE progress streaming",
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := buildPipeline(cfg, dataDir)
		if err != nil {
			return err
		}
		defer p.Close()

		addr := serveAddr
		if addr == "" {
			addr = cfg.Server.Addr
		}

		server := sse.NewServer(p.orchestrator, p.emitter, slog.Default())
		slog.Info("serving queries", "addr", addr)
		if err := http.ListenAndServe(addr, server.Handler()); err != nil {
			return fmt.Errorf("server stopped: %w", err)
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}
