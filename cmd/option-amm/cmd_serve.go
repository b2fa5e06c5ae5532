package main

import (
	"github.com/spf13/cobra"

	"github.com/contactkeval/option-amm/internal/data"
	"github.com/contactkeval/option-amm/internal/logger"
	"github.com/contactkeval/option-amm/internal/metrics"
	"github.com/contactkeval/option-amm/internal/server"
)

var serveListen string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the JSON HTTP API",
	Long: `Serve the pricing, AMM, strategy and on-chain engines over HTTP.

Routes live under /api/v1; /health answers liveness probes and /metrics
exposes Prometheus collectors. The server shuts down gracefully on SIGINT or
SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Listen
		if serveListen != "" {
			addr = serveListen
		}
		prov, err := data.NewChain(cfg.Data)
		if err != nil {
			return err
		}
		logger.Infof("event=serve_config listen=%s providers=%v", addr, cfg.Data.Providers)
		return server.New(cfg, prov, metrics.New()).Run(cmd.Context(), addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveListen, "listen", "", "Listen address (config server.listen when empty)")
	rootCmd.AddCommand(serveCmd)
}
