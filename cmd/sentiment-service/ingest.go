package main

import (
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	logctx "github.com/pribylovaa/go-news-sentiment/pkg/log"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Run a single ingest cycle and print the number of stored articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		// Отдельный реестр: метрики разового запуска никто не читает.
		a, err := newApp(ctx, cfg, prometheus.NewRegistry())
		if err != nil {
			return err
		}
		defer a.close()

		ctx = logctx.Into(ctx, log.With(slog.String("component", "ingest")))
		n, err := a.svc.IngestOnce(ctx)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "stored %d new articles\n", n)
		return nil
	},
}
