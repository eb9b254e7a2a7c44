package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	statusuc "github.com/kailas-cloud/peerdex/internal/usecase/status"
)

func newStatusCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether the company index is ready",
		Long: `Show the company index statistics, or a not-ready message when the
index does not exist or the cluster cannot be reached.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStatus(cmd.Context(), global, cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, global *globalOptions, out io.Writer) error {
	cfg, err := global.loadConfig()
	if err != nil {
		return err
	}
	logger, err := global.newLogger(cfg)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	store, err := newStore(cfg)
	if err != nil {
		return fmt.Errorf("create search store: %w", err)
	}
	defer store.Close()

	if ctx == nil {
		ctx = context.Background()
	}
	report := statusuc.New(store, cfg.Elasticsearch.Index, nil, logger).Status(ctx)
	return writeStatus(out, global.output, cfg.Elasticsearch.Index, report)
}

func writeStatus(out io.Writer, format, index string, report statusuc.Report) error {
	if format == "json" {
		return printJSON(out, map[string]any{
			"index":   index,
			"ready":   report.Ready,
			"message": report.Message,
			"stats":   report.Index,
		})
	}
	if !report.Ready {
		_, err := fmt.Fprintf(out, "%s: not ready (%s)\n", index, report.Message)
		return err
	}
	_, err := fmt.Fprintf(out, "%s: ready\n%s\n", index, report.Index)
	return err
}
