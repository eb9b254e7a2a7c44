package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/peerdex/internal/config"
	dbElastic "github.com/kailas-cloud/peerdex/internal/db/elastic"
	logpkg "github.com/kailas-cloud/peerdex/internal/logger"
	"github.com/kailas-cloud/peerdex/internal/version"
)

// globalOptions are shared by every subcommand.
type globalOptions struct {
	configPath string
	env        string
	output     string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "peerdex-ingest",
		Short: "Build the peerdex company index from CSV exports",
		Long: `peerdex-ingest loads the company, industry and speciality CSV exports,
embeds every company and bulk-indexes the result into Elasticsearch.

An existing index is left untouched. Delete it first to rebuild.

Examples:
  # Build the index using config/local.yaml
  peerdex-ingest run

  # Use an explicit config file and more workers
  peerdex-ingest run --config /etc/peerdex/prod.yaml --workers 8

  # Show index statistics
  peerdex-ingest status -o json`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "Path to config file (defaults to config/$ENV.yaml)")
	root.PersistentFlags().StringVar(&opts.env, "env", "", "Environment name used to locate the config (defaults to $ENV or local)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "Output format: text, json")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newStatusCmd(opts))
	return root
}

func (o *globalOptions) environment() string {
	if o.env != "" {
		return o.env
	}
	return config.GetEnv()
}

func (o *globalOptions) loadConfig() (config.Config, error) {
	if o.configPath != "" {
		return config.LoadFile(o.configPath)
	}
	return config.Load(o.environment())
}

func (o *globalOptions) newLogger(cfg config.Config) (*zap.Logger, error) {
	return logpkg.NewLogger(o.environment(), cfg.Logging.Level)
}

func newStore(cfg config.Config) (*dbElastic.Store, error) {
	return dbElastic.NewStore(dbElastic.Config{
		Addrs:              cfg.Elasticsearch.Addrs,
		Username:           cfg.Elasticsearch.Username,
		Password:           cfg.Elasticsearch.Password,
		CACertPath:         cfg.Elasticsearch.CACertPath,
		InsecureSkipVerify: cfg.Elasticsearch.InsecureSkipVerify,
		RequestTimeout:     time.Duration(cfg.Elasticsearch.RequestTimeoutSec) * time.Second,
		StatusAttempts:     cfg.Elasticsearch.StatusAttempts,
	})
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
