package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spektr-org/salesdash"
	"github.com/spektr-org/salesdash/config"
	"github.com/spektr-org/salesdash/logging"
	"github.com/spektr-org/salesdash/source"
)

// ============================================================================
// SALESDASH CLI — Serve the sales dashboard, or print one run
// ============================================================================

// app holds the global flags and what PersistentPreRunE derives from them.
type app struct {
	configPath string
	addr       string
	dataPath   string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "salesdash",
		Short: "Interactive sales dashboard",
		Long: `salesdash serves an interactive dashboard over a sales dataset.

Every page load filters the dataset by region, year, seller and category,
then recomputes the headline metrics, the charts and the records table.

Run without a subcommand to start the web server.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to a YAML config file (or set "+config.EnvConfig+")")
	root.PersistentFlags().StringVar(&a.addr, "addr", "", "Listen address, overrides the config")
	root.PersistentFlags().StringVar(&a.dataPath, "data", "", "Path to a CSV or JSON dataset, overrides the config")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable verbose logging")

	root.AddCommand(a.renderCmd())
	root.AddCommand(a.schemaCmd())
	root.AddCommand(versionCmd())
	return root
}

// setup loads the configuration, applies flag overrides and builds the
// logger.
func (a *app) setup() error {
	path := a.configPath
	if path == "" {
		path = os.Getenv(config.EnvConfig)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}

	if a.addr != "" {
		cfg.Server.Addr = a.addr
	}
	if a.dataPath != "" {
		cfg.Data.Source = source.KindFile
		cfg.Data.Path = a.dataPath
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "salesdash %s\n", salesdash.Version)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
