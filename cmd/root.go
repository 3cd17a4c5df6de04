// Package cmd holds the msview command line
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dspacex/msview/internal/config"
	"github.com/dspacex/msview/internal/dspacex"
	"github.com/dspacex/msview/internal/logging"
	"github.com/dspacex/msview/version"
)

// options are the flags shared by every command
type options struct {
	configFile        string
	decompositionFile string
	server            string
	camera            string
	logLevel          string
	metricsAddr       string

	datasetID        int
	category         string
	field            string
	mode             string
	k                int
	persistenceLevel int
}

var opts options

var rootCmd = &cobra.Command{
	Use:   "msview",
	Short: "Morse-Smale crystal viewer for dSpaceX",
	Long: `msview shows the Morse-Smale decomposition of a dSpaceX dataset as a set of
regression curves. Click a crystal to select it, drag along it to scrub the
model and ctrl-click to fill the drawer with the original samples.`,
	Version:       version.GetFullVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runViewer,
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVarP(&opts.configFile, "config", "c", "", "YAML configuration file")
	f.StringVarP(&opts.decompositionFile, "decomposition", "d", "", "YAML file holding the decomposition; watched for changes")
	f.StringVarP(&opts.server, "server", "s", "", "dSpaceX server websocket URL")
	f.StringVar(&opts.camera, "camera", "", "initial camera: orthographic or perspective")
	f.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	f.IntVar(&opts.datasetID, "dataset", -1, "dataset id")
	f.StringVar(&opts.category, "category", "", "decomposition category")
	f.StringVar(&opts.field, "field", "", "decomposition field")
	f.StringVar(&opts.mode, "mode", "", "decomposition mode")
	f.IntVar(&opts.k, "k", 0, "k nearest neighbours")
	f.IntVar(&opts.persistenceLevel, "level", -1, "persistence level")
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file and applies flag overrides
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, err
	}

	if opts.decompositionFile != "" {
		d, err := config.LoadDescriptor(opts.decompositionFile)
		if err != nil {
			return nil, err
		}
		cfg.Decomposition = d
	}

	flags := cmd.Flags()
	if flags.Changed("server") {
		cfg.Server.URL = opts.server
	}
	if flags.Changed("camera") {
		cfg.View.Camera = opts.camera
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.Metrics.Addr = opts.metricsAddr
	}
	d := &cfg.Decomposition
	if flags.Changed("dataset") {
		d.DatasetID = opts.datasetID
	}
	if flags.Changed("category") {
		d.Category = opts.category
	}
	if flags.Changed("field") {
		d.Field = opts.field
	}
	if flags.Changed("mode") {
		d.Mode = opts.mode
	}
	if flags.Changed("k") {
		d.K = opts.k
	}
	if flags.Changed("level") {
		d.PersistenceLevel = opts.persistenceLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (*slog.Logger, error) {
	return logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
}

// connect dials the server and wraps it with the partition cache
func connect(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*dspacex.Client, *dspacex.CachedService, error) {
	dialCtx, cancel := context.WithTimeout(ctx, cfg.Server.DialTimeout)
	defer cancel()

	client, err := dspacex.Dial(dialCtx, cfg.Server.URL, dspacex.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	svc, err := dspacex.NewCachedService(client, cfg.Server.PartitionCacheSize)
	if err != nil {
		client.Close()
		return nil, nil, err
	}
	return client, svc, nil
}

// setup is the common start of the headless commands
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, *dspacex.Client, *dspacex.CachedService, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	if cfg.Decomposition.IsZero() {
		return nil, nil, nil, nil, fmt.Errorf("no decomposition given; use --decomposition or --dataset/--category/--field/--k/--level")
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	client, svc, err := connect(cmd.Context(), cfg, logger)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return cfg, logger, client, svc, nil
}
