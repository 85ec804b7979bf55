package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/internal/logging"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
)

var (
	// Global flags
	verbose     bool
	logFormat   string
	configPath  string
	metricsFile string

	// Batch flags shared by the commands that walk simulation folders
	channels  []string
	workers   int
	recursive bool

	// registry collects the metrics of the current invocation.
	registry *prometheus.Registry
)

var rootCmd = &cobra.Command{
	Use:   "tcad",
	Short: "TCAD simulation output extraction toolkit",
	Long: `Extract device channels (terminal voltages and currents) from DF-ISE
plot files, convert simulator output, and build normalized curve datasets.

Examples:
  tcad convert Id_Vds                                # Copy *.plt into Id_Vds/Txt as *.txt
  tcad extract Id_Vds/Txt                            # Write Id_Vds/Csv/<name>_extracted.csv
  tcad inspect Id_Vds/IdVd_n23_des.plt               # Show header and channel list
  tcad normalize Id_Vds/Txt --channel "drain eCurrent"
  tcad plot Id_Vds/Txt --out iv.png --log-y`,
	Version: "0.3.0",
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if metricsFile == "" || registry == nil {
			return nil
		}
		if err := prometheus.WriteToTextfile(metricsFile, registry); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command. Interrupts cancel documents that have not
// started yet.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logging.FormatLogfmt,
		"log format: logfmt or json")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"JSON config file (flags override its values)")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write Prometheus metrics of the run to this file")
}

// addBatchFlags registers the flags of commands that process folders and
// extract the configured channel list.
func addBatchFlags(c *cobra.Command) {
	c.Flags().StringSliceVarP(&channels, "channels", "c", nil,
		"channels to extract (default: substrate/gate/drain voltages and drain current)")
	addRunFlags(c)
}

// addRunFlags registers the folder flags of commands that pick their own
// channels.
func addRunFlags(c *cobra.Command) {
	c.Flags().IntVarP(&workers, "workers", "w", 0,
		"documents processed concurrently (default from config: 4)")
	c.Flags().BoolVarP(&recursive, "recursive", "r", false,
		"descend into sub-directories")
}

func newLogger(cmd *cobra.Command) (log.Logger, error) {
	return logging.New(cmd.ErrOrStderr(), logFormat, verbose)
}

// loadConfig returns the defaults, the --config file over them, and the
// explicitly set flags over both.
func loadConfig(cmd *cobra.Command) (*batch.Config, error) {
	cfg := batch.DefaultConfig()
	if configPath != "" {
		loaded, err := batch.LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Lookup("channels") != nil && flags.Changed("channels") {
		cfg.Channels = channels
	}
	if flags.Lookup("workers") != nil && flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Lookup("recursive") != nil && flags.Changed("recursive") {
		cfg.Recursive = recursive
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newRunner builds a batch runner whose metrics land in a fresh registry.
func newRunner(cmd *cobra.Command, cfg *batch.Config) (*batch.Runner, log.Logger, error) {
	logger, err := newLogger(cmd)
	if err != nil {
		return nil, nil, err
	}
	registry = prometheus.NewRegistry()
	return batch.NewRunner(cfg, logger, batch.NewMetrics(registry)), logger, nil
}

// runBatch discovers the documents under args and extracts them.
func runBatch(cmd *cobra.Command, cfg *batch.Config, args []string) (*batch.Runner, batch.Outcome, error) {
	paths, err := batch.DiscoverAll(args, cfg)
	if err != nil {
		return nil, batch.Outcome{}, err
	}
	if len(paths) == 0 {
		return nil, batch.Outcome{}, fmt.Errorf("no files with extensions %v found", cfg.Extensions)
	}

	runner, _, err := newRunner(cmd, cfg)
	if err != nil {
		return nil, batch.Outcome{}, err
	}
	return runner, runner.Run(cmd.Context(), paths), nil
}
