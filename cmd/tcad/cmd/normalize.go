package cmd

import (
	"fmt"
	"os"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/curve"
)

var (
	normalizeChannel string
	normalizeOut     string
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize <dir|file>...",
	Short: "Build a min-max normalized curve matrix across devices",
	Long: `Collect one channel from every document, scale all samples together to
[0, 1] and write a matrix with one row per device (Point_1..Point_N).
The tensor shape fed to the curve model, (1, devices, 1, points), is printed.

Examples:
  tcad normalize Id_Vds/Txt
  tcad normalize --channel "drain eCurrent" --out id_curves.csv Id_Vds/Txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNormalize,
}

func init() {
	rootCmd.AddCommand(normalizeCmd)
	addRunFlags(normalizeCmd)

	normalizeCmd.Flags().StringVar(&normalizeChannel, "channel", "drain eCurrent",
		"channel forming each device curve")
	normalizeCmd.Flags().StringVarP(&normalizeOut, "out", "o", "extracted_id_data.csv",
		"output CSV file")
}

func runNormalize(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Channels = []string{normalizeChannel}

	runner, outcome, err := runBatch(cmd, cfg, args)
	if err != nil {
		return err
	}
	results := outcome.Results

	ds, skipped, err := curve.Collect(results, normalizeChannel)
	for _, path := range skipped {
		level.Warn(runner.Logger).Log("msg", "document skipped", "document", path)
	}
	if err != nil {
		return err
	}

	n, err := curve.Normalize(ds)
	if err != nil {
		return err
	}
	if n.Constant {
		level.Warn(runner.Logger).Log("msg", "all samples equal, normalized to zero", "channel", normalizeChannel)
	}

	f, err := os.Create(normalizeOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", normalizeOut, err)
	}
	if err := curve.WriteMatrixCSV(f, n); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	tensor := n.Tensor()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Channel:  %s\n", normalizeChannel)
	fmt.Fprintf(out, "Devices:  %d (skipped %d)\n", len(n.Devices), len(skipped))
	fmt.Fprintf(out, "Range:    %g .. %g\n", n.Min, n.Max)
	fmt.Fprintf(out, "Tensor:   %v\n", tensor.Shape)
	fmt.Fprintf(out, "Saved:    %s\n", normalizeOut)
	return nil
}
