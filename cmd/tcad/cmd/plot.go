package cmd

import (
	"fmt"
	"os"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/curve"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/ivplot"
)

var (
	plotX    string
	plotY    string
	plotOut  string
	plotLogY bool
)

var plotCmd = &cobra.Command{
	Use:   "plot <dir|file>...",
	Short: "Draw I-V curves of many devices into one PNG",
	Long: `Extract an x and a y channel from every document and draw one line per
device.

Examples:
  tcad plot Id_Vds/Txt
  tcad plot --x "gate InnerVoltage" --y "drain eCurrent" --log-y --out idvg.png Id_Vg/Txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlot,
}

func init() {
	rootCmd.AddCommand(plotCmd)
	addRunFlags(plotCmd)

	plotCmd.Flags().StringVar(&plotX, "x", "drain InnerVoltage", "x-axis channel")
	plotCmd.Flags().StringVar(&plotY, "y", "drain eCurrent", "y-axis channel")
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "iv.png", "output PNG file")
	plotCmd.Flags().BoolVar(&plotLogY, "log-y", false, "logarithmic |y| axis")
}

// seriesOf turns successful results into labelled plot series.
func seriesOf(results []batch.Result) []ivplot.Series {
	var series []ivplot.Series
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		series = append(series, ivplot.Series{Label: curve.DeviceName(res.Path), Table: res.Table})
	}
	return series
}

func runPlot(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	cfg.Channels = []string{plotX, plotY}

	runner, outcome, err := runBatch(cmd, cfg, args)
	if err != nil {
		return err
	}
	results := outcome.Results

	data, skipped, err := ivplot.RenderPNG(seriesOf(results), ivplot.Options{
		XChannel: plotX,
		YChannel: plotY,
		LogY:     plotLogY,
	})
	for _, label := range skipped {
		level.Warn(runner.Logger).Log("msg", "series skipped, channel missing", "device", label)
	}
	if err != nil {
		return err
	}

	if err := os.WriteFile(plotOut, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", plotOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d devices)\n", plotOut, len(seriesOf(results))-len(skipped))
	return nil
}
