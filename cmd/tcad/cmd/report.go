package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/ivplot"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/report"
)

var (
	reportOut    string
	reportTitle  string
	reportChartX string
	reportChartY string
)

var reportCmd = &cobra.Command{
	Use:   "report <dir|file>...",
	Short: "Write a PDF summary of an extraction run",
	Long: `Extract the configured channels from every document and write a PDF
listing rows, resolved channels and warnings per document. When the chart
channels are extracted, an I-V chart is appended.

Examples:
  tcad report Id_Vds/Txt
  tcad report --out sweep.pdf --title "Id-Vd sweep" Id_Vds/Txt`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)
	addBatchFlags(reportCmd)

	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "report.pdf", "output PDF file")
	reportCmd.Flags().StringVar(&reportTitle, "title", "", "report title")
	reportCmd.Flags().StringVar(&reportChartX, "chart-x", "drain InnerVoltage", "chart x-axis channel")
	reportCmd.Flags().StringVar(&reportChartY, "chart-y", "drain eCurrent", "chart y-axis channel")
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	runner, outcome, err := runBatch(cmd, cfg, args)
	if err != nil {
		return err
	}
	results := outcome.Results

	chart, _, err := ivplot.RenderPNG(seriesOf(results), ivplot.Options{
		XChannel: reportChartX,
		YChannel: reportChartY,
	})
	if err != nil {
		if !errors.Is(err, ivplot.ErrNothingToPlot) {
			return err
		}
		level.Info(runner.Logger).Log("msg", "no chart, channels not extracted", "x", reportChartX, "y", reportChartY)
	}

	f, err := os.Create(reportOut)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", reportOut, err)
	}
	err = report.Write(f, report.Summary{
		Title:     reportTitle,
		RunID:     outcome.RunID,
		Generated: time.Now(),
		Channels:  cfg.Channels,
		Results:   results,
		Chart:     chart,
	})
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%d documents)\n", reportOut, len(results))
	return nil
}
