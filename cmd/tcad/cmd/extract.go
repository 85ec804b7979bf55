package cmd

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/go-kit/log/level"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/table"
)

var (
	extractOut    string
	extractFormat string
	extractJSON   bool
)

// ExtractReport is the JSON form of an extract run.
type ExtractReport struct {
	RunID     string           `json:"run_id"`
	Channels  []string         `json:"channels"`
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Documents []DocumentReport `json:"documents"`
}

// DocumentReport describes the outcome for one document.
type DocumentReport struct {
	Path     string   `json:"path"`
	Output   string   `json:"output,omitempty"`
	Rows     int      `json:"rows,omitempty"`
	Channels []string `json:"channels,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Error    string   `json:"error,omitempty"`
}

var extractCmd = &cobra.Command{
	Use:   "extract <dir|file>...",
	Short: "Extract channels from DF-ISE files into tables",
	Long: `Extract the requested channels from every simulation file and write one
table per document, named <name>_extracted.csv (or .parquet).

Without --out, tables go to a "Csv" folder next to each document's folder,
so Id_Vds/Txt/a.txt produces Id_Vds/Csv/a_extracted.csv.

A document that cannot be read or parsed is reported and skipped; the others
are still written.

Examples:
  tcad extract Id_Vds/Txt
  tcad extract --channels "gate InnerVoltage,drain eCurrent" runs/*.plt
  tcad extract --format parquet --out tables -w 8 -r sweeps/`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	addBatchFlags(extractCmd)

	extractCmd.Flags().StringVarP(&extractOut, "out", "o", "",
		"output directory (default: sibling Csv folder of each input folder)")
	extractCmd.Flags().StringVarP(&extractFormat, "format", "f", batch.FormatCSV,
		"output format: csv or parquet")
	extractCmd.Flags().BoolVar(&extractJSON, "json", false,
		"print the run summary as JSON")
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("format") {
		cfg.Format = extractFormat
	}
	if cmd.Flags().Changed("out") {
		cfg.OutputDir = extractOut
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	runner, outcome, err := runBatch(cmd, cfg, args)
	if err != nil {
		return err
	}
	results := outcome.Results

	report := ExtractReport{RunID: outcome.RunID, Channels: cfg.Channels}
	for _, res := range results {
		doc := DocumentReport{Path: res.Path}
		if res.Err != nil {
			doc.Error = res.Err.Error()
			report.Documents = append(report.Documents, doc)
			continue
		}

		dir := cfg.OutputDir
		if dir == "" {
			dir = table.DefaultOutputDir(filepath.Dir(res.Path))
		}
		out := table.OutputPath(dir, res.Path, cfg.Format)
		if err := table.WriteFile(out, cfg.Format, res.Table); err != nil {
			level.Error(runner.Logger).Log("msg", "cannot write table", "document", res.Path, "err", err)
			doc.Error = err.Error()
			report.Documents = append(report.Documents, doc)
			continue
		}

		doc.Output = out
		doc.Rows = res.Table.Rows
		doc.Channels = res.Table.Order
		for _, w := range res.Table.Warnings {
			doc.Warnings = append(doc.Warnings, w.Message)
		}
		report.Documents = append(report.Documents, doc)
	}

	report.Total = len(report.Documents)
	for _, doc := range report.Documents {
		if doc.Error == "" {
			report.Succeeded++
		} else {
			report.Failed++
		}
	}

	out := cmd.OutOrStdout()
	if extractJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("failed to encode report: %w", err)
		}
	} else {
		for _, doc := range report.Documents {
			if doc.Error != "" {
				fmt.Fprintf(out, "FAIL  %s\n      %s\n", doc.Path, doc.Error)
				continue
			}
			fmt.Fprintf(out, "OK    %s -> %s (%d rows, %d channels)\n",
				doc.Path, doc.Output, doc.Rows, len(doc.Channels))
			if verbose {
				for _, w := range doc.Warnings {
					fmt.Fprintf(out, "      warning: %s\n", w)
				}
			}
		}
		fmt.Fprintf(out, "\nProcessed: %d/%d documents\n", report.Succeeded, report.Total)
	}

	if report.Succeeded == 0 {
		return fmt.Errorf("no documents extracted")
	}
	return nil
}
