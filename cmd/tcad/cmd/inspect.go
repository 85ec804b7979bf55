package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show the header and channel list of a DF-ISE file",
	Long: `Parse the Info block of a DF-ISE file and list its datasets with their
column offsets, followed by the number of complete data rows.

Examples:
  tcad inspect Id_Vds/IdVd_n23_des.plt
  tcad inspect -v Id_Vds/Txt/IdVd_n23_des.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	filename := args[0]
	out := cmd.OutOrStdout()

	doc, err := batch.ReadDocument(filename)
	if err != nil {
		return err
	}

	parser, err := dfise.NewHeaderParser()
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}
	header, err := parser.ParseString(doc.Text)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filename, err)
	}

	fmt.Fprintf(out, "File:     %s\n", filename)
	if header.Version != "" {
		fmt.Fprintf(out, "Version:  %s\n", header.Version)
	}
	if header.Type != "" {
		fmt.Fprintf(out, "Type:     %s\n", header.Type)
	}
	if verbose && len(header.Attributes) > 0 {
		keys := make([]string, 0, len(header.Attributes))
		for k := range header.Attributes {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(out, "%-9s %s\n", k+":", header.Attributes[k])
		}
	}

	fmt.Fprintf(out, "\nDatasets: %d\n", len(header.Datasets))
	for i, name := range header.Datasets {
		fn := ""
		if i < len(header.Functions) {
			fn = header.Functions[i]
		}
		fmt.Fprintf(out, "  %3d  %-32s %s\n", i, name, fn)
	}

	// Extract every declared channel to count rows.
	table, err := dfise.NewExtractor(nil).Extract(doc, header.Datasets)
	if err != nil {
		fmt.Fprintf(out, "\nData: %v\n", err)
		return nil
	}
	fmt.Fprintf(out, "\nRows: %d\n", table.Rows)
	for _, w := range table.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w.Message)
	}
	return nil
}
