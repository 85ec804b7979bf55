package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
)

var (
	convertOut    string
	convertRename bool
)

var convertCmd = &cobra.Command{
	Use:   "convert <dir>",
	Short: "Turn .plt simulator output into .txt documents",
	Long: `Copy every .plt file of a folder into a sub-folder as .txt, leaving the
originals in place. With --rename the files are renamed in place instead.

Examples:
  tcad convert Id_Vds              # Id_Vds/a.plt -> Id_Vds/Txt/a.txt
  tcad convert --out text Id_Vds   # Id_Vds/a.plt -> Id_Vds/text/a.txt
  tcad convert --rename Id_Vds     # Id_Vds/a.plt -> Id_Vds/a.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVarP(&convertOut, "out", "o", "Txt",
		"sub-folder receiving the copies")
	convertCmd.Flags().BoolVar(&convertRename, "rename", false,
		"rename in place instead of copying")
}

func runConvert(cmd *cobra.Command, args []string) error {
	dir := args[0]
	out := cmd.OutOrStdout()

	var (
		summary *batch.ConvertSummary
		err     error
	)
	if convertRename {
		summary, err = batch.RenameDir(dir, ".plt", ".txt")
	} else {
		summary, err = batch.ConvertDir(dir, convertOut)
	}
	if err != nil {
		return err
	}

	if len(summary.Converted) == 0 && len(summary.Failed) == 0 {
		fmt.Fprintf(out, "No .plt files found in %s\n", dir)
		return nil
	}
	verb := "Converted"
	if convertRename {
		verb = "Renamed"
	}
	printConvertSummary(out, verb, summary)
	return summary.Err()
}

// printConvertSummary lists converted files, then failures sorted by name.
func printConvertSummary(out io.Writer, verb string, summary *batch.ConvertSummary) {
	for _, path := range summary.Converted {
		fmt.Fprintf(out, "  %s\n", path)
	}
	names := make([]string, 0, len(summary.Failed))
	for name := range summary.Failed {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(out, "  failed: %s: %v\n", name, summary.Failed[name])
	}
	fmt.Fprintf(out, "\n%s: %d/%d files\n", verb, len(summary.Converted), len(summary.Converted)+len(summary.Failed))
}
