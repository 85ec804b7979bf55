package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
)

var fixtures = []string{"IdVd_n23_des.plt", "IdVd_n26_des.plt", "IdVd_n27_des.plt"}

func testdataDir(t *testing.T) string {
	t.Helper()
	testdata := "../../testdata"
	if _, err := os.Stat(testdata); os.IsNotExist(err) {
		testdata = "../../../testdata"
	}
	return testdata
}

// copyFixtures copies the sweep fixtures into <tmp>/<sub> with extension ext
// and returns that directory.
func copyFixtures(t *testing.T, sub, ext string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), sub)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range fixtures {
		data, err := os.ReadFile(filepath.Join(testdataDir(t), name))
		if err != nil {
			t.Fatal(err)
		}
		dst := filepath.Join(dir, strings.TrimSuffix(name, ".plt")+ext)
		if err := os.WriteFile(dst, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

// resetFlags restores every flag variable and clears pflag's Changed marks
// so that one test's arguments do not leak into the next.
func resetFlags() {
	verbose = false
	logFormat = "logfmt"
	configPath = ""
	metricsFile = ""
	channels = nil
	workers = 0
	recursive = false
	registry = nil

	extractOut = ""
	extractFormat = "csv"
	extractJSON = false
	convertOut = "Txt"
	convertRename = false
	normalizeChannel = "drain eCurrent"
	normalizeOut = "extracted_id_data.csv"
	plotX = "drain InnerVoltage"
	plotY = "drain eCurrent"
	plotOut = "iv.png"
	plotLogY = false
	reportOut = "report.pdf"
	reportTitle = ""
	reportChartX = "drain InnerVoltage"
	reportChartY = "drain eCurrent"

	unmark := func(f *pflag.Flag) { f.Changed = false }
	rootCmd.PersistentFlags().VisitAll(unmark)
	for _, c := range rootCmd.Commands() {
		c.Flags().VisitAll(unmark)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags()

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	rootCmd.SetOut(nil)
	rootCmd.SetErr(nil)
	return stdout.String(), err
}

func TestExtractE2E(t *testing.T) {
	tests := []struct {
		name        string
		setup       func(t *testing.T) (args []string, outDir string)
		wantErr     bool
		wantContain []string
		wantFiles   []string
	}{
		{
			name: "default output folder",
			setup: func(t *testing.T) ([]string, string) {
				dir := copyFixtures(t, "Txt", ".txt")
				return []string{"extract", dir}, filepath.Join(filepath.Dir(dir), "Csv")
			},
			wantContain: []string{"OK    ", "(5 rows, 4 channels)", "Processed: 3/3 documents"},
			wantFiles: []string{
				"IdVd_n23_des_extracted.csv",
				"IdVd_n26_des_extracted.csv",
				"IdVd_n27_des_extracted.csv",
			},
		},
		{
			name: "parquet into explicit folder",
			setup: func(t *testing.T) ([]string, string) {
				dir := copyFixtures(t, "Txt", ".txt")
				out := filepath.Join(t.TempDir(), "tables")
				return []string{"extract", "--format", "parquet", "--out", out, "-w", "2", dir}, out
			},
			wantContain: []string{"Processed: 3/3 documents"},
			wantFiles: []string{
				"IdVd_n23_des_extracted.parquet",
				"IdVd_n26_des_extracted.parquet",
				"IdVd_n27_des_extracted.parquet",
			},
		},
		{
			name: "broken document only",
			setup: func(t *testing.T) ([]string, string) {
				return []string{"extract", "--out", t.TempDir(), filepath.Join(testdataDir(t), "broken")}, ""
			},
			wantErr: true,
		},
		{
			name: "nothing to discover",
			setup: func(t *testing.T) ([]string, string) {
				return []string{"extract", t.TempDir()}, ""
			},
			wantErr: true,
		},
		{
			name: "unknown format",
			setup: func(t *testing.T) ([]string, string) {
				return []string{"extract", "--format", "xlsx", copyFixtures(t, "Txt", ".txt")}, ""
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, outDir := tt.setup(t)
			output, err := run(t, args...)

			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot:\n%s", want, output)
				}
			}
			for _, name := range tt.wantFiles {
				if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
					t.Errorf("Expected output file %s: %v", name, err)
				}
			}
		})
	}
}

func TestExtractChannelsE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	out := t.TempDir()

	output, err := run(t, "extract", "--channels", "drain eCurrent,bulk eCurrent,drain InnerVoltage",
		"--out", out, "-v", dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "(5 rows, 2 channels)") {
		t.Errorf("Expected 2 resolved channels\nGot:\n%s", output)
	}
	if !strings.Contains(output, "warning:") || !strings.Contains(output, "bulk eCurrent") {
		t.Errorf("Expected a warning for the missing channel\nGot:\n%s", output)
	}

	data, err := os.ReadFile(filepath.Join(out, "IdVd_n26_des_extracted.csv"))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 6 {
		t.Fatalf("Expected header plus 5 rows, got %d lines", len(lines))
	}
	if lines[0] != "drain eCurrent,drain InnerVoltage" {
		t.Errorf("Header = %q", lines[0])
	}
	if lines[5] != "3.2e-05,1" {
		t.Errorf("Last row = %q", lines[5])
	}
}

func TestExtractJSONE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	broken, err := os.ReadFile(filepath.Join(testdataDir(t), "broken", "noinfo.plt"))
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "noinfo.txt"), broken, 0644); err != nil {
		t.Fatal(err)
	}

	output, err := run(t, "extract", "--json", "--out", t.TempDir(), dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}

	var report ExtractReport
	if err := json.Unmarshal([]byte(output), &report); err != nil {
		t.Fatalf("Output is not JSON: %v\n%s", err, output)
	}
	if report.Total != 4 || report.Succeeded != 3 || report.Failed != 1 {
		t.Errorf("Counts = %d/%d/%d, want 4/3/1", report.Total, report.Succeeded, report.Failed)
	}
	if len(report.RunID) != 36 {
		t.Errorf("RunID = %q", report.RunID)
	}
	for _, doc := range report.Documents {
		if strings.HasSuffix(doc.Path, "noinfo.txt") {
			if !strings.Contains(doc.Error, "Info") {
				t.Errorf("Error for noinfo.txt = %q", doc.Error)
			}
		} else if doc.Rows != 5 {
			t.Errorf("%s: rows = %d", doc.Path, doc.Rows)
		}
	}
}

func TestExtractConfigAndMetricsE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	tmp := t.TempDir()
	out := filepath.Join(tmp, "out")
	cfgPath := filepath.Join(tmp, "tcad.json")
	metricsPath := filepath.Join(tmp, "metrics.prom")

	cfg := `{"channels": ["gate InnerVoltage"], "workers": 1, "output_dir": "` + filepath.ToSlash(out) + `"}`
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatal(err)
	}

	output, err := run(t, "extract", "--config", cfgPath, "--metrics-file", metricsPath, dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "(5 rows, 1 channels)") {
		t.Errorf("Config channels not applied\nGot:\n%s", output)
	}
	if _, err := os.Stat(filepath.Join(out, "IdVd_n23_des_extracted.csv")); err != nil {
		t.Errorf("Config output_dir not applied: %v", err)
	}

	metrics, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("Metrics file not written: %v", err)
	}
	if !strings.Contains(string(metrics), `tcad_extract_documents_total{result="ok"} 3`) {
		t.Errorf("Unexpected metrics:\n%s", metrics)
	}
}

func TestConvertE2E(t *testing.T) {
	t.Run("copy", func(t *testing.T) {
		dir := copyFixtures(t, "Id_Vds", ".plt")
		output, err := run(t, "convert", dir)
		if err != nil {
			t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
		}
		if !strings.Contains(output, "Converted: 3/3 files") {
			t.Errorf("Unexpected output:\n%s", output)
		}
		for _, name := range fixtures {
			txt := strings.TrimSuffix(name, ".plt") + ".txt"
			if _, err := os.Stat(filepath.Join(dir, "Txt", txt)); err != nil {
				t.Errorf("Missing copy %s: %v", txt, err)
			}
			if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
				t.Errorf("Original %s removed: %v", name, err)
			}
		}
	})

	t.Run("rename", func(t *testing.T) {
		dir := copyFixtures(t, "Id_Vds", ".plt")
		output, err := run(t, "convert", "--rename", dir)
		if err != nil {
			t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
		}
		if !strings.Contains(output, "Renamed: 3/3 files") {
			t.Errorf("Unexpected output:\n%s", output)
		}
		matches, _ := filepath.Glob(filepath.Join(dir, "*.plt"))
		if len(matches) != 0 {
			t.Errorf("Left .plt files: %v", matches)
		}
	})

	t.Run("empty folder", func(t *testing.T) {
		output, err := run(t, "convert", t.TempDir())
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if !strings.Contains(output, "No .plt files found") {
			t.Errorf("Unexpected output:\n%s", output)
		}
	})
}

func TestInspectE2E(t *testing.T) {
	tests := []struct {
		name        string
		file        string
		wantErr     bool
		wantContain []string
	}{
		{
			name: "sweep file",
			file: "IdVd_n23_des.plt",
			wantContain: []string{
				"Version:  1.0",
				"Type:     xyplot",
				"Datasets: 6",
				"drain eCurrent",
				"eCurrent",
				"Rows: 5",
			},
		},
		{
			name:    "no Info block",
			file:    filepath.Join("broken", "noinfo.plt"),
			wantErr: true,
		},
		{
			name:    "missing file",
			file:    "nope.plt",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, err := run(t, "inspect", filepath.Join(testdataDir(t), tt.file))
			if tt.wantErr {
				if err == nil {
					t.Errorf("Expected error but got none\nOutput: %s", output)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			}
			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot:\n%s", want, output)
				}
			}
		})
	}
}

func TestNormalizeE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	out := filepath.Join(t.TempDir(), "curves.csv")

	output, err := run(t, "normalize", "--out", out, dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	for _, want := range []string{"Devices:  3 (skipped 0)", "Tensor:   [1 3 1 5]", "Range:    0 .. 4.8e-05"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\nGot:\n%s", want, output)
		}
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("Expected header plus 3 devices, got %d lines", len(lines))
	}
	if lines[0] != ",Point_1,Point_2,Point_3,Point_4,Point_5" {
		t.Errorf("Header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[3], "IdVd_n27_des,0,") {
		t.Errorf("Last device row = %q", lines[3])
	}
}

func TestNormalizeMissingChannelE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	_, err := run(t, "normalize", "--channel", "bulk eCurrent", "--out", filepath.Join(t.TempDir(), "x.csv"), dir)
	if err == nil {
		t.Error("Expected error when no document has the channel")
	}
}

func TestPlotE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	out := filepath.Join(t.TempDir(), "iv.png")

	output, err := run(t, "plot", "--out", out, "--log-y", dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "(3 devices)") {
		t.Errorf("Unexpected output:\n%s", output)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Error("Output is not a PNG")
	}
}

func TestReportE2E(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	out := filepath.Join(t.TempDir(), "report.pdf")

	output, err := run(t, "report", "--out", out, "--title", "Id-Vd sweep", dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "(3 documents)") {
		t.Errorf("Unexpected output:\n%s", output)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Error("Output is not a PDF")
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{"extract": false, "convert": false, "inspect": false, "normalize": false, "plot": false, "report": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("Command %s not registered", name)
		}
	}
}

func TestChannelPickingCommandsRejectChannelsFlag(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "normalize long", args: []string{"normalize", "--channels", "gate InnerVoltage"}},
		{name: "normalize short", args: []string{"normalize", "-c", "gate InnerVoltage"}},
		{name: "plot long", args: []string{"plot", "--channels", "gate InnerVoltage"}},
		{name: "plot short", args: []string{"plot", "-c", "gate InnerVoltage"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := copyFixtures(t, "Txt", ".txt")
			out := filepath.Join(t.TempDir(), "out")
			args := append(tt.args, "--out", out, dir)

			_, err := run(t, args...)
			if err == nil {
				t.Fatal("Expected --channels to be rejected")
			}
			if !strings.Contains(err.Error(), "unknown") {
				t.Errorf("Unexpected error: %v", err)
			}
			if _, statErr := os.Stat(out); statErr == nil {
				t.Error("Output written despite rejected flag")
			}
		})
	}
}

func TestChannelPickingCommandsKeepRunFlags(t *testing.T) {
	dir := copyFixtures(t, "Txt", ".txt")
	out := filepath.Join(t.TempDir(), "curves.csv")

	output, err := run(t, "normalize", "-w", "2", "-r", "--out", out, dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
	}
	if !strings.Contains(output, "Devices:  3") {
		t.Errorf("Unexpected output:\n%s", output)
	}
}

func TestConvertSummarySortedFailures(t *testing.T) {
	summary := &batch.ConvertSummary{
		Converted: []string{"Txt/a.txt"},
		Failed: map[string]error{
			"d.plt": errors.New("busy"),
			"b.plt": errors.New("denied"),
			"c.plt": errors.New("gone"),
		},
	}

	want := "  Txt/a.txt\n" +
		"  failed: b.plt: denied\n" +
		"  failed: c.plt: gone\n" +
		"  failed: d.plt: busy\n" +
		"\nConverted: 1/4 files\n"
	for i := 0; i < 5; i++ {
		var buf bytes.Buffer
		printConvertSummary(&buf, "Converted", summary)
		if buf.String() != want {
			t.Fatalf("Output =\n%s\nwant\n%s", buf.String(), want)
		}
	}
}
