// Package report renders a PDF summary of a batch extraction run.
package report

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
)

const (
	pageMargin   = 15.0
	contentWidth = 180.0 // A4 portrait minus margins
	lineHeight   = 6.0
	chartName    = "chart"
)

// Summary is the content of a report.
type Summary struct {
	Title     string
	RunID     string
	Generated time.Time
	Channels  []string
	Results   []batch.Result
	Chart     []byte // optional PNG
}

var columnWidths = []float64{70, 18, 22, 70}

// Write renders s as a PDF to w.
func Write(w io.Writer, s Summary) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.AddPage()

	title := s.Title
	if title == "" {
		title = "TCAD extraction report"
	}
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(contentWidth, 10, title, "", 1, "L", false, 0, "")

	counts := batch.Summarize(s.Results)
	pdf.SetFont("Arial", "", 10)
	if s.RunID != "" {
		pdf.CellFormat(contentWidth, lineHeight, "Run: "+s.RunID, "", 1, "L", false, 0, "")
	}
	if !s.Generated.IsZero() {
		pdf.CellFormat(contentWidth, lineHeight, "Generated: "+s.Generated.UTC().Format(time.RFC3339), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentWidth, lineHeight,
		fmt.Sprintf("Documents: %d   Succeeded: %d   Failed: %d   Warnings: %d",
			counts.Total, counts.Succeeded, counts.Failed, counts.Warnings),
		"", 1, "L", false, 0, "")
	if len(s.Channels) > 0 {
		pdf.MultiCell(contentWidth, lineHeight, "Channels: "+strings.Join(s.Channels, ", "), "", "L", false)
	}
	pdf.Ln(4)

	writeTable(pdf, s.Results)

	if len(s.Chart) > 0 {
		pdf.AddPage()
		pdf.RegisterImageReader(chartName, "PNG", bytes.NewReader(s.Chart))
		pdf.Image(chartName, pageMargin, pdf.GetY(), contentWidth, 0, false, "PNG", 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	return pdf.Output(w)
}

func writeTable(pdf *gofpdf.Fpdf, results []batch.Result) {
	headers := []string{"Document", "Rows", "Channels", "Notes"}
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 200, 200)
	for i, h := range headers {
		pdf.CellFormat(columnWidths[i], lineHeight, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, res := range results {
		cells := rowCells(res)
		if res.Err != nil {
			pdf.SetTextColor(200, 0, 0)
		}
		for i, c := range cells {
			pdf.CellFormat(columnWidths[i], lineHeight, fit(pdf, c, columnWidths[i]), "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetTextColor(0, 0, 0)
	}
}

func rowCells(res batch.Result) []string {
	name := filepath.Base(res.Path)
	if res.Err != nil {
		return []string{name, "-", "-", res.Err.Error()}
	}
	notes := make([]string, 0, len(res.Table.Warnings))
	for _, w := range res.Table.Warnings {
		notes = append(notes, w.Message)
	}
	return []string{
		name,
		fmt.Sprintf("%d", res.Table.Rows),
		fmt.Sprintf("%d/%d", len(res.Table.Order), len(res.Table.Declared)),
		strings.Join(notes, "; "),
	}
}

// fit shortens s with an ellipsis until it fits in width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	limit := width - 2*pdf.GetCellMargin()
	if pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
