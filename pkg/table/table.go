// Package table serializes extracted channel tables as row-per-sample files.
package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

// ErrRaggedColumns is returned when the columns of a table differ in length.
var ErrRaggedColumns = errors.New("table: columns have different lengths")

// ErrEmptyTable is returned for a table without columns.
var ErrEmptyTable = errors.New("table: no columns")

// rowCount checks that every column in order has the same length.
func rowCount(t *dfise.ChannelTable) (int, error) {
	if len(t.Order) == 0 {
		return 0, ErrEmptyTable
	}
	rows := -1
	for _, name := range t.Order {
		col, ok := t.Columns[name]
		if !ok {
			return 0, fmt.Errorf("table: column %q missing", name)
		}
		if rows >= 0 && len(col) != rows {
			return 0, fmt.Errorf("%w: %q has %d rows, expected %d", ErrRaggedColumns, name, len(col), rows)
		}
		rows = len(col)
	}
	return rows, nil
}

// WriteCSV writes t with a header of channel names followed by one record
// per sample.
func WriteCSV(w io.Writer, t *dfise.ChannelTable) error {
	rows, err := rowCount(t)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(t.Order); err != nil {
		return fmt.Errorf("table: write header: %w", err)
	}
	record := make([]string, len(t.Order))
	for row := 0; row < rows; row++ {
		for i, name := range t.Order {
			record[i] = strconv.FormatFloat(t.Columns[name][row], 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("table: write row %d: %w", row, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// OutputPath returns <dir>/<stem>_extracted.<format> for docPath.
func OutputPath(dir, docPath, format string) string {
	base := filepath.Base(docPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+"_extracted."+format)
}

// DefaultOutputDir returns the "Csv" folder next to inputDir.
func DefaultOutputDir(inputDir string) string {
	return filepath.Join(filepath.Dir(filepath.Clean(inputDir)), "Csv")
}

// WriteFile writes t to path in the given format ("csv" or "parquet"),
// creating parent directories. The file is not created when the table is
// rejected.
func WriteFile(path, format string, t *dfise.ChannelTable) error {
	if _, err := rowCount(t); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("table: create dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("table: create %s: %w", path, err)
	}

	switch format {
	case "csv":
		err = WriteCSV(f, t)
	case "parquet":
		err = WriteParquet(f, t)
	default:
		err = fmt.Errorf("table: unknown format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return err
	}
	return nil
}
