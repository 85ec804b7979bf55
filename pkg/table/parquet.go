package table

import (
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/dfise"
)

// Schema returns a parquet schema with one required DOUBLE column per
// channel of t.
func Schema(t *dfise.ChannelTable) *parquet.Schema {
	group := make(parquet.Group, len(t.Order))
	for _, name := range t.Order {
		group[name] = parquet.Required(parquet.Leaf(parquet.DoubleType))
	}
	return parquet.NewSchema("channels", group)
}

// WriteParquet writes t as a parquet file with one row per sample.
func WriteParquet(w io.Writer, t *dfise.ChannelTable) error {
	rows, err := rowCount(t)
	if err != nil {
		return err
	}

	schema := Schema(t)
	// Group fields are ordered by name, not by request order.
	index := make([]int, len(t.Order))
	for i, name := range t.Order {
		leaf, ok := schema.Lookup(name)
		if !ok {
			return fmt.Errorf("table: column %q not in schema", name)
		}
		index[i] = leaf.ColumnIndex
	}

	writer := parquet.NewWriter(w, schema)
	batch := make([]parquet.Row, 0, rows)
	for row := 0; row < rows; row++ {
		r := make(parquet.Row, len(t.Order))
		for i, name := range t.Order {
			col := index[i]
			r[col] = parquet.DoubleValue(t.Columns[name][row]).Level(0, 0, col)
		}
		batch = append(batch, r)
	}
	if _, err := writer.WriteRows(batch); err != nil {
		return fmt.Errorf("table: write parquet rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("table: close parquet writer: %w", err)
	}
	return nil
}
