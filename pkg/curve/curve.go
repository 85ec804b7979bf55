// Package curve assembles per-device curves from extraction results into
// normalized matrices and tensors for model training.
//
// Aggregation is explicit: callers pass the results they want combined and
// receive a fresh Dataset. Nothing is accumulated between calls.
package curve

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/OpenTraceLab/OpenTraceTCAD/pkg/batch"
)

var (
	// ErrNoCurves is returned when no result carries the requested channel.
	ErrNoCurves = errors.New("curve: no curves collected")

	// ErrRaggedCurves is returned when devices have different sample counts.
	ErrRaggedCurves = errors.New("curve: curves have different lengths")
)

// Dataset holds one curve per device, all of equal length.
type Dataset struct {
	Channel string
	Devices []string
	Curves  [][]float64
}

// Points returns the number of samples per curve.
func (d *Dataset) Points() int {
	if len(d.Curves) == 0 {
		return 0
	}
	return len(d.Curves[0])
}

// DeviceName derives a device identifier from a document path.
func DeviceName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Collect takes channel from every successful result. Failed results and
// results lacking the channel are skipped; their paths are returned.
func Collect(results []batch.Result, channel string) (*Dataset, []string, error) {
	ds := &Dataset{Channel: channel}
	var skipped []string
	for _, res := range results {
		if res.Err != nil {
			skipped = append(skipped, res.Path)
			continue
		}
		values, ok := res.Table.Column(channel)
		if !ok || len(values) == 0 {
			skipped = append(skipped, res.Path)
			continue
		}
		if len(ds.Curves) > 0 && len(values) != ds.Points() {
			return nil, skipped, fmt.Errorf("%w: %s has %d points, expected %d",
				ErrRaggedCurves, res.Path, len(values), ds.Points())
		}
		ds.Devices = append(ds.Devices, DeviceName(res.Path))
		ds.Curves = append(ds.Curves, append([]float64(nil), values...))
	}
	if len(ds.Curves) == 0 {
		return nil, skipped, ErrNoCurves
	}
	return ds, skipped, nil
}

// Normalized is a Dataset scaled to [0, 1] by a single global min/max.
type Normalized struct {
	*Dataset
	Min, Max float64
	Constant bool       // every sample had the same value; all scaled to 0
	Matrix   *mat.Dense // devices x points
}

// Normalize applies global min-max scaling. When all samples are equal the
// result is all zeros and Constant is set.
func Normalize(ds *Dataset) (*Normalized, error) {
	if ds == nil || len(ds.Curves) == 0 {
		return nil, ErrNoCurves
	}
	rows, cols := len(ds.Curves), ds.Points()
	if cols == 0 {
		return nil, ErrNoCurves
	}

	flat := make([]float64, 0, rows*cols)
	for _, c := range ds.Curves {
		if len(c) != cols {
			return nil, ErrRaggedCurves
		}
		flat = append(flat, c...)
	}

	n := &Normalized{Dataset: ds, Min: floats.Min(flat), Max: floats.Max(flat)}
	span := n.Max - n.Min
	if span == 0 {
		n.Constant = true
		for i := range flat {
			flat[i] = 0
		}
	} else {
		floats.AddConst(-n.Min, flat)
		floats.Scale(1/span, flat)
	}
	n.Matrix = mat.NewDense(rows, cols, flat)
	return n, nil
}

// Denormalize maps a scaled value back to the original units.
func (n *Normalized) Denormalize(v float64) float64 {
	return n.Min + v*(n.Max-n.Min)
}

// WriteMatrixCSV writes one row per device: the device name followed by
// Point_1..Point_N.
func WriteMatrixCSV(w io.Writer, n *Normalized) error {
	rows, cols := n.Matrix.Dims()

	cw := csv.NewWriter(w)
	header := make([]string, cols+1)
	for j := 0; j < cols; j++ {
		header[j+1] = "Point_" + strconv.Itoa(j+1)
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("curve: write header: %w", err)
	}

	record := make([]string, cols+1)
	for i := 0; i < rows; i++ {
		record[0] = n.Devices[i]
		for j := 0; j < cols; j++ {
			record[j+1] = strconv.FormatFloat(n.Matrix.At(i, j), 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("curve: write %s: %w", n.Devices[i], err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Tensor is a dense row-major array.
type Tensor struct {
	Shape []int
	Data  []float64
}

// Tensor reshapes the matrix to (1, devices, 1, points), the input layout of
// the curve regression model.
func (n *Normalized) Tensor() Tensor {
	rows, cols := n.Matrix.Dims()
	data := make([]float64, 0, rows*cols)
	for i := 0; i < rows; i++ {
		data = append(data, mat.Row(nil, i, n.Matrix)...)
	}
	return Tensor{Shape: []int{1, rows, 1, cols}, Data: data}
}

// At returns the element at the given indices.
func (t Tensor) At(idx ...int) float64 {
	if len(idx) != len(t.Shape) {
		panic(fmt.Sprintf("curve: %d indices for rank %d tensor", len(idx), len(t.Shape)))
	}
	off := 0
	for k, i := range idx {
		if i < 0 || i >= t.Shape[k] {
			panic(fmt.Sprintf("curve: index %d out of range for dimension %d", i, k))
		}
		off = off*t.Shape[k] + i
	}
	return t.Data[off]
}
