// Package raster provides the integer sample grid shared by the convolution
// pipeline, its file readers and writers.
//
// A Raster owns one contiguous row-major buffer. Ownership moves between
// pipeline stages; a stage that is done with a buffer calls Retire, after
// which any access panics instead of silently reading stale memory.
package raster

import (
	"fmt"

	"go-convolve/pkg/common"
)

// Raster is a rows x cols grid of int32 samples. Arithmetic on samples wraps
// like a fixed-width C int.
type Raster struct {
	rows    int
	cols    int
	stride  int
	data    []int32
	retired bool
}

// New allocates a zeroed rows x cols raster.
func New(rows, cols int) *Raster {
	if rows < 0 || cols < 0 {
		panic(fmt.Sprintf("raster: negative dimensions %dx%d", rows, cols))
	}
	return &Raster{
		rows:   rows,
		cols:   cols,
		stride: cols,
		data:   make([]int32, rows*cols),
	}
}

// FromRows copies a slice of equal-length rows into a new raster.
func FromRows(rows [][]int32) (*Raster, error) {
	if len(rows) == 0 {
		return New(0, 0), nil
	}
	cols := len(rows[0])
	r := New(len(rows), cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("row %d has %d values, want %d: %w", i, len(row), cols, common.ErrMalformed)
		}
		copy(r.Row(i), row)
	}
	return r, nil
}

// MustFromRows is FromRows for literals known to be rectangular.
func MustFromRows(rows [][]int32) *Raster {
	r, err := FromRows(rows)
	if err != nil {
		panic(err)
	}
	return r
}

// Filled returns a rows x cols raster with every cell set to v.
func Filled(rows, cols int, v int32) *Raster {
	r := New(rows, cols)
	for i := range r.data {
		r.data[i] = v
	}
	return r
}

func (r *Raster) Rows() int { return r.rows }
func (r *Raster) Cols() int { return r.cols }

// Len is the number of cells.
func (r *Raster) Len() int { return r.rows * r.cols }

// IsSquare reports whether the raster can serve as a kernel side.
func (r *Raster) IsSquare() bool { return r.rows == r.cols }

// At returns the sample at (row, col).
func (r *Raster) At(row, col int) int32 {
	r.check(row, col)
	return r.data[row*r.stride+col]
}

// Set stores v at (row, col).
func (r *Raster) Set(row, col int, v int32) {
	r.check(row, col)
	r.data[row*r.stride+col] = v
}

// Row returns the backing slice of one row. Writes through it are visible in
// the raster.
func (r *Raster) Row(row int) []int32 {
	r.live()
	if row < 0 || row >= r.rows {
		panic(fmt.Sprintf("raster: row %d out of range [0,%d)", row, r.rows))
	}
	off := row * r.stride
	return r.data[off : off+r.cols : off+r.cols]
}

// Window returns the sub-slice of row starting at col with n samples.
func (r *Raster) Window(row, col, n int) []int32 {
	return r.Row(row)[col : col+n]
}

// Clone returns an independent copy.
func (r *Raster) Clone() *Raster {
	r.live()
	c := New(r.rows, r.cols)
	for i := 0; i < r.rows; i++ {
		copy(c.Row(i), r.Row(i))
	}
	return c
}

// ToRows copies the raster into a slice of rows.
func (r *Raster) ToRows() [][]int32 {
	r.live()
	out := make([][]int32, r.rows)
	for i := range out {
		out[i] = append([]int32(nil), r.Row(i)...)
	}
	return out
}

// Equal reports whether both rasters have the same shape and samples.
func (r *Raster) Equal(o *Raster) bool {
	r.live()
	o.live()
	if r.rows != o.rows || r.cols != o.cols {
		return false
	}
	for i := 0; i < r.rows; i++ {
		a, b := r.Row(i), o.Row(i)
		for j := range a {
			if a[j] != b[j] {
				return false
			}
		}
	}
	return true
}

// Diff returns the first differing cell, or ok=false when the rasters match.
// Shapes must agree.
func (r *Raster) Diff(o *Raster) (row, col int, ok bool) {
	for i := 0; i < r.rows; i++ {
		a, b := r.Row(i), o.Row(i)
		for j := range a {
			if a[j] != b[j] {
				return i, j, true
			}
		}
	}
	return 0, 0, false
}

// Retire releases the buffer. The raster must not be used afterwards.
func (r *Raster) Retire() {
	r.data = nil
	r.retired = true
}

// Retired reports whether Retire has been called.
func (r *Raster) Retired() bool { return r.retired }

func (r *Raster) String() string {
	return fmt.Sprintf("Raster(%dx%d)", r.rows, r.cols)
}

func (r *Raster) live() {
	if r.retired {
		panic("raster: use after Retire")
	}
}

func (r *Raster) check(row, col int) {
	r.live()
	if row < 0 || row >= r.rows || col < 0 || col >= r.cols {
		panic(fmt.Sprintf("raster: (%d,%d) out of range %dx%d", row, col, r.rows, r.cols))
	}
}
