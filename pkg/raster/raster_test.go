package raster

import (
	"errors"
	"testing"

	"go-convolve/pkg/common"
)

func TestNew(t *testing.T) {
	r := New(3, 4)
	if r.Rows() != 3 || r.Cols() != 4 {
		t.Fatalf("dims = %dx%d, want 3x4", r.Rows(), r.Cols())
	}
	if r.Len() != 12 {
		t.Errorf("Len() = %d, want 12", r.Len())
	}
	for i := 0; i < 3; i++ {
		for j := 0; j < 4; j++ {
			if v := r.At(i, j); v != 0 {
				t.Errorf("At(%d,%d) = %d, want 0", i, j, v)
			}
		}
	}
}

func TestFromRows(t *testing.T) {
	r, err := FromRows([][]int32{{1, 2, 3}, {4, 5, 6}})
	if err != nil {
		t.Fatalf("FromRows: %v", err)
	}
	if got := r.At(1, 2); got != 6 {
		t.Errorf("At(1,2) = %d, want 6", got)
	}
	if got := r.Row(0); len(got) != 3 || got[1] != 2 {
		t.Errorf("Row(0) = %v, want [1 2 3]", got)
	}

	_, err = FromRows([][]int32{{1, 2}, {3}})
	if !errors.Is(err, common.ErrMalformed) {
		t.Errorf("ragged rows error = %v, want ErrMalformed", err)
	}
}

func TestRowWritesThrough(t *testing.T) {
	r := New(2, 2)
	r.Row(1)[0] = 7
	if got := r.At(1, 0); got != 7 {
		t.Errorf("At(1,0) = %d, want 7", got)
	}
}

func TestCloneAndEqual(t *testing.T) {
	a := MustFromRows([][]int32{{1, 2}, {3, 4}})
	b := a.Clone()
	if !a.Equal(b) {
		t.Fatal("clone differs from source")
	}
	b.Set(1, 1, -4)
	if a.Equal(b) {
		t.Error("Equal = true after mutating the clone")
	}
	row, col, ok := a.Diff(b)
	if !ok || row != 1 || col != 1 {
		t.Errorf("Diff = (%d,%d,%v), want (1,1,true)", row, col, ok)
	}
	if a.Equal(New(2, 3)) {
		t.Error("Equal = true for different shapes")
	}
}

func TestFilled(t *testing.T) {
	r := Filled(2, 3, 9)
	for _, row := range r.ToRows() {
		for _, v := range row {
			if v != 9 {
				t.Fatalf("cell = %d, want 9", v)
			}
		}
	}
}

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s did not panic", name)
		}
	}()
	fn()
}

func TestBoundsChecked(t *testing.T) {
	r := New(2, 3)
	expectPanic(t, "At past last column", func() { r.At(0, 3) })
	expectPanic(t, "Set negative row", func() { r.Set(-1, 0, 1) })
	expectPanic(t, "Row out of range", func() { r.Row(2) })
	expectPanic(t, "Window past row end", func() { r.Window(0, 2, 2) })
}

func TestRetire(t *testing.T) {
	r := New(2, 2)
	r.Retire()
	if !r.Retired() {
		t.Fatal("Retired() = false after Retire")
	}
	expectPanic(t, "At after Retire", func() { r.At(0, 0) })
	expectPanic(t, "Row after Retire", func() { r.Row(0) })
}
