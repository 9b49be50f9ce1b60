package convolve

import (
	"go-convolve/pkg/raster"
)

// Extend returns src padded by half cells on every side, border cells
// replicating their nearest interior neighbor. src is retired.
//
// Layers are filled from the innermost (half-1) outwards. Each cell copies a
// neighbor that is already final: a cell of an inner layer, or an earlier
// cell of the same layer in row-major order.
//
// Given a 3x3 input and half=1, the extended 5x5 raster is
//
//	1 1 2 3 3
//	1 1 2 3 3
//	4 4 5 6 6
//	7 7 8 9 9
//	7 7 8 9 9
func Extend(src *raster.Raster, half int) *raster.Raster {
	return extend(src, half, serialLoop{})
}

func extend(src *raster.Raster, half int, loop looper) *raster.Raster {
	rows, cols := src.Rows(), src.Cols()
	ext := raster.New(rows+2*half, cols+2*half)

	// Interior cells are disjoint per row.
	loop.For(rows, func(start, end int) {
		for i := start; i < end; i++ {
			copy(ext.Window(half+i, half, cols), src.Row(i))
		}
	})

	// Layers depend on the layer inside them and never run in parallel.
	b := border{ext: ext, half: half, rows: rows, cols: cols}
	for layer := half - 1; layer >= 0; layer-- {
		b.fillLayer(layer)
	}

	src.Retire()
	return ext
}

// border fills the replicated frame of an extended raster.
type border struct {
	ext        *raster.Raster
	half       int
	rows, cols int
}

// fillLayer walks the ring of cells at distance layer from the outer edge in
// row-major order.
func (b border) fillLayer(layer int) {
	height, width := b.ext.Rows(), b.ext.Cols()
	top, bottom := layer, height-1-layer
	left, right := layer, width-1-layer

	for i := top; i <= bottom; i++ {
		if i == top || i == bottom {
			for j := left; j <= right; j++ {
				b.fillCell(i, j)
			}
			continue
		}
		b.fillCell(i, left)
		if right != left {
			b.fillCell(i, right)
		}
	}
}

// fillCell copies the source neighbor of one border cell. The top-left
// corner block copies its diagonal neighbor; that rule is checked first and
// takes precedence over the top edge and left edge rules.
func (b border) fillCell(i, j int) {
	var (
		h         = b.half
		aboveBody = i < h
		belowBody = i >= h+b.rows
		leftOf    = j < h
		rightOf   = j >= h+b.cols
	)

	switch {
	case aboveBody && leftOf:
		b.ext.Set(i, j, b.ext.At(i+1, j+1))
	case aboveBody && rightOf:
		b.ext.Set(i, j, b.ext.At(i, j-1))
	case aboveBody:
		b.ext.Set(i, j, b.ext.At(i+1, j))
	case belowBody:
		b.ext.Set(i, j, b.ext.At(i-1, j))
	case leftOf:
		b.ext.Set(i, j, b.ext.At(i, j+1))
	case rightOf:
		b.ext.Set(i, j, b.ext.At(i, j-1))
	}
}
