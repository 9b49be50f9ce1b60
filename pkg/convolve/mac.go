package convolve

import (
	"go-convolve/pkg/parallel"
	"go-convolve/pkg/raster"
)

// PixelMAC returns the multiply-accumulate of kernel against the k x k
// neighborhood of ext whose top-left corner is (|row-half|, |col-half|).
//
// row and col are extended-raster coordinates and must be >= half, which is
// how the pipeline calls it; smaller values fold back through the absolute
// value instead of moving the window.
func PixelMAC(kernel, ext *raster.Raster, row, col int) int32 {
	k := kernel.Rows()
	startRow, startCol := window(k, row, col)
	return macRows(kernel, ext, startRow, startCol, 0, k)
}

// PixelMACParallel computes the same sum as PixelMAC with the kernel rows
// split across pool. Each worker accumulates privately and merges once.
func PixelMACParallel(pool *parallel.Pool, kernel, ext *raster.Raster, row, col int) int32 {
	k := kernel.Rows()
	startRow, startCol := window(k, row, col)
	return pool.Reduce(k, func(start, end int) int32 {
		return macRows(kernel, ext, startRow, startCol, start, end)
	})
}

func window(k, row, col int) (int, int) {
	half := k / 2
	return abs(row - half), abs(col - half)
}

// macRows accumulates kernel rows [from, to) against the window.
func macRows(kernel, ext *raster.Raster, startRow, startCol, from, to int) int32 {
	k := kernel.Cols()
	var mac int32
	for i := from; i < to; i++ {
		weights := kernel.Row(i)
		samples := ext.Window(startRow+i, startCol, k)
		for j, w := range weights {
			mac += w * samples[j]
		}
	}
	return mac
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
