package convolve

import (
	"go-convolve/pkg/raster"
)

// ZeroSumDivisor replaces a kernel sum of exactly zero. Zero-sum kernels
// (edge detectors and the like) are then left unscaled instead of failing.
const ZeroSumDivisor int32 = 1

// KernelSum returns the normalization divisor: the sum of all kernel
// coefficients, or ZeroSumDivisor when that sum is zero.
func KernelSum(kernel *raster.Raster) int32 {
	var sum int32
	for i := 0; i < kernel.Rows(); i++ {
		for _, w := range kernel.Row(i) {
			sum += w
		}
	}
	if sum == 0 {
		return ZeroSumDivisor
	}
	return sum
}

// Normalize writes src / divisor into dst, truncating toward zero. dst and
// src may be the same raster.
func Normalize(dst, src *raster.Raster, divisor int32) {
	normalize(dst, src, divisor, serialLoop{})
}

func normalize(dst, src *raster.Raster, divisor int32, loop looper) {
	loop.For(src.Rows(), func(start, end int) {
		for i := start; i < end; i++ {
			in, out := src.Row(i), dst.Row(i)
			for j, v := range in {
				out[j] = v / divisor
			}
		}
	})
}
