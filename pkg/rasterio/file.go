// Package rasterio reads and writes rasters on disk.
//
// The native format is text (see Read and Write). Files ending in ".zst" are
// zstd-compressed text. Image files (.png, .jpg, .jpeg, .gif, .bmp, .tif,
// .tiff) are imported as 8-bit grayscale, and a ".png" output path exports
// the raster clamped to 0..255.
package rasterio

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"

	"github.com/klauspost/compress/zstd"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"go-convolve/pkg/common"
	"go-convolve/pkg/raster"
)

type format int

const (
	formatText format = iota
	formatZstd
	formatImage
)

func formatOf(path string) format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".zst":
		return formatZstd
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff":
		return formatImage
	default:
		return formatText
	}
}

// ReadFile loads a raster from path.
func ReadFile(path string) (*raster.Raster, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %v", path, common.ErrIO, err)
	}
	defer f.Close()

	var r *raster.Raster
	switch formatOf(path) {
	case formatZstd:
		dec, err := zstd.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("zstd %s: %w: %v", path, common.ErrMalformed, err)
		}
		defer dec.Close()
		r, err = Read(dec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	case formatImage:
		r, err = ReadImage(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	default:
		r, err = Read(f)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}
	return r, nil
}

// ReadKernel loads a raster and checks it is square.
func ReadKernel(path string) (*raster.Raster, error) {
	k, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !k.IsSquare() {
		return nil, fmt.Errorf("kernel %s is %dx%d, want square: %w", path, k.Rows(), k.Cols(), common.ErrMalformed)
	}
	return k, nil
}

// WriteFile stores r at path, creating or truncating it.
func WriteFile(path string, r *raster.Raster) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w: %v", path, common.ErrIO, err)
	}

	switch formatOf(path) {
	case formatZstd:
		err = writeZstd(f, r)
	case formatImage:
		err = WritePNG(f, r)
	default:
		err = Write(f, r)
	}
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close: %w: %v", common.ErrIO, cerr)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}

func writeZstd(w io.Writer, r *raster.Raster) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("zstd: %w: %v", common.ErrIO, err)
	}
	if err := Write(enc, r); err != nil {
		enc.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd: %w: %v", common.ErrIO, err)
	}
	return nil
}

// ReadImage decodes any registered image format into grayscale samples.
func ReadImage(r io.Reader) (*raster.Raster, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w: %v", common.ErrMalformed, err)
	}

	bounds := img.Bounds()
	out := raster.New(bounds.Dy(), bounds.Dx())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		row := out.Row(y - bounds.Min.Y)
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			row[x-bounds.Min.X] = int32(g.Y)
		}
	}
	return out, nil
}

// WritePNG encodes r as an 8-bit grayscale PNG, clamping samples to 0..255.
func WritePNG(w io.Writer, r *raster.Raster) error {
	img := image.NewGray(image.Rect(0, 0, r.Cols(), r.Rows()))
	for y := 0; y < r.Rows(); y++ {
		for x, v := range r.Row(y) {
			img.SetGray(x, y, color.Gray{Y: uint8(max(0, min(v, 255)))})
		}
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode png: %w: %v", common.ErrIO, err)
	}
	return nil
}
