package rasterio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"golang.org/x/image/bmp"

	"go-convolve/pkg/common"
	"go-convolve/pkg/raster"
)

func TestWriteFormat(t *testing.T) {
	r := raster.MustFromRows([][]int32{{1, -2, 3}, {40, 5, 6}})
	var buf bytes.Buffer
	if err := Write(&buf, r); err != nil {
		t.Fatalf("Write: %v", err)
	}
	want := "2\n3\n1 -2 3 \n40 5 6 \n"
	if buf.String() != want {
		t.Errorf("Write = %q, want %q", buf.String(), want)
	}
}

func TestRead(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  [][]int32
	}{
		{"native", "2\n3\n1 2 3 \n4 5 6 \n", [][]int32{{1, 2, 3}, {4, 5, 6}}},
		{"one value per line", "2\n2\n1\n2\n3\n4\n", [][]int32{{1, 2}, {3, 4}}},
		{"pgm", "P2\n# made by hand\n3 2\n255\n0 128 255\n10 20 30\n", [][]int32{{0, 128, 255}, {10, 20, 30}}},
		{"negative kernel", "3\n3\n0 -1 0\n-1 4 -1\n0 -1 0\n", [][]int32{{0, -1, 0}, {-1, 4, -1}, {0, -1, 0}}},
		{"empty", "0\n0\n", nil},
	}
	for _, tt := range tests {
		got, err := Read(strings.NewReader(tt.input))
		if err != nil {
			t.Errorf("%s: Read: %v", tt.name, err)
			continue
		}
		want := raster.MustFromRows(tt.want)
		if !got.Equal(want) {
			t.Errorf("%s: Read = %v, want %v", tt.name, got.ToRows(), tt.want)
		}
	}
}

func TestReadMalformed(t *testing.T) {
	for name, input := range map[string]string{
		"empty file":     "",
		"missing cols":   "2\n",
		"bad row count":  "two\n2\n",
		"too few values": "2\n2\n1 2 3\n",
		"too many":       "1\n2\n1 2 3\n",
		"not a number":   "1\n2\n1 x\n",
		"out of range":   "1\n1\n99999999999\n",
		"negative dims":  "-1\n2\n",
	} {
		_, err := Read(strings.NewReader(input))
		if !errors.Is(err, common.ErrMalformed) {
			t.Errorf("%s: error = %v, want ErrMalformed", name, err)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	r := raster.MustFromRows([][]int32{{7, 8}, {9, -10}, {11, 12}})
	for _, name := range []string{"out.txt", "out.pgm.zst"} {
		path := filepath.Join(dir, name)
		if err := WriteFile(path, r); err != nil {
			t.Fatalf("WriteFile(%s): %v", name, err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if !got.Equal(r) {
			t.Errorf("%s round trip = %v", name, got.ToRows())
		}
	}

	plain, _ := os.ReadFile(filepath.Join(dir, "out.txt"))
	packed, _ := os.ReadFile(filepath.Join(dir, "out.pgm.zst"))
	if bytes.Equal(plain, packed) {
		t.Error(".zst output was not compressed")
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(filepath.Join(t.TempDir(), "nope.txt"))
	if !errors.Is(err, common.ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
}

func TestWriteFileUnwritable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.txt")
	err := WriteFile(path, raster.New(1, 1))
	if !errors.Is(err, common.ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
}

func TestReadKernelNotSquare(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k.txt")
	if err := os.WriteFile(path, []byte("1\n3\n1 1 1\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadKernel(path); !errors.Is(err, common.ErrMalformed) {
		t.Errorf("error = %v, want ErrMalformed", err)
	}
}

func TestImageImport(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 2))
	for i, v := range []uint8{0, 50, 100, 150, 200, 250} {
		img.SetGray(i%3, i/3, color.Gray{Y: v})
	}

	dir := t.TempDir()
	var pngBuf, bmpBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	if err := bmp.Encode(&bmpBuf, img); err != nil {
		t.Fatal(err)
	}
	want := raster.MustFromRows([][]int32{{0, 50, 100}, {150, 200, 250}})

	for name, data := range map[string][]byte{"in.png": pngBuf.Bytes(), "in.bmp": bmpBuf.Bytes()} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			t.Fatal(err)
		}
		got, err := ReadFile(path)
		if err != nil {
			t.Fatalf("ReadFile(%s): %v", name, err)
		}
		if !got.Equal(want) {
			t.Errorf("%s = %v, want %v", name, got.ToRows(), want.ToRows())
		}
	}
}

func TestWritePNGClamps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.png")
	if err := WriteFile(path, raster.MustFromRows([][]int32{{-5, 128, 999}})); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	want := raster.MustFromRows([][]int32{{0, 128, 255}})
	if !got.Equal(want) {
		t.Errorf("png = %v, want %v", got.ToRows(), want.ToRows())
	}
}
