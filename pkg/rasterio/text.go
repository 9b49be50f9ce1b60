package rasterio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go-convolve/pkg/common"
	"go-convolve/pkg/raster"
)

const maxLineBytes = 256 << 20

// Read parses a textual raster: the row count, the column count, then
// rows*cols integers separated by any whitespace. A plain PGM header
// ("P2", width, height, maxval) is accepted in place of the two counts, and
// '#' starts a comment that runs to the end of the line.
func Read(r io.Reader) (*raster.Raster, error) {
	tok := newTokenizer(r)

	first, err := tok.next()
	if err != nil {
		return nil, fmt.Errorf("missing row count: %w", err)
	}

	var rows, cols int
	if first == "P2" {
		if cols, err = tok.int("width"); err != nil {
			return nil, err
		}
		if rows, err = tok.int("height"); err != nil {
			return nil, err
		}
		if _, err = tok.int("maxval"); err != nil {
			return nil, err
		}
	} else {
		if rows, err = parseDim("row count", first); err != nil {
			return nil, err
		}
		if cols, err = tok.int("column count"); err != nil {
			return nil, err
		}
	}
	if rows < 0 || cols < 0 {
		return nil, fmt.Errorf("negative dimensions %dx%d: %w", rows, cols, common.ErrMalformed)
	}

	out := raster.New(rows, cols)
	for i := 0; i < rows; i++ {
		row := out.Row(i)
		for j := range row {
			s, err := tok.next()
			if err != nil {
				return nil, fmt.Errorf("value (%d,%d) of %dx%d: %w", i, j, rows, cols, err)
			}
			v, err := strconv.ParseInt(s, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("value (%d,%d) %q: %w", i, j, s, common.ErrMalformed)
			}
			row[j] = int32(v)
		}
	}

	if extra, err := tok.next(); err == nil {
		return nil, fmt.Errorf("unexpected value %q after %dx%d samples: %w", extra, rows, cols, common.ErrMalformed)
	} else if !isEOF(err) {
		return nil, err
	}
	return out, nil
}

// Write emits the row count line, the column count line, then one line per
// row with every sample followed by a single space.
func Write(w io.Writer, r *raster.Raster) error {
	bw := bufio.NewWriter(w)
	buf := make([]byte, 0, 16)

	buf = strconv.AppendInt(buf[:0], int64(r.Rows()), 10)
	buf = append(buf, '\n')
	buf = strconv.AppendInt(buf, int64(r.Cols()), 10)
	buf = append(buf, '\n')
	if _, err := bw.Write(buf); err != nil {
		return fmt.Errorf("write header: %w: %v", common.ErrIO, err)
	}

	for i := 0; i < r.Rows(); i++ {
		for _, v := range r.Row(i) {
			buf = strconv.AppendInt(buf[:0], int64(v), 10)
			buf = append(buf, ' ')
			if _, err := bw.Write(buf); err != nil {
				return fmt.Errorf("write row %d: %w: %v", i, common.ErrIO, err)
			}
		}
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("write row %d: %w: %v", i, common.ErrIO, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w: %v", common.ErrIO, err)
	}
	return nil
}

func parseDim(what, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", what, s, common.ErrMalformed)
	}
	return n, nil
}

var errTruncated = fmt.Errorf("truncated raster: %w", common.ErrMalformed)

func isEOF(err error) bool { return err == errTruncated }

// tokenizer yields whitespace separated fields, skipping comments.
type tokenizer struct {
	sc     *bufio.Scanner
	fields []string
}

func newTokenizer(r io.Reader) *tokenizer {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	return &tokenizer{sc: sc}
}

func (t *tokenizer) next() (string, error) {
	for len(t.fields) == 0 {
		if !t.sc.Scan() {
			if err := t.sc.Err(); err != nil {
				return "", fmt.Errorf("read: %w: %v", common.ErrIO, err)
			}
			return "", errTruncated
		}
		line := t.sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		t.fields = strings.Fields(line)
	}
	f := t.fields[0]
	t.fields = t.fields[1:]
	return f, nil
}

func (t *tokenizer) int(what string) (int, error) {
	s, err := t.next()
	if err != nil {
		return 0, fmt.Errorf("missing %s: %w", what, err)
	}
	return parseDim(what, s)
}
