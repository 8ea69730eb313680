// Package tabular streams delimited text files one row at a time,
// tolerating the quoting, line-ending, and encoding variance found in
// real bank exports.
package tabular

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Reader streams RawRows from a delimited file. It is not safe for
// concurrent use; one Reader serves one pass over one file.
type Reader struct {
	br      *bufio.Reader
	delim   rune
	rows    int
	maxRows int
	done    bool
	closer  io.Closer
}

// NewReader wraps r. If delim is zero the delimiter is detected from
// the first line by counting commas, semicolons, tabs, and pipes and
// taking the most frequent, defaulting to comma.
func NewReader(r io.Reader, delim rune) (*Reader, error) {
	decoded, err := decodeReader(r)
	if err != nil {
		return nil, fmt.Errorf("decoding input: %w", err)
	}

	br := bufio.NewReaderSize(decoded, sniffLen)
	if delim == 0 {
		head, err := br.Peek(sniffLen)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("reading first line: %w", err)
		}
		delim = DetectDelimiter(firstLine(string(head)))
	}

	return &Reader{br: br, delim: delim, maxRows: MaxRows}, nil
}

// Open streams the file at path, enforcing MaxFileBytes before any
// parsing starts. Callers must Close the returned Reader.
func Open(path string, delim rune) (*Reader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.Size() > MaxFileBytes {
		return nil, &SizeError{Size: info.Size(), Limit: MaxFileBytes}
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	r, err := NewReader(f, delim)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.closer = f
	return r, nil
}

// Delimiter returns the delimiter in use.
func (r *Reader) Delimiter() rune { return r.delim }

// Close releases the underlying file, if any.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Next returns the next row, or io.EOF when the file is exhausted.
// Cancellation is checked between rows only, so a returned row is
// always complete. Quoted fields may span delimiters and newlines; a
// doubled quote inside a quoted field is a literal quote; an
// unterminated quote at end of input flushes what was accumulated.
// Blank lines are skipped, not returned as single-empty-field rows; a
// line of `""` still counts as a row with one quoted empty field.
func (r *Reader) Next(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.done {
		return nil, io.EOF
	}
	if r.rows >= r.maxRows {
		return nil, ErrTooManyRows
	}

	var (
		fields   []string
		field    strings.Builder
		inQuotes bool
		sawAny   bool
		quoted   bool
	)

	flush := func() []string {
		fields = append(fields, field.String())
		field.Reset()
		return fields
	}
	blank := func() bool {
		return len(fields) == 0 && field.Len() == 0 && !quoted
	}

	for {
		c, _, err := r.br.ReadRune()
		if err == io.EOF {
			r.done = true
			if !sawAny || blank() {
				return nil, io.EOF
			}
			r.rows++
			return flush(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading row %d: %w", r.rows+1, err)
		}
		sawAny = true

		if inQuotes {
			if c == '"' {
				next, _, err := r.br.ReadRune()
				if err == nil && next == '"' {
					field.WriteRune('"')
					continue
				}
				if err == nil {
					r.br.UnreadRune()
				}
				inQuotes = false
				continue
			}
			field.WriteRune(c)
			continue
		}

		switch c {
		case '"':
			if field.Len() == 0 {
				inQuotes = true
				quoted = true
			} else {
				// Stray quote mid-field is kept literally.
				field.WriteRune('"')
			}
		case r.delim:
			fields = append(fields, field.String())
			field.Reset()
		case '\n':
			if blank() {
				sawAny = false
				continue
			}
			r.rows++
			return flush(), nil
		case '\r':
			next, _, err := r.br.ReadRune()
			if err == nil && next != '\n' {
				r.br.UnreadRune()
			}
			if blank() {
				sawAny = false
				continue
			}
			r.rows++
			return flush(), nil
		default:
			field.WriteRune(c)
		}
	}
}

// ReadAll drains the reader, mostly useful in tests and for header
// inspection of small files.
func (r *Reader) ReadAll(ctx context.Context) ([][]string, error) {
	var rows [][]string
	for {
		row, err := r.Next(ctx)
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

// DetectDelimiter picks the most frequent of comma, semicolon, tab,
// and pipe in the first line, defaulting to comma.
func DetectDelimiter(line string) rune {
	candidates := []rune{',', ';', '\t', '|'}
	best := ','
	bestCount := 0
	for _, c := range candidates {
		if n := strings.Count(line, string(c)); n > bestCount {
			best = c
			bestCount = n
		}
	}
	return best
}

// firstLine returns s up to the first line break.
func firstLine(s string) string {
	if i := strings.IndexAny(s, "\r\n"); i >= 0 {
		return s[:i]
	}
	return s
}
