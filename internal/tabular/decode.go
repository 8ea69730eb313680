package tabular

import (
	"bufio"
	"bytes"
	"io"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// sniffLen is how far into the file the decoder looks when deciding
// between UTF-8 and a Latin-1 fallback.
const sniffLen = 8192

// decodeReader wraps r so the parser always reads UTF-8. BOMs pick
// UTF-16 variants; otherwise the head of the file is sniffed and
// invalid UTF-8 falls back to Latin-1, which maps every byte to a code
// point and therefore cannot fail on real bank exports.
func decodeReader(r io.Reader) (io.Reader, error) {
	// The buffer must hold the whole sniff window or Peek returns
	// ErrBufferFull.
	br := bufio.NewReaderSize(r, sniffLen)

	head, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return nil, err
	}

	var enc encoding.Encoding
	switch {
	case bytes.HasPrefix(head, bomUTF8):
		if _, err := br.Discard(len(bomUTF8)); err != nil {
			return nil, err
		}
		return br, nil
	case bytes.HasPrefix(head, bomUTF16LE):
		enc = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case bytes.HasPrefix(head, bomUTF16BE):
		enc = unicode.UTF16(unicode.BigEndian, unicode.UseBOM)
	case validUTF8Prefix(head):
		return br, nil
	default:
		enc = charmap.ISO8859_1
	}

	return transform.NewReader(br, enc.NewDecoder()), nil
}

// validUTF8Prefix reports whether head is valid UTF-8, allowing one
// multi-byte rune to be truncated by the sniff window.
func validUTF8Prefix(head []byte) bool {
	for len(head) > 0 {
		r, size := utf8.DecodeRune(head)
		if r == utf8.RuneError && size == 1 {
			// A rune split by the window boundary is fine; anything
			// else means the bytes are not UTF-8.
			return len(head) < utf8.UTFMax && !utf8.FullRune(head)
		}
		head = head[size:]
	}
	return true
}
