package core

// streaming.go provides the reader plumbing shared by every filter stream.
//
// StatsCan publishes UTF-8 CSVs that sometimes start with a byte order mark.
// The header row must be read without it, otherwise the first column name
// ("REF_DATE") would not match exactly.

import (
	"bufio"
	"bytes"
	"io"
)

// utf8BOM is the UTF-8 byte order mark (0xEF 0xBB 0xBF).
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// SkipBOM returns a reader that yields r's content without a leading UTF-8 BOM.
// Content that does not start with a complete BOM is passed through unchanged.
func SkipBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(utf8BOM))
	if err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}
	return br
}

// countingReader tracks bytes read for stream statistics.
type countingReader struct {
	reader io.Reader
	n      int64
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	r.n += int64(n)
	return n, err
}
