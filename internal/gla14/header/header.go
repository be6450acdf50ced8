// Package header parses the text preamble at the start of a GLA14 file.
//
// The preamble occupies numhead records of recl bytes. Its first two lines
// declare those values:
//
//	recl = 10000;
//	numhead = 2;
//
// and are followed by further "key = value;" lines describing the granule.
package header

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/banshee-data/gla14/internal/gla14"
)

const (
	KEY_RECORD_LENGTH  = "recl"
	KEY_HEADER_RECORDS = "numhead"

	MAX_LINE_LENGTH = 4096 // longest preamble line accepted
)

var errLongLine = fmt.Errorf("line longer than %d bytes", MAX_LINE_LENGTH)

// Header is the parsed preamble.
type Header struct {
	RecordLength  int
	HeaderRecords int
	Fields        map[string]string // every key = value; pair, in lower case keys
}

// HeaderLength returns the size of the preamble in bytes.
func (h Header) HeaderLength() int64 {
	return int64(h.HeaderRecords) * int64(h.RecordLength)
}

// Parse reads the preamble from r. It stops at the first line without '=',
// at a non-printable byte, at an overlong line of padding, or after the
// preamble's declared length.
func Parse(r io.Reader) (Header, error) {
	h := Header{Fields: make(map[string]string)}
	br := bufio.NewReaderSize(r, MAX_LINE_LENGTH)

	var consumed int64
	for n := 0; ; n++ {
		line, err := readLine(br)
		if err != nil && err != io.EOF {
			if n >= 2 && err == errLongLine {
				break
			}
			return Header{}, fmt.Errorf("%w: line %d: %v", gla14.ErrBadHeader, n+1, err)
		}
		if line == "" && err == io.EOF {
			break
		}
		consumed += int64(len(line)) + 1

		key, value, ok := splitPair(line)
		if !ok {
			if n < 2 {
				return Header{}, fmt.Errorf("%w: line %d %q is not key = value", gla14.ErrBadHeader, n+1, line)
			}
			break
		}
		if err := h.set(n, key, value); err != nil {
			return Header{}, err
		}
		if err == io.EOF || (n >= 1 && consumed >= h.HeaderLength()) {
			break
		}
	}
	if h.RecordLength == 0 || h.HeaderRecords == 0 {
		return Header{}, fmt.Errorf("%w: preamble must declare %s and %s", gla14.ErrBadHeader, KEY_RECORD_LENGTH, KEY_HEADER_RECORDS)
	}
	return h, nil
}

func (h *Header) set(n int, key, value string) error {
	h.Fields[key] = value
	want := ""
	switch n {
	case 0:
		want = KEY_RECORD_LENGTH
	case 1:
		want = KEY_HEADER_RECORDS
	default:
		return nil
	}
	if key != want {
		return fmt.Errorf("%w: line %d declares %q, want %q", gla14.ErrBadHeader, n+1, key, want)
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%w: %s = %q: %v", gla14.ErrBadHeader, key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%w: %s = %d must be positive", gla14.ErrBadHeader, key, v)
	}
	if n == 0 {
		h.RecordLength = v
	} else {
		h.HeaderRecords = v
	}
	return nil
}

// readLine returns the next line without its terminator. Bytes after the
// first non-printable character are dropped and io.EOF is returned with the
// printable prefix.
func readLine(br *bufio.Reader) (string, error) {
	raw, err := br.ReadSlice('\n')
	if err == bufio.ErrBufferFull {
		return "", errLongLine
	}
	line := strings.TrimRight(string(raw), "\r\n")
	for i := 0; i < len(line); i++ {
		c := line[i]
		if c < 0x20 && c != '\t' || c > 0x7e {
			return line[:i], io.EOF
		}
	}
	return line, err
}

func splitPair(line string) (key, value string, ok bool) {
	k, v, found := strings.Cut(line, "=")
	if !found {
		return "", "", false
	}
	key = strings.ToLower(strings.TrimSpace(k))
	value = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v), ";"))
	return key, value, key != ""
}

// ReadFile parses the preamble of the file at path.
func ReadFile(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, err
	}
	defer f.Close()
	h, err := Parse(f)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
