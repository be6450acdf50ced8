package gla14

import (
	"errors"
	"fmt"
)

// ErrStructural is matched (via errors.Is) by every error that makes a file
// unreadable: malformed or truncated records and bad headers. Quality
// rejections are never errors.
var ErrStructural = errors.New("gla14: structural error")

// ErrBadHeader reports an unparseable text preamble.
var ErrBadHeader = fmt.Errorf("%w: bad header", ErrStructural)

// MalformedRecordError reports a record buffer shorter than the declared
// record length.
type MalformedRecordError struct {
	Ordinal int64 // record position in the file
	Want    int   // declared record length
	Got     int   // bytes available
}

func (e *MalformedRecordError) Error() string {
	return fmt.Sprintf("gla14: malformed record %d: need %d bytes, have %d", e.Ordinal, e.Want, e.Got)
}

// Is makes MalformedRecordError match ErrStructural.
func (e *MalformedRecordError) Is(target error) bool { return target == ErrStructural }

// TruncatedFileError reports a partial record at the end of a file.
type TruncatedFileError struct {
	Offset       int64 // file offset where the partial record starts
	Remaining    int64 // bytes left in the file
	RecordLength int
}

func (e *TruncatedFileError) Error() string {
	return fmt.Sprintf("gla14: truncated file: %d trailing bytes at offset %d, record length %d",
		e.Remaining, e.Offset, e.RecordLength)
}

// Is makes TruncatedFileError match ErrStructural.
func (e *TruncatedFileError) Is(target error) bool { return target == ErrStructural }
