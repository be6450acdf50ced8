package extract

import (
	"fmt"

	"github.com/banshee-data/gla14/internal/gla14/codec"
)

// Cursor reads big-endian elements from one physical record. It carries the
// record's ordinal and the byte offset within the record, so every read can
// be reported against the layout table.
type Cursor struct {
	record  []byte
	ordinal int64
	pos     int
}

// NewCursor returns a cursor at the start of record.
func NewCursor(record []byte, ordinal int64) *Cursor {
	return &Cursor{record: record, ordinal: ordinal}
}

// Ordinal returns the record's position in the file.
func (c *Cursor) Ordinal() int64 { return c.ordinal }

// Pos returns the byte offset within the record.
func (c *Cursor) Pos() int { return c.pos }

// Seek moves to offset bytes from the record start.
func (c *Cursor) Seek(offset int) error {
	if offset < 0 || offset > len(c.record) {
		return fmt.Errorf("record %d: seek to %d outside record of %d bytes", c.ordinal, offset, len(c.record))
	}
	c.pos = offset
	return nil
}

func (c *Cursor) take(n int) ([]byte, error) {
	if c.pos+n > len(c.record) {
		return nil, fmt.Errorf("record %d: read of %d bytes at %d past end of record (%d bytes)",
			c.ordinal, n, c.pos, len(c.record))
	}
	b := c.record[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Int32 reads a signed 32-bit element.
func (c *Cursor) Int32() (int32, error) {
	b, err := c.take(4)
	if err != nil {
		return 0, err
	}
	return codec.ReadInt32(b), nil
}

// Uint16 reads an unsigned 16-bit element.
func (c *Cursor) Uint16() (uint16, error) {
	b, err := c.take(2)
	if err != nil {
		return 0, err
	}
	return codec.ReadUint16(b), nil
}

// Uint8 reads an unsigned byte.
func (c *Cursor) Uint8() (uint8, error) {
	b, err := c.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// Int32s fills dst with consecutive signed 32-bit elements.
func (c *Cursor) Int32s(dst []int32) error {
	b, err := c.take(4 * len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = codec.ReadInt32(b[4*i:])
	}
	return nil
}

// Uint16s fills dst with consecutive unsigned 16-bit elements.
func (c *Cursor) Uint16s(dst []uint16) error {
	b, err := c.take(2 * len(dst))
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = codec.ReadUint16(b[2*i:])
	}
	return nil
}

// Uint8s fills dst with consecutive bytes.
func (c *Cursor) Uint8s(dst []uint8) error {
	b, err := c.take(len(dst))
	if err != nil {
		return err
	}
	copy(dst, b)
	return nil
}
