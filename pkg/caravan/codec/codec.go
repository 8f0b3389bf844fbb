// Package codec implements the binary primitives shared by the profile
// record formats: 7-bit variable-length integers, length-prefixed UTF-8
// strings, and little-endian fixed-width integers.
package codec

import (
	"encoding/binary"
	"fmt"
	"unicode/utf8"
)

// maxVarintBytes is the longest accepted encoding of a 32-bit value:
// five groups of seven bits.
const maxVarintBytes = 5

// FormatError reports malformed binary input. It carries the byte offset
// at which decoding failed so callers can report a useful position.
type FormatError struct {
	Offset int
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed record at byte %d: %s", e.Offset, e.Reason)
}

// Reader is a cursor over an in-memory byte slice. All Read methods
// advance the cursor and return a *FormatError on truncated or invalid
// input.
type Reader struct {
	buf []byte
	pos int
}

// NewReader returns a Reader positioned at the start of buf.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Offset returns the current cursor position.
func (r *Reader) Offset() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) errorf(format string, args ...interface{}) error {
	return &FormatError{Offset: r.pos, Reason: fmt.Sprintf(format, args...)}
}

// ReadByte consumes a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, r.errorf("unexpected end of data")
	}
	b := r.buf[r.pos]
	r.pos++
	return b, nil
}

// ReadInt32 consumes a little-endian signed 32-bit integer.
func (r *Reader) ReadInt32() (int32, error) {
	if r.Remaining() < 4 {
		return 0, r.errorf("unexpected end of data reading int32")
	}
	v := int32(binary.LittleEndian.Uint32(r.buf[r.pos:]))
	r.pos += 4
	return v, nil
}

// ReadUvarint consumes a variable-length unsigned integer. Each byte
// carries seven data bits in its low bits; a set high bit means another
// byte follows. Encodings longer than five bytes are rejected.
func (r *Reader) ReadUvarint() (uint32, error) {
	var v uint32
	for i := 0; i < maxVarintBytes; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		v |= uint32(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v, nil
		}
	}
	return 0, r.errorf("varint exceeds %d bytes", maxVarintBytes)
}

// ReadString consumes a uvarint byte length followed by that many bytes
// of UTF-8 text.
func (r *Reader) ReadString() (string, error) {
	n, err := r.ReadUvarint()
	if err != nil {
		return "", err
	}
	if uint64(r.Remaining()) < uint64(n) {
		return "", r.errorf("string length %d exceeds remaining %d bytes", n, r.Remaining())
	}
	start := r.pos
	raw := r.buf[start : start+int(n)]
	r.pos += int(n)
	if !utf8.Valid(raw) {
		return "", &FormatError{Offset: start, Reason: "string is not valid UTF-8"}
	}
	return string(raw), nil
}

// AppendUvarint appends the minimal 7-bit group encoding of v to dst.
func AppendUvarint(dst []byte, v uint32) []byte {
	for v >= 0x80 {
		dst = append(dst, byte(v)|0x80)
		v >>= 7
	}
	return append(dst, byte(v))
}

// AppendString appends a uvarint length prefix followed by the raw bytes
// of s to dst.
func AppendString(dst []byte, s string) []byte {
	dst = AppendUvarint(dst, uint32(len(s)))
	return append(dst, s...)
}

// AppendInt32 appends v in little-endian byte order to dst.
func AppendInt32(dst []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(dst, uint32(v))
}
