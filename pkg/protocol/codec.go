package protocol

import (
	"encoding/binary"
	"errors"
	"io"
	"math"
)

// Decoding limits. A frame payload is already capped at MaxPayloadSize;
// journal batches reuse the codec and are bounded by these.
const (
	// MaxFieldSize bounds a single length-prefixed string or byte field.
	MaxFieldSize = 4 << 20

	// MaxCollectionCount bounds the element count of a repeated field.
	MaxCollectionCount = 100_000

	// MaxPathDepth bounds the length of a component path.
	MaxPathDepth = 256
)

// Decoding errors.
var (
	ErrVarintOverflow     = errors.New("protocol: varint overflow")
	ErrAllocationTooLarge = errors.New("protocol: field exceeds size limit")
	ErrCollectionTooLarge = errors.New("protocol: collection count exceeds limit")
	ErrPathTooDeep        = errors.New("protocol: component path too deep")
	ErrIndexOverflow      = errors.New("protocol: path index overflow")
)

// Encoder appends the wire forms used by render, event and error frames.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty encoder.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Bytes returns the encoded bytes. They alias the encoder's buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// WriteByte appends b. Unlike io.ByteWriter it cannot fail.
func (e *Encoder) WriteByte(b byte) { e.buf = append(e.buf, b) }

// WriteBytes appends b without a length prefix.
func (e *Encoder) WriteBytes(b []byte) { e.buf = append(e.buf, b...) }

// WriteUvarint appends v as a base-128 varint.
func (e *Encoder) WriteUvarint(v uint64) { e.buf = binary.AppendUvarint(e.buf, v) }

// WriteSvarint appends v zigzag encoded.
func (e *Encoder) WriteSvarint(v int64) { e.buf = binary.AppendVarint(e.buf, v) }

// WriteString appends a length-prefixed string.
func (e *Encoder) WriteString(s string) {
	e.WriteUvarint(uint64(len(s)))
	e.buf = append(e.buf, s...)
}

// WriteLenBytes appends a length-prefixed byte field.
func (e *Encoder) WriteLenBytes(b []byte) {
	e.WriteUvarint(uint64(len(b)))
	e.buf = append(e.buf, b...)
}

// WriteBool appends 0x01 or 0x00.
func (e *Encoder) WriteBool(b bool) {
	var v byte
	if b {
		v = 1
	}
	e.buf = append(e.buf, v)
}

// WriteUint16 appends v big-endian. Error codes use it.
func (e *Encoder) WriteUint16(v uint16) { e.buf = binary.BigEndian.AppendUint16(e.buf, v) }

// WriteUint64 appends v big-endian. Control timestamps use it.
func (e *Encoder) WriteUint64(v uint64) { e.buf = binary.BigEndian.AppendUint64(e.buf, v) }

// WritePath appends a component path: a count, then one varint per index.
// The root is the single byte 0x00.
func (e *Encoder) WritePath(path []int) {
	e.WriteUvarint(uint64(len(path)))
	for _, i := range path {
		e.WriteUvarint(uint64(i))
	}
}

// Decoder reads what Encoder writes. Every read either consumes a whole
// value or fails without a partial result.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder returns a decoder over data.
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// Remaining returns the number of unread bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// EOF reports whether everything was read.
func (d *Decoder) EOF() bool { return d.pos >= len(d.buf) }

func (d *Decoder) next(n int) ([]byte, error) {
	if n > d.Remaining() {
		return nil, io.ErrUnexpectedEOF
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// ReadByte reads one byte.
func (d *Decoder) ReadByte() (byte, error) {
	b, err := d.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadUvarint reads a base-128 varint.
func (d *Decoder) ReadUvarint() (uint64, error) {
	v, n := binary.Uvarint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// ReadSvarint reads a zigzag varint.
func (d *Decoder) ReadSvarint() (int64, error) {
	v, n := binary.Varint(d.buf[d.pos:])
	switch {
	case n == 0:
		return 0, io.ErrUnexpectedEOF
	case n < 0:
		return 0, ErrVarintOverflow
	}
	d.pos += n
	return v, nil
}

// readLen reads a length prefix and checks it against the buffer and
// MaxFieldSize.
func (d *Decoder) readLen() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	if n > MaxFieldSize {
		return 0, ErrAllocationTooLarge
	}
	return int(n), nil
}

// ReadString reads a length-prefixed string.
func (d *Decoder) ReadString() (string, error) {
	n, err := d.readLen()
	if err != nil {
		return "", err
	}
	b, _ := d.next(n)
	return string(b), nil
}

// ReadLenBytes reads a length-prefixed byte field. The result is a copy.
func (d *Decoder) ReadLenBytes() ([]byte, error) {
	n, err := d.readLen()
	if err != nil {
		return nil, err
	}
	b, _ := d.next(n)
	return append([]byte(nil), b...), nil
}

// ReadBool reads a byte; anything but 0x00 is true.
func (d *Decoder) ReadBool() (bool, error) {
	b, err := d.ReadByte()
	return b != 0, err
}

// ReadUint16 reads a big-endian uint16.
func (d *Decoder) ReadUint16() (uint16, error) {
	b, err := d.next(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadUint64 reads a big-endian uint64.
func (d *Decoder) ReadUint64() (uint64, error) {
	b, err := d.next(8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

// ReadCollectionCount reads an element count. Each element takes at
// least one byte, so a count past the remaining input is truncation.
func (d *Decoder) ReadCollectionCount() (int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return 0, err
	}
	if n > MaxCollectionCount {
		return 0, ErrCollectionTooLarge
	}
	if n > uint64(d.Remaining()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}

// ReadPath reads a path written by WritePath. The root reads as nil.
func (d *Decoder) ReadPath() ([]int, error) {
	n, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > MaxPathDepth {
		return nil, ErrPathTooDeep
	}
	if n > uint64(d.Remaining()) {
		return nil, io.ErrUnexpectedEOF
	}
	if n == 0 {
		return nil, nil
	}
	path := make([]int, n)
	for i := range path {
		v, err := d.ReadUvarint()
		if err != nil {
			return nil, err
		}
		if v > math.MaxInt32 {
			return nil, ErrIndexOverflow
		}
		path[i] = int(v)
	}
	return path, nil
}
