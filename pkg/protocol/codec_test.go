package protocol

import (
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEncoderDecoder(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(300)
	e.WriteSvarint(-42)
	e.WriteString("héllo")
	e.WriteBool(true)
	e.WriteUint16(0xBEEF)
	e.WriteUint64(1 << 40)
	e.WriteLenBytes([]byte{0xDE, 0xAD})
	e.WritePath([]int{0, 3, 200})

	d := NewDecoder(e.Bytes())
	if v, err := d.ReadUvarint(); err != nil || v != 300 {
		t.Errorf("ReadUvarint() = %d, %v", v, err)
	}
	if v, err := d.ReadSvarint(); err != nil || v != -42 {
		t.Errorf("ReadSvarint() = %d, %v", v, err)
	}
	if v, err := d.ReadString(); err != nil || v != "héllo" {
		t.Errorf("ReadString() = %q, %v", v, err)
	}
	if v, err := d.ReadBool(); err != nil || !v {
		t.Errorf("ReadBool() = %v, %v", v, err)
	}
	if v, err := d.ReadUint16(); err != nil || v != 0xBEEF {
		t.Errorf("ReadUint16() = %x, %v", v, err)
	}
	if v, err := d.ReadUint64(); err != nil || v != 1<<40 {
		t.Errorf("ReadUint64() = %d, %v", v, err)
	}
	if v, err := d.ReadLenBytes(); err != nil || len(v) != 2 || v[0] != 0xDE {
		t.Errorf("ReadLenBytes() = %v, %v", v, err)
	}
	path, err := d.ReadPath()
	if err != nil {
		t.Fatalf("ReadPath() error = %v", err)
	}
	if diff := cmp.Diff([]int{0, 3, 200}, path); diff != "" {
		t.Errorf("ReadPath() (-want +got):\n%s", diff)
	}
	if !d.EOF() {
		t.Errorf("Remaining() = %d, want 0", d.Remaining())
	}
}

func TestFieldLimits(t *testing.T) {
	e := NewEncoder()
	e.WriteUvarint(MaxFieldSize + 1)
	e.WriteBytes(make([]byte, MaxFieldSize+1))
	if _, err := NewDecoder(e.Bytes()).ReadString(); !errors.Is(err, ErrAllocationTooLarge) {
		t.Errorf("ReadString() error = %v, want ErrAllocationTooLarge", err)
	}

	var empty Decoder
	if _, err := empty.ReadUvarint(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadUvarint() on empty input error = %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := NewDecoder([]byte{0x80}).ReadSvarint(); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Errorf("ReadSvarint() on truncated input error = %v, want io.ErrUnexpectedEOF", err)
	}
}

func TestDecoderErrors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		read func(d *Decoder) error
		want error
	}{
		{
			name: "varint_overflow",
			data: []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x01},
			read: func(d *Decoder) error { _, err := d.ReadUvarint(); return err },
			want: ErrVarintOverflow,
		},
		{
			name: "string_truncated",
			data: []byte{0x05, 'a'},
			read: func(d *Decoder) error { _, err := d.ReadString(); return err },
			want: io.ErrUnexpectedEOF,
		},
		{
			name: "path_too_deep",
			data: func() []byte { e := NewEncoder(); e.WriteUvarint(MaxPathDepth + 1); return e.Bytes() }(),
			read: func(d *Decoder) error { _, err := d.ReadPath(); return err },
			want: ErrPathTooDeep,
		},
		{
			name: "path_index_overflow",
			data: func() []byte { e := NewEncoder(); e.WriteUvarint(1); e.WriteUvarint(1 << 40); return e.Bytes() }(),
			read: func(d *Decoder) error { _, err := d.ReadPath(); return err },
			want: ErrIndexOverflow,
		},
		{
			name: "collection_too_large",
			data: func() []byte { e := NewEncoder(); e.WriteUvarint(MaxCollectionCount + 1); return e.Bytes() }(),
			read: func(d *Decoder) error { _, err := d.ReadCollectionCount(); return err },
			want: ErrCollectionTooLarge,
		},
		{
			name: "uint16_short",
			data: []byte{0x01},
			read: func(d *Decoder) error { _, err := d.ReadUint16(); return err },
			want: io.ErrUnexpectedEOF,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.read(NewDecoder(tc.data)); !errors.Is(err, tc.want) {
				t.Errorf("error = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestEmptyPath(t *testing.T) {
	e := NewEncoder()
	e.WritePath(nil)
	if got := e.Bytes(); len(got) != 1 || got[0] != 0x00 {
		t.Fatalf("WritePath(nil) = %v", got)
	}
	path, err := NewDecoder(e.Bytes()).ReadPath()
	if err != nil || len(path) != 0 {
		t.Errorf("ReadPath() = %v, %v", path, err)
	}
}
