package protocol

import (
	"errors"
	"fmt"
	"math"

	"github.com/vango-dev/kinesis/pkg/component"
)

// Scope tags on the wire.
const (
	scopeRoot    byte = 0x00
	scopePartial byte = 0x01
)

// ErrInvalidScope is returned for an unknown scope tag.
var ErrInvalidScope = errors.New("protocol: invalid render scope")

// RenderFrame carries the output of one committed render.
// When Present is false the node rendered nothing and the client removes
// the addressed markup.
type RenderFrame struct {
	Seq     uint64
	Node    component.Identifier
	Scope   component.RenderType
	Present bool
	HTML    string
}

// Target returns the identifier of the markup the frame replaces.
func (rf *RenderFrame) Target() component.Identifier {
	if i, ok := rf.Scope.Index(); ok {
		return rf.Node.Child(i)
	}
	return rf.Node
}

// EncodeRender encodes a render frame payload.
func EncodeRender(rf *RenderFrame) []byte {
	e := NewEncoder()
	EncodeRenderTo(e, rf)
	return e.Bytes()
}

// EncodeRenderTo encodes a render frame using the provided encoder.
func EncodeRenderTo(e *Encoder, rf *RenderFrame) {
	e.WriteUvarint(rf.Seq)
	e.WritePath(rf.Node.Path())
	EncodeScope(e, rf.Scope)
	e.WriteBool(rf.Present)
	e.WriteString(rf.HTML)
}

// DecodeRender decodes a render frame payload.
func DecodeRender(data []byte) (*RenderFrame, error) {
	d := NewDecoder(data)
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	path, err := d.ReadPath()
	if err != nil {
		return nil, err
	}
	scope, err := DecodeScope(d)
	if err != nil {
		return nil, err
	}
	present, err := d.ReadBool()
	if err != nil {
		return nil, err
	}
	html, err := d.ReadString()
	if err != nil {
		return nil, err
	}
	return &RenderFrame{
		Seq:     seq,
		Node:    component.NewIdentifier(path...),
		Scope:   scope,
		Present: present,
		HTML:    html,
	}, nil
}

// EncodeScope writes a render scope.
func EncodeScope(e *Encoder, rt component.RenderType) {
	if i, ok := rt.Index(); ok {
		e.WriteByte(scopePartial)
		e.WriteUvarint(uint64(i))
		return
	}
	e.WriteByte(scopeRoot)
}

// DecodeScope reads a render scope.
func DecodeScope(d *Decoder) (component.RenderType, error) {
	tag, err := d.ReadByte()
	if err != nil {
		return component.RenderType{}, err
	}
	switch tag {
	case scopeRoot:
		return component.RenderRoot(), nil
	case scopePartial:
		i, err := d.ReadUvarint()
		if err != nil {
			return component.RenderType{}, err
		}
		if i > math.MaxInt32 {
			return component.RenderType{}, ErrIndexOverflow
		}
		return component.RenderPartial(int(i)), nil
	default:
		return component.RenderType{}, fmt.Errorf("%w: 0x%02x", ErrInvalidScope, tag)
	}
}
