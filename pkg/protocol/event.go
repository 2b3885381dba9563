package protocol

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// Event errors.
var (
	ErrUnknownEventType = errors.New("protocol: unknown event type")
	ErrPayloadMismatch  = errors.New("protocol: payload does not match event type")
)

// Event is a client event addressed to a component.
type Event struct {
	Seq     uint64
	Type    dom.EventType
	Target  component.Identifier
	Payload dom.Event
}

// EncodeEvent encodes an event payload for a FrameEvent.
func EncodeEvent(ev *Event) ([]byte, error) {
	e := NewEncoder()
	if err := EncodeEventTo(e, ev); err != nil {
		return nil, err
	}
	return e.Bytes(), nil
}

// EncodeEventTo encodes an event using the provided encoder.
func EncodeEventTo(e *Encoder, ev *Event) error {
	e.WriteUvarint(ev.Seq)
	e.WriteByte(byte(ev.Type))
	e.WritePath(ev.Target.Path())
	return EncodeEventPayload(e, ev.Type, ev.Payload)
}

// DecodeEvent decodes a FrameEvent payload.
func DecodeEvent(data []byte) (*Event, error) {
	return DecodeEventFrom(NewDecoder(data))
}

// DecodeEventFrom decodes an event from the provided decoder.
func DecodeEventFrom(d *Decoder) (*Event, error) {
	seq, err := d.ReadUvarint()
	if err != nil {
		return nil, err
	}
	b, err := d.ReadByte()
	if err != nil {
		return nil, err
	}
	et := dom.EventType(b)
	if !et.Valid() {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEventType, b)
	}
	path, err := d.ReadPath()
	if err != nil {
		return nil, err
	}
	payload, err := DecodeEventPayload(d, et)
	if err != nil {
		return nil, err
	}
	return &Event{
		Seq:     seq,
		Type:    et,
		Target:  component.NewIdentifier(path...),
		Payload: payload,
	}, nil
}

func isMouse(et dom.EventType) bool {
	switch et {
	case dom.EventClick, dom.EventDblClick, dom.EventMouseDown, dom.EventMouseUp,
		dom.EventMouseMove, dom.EventMouseEnter, dom.EventMouseLeave:
		return true
	}
	return false
}

// EncodeEventPayload writes the type-specific payload of an event.
// A nil payload encodes as the zero value of the type's payload, so it
// decodes to that zero value rather than nil. Focus and blur carry nothing.
func EncodeEventPayload(e *Encoder, et dom.EventType, payload dom.Event) error {
	switch {
	case isMouse(et):
		var m dom.MouseEvent
		if payload != nil {
			v, ok := payload.(dom.MouseEvent)
			if !ok {
				return mismatch(et, payload)
			}
			m = v
		}
		e.WriteSvarint(int64(m.ClientX))
		e.WriteSvarint(int64(m.ClientY))
		e.WriteByte(m.Button)
		e.WriteByte(byte(m.Modifiers))

	case et == dom.EventKeyDown || et == dom.EventKeyUp:
		var k dom.KeyboardEvent
		if payload != nil {
			v, ok := payload.(dom.KeyboardEvent)
			if !ok {
				return mismatch(et, payload)
			}
			k = v
		}
		e.WriteString(k.Key)
		e.WriteString(k.Code)
		e.WriteByte(byte(k.Modifiers))
		e.WriteBool(k.Repeat)

	case et == dom.EventInput || et == dom.EventChange:
		var in dom.InputEvent
		if payload != nil {
			v, ok := payload.(dom.InputEvent)
			if !ok {
				return mismatch(et, payload)
			}
			in = v
		}
		e.WriteString(in.Value)

	case et == dom.EventSubmit:
		var s dom.SubmitEvent
		if payload != nil {
			v, ok := payload.(dom.SubmitEvent)
			if !ok {
				return mismatch(et, payload)
			}
			s = v
		}
		e.WriteUvarint(uint64(len(s.Fields)))
		keys := make([]string, 0, len(s.Fields))
		for k := range s.Fields {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			e.WriteString(k)
			e.WriteString(s.Fields[k])
		}

	case et == dom.EventScroll:
		var s dom.ScrollEvent
		if payload != nil {
			v, ok := payload.(dom.ScrollEvent)
			if !ok {
				return mismatch(et, payload)
			}
			s = v
		}
		e.WriteSvarint(int64(s.ScrollTop))
		e.WriteSvarint(int64(s.ScrollLeft))

	case et == dom.EventResize:
		var r dom.ResizeEvent
		if payload != nil {
			v, ok := payload.(dom.ResizeEvent)
			if !ok {
				return mismatch(et, payload)
			}
			r = v
		}
		e.WriteSvarint(int64(r.Width))
		e.WriteSvarint(int64(r.Height))

	case et == dom.EventCustom:
		var c dom.CustomEvent
		if payload != nil {
			v, ok := payload.(dom.CustomEvent)
			if !ok {
				return mismatch(et, payload)
			}
			c = v
		}
		e.WriteString(c.Name)
		e.WriteLenBytes(c.Data)

	case et == dom.EventFocus || et == dom.EventBlur:
		if payload != nil {
			return mismatch(et, payload)
		}

	default:
		return fmt.Errorf("%w: 0x%02x", ErrUnknownEventType, byte(et))
	}
	return nil
}

// DecodeEventPayload reads the type-specific payload of an event.
func DecodeEventPayload(d *Decoder, et dom.EventType) (dom.Event, error) {
	switch {
	case isMouse(et):
		x, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		y, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		button, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		mods, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		return dom.MouseEvent{ClientX: int(x), ClientY: int(y), Button: button, Modifiers: dom.Modifiers(mods)}, nil

	case et == dom.EventKeyDown || et == dom.EventKeyUp:
		key, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		code, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		mods, err := d.ReadByte()
		if err != nil {
			return nil, err
		}
		repeat, err := d.ReadBool()
		if err != nil {
			return nil, err
		}
		return dom.KeyboardEvent{Key: key, Code: code, Modifiers: dom.Modifiers(mods), Repeat: repeat}, nil

	case et == dom.EventInput || et == dom.EventChange:
		v, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		return dom.InputEvent{Value: v}, nil

	case et == dom.EventSubmit:
		count, err := d.ReadCollectionCount()
		if err != nil {
			return nil, err
		}
		fields := make(map[string]string, count)
		for i := 0; i < count; i++ {
			k, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			v, err := d.ReadString()
			if err != nil {
				return nil, err
			}
			fields[k] = v
		}
		return dom.SubmitEvent{Fields: fields}, nil

	case et == dom.EventScroll:
		top, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		left, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		return dom.ScrollEvent{ScrollTop: int(top), ScrollLeft: int(left)}, nil

	case et == dom.EventResize:
		w, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		h, err := d.ReadSvarint()
		if err != nil {
			return nil, err
		}
		return dom.ResizeEvent{Width: int(w), Height: int(h)}, nil

	case et == dom.EventCustom:
		name, err := d.ReadString()
		if err != nil {
			return nil, err
		}
		data, err := d.ReadLenBytes()
		if err != nil {
			return nil, err
		}
		return dom.CustomEvent{Name: name, Data: data}, nil

	case et == dom.EventFocus || et == dom.EventBlur:
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownEventType, byte(et))
	}
}

func mismatch(et dom.EventType, payload dom.Event) error {
	return fmt.Errorf("%w: %s carries %T", ErrPayloadMismatch, et, payload)
}
