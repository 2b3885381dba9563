package protocol

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

func TestEventEncodeDecode(t *testing.T) {
	tests := []struct {
		name  string
		event *Event
	}{
		{
			name: "click",
			event: &Event{
				Seq:     1,
				Type:    dom.EventClick,
				Target:  component.NewIdentifier(0, 1),
				Payload: dom.MouseEvent{ClientX: 10, ClientY: -4, Button: 1, Modifiers: dom.ModShift},
			},
		},
		{
			name: "root_target",
			event: &Event{
				Seq:     2,
				Type:    dom.EventMouseEnter,
				Target:  component.Root(),
				Payload: dom.MouseEvent{},
			},
		},
		{
			name: "input",
			event: &Event{
				Seq:     3,
				Type:    dom.EventInput,
				Target:  component.NewIdentifier(2),
				Payload: dom.InputEvent{Value: "hello world"},
			},
		},
		{
			name: "submit",
			event: &Event{
				Seq:    4,
				Type:   dom.EventSubmit,
				Target: component.NewIdentifier(0),
				Payload: dom.SubmitEvent{Fields: map[string]string{
					"name":  "John",
					"email": "john@example.com",
				}},
			},
		},
		{
			name: "keydown",
			event: &Event{
				Seq:     5,
				Type:    dom.EventKeyDown,
				Target:  component.NewIdentifier(3, 3, 3),
				Payload: dom.KeyboardEvent{Key: "Enter", Code: "Enter", Modifiers: dom.ModCtrl, Repeat: true},
			},
		},
		{
			name: "focus",
			event: &Event{
				Seq:    6,
				Type:   dom.EventFocus,
				Target: component.NewIdentifier(1),
			},
		},
		{
			name: "scroll",
			event: &Event{
				Seq:     7,
				Type:    dom.EventScroll,
				Target:  component.NewIdentifier(1),
				Payload: dom.ScrollEvent{ScrollTop: 500, ScrollLeft: 0},
			},
		},
		{
			name: "resize",
			event: &Event{
				Seq:     8,
				Type:    dom.EventResize,
				Target:  component.Root(),
				Payload: dom.ResizeEvent{Width: 1920, Height: 1080},
			},
		},
		{
			name: "custom",
			event: &Event{
				Seq:     9,
				Type:    dom.EventCustom,
				Target:  component.NewIdentifier(4),
				Payload: dom.CustomEvent{Name: "tick", Data: []byte(`{"n":1}`)},
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := EncodeEvent(tc.event)
			if err != nil {
				t.Fatalf("EncodeEvent() error = %v", err)
			}
			got, err := DecodeEvent(data)
			if err != nil {
				t.Fatalf("DecodeEvent() error = %v", err)
			}
			if got.Seq != tc.event.Seq {
				t.Errorf("Seq = %d, want %d", got.Seq, tc.event.Seq)
			}
			if got.Type != tc.event.Type {
				t.Errorf("Type = %v, want %v", got.Type, tc.event.Type)
			}
			if !got.Target.Equal(tc.event.Target) {
				t.Errorf("Target = %v, want %v", got.Target, tc.event.Target)
			}
			if diff := cmp.Diff(tc.event.Payload, got.Payload); diff != "" {
				t.Errorf("Payload (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEventWireLayout(t *testing.T) {
	data, err := EncodeEvent(&Event{Seq: 7, Type: dom.EventFocus, Target: component.NewIdentifier(0, 1)})
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{0x07, 0x13, 0x02, 0x00, 0x01}
	if diff := cmp.Diff(want, data); diff != "" {
		t.Errorf("layout (-want +got):\n%s", diff)
	}
}

func TestEventNilPayloadDecodesZero(t *testing.T) {
	data, err := EncodeEvent(&Event{Type: dom.EventClick, Target: component.Root()})
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeEvent(data)
	if err != nil {
		t.Fatal(err)
	}
	if got.Payload != (dom.MouseEvent{}) {
		t.Errorf("Payload = %#v, want zero MouseEvent", got.Payload)
	}
}

func TestEventPayloadMismatch(t *testing.T) {
	_, err := EncodeEvent(&Event{Type: dom.EventClick, Payload: dom.InputEvent{Value: "x"}})
	if !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("error = %v, want ErrPayloadMismatch", err)
	}
	_, err = EncodeEvent(&Event{Type: dom.EventBlur, Payload: "x"})
	if !errors.Is(err, ErrPayloadMismatch) {
		t.Errorf("error = %v, want ErrPayloadMismatch", err)
	}
}

func TestDecodeEventUnknownType(t *testing.T) {
	_, err := DecodeEvent([]byte{0x01, 0x99, 0x00})
	if !errors.Is(err, ErrUnknownEventType) {
		t.Errorf("error = %v, want ErrUnknownEventType", err)
	}
}

func TestDecodeEventTruncated(t *testing.T) {
	data, err := EncodeEvent(&Event{
		Seq:     1,
		Type:    dom.EventKeyUp,
		Target:  component.NewIdentifier(0),
		Payload: dom.KeyboardEvent{Key: "a", Code: "KeyA"},
	})
	if err != nil {
		t.Fatal(err)
	}
	for n := 0; n < len(data); n++ {
		if _, err := DecodeEvent(data[:n]); err == nil {
			t.Errorf("DecodeEvent(data[:%d]) succeeded", n)
		}
	}
}
