package dom

import "strings"

// EventType identifies the kind of DOM event the client reported.
type EventType uint8

// Event type constants. Values match the wire encoding.
const (
	// Mouse events (0x01-0x07)
	EventClick      EventType = 0x01
	EventDblClick   EventType = 0x02
	EventMouseDown  EventType = 0x03
	EventMouseUp    EventType = 0x04
	EventMouseMove  EventType = 0x05
	EventMouseEnter EventType = 0x06
	EventMouseLeave EventType = 0x07

	// Form events (0x10-0x14)
	EventInput  EventType = 0x10
	EventChange EventType = 0x11
	EventSubmit EventType = 0x12
	EventFocus  EventType = 0x13
	EventBlur   EventType = 0x14

	// Keyboard events (0x20-0x21)
	EventKeyDown EventType = 0x20
	EventKeyUp   EventType = 0x21

	// Scroll/Resize events (0x30-0x31)
	EventScroll EventType = 0x30
	EventResize EventType = 0x31

	// Special events
	EventCustom EventType = 0xFF
)

var eventNames = map[EventType]string{
	EventClick:      "Click",
	EventDblClick:   "DblClick",
	EventMouseDown:  "MouseDown",
	EventMouseUp:    "MouseUp",
	EventMouseMove:  "MouseMove",
	EventMouseEnter: "MouseEnter",
	EventMouseLeave: "MouseLeave",
	EventInput:      "Input",
	EventChange:     "Change",
	EventSubmit:     "Submit",
	EventFocus:      "Focus",
	EventBlur:       "Blur",
	EventKeyDown:    "KeyDown",
	EventKeyUp:      "KeyUp",
	EventScroll:     "Scroll",
	EventResize:     "Resize",
	EventCustom:     "Custom",
}

// String returns the string representation of the event type.
func (et EventType) String() string {
	if name, ok := eventNames[et]; ok {
		return name
	}
	return "Unknown"
}

// Valid reports whether et is one of the known event kinds.
func (et EventType) Valid() bool {
	_, ok := eventNames[et]
	return ok
}

// ParseEventType looks up an event type by name, ignoring case.
// Both "click" and "onclick" are accepted.
func ParseEventType(s string) (EventType, bool) {
	s = strings.TrimPrefix(strings.ToLower(s), "on")
	for et, name := range eventNames {
		if strings.ToLower(name) == s {
			return et, true
		}
	}
	return 0, false
}

// Event is the native payload that accompanies an event. Its dynamic type
// depends on the EventType: *MouseEvent for mouse events, *KeyboardEvent
// for key events, *InputEvent for input and change, *SubmitEvent for
// submit, *ScrollEvent, *ResizeEvent, *CustomEvent, or nil for events
// that carry no data (focus, blur).
type Event any

// Modifiers represents keyboard/mouse modifier keys.
type Modifiers uint8

const (
	ModCtrl  Modifiers = 0x01
	ModShift Modifiers = 0x02
	ModAlt   Modifiers = 0x04
	ModMeta  Modifiers = 0x08
)

// Has returns true if the specified modifier is set.
func (m Modifiers) Has(mod Modifiers) bool {
	return m&mod != 0
}

// MouseEvent contains mouse event data.
type MouseEvent struct {
	ClientX   int
	ClientY   int
	Button    uint8
	Modifiers Modifiers
}

// KeyboardEvent contains keyboard event data.
type KeyboardEvent struct {
	Key       string
	Code      string // Physical key code (e.g., "KeyA", "Enter")
	Modifiers Modifiers
	Repeat    bool
}

// InputEvent contains the current value of an input or change event.
type InputEvent struct {
	Value string
}

// SubmitEvent contains form submission data.
type SubmitEvent struct {
	Fields map[string]string
}

// ScrollEvent contains scroll event data.
type ScrollEvent struct {
	ScrollTop  int
	ScrollLeft int
}

// ResizeEvent contains resize event data.
type ResizeEvent struct {
	Width  int
	Height int
}

// CustomEvent carries an application-defined event.
type CustomEvent struct {
	Name string
	Data []byte
}
