package nested

// State is the phase a controller is in.
type State uint8

const (
	StateIdle State = iota
	StateDispatching
	StateRendering
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDispatching:
		return "Dispatching"
	case StateRendering:
		return "Rendering"
	default:
		return "Unknown"
	}
}
