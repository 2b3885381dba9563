package nested

import (
	"time"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// PassKind distinguishes passes started by an event from those started
// by propagation.
type PassKind uint8

const (
	PassDispatch PassKind = iota
	PassPropagate
)

// String returns "dispatch" or "propagate".
func (k PassKind) String() string {
	if k == PassPropagate {
		return "propagate"
	}
	return "dispatch"
}

// PassInfo describes a completed dispatch or propagation pass.
type PassInfo struct {
	Kind PassKind

	// Target is the identifier the pass was addressed to.
	Target component.Identifier

	// EventType and Event are set for dispatch passes.
	EventType dom.EventType
	Event     dom.Event

	// Changed is the raw changed-index list, and Reported is false when
	// HandleEvent reported no change.
	Changed  []int
	Reported bool

	// Scopes are the renders that were issued, in order.
	Scopes []component.RenderType

	// Followup is set on propagation passes drained right after another
	// pass finished, i.e. messages posted while that pass ran.
	Followup bool

	Start    time.Time
	Duration time.Duration
	Err      error
}

// RenderInfo describes a single committed render.
type RenderInfo struct {
	Node     component.Identifier
	Scope    component.RenderType
	Present  bool
	Items    int
	Start    time.Time
	Duration time.Duration
	Err      error
}

// Observer is notified about passes and renders. Implementations are
// called on the tree's goroutine and must not call back into the tree.
type Observer interface {
	ObservePass(info PassInfo)
	ObserveRender(info RenderInfo)
}

// Observers fans out to several observers in order.
func Observers(obs ...Observer) Observer {
	var list multiObserver
	for _, o := range obs {
		if o != nil {
			list = append(list, o)
		}
	}
	return list
}

type multiObserver []Observer

func (m multiObserver) ObservePass(info PassInfo) {
	for _, o := range m {
		o.ObservePass(info)
	}
}

func (m multiObserver) ObserveRender(info RenderInfo) {
	for _, o := range m {
		o.ObserveRender(info)
	}
}

type nopObserver struct{}

func (nopObserver) ObservePass(PassInfo)     {}
func (nopObserver) ObserveRender(RenderInfo) {}
