package nested

import (
	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// Update is the output of one render call, handed to the Sink.
type Update struct {
	// Node is the controller that was rendered.
	Node component.Identifier

	// Scope is the render scope. For Partial(i) the output belongs to
	// Node.Child(i).
	Scope component.RenderType

	// Items is the rendered output. It is only meaningful when Present.
	Items []dom.Renderable

	// Present is false when the component rendered nothing.
	Present bool
}

// Target returns the identifier whose DOM subtree the update replaces.
func (u Update) Target() component.Identifier {
	if i, ok := u.Scope.Index(); ok {
		return u.Node.Child(i)
	}
	return u.Node
}

// Sink receives render output. It is the boundary to the DOM renderer.
type Sink interface {
	Commit(u Update) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(u Update) error

// Commit calls f(u).
func (f SinkFunc) Commit(u Update) error {
	return f(u)
}

// discardSink drops all updates.
type discardSink struct{}

func (discardSink) Commit(Update) error { return nil }
