package component

import "github.com/vango-dev/kinesis/pkg/dom"

// Component is a stateful node in the UI tree.
type Component interface {
	// HandleEvent handles an event whose target is id, which is this node
	// or one of its descendants, and mutates state accordingly.
	//
	// It returns false when nothing about the rendered output changed.
	// Otherwise it returns the indices of this node's own children whose
	// output is stale. An empty list means this node changed but none of
	// its children did, so the node itself must be re-rendered.
	//
	// The result must be deterministic for the same event and prior state.
	HandleEvent(id Identifier, eventType dom.EventType, event dom.Event) ([]int, bool)

	// Render produces output for the given scope. For Root the node
	// renders itself. Partial renders are delegated to the child by the
	// controller, so a component only sees Partial if it is rendered
	// outside a controller. Returning false means there is nothing to
	// render, which is distinct from an empty but present output.
	Render(rt RenderType) ([]dom.Renderable, bool)
}

// UpdateFunc notifies the owning controller that the given child indices
// of a component changed outside an event dispatch. Calling it with no
// indices asks for the component itself to be re-rendered.
type UpdateFunc func(indices ...int)

// Mounter is implemented by components that want an UpdateFunc. Mount is
// called each time the component's node is attached to a tree.
type Mounter interface {
	Mount(id Identifier, update UpdateFunc)
}

// Unmounter is implemented by components that hold resources (timers,
// subscriptions) that must stop when the node is removed from the tree.
type Unmounter interface {
	Unmount()
}

// ChildOutput is the Root output of one child, passed to Composer.
type ChildOutput struct {
	Index   int
	Items   []dom.Renderable
	Present bool
}

// Composer is implemented by components that lay out their own children
// during a Root render. Without it, a node's own items are followed by
// each present child's items in index order.
type Composer interface {
	Compose(own []dom.Renderable, children []ChildOutput) []dom.Renderable
}

// Func adapts a pair of functions into a Component. Either may be nil:
// a nil handler reports no change and a nil renderer renders nothing.
type Func struct {
	OnEvent  func(id Identifier, eventType dom.EventType, event dom.Event) ([]int, bool)
	OnRender func(rt RenderType) ([]dom.Renderable, bool)
}

// HandleEvent implements Component.
func (f Func) HandleEvent(id Identifier, eventType dom.EventType, event dom.Event) ([]int, bool) {
	if f.OnEvent == nil {
		return nil, false
	}
	return f.OnEvent(id, eventType, event)
}

// Render implements Component.
func (f Func) Render(rt RenderType) ([]dom.Renderable, bool) {
	if f.OnRender == nil {
		return nil, false
	}
	return f.OnRender(rt)
}

// Static returns a component that always renders the given items and
// ignores events.
func Static(items ...dom.Renderable) Component {
	return Func{OnRender: func(RenderType) ([]dom.Renderable, bool) {
		return items, true
	}}
}
