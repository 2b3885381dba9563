package nested

import (
	"errors"
	"fmt"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// Sentinel errors for dispatch and tree operations.
var (
	// ErrUnresolvedIdentifier is returned when an identifier does not name
	// a node in the current tree.
	ErrUnresolvedIdentifier = errors.New("nested: unresolved identifier")

	// ErrIndexOutOfRange is returned when a Partial render names a child
	// that does not exist. It indicates a bug in a component or controller.
	ErrIndexOutOfRange = errors.New("nested: render index out of range")

	// ErrBusy is returned when Dispatch is called while a pass is running
	// on the same tree.
	ErrBusy = errors.New("nested: dispatch already in progress")

	// ErrComponentPanic is wrapped by HandlerError and RenderError.
	ErrComponentPanic = errors.New("nested: component panic")

	// ErrAttached is returned when attaching a controller that already
	// has a parent or was detached from one.
	ErrAttached = errors.New("nested: controller already attached")

	// ErrIndexInUse is returned when attaching at an occupied child index.
	ErrIndexInUse = errors.New("nested: child index in use")

	// ErrNegativeIndex is returned when attaching at a negative index.
	ErrNegativeIndex = errors.New("nested: negative child index")

	// ErrFollowupLimit is returned when the propagations posted during a
	// pass need more follow-up passes than the tree allows.
	ErrFollowupLimit = errors.New("nested: follow-up limit reached")
)

// DefaultFollowupLimit is the default number of follow-up passes run after
// one pass or Drain.
const DefaultFollowupLimit = 256

// UnresolvedIdentifierError reports an identifier that could not be
// resolved. The usual cause is an event for a DOM node whose component
// has since been removed; the event should be dropped.
type UnresolvedIdentifierError struct {
	// Target is the identifier that was being resolved.
	Target component.Identifier

	// From is the controller resolution started at.
	From component.Identifier

	// Depth is the position in Target of the segment that failed.
	Depth int

	// Detached is set when the controller itself was removed from its tree.
	Detached bool
}

// Error returns the error message.
func (e *UnresolvedIdentifierError) Error() string {
	if e.Detached {
		return fmt.Sprintf("nested: unresolved identifier %s: controller %s is detached", e.Target, e.From)
	}
	if e.Depth < 0 || e.Depth >= e.Target.Len() {
		return fmt.Sprintf("nested: unresolved identifier %s: not under %s", e.Target, e.From)
	}
	parent := component.NewIdentifier(e.Target.Path()[:e.Depth]...)
	return fmt.Sprintf("nested: unresolved identifier %s: no child %d at %s",
		e.Target, e.Target.At(e.Depth), parent)
}

// Unwrap returns ErrUnresolvedIdentifier.
func (e *UnresolvedIdentifierError) Unwrap() error {
	return ErrUnresolvedIdentifier
}

// IndexOutOfRangeError reports a Partial render for a child that does not
// exist. The pass is aborted before anything is committed.
type IndexOutOfRangeError struct {
	// Target is the identifier the event or propagation was addressed to.
	Target component.Identifier

	// Node is the controller that attempted the render.
	Node component.Identifier

	// Scope is the render that was attempted.
	Scope component.RenderType

	// Children lists the child indices that existed at the time.
	Children []int
}

// Error returns the error message.
func (e *IndexOutOfRangeError) Error() string {
	return fmt.Sprintf("nested: render index out of range: %s at %s (target %s, children %v)",
		e.Scope, e.Node, e.Target, e.Children)
}

// Unwrap returns ErrIndexOutOfRange.
func (e *IndexOutOfRangeError) Unwrap() error {
	return ErrIndexOutOfRange
}

// HandlerError wraps a panic raised by a component's HandleEvent.
type HandlerError struct {
	Target    component.Identifier
	EventType dom.EventType
	Panic     any
	Stack     []byte
}

// Error returns the error message.
func (e *HandlerError) Error() string {
	return fmt.Sprintf("nested: handler panic at %s, event %s: %v", e.Target, e.EventType, e.Panic)
}

// Unwrap returns ErrComponentPanic.
func (e *HandlerError) Unwrap() error {
	return ErrComponentPanic
}

// RenderError wraps a panic raised by a component's Render.
type RenderError struct {
	Node  component.Identifier
	Scope component.RenderType
	Panic any
	Stack []byte
}

// Error returns the error message.
func (e *RenderError) Error() string {
	return fmt.Sprintf("nested: render panic at %s, scope %s: %v", e.Node, e.Scope, e.Panic)
}

// Unwrap returns ErrComponentPanic.
func (e *RenderError) Unwrap() error {
	return ErrComponentPanic
}

// SinkError wraps an error returned by the Sink while committing an update.
type SinkError struct {
	Node  component.Identifier
	Scope component.RenderType
	Err   error
}

// Error returns the error message.
func (e *SinkError) Error() string {
	return fmt.Sprintf("nested: commit %s at %s: %v", e.Scope, e.Node, e.Err)
}

// Unwrap returns the underlying error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// FollowupLimitError reports propagations deferred because a cascade of
// follow-up passes hit the tree's limit. A component that calls its
// UpdateFunc from Render or Mount produces one on every pass.
type FollowupLimitError struct {
	Root   component.Identifier
	Limit  int
	Queued int
}

// Error returns the error message.
func (e *FollowupLimitError) Error() string {
	return fmt.Sprintf("nested: follow-up limit %d reached at %s, %d propagations deferred", e.Limit, e.Root, e.Queued)
}

// Unwrap returns ErrFollowupLimit.
func (e *FollowupLimitError) Unwrap() error {
	return ErrFollowupLimit
}
