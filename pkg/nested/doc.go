// Package nested composes components into an addressable tree and decides
// what to re-render when one of them changes.
//
// A Controller owns one component and an ordered mapping from child index
// to child Controller. The root controller receives DOM events tagged
// with a component.Identifier, routes each one to exactly the addressed
// node, and turns the node's HandleEvent result into a render scope:
//
//	HandleEvent result     render pass
//	------------------     -----------------------------------------
//	(nil, false)           nothing
//	([], true)             Render(Root) of the addressed node
//	([2, 5], true)         Render(Partial(2)), Render(Partial(5)) only
//
// Output of each render is committed to a Sink, the renderer collaborator
// that patches the browser DOM.
//
// # Propagation
//
// Components that change outside an event (timers, async completions)
// implement component.Mounter. The UpdateFunc they receive posts a
// message to the tree's Mailbox instead of touching ancestors directly.
// The host drains the mailbox on its event loop with Drain, which applies
// the same scope decision as a dispatch. A message is delivered only while
// the controller that posted it is still at its identifier; updates from a
// removed component fail with ErrUnresolvedIdentifier even when another
// component now sits at the same index.
//
// Passes run by propagations posted during another pass are follow-ups.
// Each Dispatch, Propagate or Drain runs at most WithFollowupLimit of them
// and leaves the rest queued, so a component that re-posts from Render
// cannot keep the tree busy forever.
//
// # Concurrency
//
// A tree is driven from a single goroutine. Dispatch, Propagate, Drain,
// Attach and Detach must not be called concurrently. The UpdateFunc and
// Mailbox.Post are the only entry points that are safe from any
// goroutine. Calls that arrive while a pass is running are never
// interleaved: a nested Dispatch fails with ErrBusy and a nested
// Propagate is queued and processed when the pass finishes.
package nested
