// Package component defines how Kinesis addresses and talks to components.
//
// A component is a stateful node in the UI tree. It handles DOM events
// addressed to it and renders itself at a requested scope. Three small
// types carry that contract:
//
//   - Identifier: the path of child indices from the root to a node.
//   - RenderType: the scope of a render, the whole node (Root) or one
//     child (Partial).
//   - Component: HandleEvent reports which children went stale, Render
//     produces output for a scope.
//
// Components never schedule their own renders. HandleEvent returns the
// indices of stale children and the owning controller (package nested)
// decides what to render. Components that change outside an event, for
// example on a timer, implement Mounter and call the UpdateFunc they are
// given.
package component
