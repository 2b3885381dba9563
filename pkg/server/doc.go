// Package server hosts nested component trees over WebSocket.
//
// Each connection gets a Session that owns one component tree, built by
// the server's root factory. The session is the tree's only caller: a
// single event loop goroutine applies inbound events and drains the
// tree's mailbox in arrival order, so no two passes ever interleave.
//
// # Architecture
//
//   - Session: one connection, one tree, and the sink that turns render
//     output into render frames
//   - SessionManager: tracks live sessions, enforces MaxSessions and
//     installs shared and per-session observers
//   - Server: chi router with the WebSocket endpoint and operational routes
//
// # Session Lifecycle
//
// The session runs three goroutines:
//   - ReadLoop: receives frames, decodes events, queues them for the EventLoop
//   - EventLoop: dispatches events and drains propagation messages
//   - WriteLoop: sends heartbeat pings
//
// # Event Processing
//
// When a client sends an event:
//  1. ReadLoop decodes the binary event frame
//  2. The event is queued for the EventLoop
//  3. The tree dispatches it to exactly one component
//  4. Renders issued by the pass are committed to the session's sink
//  5. Each committed render is encoded as a render frame and written
//
// Failures that concern only the event (an identifier that no longer
// resolves, a component panic) are reported to the client with an error
// frame; the session stays open.
//
// # Routes
//
//	GET /                    page shell that loads the thin client
//	GET /_kinesis/client.js  thin client, revalidated by ETag
//	GET /ws                  WebSocket endpoint
//	GET /healthz             liveness probe
//	GET /metrics             Prometheus exposition, when a handler is installed
//	GET /debug/tree          JSON snapshot of every session's component tree
package server
