// Package protocol implements the binary wire protocol between the Kinesis
// browser client and a server-side session.
//
// Events flow from client to server addressed by component identifier;
// render output flows back scoped to the node (and optionally the child)
// that was re-rendered.
//
// # Wire Format
//
// All messages are framed with a 4-byte header:
//
//	┌─────────────┬──────────────┬───────────────────────────────┐
//	│ Frame Type  │ Flags        │ Payload Length                │
//	│ (1 byte)    │ (1 byte)     │ (2 bytes, big-endian)         │
//	└─────────────┴──────────────┴───────────────────────────────┘
//
// # Frame Types
//
//   - FrameEvent (0x01): Client → Server events
//   - FrameRender (0x02): Server → Client render output
//   - FrameControl (0x03): Ping/pong
//   - FrameError (0x05): Error message
//
// # Encoding
//
//   - Varint: Compact encoding for small integers (protobuf-style)
//   - Length-prefixed: Strings and byte arrays prefixed with varint length
//   - Paths: varint count followed by one varint per index
//
// # Events
//
//	[Seq: varint][Type: 1 byte][Target: path][payload by type]
//
// A click on the second child of the first child of the root:
//
//	[0x07][0x01][0x02 0x00 0x01][mouse payload]
//
// # Render Frames
//
//	[Seq: varint][Node: path][Scope: 0x00 | 0x01 index][Present: bool][HTML: string]
//
// Scope 0x00 is Root and replaces the node's markup; 0x01 followed by an
// index is Partial and replaces only that child's markup.
package protocol
