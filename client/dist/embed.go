package clientdist

import _ "embed"

// KinesisJS is the thin client. It connects to /ws, sends events for
// elements carrying a data-kid path and applies render frames.
//
// It is served by the host at "/_kinesis/client.js".
//go:embed kinesis.js
var KinesisJS []byte

// Shell is the HTML page that mounts the client on #kinesis-root.
//go:embed shell.html
var Shell []byte
