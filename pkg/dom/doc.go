// Package dom holds the vocabulary shared with the browser side of Kinesis.
//
// It defines the closed set of DOM event kinds the client reports, the
// typed payloads that travel with them, and the renderable items that
// components produce. The component core treats all of these as opaque:
// an EventType is passed through to Component.HandleEvent untouched, and
// a Renderable is handed to the renderer collaborator without inspection.
//
// # Renderables
//
// Node is the stock Renderable. It is built with variadic helpers:
//
//	dom.El("div", dom.Class("card"),
//	    dom.El("h1", dom.Text("Title")),
//	    dom.El("button", dom.Attr("data-kid", "/0/1"), dom.Text("+")),
//	)
//
// HTML output is escaped and deterministic: rendering the same Node twice
// yields byte-identical markup, which keeps partial re-renders idempotent.
package dom
