// Package errors turns the errors returned by kinesis packages into
// coded, actionable diagnostics for the CLI and for logs.
//
// Every diagnostic has a code (e.g. "K001") registered with a category,
// a short message, a longer explanation and a documentation link.
// Classify maps the typed errors of pkg/nested, pkg/protocol,
// pkg/server and pkg/journal onto those codes and fills in a
// suggestion from the error's context:
//
//	if err := root.Dispatch(id, dom.EventClick, ev); err != nil {
//	    d := errors.Classify(err)
//	    fmt.Print(d.Format())
//	}
//	// Output:
//	// ERROR K001: Unresolved identifier
//	//
//	//   The event or propagation was addressed to a node that is not in
//	//   the tree. ...
//	//
//	//   Hint: /0/9 no longer exists; drop the event
//	//
//	//   Learn more: https://kinesis.vango.dev/errors/K001
//
// Configuration errors carry a Location pointing at the offending line
// of kinesis.yaml or kinesis.json, and Format prints the lines around it.
package errors
