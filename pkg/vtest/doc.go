// Package vtest provides testing helpers for Kinesis component trees.
//
// It reduces the boilerplate of checking which renders a dispatch caused.
//
// # Quick Start
//
//	func TestToggleRendersOnlyItself(t *testing.T) {
//	    rec := vtest.NewRecorder()
//	    root := nested.New(vtest.NewProbe("root"), nested.WithSink(rec))
//	    toggle := vtest.NewProbe("toggle").Returns([]int{}, true)
//	    root.MustChild(0, toggle)
//
//	    if err := root.Dispatch(component.NewIdentifier(0), dom.EventClick, nil); err != nil {
//	        t.Fatal(err)
//	    }
//	    vtest.ExpectUpdates(t, rec, "/0 Root")
//	    vtest.ExpectRenders(t, toggle, 1)
//	}
//
// # Probes
//
// A Probe is a scripted component. Each HandleEvent call pops the next
// scripted result (or repeats the last one), every call is recorded, and
// Render output is a deterministic element carrying the probe's name and
// a revision counter that the test can bump.
//
// # Recorder
//
// Recorder is a nested.Sink that keeps every committed update. Updates
// are summarised as "<node> <scope>" strings for compact assertions.
package vtest
