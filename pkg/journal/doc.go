// Package journal records what a component tree was asked to do and
// replays it into a fresh tree.
//
// A Recorder is a nested.Observer. Every pass it observes becomes a
// Record: the event (encoded with the protocol event codec), or the
// propagated indices, together with the render scopes the pass issued.
// Records are buffered and flushed in batches to a Store: in memory, on
// disk, or in S3.
//
// Replay builds a new tree, re-applies every record that was not itself
// a follow-up of an earlier pass, and reports where the new tree's passes
// diverge from the recorded ones. A tree whose components handle events
// deterministically replays without divergence.
//
//	store := journal.NewMemoryStore()
//	rec := journal.NewRecorder(store, "session-1")
//	root := nested.New(app, nested.WithObserver(rec))
//	...
//	rec.Flush(ctx)
//
//	records, _ := journal.Load(ctx, store, "session-1")
//	report, _ := journal.Replay(ctx, build, records)
package journal
