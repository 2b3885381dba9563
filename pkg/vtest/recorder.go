package vtest

import (
	"sync"

	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
)

// Recorder is a nested.Sink that records every committed update.
type Recorder struct {
	mu      sync.Mutex
	updates []nested.Update
	err     error
}

var _ nested.Sink = (*Recorder)(nil)

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// FailWith makes subsequent commits return err.
func (r *Recorder) FailWith(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// Commit implements nested.Sink.
func (r *Recorder) Commit(u nested.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.updates = append(r.updates, u)
	return nil
}

// Updates returns the recorded updates.
func (r *Recorder) Updates() []nested.Update {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]nested.Update(nil), r.updates...)
}

// Summary returns each update as "<node> <scope>", e.g. "/ Partial(1)".
func (r *Recorder) Summary() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.updates))
	for i, u := range r.updates {
		out[i] = u.Node.String() + " " + u.Scope.String()
	}
	return out
}

// HTML returns the markup of the i-th update.
func (r *Recorder) HTML(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return dom.HTML(r.updates[i].Items)
}

// Reset clears recorded updates.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = nil
}
