package vtest

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

// ExpectUpdates fails the test if the recorder's summary differs from want.
func ExpectUpdates(t testing.TB, r *Recorder, want ...string) {
	t.Helper()
	got := r.Summary()
	if len(want) == 0 {
		want = []string{}
	}
	if got == nil {
		got = []string{}
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("updates mismatch (-want +got):\n%s", diff)
	}
}

// ExpectRenders fails the test if p was rendered a different number of times.
func ExpectRenders(t testing.TB, p *Probe, n int) {
	t.Helper()
	if got := len(p.Renders()); got != n {
		t.Errorf("probe %s rendered %d times, want %d", p.Name, got, n)
	}
}

// ExpectEvents fails the test if p handled a different number of events.
func ExpectEvents(t testing.TB, p *Probe, n int) {
	t.Helper()
	if got := len(p.Events()); got != n {
		t.Errorf("probe %s handled %d events, want %d", p.Name, got, n)
	}
}
