package journal

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/vango-dev/kinesis/pkg/nested"
)

// BuildFunc builds a fresh tree with the given options applied.
type BuildFunc func(opts ...nested.Option) (*nested.Controller, error)

// Divergence is a difference between a recorded pass and the pass the
// replayed tree produced at the same position.
type Divergence struct {
	// Index is the position in the record stream.
	Index int
	Field string
	Want  string
	Got   string
}

func (d Divergence) String() string {
	return fmt.Sprintf("#%d %s: want %s, got %s", d.Index, d.Field, d.Want, d.Got)
}

// Report summarizes a replay.
type Report struct {
	// Applied is the number of records re-applied to the tree.
	Applied int

	// Skipped is the number of follow-up records, which the tree is
	// expected to produce on its own.
	Skipped int

	// Passes is the number of passes the replayed tree ran.
	Passes int

	Divergences []Divergence
}

// OK reports whether the replay matched the journal.
func (r *Report) OK() bool {
	return len(r.Divergences) == 0
}

func (r *Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "applied %d, skipped %d, passes %d, divergences %d",
		r.Applied, r.Skipped, r.Passes, len(r.Divergences))
	for _, d := range r.Divergences {
		b.WriteString("\n  ")
		b.WriteString(d.String())
	}
	return b.String()
}

type capture struct {
	records []Record
}

func (c *capture) ObservePass(info nested.PassInfo) {
	c.records = append(c.records, FromPass(uint64(len(c.records)+1), info))
}

func (c *capture) ObserveRender(nested.RenderInfo) {}

// Replay builds a fresh tree and re-applies records to it. Dispatch
// records are dispatched again; propagation records are posted to the
// tree's mailbox and drained. Follow-up records are skipped since the
// tree drains those itself.
//
// The returned error is for failures to build or a cancelled ctx; pass
// errors are part of the comparison.
func Replay(ctx context.Context, build BuildFunc, records []Record) (*Report, error) {
	var got capture
	root, err := build(nested.WithObserver(&got))
	if err != nil {
		return nil, fmt.Errorf("journal: build tree: %w", err)
	}
	defer root.Close()

	report := &Report{}
	for _, rec := range records {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if rec.Followup {
			report.Skipped++
			continue
		}
		switch rec.Kind {
		case nested.PassDispatch:
			_ = root.Dispatch(rec.Target, rec.EventType, rec.Event)
		case nested.PassPropagate:
			root.Mailbox().Post(nested.Message{Target: rec.Target, Indices: rec.Changed})
			_ = root.Drain()
		default:
			return report, fmt.Errorf("journal: record %d has unknown kind %d", rec.Seq, rec.Kind)
		}
		report.Applied++
	}

	report.Passes = len(got.records)
	report.Divergences = Compare(records, got.records)
	return report, nil
}

// Compare lines up two record streams and lists where they differ.
// Sequence numbers and times are not compared.
func Compare(want, got []Record) []Divergence {
	var divs []Divergence
	n := max(len(want), len(got))
	for i := 0; i < n; i++ {
		switch {
		case i >= len(got):
			divs = append(divs, Divergence{Index: i, Field: "pass", Want: want[i].String(), Got: "none"})
			continue
		case i >= len(want):
			divs = append(divs, Divergence{Index: i, Field: "pass", Want: "none", Got: got[i].String()})
			continue
		}
		divs = append(divs, compareRecord(i, want[i], got[i])...)
	}
	return divs
}

func compareRecord(i int, w, g Record) []Divergence {
	var divs []Divergence
	add := func(field, want, got string) {
		divs = append(divs, Divergence{Index: i, Field: field, Want: want, Got: got})
	}

	if w.Kind != g.Kind {
		add("kind", w.Kind.String(), g.Kind.String())
		return divs
	}
	if !w.Target.Equal(g.Target) {
		add("target", w.Target.String(), g.Target.String())
	}
	if w.Kind == nested.PassDispatch && w.EventType != g.EventType {
		add("event_type", w.EventType.String(), g.EventType.String())
	}
	if w.Reported != g.Reported {
		add("reported", strconv.FormatBool(w.Reported), strconv.FormatBool(g.Reported))
	}
	if !slices.Equal(w.Changed, g.Changed) {
		add("changed", fmt.Sprint(w.Changed), fmt.Sprint(g.Changed))
	}
	if w.Followup != g.Followup {
		add("followup", strconv.FormatBool(w.Followup), strconv.FormatBool(g.Followup))
	}
	if !slices.Equal(w.Scopes, g.Scopes) {
		add("scopes", fmt.Sprint(w.Scopes), fmt.Sprint(g.Scopes))
	}
	if w.Failed() != g.Failed() {
		add("error", errText(w), errText(g))
	}
	return divs
}

func errText(r Record) string {
	if r.Err == "" {
		return "none"
	}
	return strconv.Quote(r.Err)
}
