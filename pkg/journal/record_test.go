package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
)

var recordOpts = cmp.Options{
	cmp.Comparer(func(a, b component.Identifier) bool { return a.Equal(b) }),
	cmp.Comparer(func(a, b component.RenderType) bool { return a == b }),
	cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) }),
	cmpopts.EquateEmpty(),
}

func sampleRecords() []Record {
	at := time.Unix(1700000000, 123456789)
	return []Record{
		{
			Seq:       1,
			Time:      at,
			Kind:      nested.PassDispatch,
			Target:    component.NewIdentifier(0, 1),
			EventType: dom.EventClick,
			Event:     dom.MouseEvent{ClientX: -4, ClientY: 300, Button: 1, Modifiers: dom.ModShift},
			Changed:   []int{1},
			Reported:  true,
			Scopes:    []component.RenderType{component.RenderPartial(1)},
		},
		{
			Seq:       2,
			Time:      at.Add(time.Millisecond),
			Kind:      nested.PassDispatch,
			Target:    component.Root(),
			EventType: dom.EventSubmit,
			Event:     dom.SubmitEvent{Fields: map[string]string{"b": "2", "a": "1"}},
			Reported:  true,
			Scopes:    []component.RenderType{component.RenderRoot()},
		},
		{
			Seq:      3,
			Time:     at.Add(2 * time.Millisecond),
			Kind:     nested.PassPropagate,
			Target:   component.NewIdentifier(2),
			Changed:  []int{0, 3},
			Reported: true,
			Followup: true,
			Scopes:   []component.RenderType{component.RenderPartial(0), component.RenderPartial(3)},
		},
		{
			Seq:       4,
			Time:      at.Add(3 * time.Millisecond),
			Kind:      nested.PassDispatch,
			Target:    component.NewIdentifier(9),
			EventType: dom.EventFocus,
			Err:       "nested: unresolved identifier /9",
		},
	}
}

func TestBatchRoundTrip(t *testing.T) {
	want := sampleRecords()
	data, err := EncodeBatch(want)
	if err != nil {
		t.Fatalf("EncodeBatch: %v", err)
	}
	if string(data[:3]) != "KJN" || data[3] != batchVersion {
		t.Fatalf("header = %x", data[:4])
	}

	got, err := DecodeBatch(data)
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if diff := cmp.Diff(want, got, recordOpts); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeBatchRejects(t *testing.T) {
	valid, err := EncodeBatch(sampleRecords())
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrBadMagic},
		{"magic", []byte("XYZ\x01\x00"), ErrBadMagic},
		{"version", []byte("KJN\x09\x00"), ErrBadVersion},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DecodeBatch(tc.data); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("truncated", func(t *testing.T) {
		if _, err := DecodeBatch(valid[:len(valid)-3]); err == nil {
			t.Error("expected error for truncated batch")
		}
	})
}

func TestEncodeBatchPayloadMismatch(t *testing.T) {
	recs := []Record{{
		Seq:       1,
		Kind:      nested.PassDispatch,
		Target:    component.Root(),
		EventType: dom.EventClick,
		Event:     dom.InputEvent{Value: "x"},
	}}
	if _, err := EncodeBatch(recs); err == nil {
		t.Error("expected payload mismatch error")
	}
}

func TestFromPass(t *testing.T) {
	changed := []int{2}
	info := nested.PassInfo{
		Kind:     nested.PassPropagate,
		Target:   component.NewIdentifier(1),
		Changed:  changed,
		Reported: true,
		Followup: true,
		Scopes:   []component.RenderType{component.RenderPartial(2)},
		Err:      errors.New("boom"),
	}
	r := FromPass(5, info)
	changed[0] = 7

	if r.Seq != 5 || !r.Followup || !r.Failed() || r.Err != "boom" {
		t.Errorf("record = %+v", r)
	}
	if r.Changed[0] != 2 {
		t.Error("record shares the pass's Changed slice")
	}
	if got, want := r.String(), "5 propagate /1 [Partial(2)]"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
