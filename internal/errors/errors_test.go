package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/journal"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/protocol"
	"github.com/vango-dev/kinesis/pkg/server"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"dispatch", "K001", "Unresolved identifier", CategoryDispatch},
		{"render", "K002", "Render index out of range", CategoryRender},
		{"journal", "K062", "Replay diverged", CategoryJournal},
		{"unknown", "K999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
			if err.Code != tt.code {
				t.Errorf("Code = %q, want %q", err.Code, tt.code)
			}
		})
	}
}

func TestKinesisError_Error(t *testing.T) {
	if got, want := New("K006").Error(), "K006: Dispatch already in progress"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := New("K006").Wrap(nested.ErrBusy)
	if got := wrapped.Error(); !strings.HasSuffix(got, ": nested: dispatch already in progress") {
		t.Errorf("Error() = %q", got)
	}
	if !goerrors.Is(wrapped, nested.ErrBusy) {
		t.Error("wrapped error not reachable with errors.Is")
	}

	if got := Newf(CategoryCLI, "bad flag %q", "x").Error(); got != `bad flag "x"` {
		t.Errorf("Newf Error() = %q", got)
	}
}

func TestClassify(t *testing.T) {
	id := component.NewIdentifier(0, 9)
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantHint string
	}{
		{"nil", nil, "", ""},
		{
			name:     "unresolved",
			err:      &nested.UnresolvedIdentifierError{Target: id, Depth: 1},
			wantCode: "K001",
			wantHint: "/0/9 no longer exists",
		},
		{
			name:     "detached",
			err:      &nested.UnresolvedIdentifierError{Target: id, From: id, Detached: true},
			wantCode: "K001",
			wantHint: "controller /0/9 was detached",
		},
		{
			name:     "out of range",
			err:      &nested.IndexOutOfRangeError{Node: component.Root(), Scope: component.RenderPartial(4), Children: []int{0, 1}},
			wantCode: "K002",
			wantHint: "/ has children [0 1]",
		},
		{
			name:     "handler panic",
			err:      &nested.HandlerError{Target: id, EventType: dom.EventClick, Panic: "boom"},
			wantCode: "K003",
			wantHint: "Click handler",
		},
		{
			name:     "render panic",
			err:      &nested.RenderError{Node: id, Scope: component.RenderRoot(), Panic: "boom"},
			wantCode: "K004",
			wantHint: "Render(Root)",
		},
		{
			name:     "sink wins over its cause",
			err:      &nested.SinkError{Node: id, Scope: component.RenderRoot(), Err: server.ErrSessionClosed},
			wantCode: "K005",
		},
		{"busy", nested.ErrBusy, "K006", "UpdateFunc"},
		{"follow-up cascade", &nested.FollowupLimitError{Limit: 4, Queued: 1}, "K007", "maxFollowups"},
		{"joined", goerrors.Join(nil, fmt.Errorf("drain: %w", nested.ErrIndexInUse)), "K021", ""},
		{"frame too large", protocol.ErrFrameTooLarge, "K042", ""},
		{"bad varint", fmt.Errorf("decode: %w", protocol.ErrVarintOverflow), "K040", ""},
		{"unknown event", protocol.ErrUnknownEventType, "K041", ""},
		{"max sessions", server.ErrMaxSessionsReached, "K050", "maxSessions"},
		{"no root", server.ErrNoRoot, "K053", "SetRoot"},
		{"journal missing", fmt.Errorf("%w: s1", journal.ErrNotFound), "K060", ""},
		{"journal corrupt", journal.ErrBadMagic, "K061", ""},
		{"cancelled", context.Canceled, "", ""},
		{"already coded", fmt.Errorf("load: %w", New("K081")), "K081", ""},
		{"other", goerrors.New("disk full"), "K099", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v", got)
				}
				return
			}
			if got.Code != tt.wantCode {
				t.Errorf("Code = %q, want %q", got.Code, tt.wantCode)
			}
			if !strings.Contains(got.Suggestion, tt.wantHint) {
				t.Errorf("Suggestion = %q, want it to contain %q", got.Suggestion, tt.wantHint)
			}
			if got.Wrapped == nil && tt.wantCode != "K081" {
				t.Error("classified error does not wrap the original")
			}
		})
	}
}

func TestCode(t *testing.T) {
	if Code(nil) != "" {
		t.Error("Code(nil) should be empty")
	}
	if got := Code(nested.ErrIndexOutOfRange); got != "K002" {
		t.Errorf("Code = %q, want K002", got)
	}
}

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kinesis.yaml")
	content := "server:\n  port: 8080\n  host: [oops\njournal:\n  backend: memory\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWithLocationFromError(t *testing.T) {
	path := writeConfig(t)

	tests := []struct {
		name     string
		err      error
		wantLine int
		wantCol  int
	}{
		{"yaml", goerrors.New("yaml: line 3: did not find expected ',' or ']'"), 3, 0},
		{"json", goerrors.New("invalid character '}' at line 3, column 9"), 3, 9},
		{"none", goerrors.New("unexpected EOF"), 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New("K081").WithLocationFromError(path, tt.err)
			if tt.wantLine == 0 {
				if e.Location != nil {
					t.Errorf("Location = %v, want nil", e.Location)
				}
				return
			}
			if e.Location == nil {
				t.Fatal("Location is nil")
			}
			if e.Location.Line != tt.wantLine || e.Location.Column != tt.wantCol {
				t.Errorf("Location = %s, want line %d column %d", e.Location, tt.wantLine, tt.wantCol)
			}
			if len(e.Context) != 5 {
				t.Errorf("Context = %q, want 5 lines", e.Context)
			}
		})
	}
}

func TestLocation_String(t *testing.T) {
	tests := []struct {
		name string
		loc  *Location
		want string
	}{
		{"nil location", nil, ""},
		{"with column", &Location{File: "kinesis.yaml", Line: 10, Column: 5}, "kinesis.yaml:10:5"},
		{"without column", &Location{File: "kinesis.yaml", Line: 10}, "kinesis.yaml:10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.loc.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	path := writeConfig(t)
	err := New("K081").
		WithLocation(path, 3, 9).
		WithSuggestion("close the list").
		Wrap(goerrors.New("yaml: line 3: did not find expected ',' or ']'"))

	formatted := err.Format()
	for _, want := range []string{
		"ERROR K081: Invalid config syntax",
		path + ":3:9",
		"→    3 │   host: [oops",
		"        ^",
		"Cause: yaml: line 3",
		"Hint: close the list",
		"Learn more: https://kinesis.vango.dev/errors/K081",
	} {
		if !strings.Contains(formatted, want) {
			t.Errorf("Format() missing %q:\n%s", want, formatted)
		}
	}
}

func TestFormatCompact(t *testing.T) {
	err := New("K082").WithLocation("kinesis.yaml", 10, 5)
	want := "kinesis.yaml:10:5: K082: Invalid config value"
	if got := err.FormatCompact(); got != want {
		t.Errorf("FormatCompact() = %q, want %q", got, want)
	}
}

func TestFormatJSON(t *testing.T) {
	err := New("K001").WithLocation("kinesis.yaml", 10, 5).Wrap(nested.ErrUnresolvedIdentifier)
	json := err.FormatJSON()
	for _, want := range []string{
		`"code":"K001"`,
		`"category":"dispatch"`,
		`"message":"Unresolved identifier"`,
		`"cause":"nested: unresolved identifier"`,
		`"location":{"file":"kinesis.yaml","line":10,"column":5}`,
	} {
		if !strings.Contains(json, want) {
			t.Errorf("FormatJSON() missing %s: %s", want, json)
		}
	}
}

func TestGetAllCodes(t *testing.T) {
	codes := GetAllCodes()
	if len(codes) == 0 || codes[0] != "K001" {
		t.Errorf("GetAllCodes() = %v", codes)
	}
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Errorf("codes not sorted: %v", codes)
			break
		}
	}
}

func TestRegister(t *testing.T) {
	Register("K999", ErrorTemplate{
		Category: CategoryCLI,
		Message:  "Custom test error",
	})
	defer delete(registry, "K999")

	if err := New("K999"); err.Message != "Custom test error" {
		t.Errorf("Message = %q, want %q", err.Message, "Custom test error")
	}
	if _, ok := GetTemplate("K999"); !ok {
		t.Error("registered template not found")
	}
}

func TestWrapText(t *testing.T) {
	if got := wrapText("short text", 100); len(got) != 1 || got[0] != "short text" {
		t.Errorf("wrapText short text: got %v", got)
	}
	if got := wrapText("this is a longer text that should be wrapped", 20); len(got) != 3 {
		t.Errorf("wrapText long text: expected 3 lines, got %d: %v", len(got), got)
	}
	if got := wrapText("", 10); len(got) != 0 {
		t.Errorf("wrapText empty: expected empty, got %v", got)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var b strings.Builder
	Fprint(&b, server.ErrNoRoot)
	if !strings.Contains(b.String(), "ERROR K053: No root component") {
		t.Errorf("Fprint() = %q", b.String())
	}
}
