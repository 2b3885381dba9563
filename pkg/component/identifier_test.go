package component

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRootIdentifier(t *testing.T) {
	root := Root()
	if !root.IsRoot() || root.Len() != 0 {
		t.Fatalf("Root() = %v, want empty path", root)
	}
	if !root.Equal(Identifier{}) {
		t.Error("zero value should equal Root()")
	}
	if root.String() != "/" || root.Key() != "" {
		t.Errorf("String=%q Key=%q", root.String(), root.Key())
	}
	if _, err := root.Parent(); !errors.Is(err, ErrInvalidIdentifier) {
		t.Errorf("Parent() of root error = %v, want ErrInvalidIdentifier", err)
	}
	if _, ok := root.Last(); ok {
		t.Error("root should have no last index")
	}
}

func TestChildAndParent(t *testing.T) {
	id := Root().Child(0).Child(3).Child(1)
	if diff := cmp.Diff([]int{0, 3, 1}, id.Path()); diff != "" {
		t.Errorf("Path() mismatch (-want +got):\n%s", diff)
	}
	parent, err := id.Parent()
	if err != nil {
		t.Fatalf("Parent() error = %v", err)
	}
	if !parent.Equal(NewIdentifier(0, 3)) {
		t.Errorf("Parent() = %v, want /0/3", parent)
	}
	if last, ok := id.Last(); !ok || last != 1 {
		t.Errorf("Last() = %d, %v", last, ok)
	}
}

func TestIdentifierImmutable(t *testing.T) {
	src := []int{1, 2}
	id := NewIdentifier(src...)
	src[0] = 9
	if id.At(0) != 1 {
		t.Error("NewIdentifier must copy its input")
	}

	p := id.Path()
	p[1] = 9
	if id.At(1) != 2 {
		t.Error("Path() must return a copy")
	}

	a := id.Child(5)
	b := id.Child(6)
	if a.At(2) != 5 || b.At(2) != 6 {
		t.Error("sibling identifiers must not share storage")
	}
}

func TestIdentifierEqualAndKey(t *testing.T) {
	tests := []struct {
		a, b  Identifier
		equal bool
	}{
		{NewIdentifier(), Root(), true},
		{NewIdentifier(1, 2), NewIdentifier(1, 2), true},
		{NewIdentifier(1, 2), NewIdentifier(2, 1), false},
		{NewIdentifier(1), NewIdentifier(1, 0), false},
		{NewIdentifier(12), NewIdentifier(1, 2), false},
	}
	for _, tt := range tests {
		if got := tt.a.Equal(tt.b); got != tt.equal {
			t.Errorf("%v.Equal(%v) = %v, want %v", tt.a, tt.b, got, tt.equal)
		}
		if got := tt.a.Key() == tt.b.Key(); got != tt.equal {
			t.Errorf("Key(%v)==Key(%v) is %v, want %v", tt.a, tt.b, got, tt.equal)
		}
	}

	m := map[string]int{NewIdentifier(0, 1).Key(): 7}
	if m[Root().Child(0).Child(1).Key()] != 7 {
		t.Error("equal identifiers should share a map key")
	}
}

func TestHasPrefixAndRel(t *testing.T) {
	id := NewIdentifier(2, 0, 4)
	if !id.HasPrefix(Root()) || !id.HasPrefix(NewIdentifier(2, 0)) || !id.HasPrefix(id) {
		t.Error("expected ancestors to be prefixes")
	}
	if id.HasPrefix(NewIdentifier(2, 1)) || id.HasPrefix(NewIdentifier(2, 0, 4, 1)) {
		t.Error("unexpected prefix")
	}

	rel, ok := id.Rel(NewIdentifier(2))
	if !ok {
		t.Fatal("Rel should succeed")
	}
	if diff := cmp.Diff([]int{0, 4}, rel); diff != "" {
		t.Errorf("Rel mismatch (-want +got):\n%s", diff)
	}
	if _, ok := id.Rel(NewIdentifier(3)); ok {
		t.Error("Rel with a non-ancestor should fail")
	}
}

func TestParseIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    []int
		wantErr bool
	}{
		{in: "/", want: nil},
		{in: "", want: nil},
		{in: "/0", want: []int{0}},
		{in: "/0/3/12", want: []int{0, 3, 12}},
		{in: "0/3", wantErr: true},
		{in: "/a", wantErr: true},
		{in: "/-1", wantErr: true},
		{in: "/1//2", wantErr: true},
		{in: "/+3", wantErr: true},
		{in: "/03", wantErr: true},
		{in: "/0/00", wantErr: true},
		{in: "/10", want: []int{10}},
		{in: "/99999999999999999999", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			id, err := ParseIdentifier(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedIdentifier) {
					t.Fatalf("error = %v, want ErrMalformedIdentifier", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, id.Path()); diff != "" {
				t.Errorf("path mismatch (-want +got):\n%s", diff)
			}
			if tt.in != "" && id.String() != tt.in {
				t.Errorf("round trip = %q, want %q", id.String(), tt.in)
			}
		})
	}
}

func TestIdentifierText(t *testing.T) {
	var id Identifier
	if err := id.UnmarshalText([]byte("/4/2")); err != nil {
		t.Fatal(err)
	}
	b, _ := id.MarshalText()
	if string(b) != "/4/2" {
		t.Errorf("MarshalText = %q", b)
	}
}

func TestNegativeIndexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for negative index")
		}
	}()
	Root().Child(-1)
}
