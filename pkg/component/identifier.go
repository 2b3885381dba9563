package component

import (
	"fmt"
	"strconv"
	"strings"
)

// Identifier addresses one component instance as the path of child
// indices from the root. The zero value is the root identifier.
//
// Identifiers are immutable: every method that derives a new identifier
// copies the path.
type Identifier struct {
	path []int
}

// Root returns the root identifier.
func Root() Identifier {
	return Identifier{}
}

// NewIdentifier builds an identifier from a path of child indices.
// It panics if an index is negative.
func NewIdentifier(path ...int) Identifier {
	for _, i := range path {
		if i < 0 {
			panic(fmt.Sprintf("component: negative index %d in identifier path %v", i, path))
		}
	}
	if len(path) == 0 {
		return Identifier{}
	}
	p := make([]int, len(path))
	copy(p, path)
	return Identifier{path: p}
}

// ParseIdentifier parses the String form of an identifier ("/", "/0/3").
func ParseIdentifier(s string) (Identifier, error) {
	if s == "" || s == "/" {
		return Identifier{}, nil
	}
	if !strings.HasPrefix(s, "/") {
		return Identifier{}, fmt.Errorf("%w: %q does not start with /", ErrMalformedIdentifier, s)
	}
	parts := strings.Split(s[1:], "/")
	path := make([]int, len(parts))
	for i, p := range parts {
		if !canonicalIndex(p) {
			return Identifier{}, fmt.Errorf("%w: bad segment %q in %q", ErrMalformedIdentifier, p, s)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return Identifier{}, fmt.Errorf("%w: bad segment %q in %q", ErrMalformedIdentifier, p, s)
		}
		path[i] = n
	}
	return Identifier{path: path}, nil
}

// canonicalIndex reports whether p is a decimal index as String writes
// it: digits only, no sign, no leading zero.
func canonicalIndex(p string) bool {
	if p == "" || (len(p) > 1 && p[0] == '0') {
		return false
	}
	for i := 0; i < len(p); i++ {
		if p[i] < '0' || p[i] > '9' {
			return false
		}
	}
	return true
}

// Path returns a copy of the index path.
func (id Identifier) Path() []int {
	if len(id.path) == 0 {
		return nil
	}
	p := make([]int, len(id.path))
	copy(p, id.path)
	return p
}

// Len returns the depth of the identifier. The root has length 0.
func (id Identifier) Len() int {
	return len(id.path)
}

// At returns the index at depth i.
func (id Identifier) At(i int) int {
	return id.path[i]
}

// IsRoot reports whether id addresses the root.
func (id Identifier) IsRoot() bool {
	return len(id.path) == 0
}

// Child returns the identifier of the immediate child at index.
// It panics if index is negative.
func (id Identifier) Child(index int) Identifier {
	if index < 0 {
		panic(fmt.Sprintf("component: negative child index %d", index))
	}
	p := make([]int, len(id.path)+1)
	copy(p, id.path)
	p[len(id.path)] = index
	return Identifier{path: p}
}

// Parent returns the identifier of the immediate parent.
// It returns ErrInvalidIdentifier for the root.
func (id Identifier) Parent() (Identifier, error) {
	if len(id.path) == 0 {
		return Identifier{}, ErrInvalidIdentifier
	}
	return NewIdentifier(id.path[:len(id.path)-1]...), nil
}

// Last returns the final path segment, the node's index within its parent.
// The root has no index and reports false.
func (id Identifier) Last() (int, bool) {
	if len(id.path) == 0 {
		return 0, false
	}
	return id.path[len(id.path)-1], true
}

// Equal reports whether two identifiers address the same path.
func (id Identifier) Equal(other Identifier) bool {
	if len(id.path) != len(other.path) {
		return false
	}
	for i := range id.path {
		if id.path[i] != other.path[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether ancestor is id itself or one of its ancestors.
func (id Identifier) HasPrefix(ancestor Identifier) bool {
	if len(ancestor.path) > len(id.path) {
		return false
	}
	for i := range ancestor.path {
		if id.path[i] != ancestor.path[i] {
			return false
		}
	}
	return true
}

// Rel returns the path of id relative to ancestor. The second result is
// false when ancestor is not a prefix of id.
func (id Identifier) Rel(ancestor Identifier) ([]int, bool) {
	if !id.HasPrefix(ancestor) {
		return nil, false
	}
	rest := id.path[len(ancestor.path):]
	if len(rest) == 0 {
		return nil, true
	}
	p := make([]int, len(rest))
	copy(p, rest)
	return p, true
}

// Key returns a comparable form of the identifier suitable for map keys.
// The root's key is the empty string; other keys join indices with dots.
func (id Identifier) Key() string {
	if len(id.path) == 0 {
		return ""
	}
	var b strings.Builder
	for i, n := range id.path {
		if i > 0 {
			b.WriteByte('.')
		}
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// String returns the slash-separated form ("/" for the root, "/0/3" otherwise).
func (id Identifier) String() string {
	if len(id.path) == 0 {
		return "/"
	}
	var b strings.Builder
	for _, n := range id.path {
		b.WriteByte('/')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler.
func (id Identifier) MarshalText() ([]byte, error) {
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *Identifier) UnmarshalText(text []byte) error {
	parsed, err := ParseIdentifier(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}
