package component

import "strconv"

// RenderType is the scope of a render request: the whole node (Root) or
// a single child (Partial). RenderType values are comparable with ==.
type RenderType struct {
	partial bool
	index   int
}

// RenderRoot requests a render of the whole node and its subtree.
func RenderRoot() RenderType {
	return RenderType{}
}

// RenderPartial requests a render of only the child at index.
// Whether index exists is checked by the controller at render time.
func RenderPartial(index int) RenderType {
	return RenderType{partial: true, index: index}
}

// IsRoot reports whether rt is a Root render.
func (rt RenderType) IsRoot() bool {
	return !rt.partial
}

// Index returns the child index of a Partial render. The second result
// is false for Root.
func (rt RenderType) Index() (int, bool) {
	return rt.index, rt.partial
}

// String returns "Root" or "Partial(i)".
func (rt RenderType) String() string {
	if !rt.partial {
		return "Root"
	}
	return "Partial(" + strconv.Itoa(rt.index) + ")"
}
