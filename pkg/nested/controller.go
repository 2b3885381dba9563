package nested

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/vango-dev/kinesis/pkg/component"
)

// tree holds what every controller of one tree shares.
type tree struct {
	root     *Controller
	sink     Sink
	observer Observer
	logger   *slog.Logger
	mailbox  *Mailbox

	// followupLimit bounds the follow-up passes drained after one pass.
	followupLimit int

	// dropped is the mailbox drop count last reported.
	dropped uint64

	// busy is set while a pass is running anywhere in the tree.
	busy bool
}

// Controller owns a component and its indexed children, routes events to
// the addressed node, and issues the renders their changes call for.
type Controller struct {
	id       component.Identifier
	comp     component.Component
	parent   *Controller
	children map[int]*Controller
	tree     *tree
	state    State
	detached bool
}

// Option configures a tree.
type Option func(*tree)

// WithSink sets where render output is committed. By default it is discarded.
func WithSink(s Sink) Option {
	return func(t *tree) {
		if s == nil {
			s = discardSink{}
		}
		t.sink = s
	}
}

// WithObserver sets the observer notified about passes and renders.
func WithObserver(o Observer) Option {
	return func(t *tree) {
		if o == nil {
			o = nopObserver{}
		}
		t.observer = o
	}
}

// WithLogger sets the logger. By default slog.Default() is used.
func WithLogger(l *slog.Logger) Option {
	return func(t *tree) {
		if l == nil {
			l = slog.Default()
		}
		t.logger = l.With("component", "nested")
	}
}

// WithMailbox sets the mailbox used for propagation. It only takes effect
// in New; a tree keeps its mailbox for its whole life.
func WithMailbox(m *Mailbox) Option {
	return func(t *tree) {
		if m != nil && t.mailbox == nil {
			t.mailbox = m
		}
	}
}

// WithFollowupLimit bounds how many follow-up propagation passes one
// Dispatch, Propagate or Drain runs. Messages left over stay queued for the
// next Drain. Zero or less means DefaultFollowupLimit.
func WithFollowupLimit(n int) Option {
	return func(t *tree) {
		if n <= 0 {
			n = DefaultFollowupLimit
		}
		t.followupLimit = n
	}
}

// New creates the root controller of a new tree around comp.
func New(comp component.Component, opts ...Option) *Controller {
	t := &tree{
		sink:          discardSink{},
		observer:      nopObserver{},
		logger:        slog.Default().With("component", "nested"),
		followupLimit: DefaultFollowupLimit,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.mailbox == nil {
		t.mailbox = NewMailbox(0)
	}

	c := &Controller{
		id:   component.Root(),
		comp: comp,
		tree: t,
	}
	t.root = c
	c.mount()
	return c
}

// Configure applies options to the controller's tree. Hosts use it to
// install their sink and observer on a tree built by application code.
func (c *Controller) Configure(opts ...Option) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		mb := c.tree.mailbox
		opt(c.tree)
		c.tree.mailbox = mb
	}
}

// ID returns the controller's identifier within its tree.
func (c *Controller) ID() component.Identifier {
	return c.id
}

// Component returns the component this controller owns.
func (c *Controller) Component() component.Component {
	return c.comp
}

// Parent returns the parent controller, or nil for a root.
func (c *Controller) Parent() *Controller {
	return c.parent
}

// Root returns the root controller of the tree.
func (c *Controller) Root() *Controller {
	return c.tree.root
}

// State returns the controller's current phase.
func (c *Controller) State() State {
	return c.state
}

// Detached reports whether the controller was removed from its tree.
func (c *Controller) Detached() bool {
	return c.detached
}

// Mailbox returns the tree's mailbox.
func (c *Controller) Mailbox() *Mailbox {
	return c.tree.mailbox
}

// Len returns the number of children.
func (c *Controller) Len() int {
	return len(c.children)
}

// Child returns the child at index, or nil.
func (c *Controller) Child(index int) *Controller {
	return c.children[index]
}

// Indices returns the child indices in ascending order.
func (c *Controller) Indices() []int {
	indices := make([]int, 0, len(c.children))
	for i := range c.children {
		indices = append(indices, i)
	}
	sort.Ints(indices)
	return indices
}

// NewChild creates a controller for comp and attaches it at index.
func (c *Controller) NewChild(index int, comp component.Component) (*Controller, error) {
	child := &Controller{comp: comp}
	if err := c.attach(index, child); err != nil {
		return nil, err
	}
	return child, nil
}

// MustChild is like NewChild but panics on error. It is meant for building
// static trees.
func (c *Controller) MustChild(index int, comp component.Component) *Controller {
	child, err := c.NewChild(index, comp)
	if err != nil {
		panic(err)
	}
	return child
}

// Attach attaches child, the root of another tree, at index. The child's
// subtree joins this tree: it takes over this tree's sink, observer and
// mailbox, and every component in it is mounted again with its new
// identifier.
func (c *Controller) Attach(index int, child *Controller) error {
	if child == nil {
		return fmt.Errorf("nested: attach nil controller at %s", c.id.Child(max(index, 0)))
	}
	if child.parent != nil || child.detached || child.tree.root != child {
		return ErrAttached
	}
	if child == c.tree.root {
		return ErrAttached
	}
	return c.attach(index, child)
}

func (c *Controller) attach(index int, child *Controller) error {
	if c.detached {
		return &UnresolvedIdentifierError{Target: c.id, From: c.id, Detached: true}
	}
	if index < 0 {
		return ErrNegativeIndex
	}
	if _, ok := c.children[index]; ok {
		return fmt.Errorf("%w: %d at %s", ErrIndexInUse, index, c.id)
	}
	if c.children == nil {
		c.children = make(map[int]*Controller)
	}
	c.children[index] = child
	child.parent = c
	child.adopt(c.tree, c.id.Child(index))
	return nil
}

// adopt moves a subtree into t under id and mounts its components.
func (c *Controller) adopt(t *tree, id component.Identifier) {
	c.tree = t
	c.id = id
	c.mount()
	for _, i := range c.Indices() {
		c.children[i].adopt(t, id.Child(i))
	}
}

// mount hands the component its update function.
func (c *Controller) mount() {
	m, ok := c.comp.(component.Mounter)
	if !ok {
		return
	}
	mb := c.tree.mailbox
	id := c.id
	m.Mount(id, func(indices ...int) {
		mb.Post(Message{Target: id, Indices: indices, from: c})
	})
}

// Detach removes the child at index and returns it. The removed subtree
// is marked detached: later dispatches, propagations and queued messages
// addressed to it fail with ErrUnresolvedIdentifier.
func (c *Controller) Detach(index int) (*Controller, error) {
	child, ok := c.children[index]
	if !ok {
		return nil, &UnresolvedIdentifierError{Target: c.id.Child(max(index, 0)), From: c.id, Depth: c.id.Len()}
	}
	delete(c.children, index)
	child.parent = nil
	child.markDetached()
	c.tree.logger.Debug("detached child", "node", c.id.String(), "index", index)
	return child, nil
}

// Close tears down the subtree rooted at c: every Unmounter in it is
// called and the subtree is marked detached, so later dispatches and
// propagations addressed to it fail with ErrUnresolvedIdentifier. Hosts
// call it on the root when a session ends. Close is idempotent.
func (c *Controller) Close() {
	if c.detached {
		return
	}
	if c.parent != nil {
		delete(c.parent.children, c.id.At(c.id.Len()-1))
		c.parent = nil
	}
	c.markDetached()
	c.tree.logger.Debug("closed tree", "node", c.id.String())
}

func (c *Controller) markDetached() {
	c.detached = true
	if u, ok := c.comp.(component.Unmounter); ok {
		u.Unmount()
	}
	for _, i := range c.Indices() {
		c.children[i].markDetached()
	}
}

// Resolve finds the controller addressed by id. id is absolute and must
// lie under this controller.
func (c *Controller) Resolve(id component.Identifier) (*Controller, error) {
	if c.detached {
		return nil, &UnresolvedIdentifierError{Target: id, From: c.id, Detached: true}
	}
	rel, ok := id.Rel(c.id)
	if !ok {
		return nil, &UnresolvedIdentifierError{Target: id, From: c.id, Depth: -1}
	}
	node := c
	for n, index := range rel {
		next, ok := node.children[index]
		if !ok {
			return nil, &UnresolvedIdentifierError{Target: id, From: c.id, Depth: c.id.Len() + n}
		}
		node = next
	}
	return node, nil
}

// Walk visits the subtree depth-first in index order. Returning false
// from fn skips the node's children.
func (c *Controller) Walk(fn func(*Controller) bool) {
	if !fn(c) {
		return
	}
	for _, i := range c.Indices() {
		c.children[i].Walk(fn)
	}
}

// NodeInfo is a debug view of one node.
type NodeInfo struct {
	ID        string `json:"id"`
	Component string `json:"component"`
	Children  []int  `json:"children,omitempty"`
}

// Snapshot lists every node of the subtree in Walk order.
func (c *Controller) Snapshot() []NodeInfo {
	var nodes []NodeInfo
	c.Walk(func(n *Controller) bool {
		nodes = append(nodes, NodeInfo{
			ID:        n.id.String(),
			Component: fmt.Sprintf("%T", n.comp),
			Children:  n.Indices(),
		})
		return true
	})
	return nodes
}
