package demo

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
)

// Options configures the demo tree.
type Options struct {
	// Counters is the number of counters on the board.
	Counters int

	// Tick is the clock period. Zero stops the clock.
	Tick time.Duration

	// Now is the clock's time source. Default: time.Now.
	Now func() time.Time
}

// Build returns a factory for demo trees. Each call builds a fresh tree
// with opts applied, so every session gets its own state.
func Build(o Options) func(opts ...nested.Option) (*nested.Controller, error) {
	if o.Now == nil {
		o.Now = time.Now
	}
	return func(opts ...nested.Option) (*nested.Controller, error) {
		board := &Board{}
		root := nested.New(board, opts...)
		if _, err := root.NewChild(0, NewClock(o.Tick, o.Now)); err != nil {
			return nil, err
		}
		for i := 1; i <= o.Counters; i++ {
			c := &Counter{Label: "Counter " + strconv.Itoa(i)}
			if _, err := root.NewChild(i, c); err != nil {
				return nil, err
			}
			board.counters = append(board.counters, c)
		}
		return root, nil
	}
}

func kid(id component.Identifier) dom.Attribute {
	return dom.Attr("data-kid", id.String())
}

// Board is the root. Clicking it resets all counters.
type Board struct {
	id       component.Identifier
	counters []*Counter
	resets   int
}

// Mount implements component.Mounter.
func (b *Board) Mount(id component.Identifier, _ component.UpdateFunc) {
	b.id = id
}

// HandleEvent implements component.Component. It only sees events
// addressed to the board itself; a click resets every counter.
func (b *Board) HandleEvent(_ component.Identifier, et dom.EventType, _ dom.Event) ([]int, bool) {
	if et != dom.EventClick {
		return nil, false
	}
	b.resets++
	changed := make([]int, len(b.counters))
	for i, c := range b.counters {
		c.value = 0
		changed[i] = i + 1
	}
	return changed, true
}

// Render implements component.Component.
func (b *Board) Render(component.RenderType) ([]dom.Renderable, bool) {
	return dom.Items(
		dom.El("h1", dom.Text("kinesis")),
		dom.El("button", kid(b.id), dom.Class("reset"), dom.Text("Reset")),
	), true
}

// Compose implements component.Composer: the clock goes in the header
// and the counters in a list.
func (b *Board) Compose(own []dom.Renderable, children []component.ChildOutput) []dom.Renderable {
	header := dom.El("header", nodes(own))
	list := dom.El("ul", dom.Class("counters"))
	for _, c := range children {
		if !c.Present {
			continue
		}
		if c.Index == 0 {
			header.Children = append(header.Children, nodes(c.Items)...)
			continue
		}
		list.Children = append(list.Children, dom.El("li", nodes(c.Items)))
	}
	return dom.Items(dom.El("main", kid(b.id), header, list))
}

// nodes adapts rendered items for use as element children.
func nodes(items []dom.Renderable) []*dom.Node {
	out := make([]*dom.Node, 0, len(items))
	for _, r := range items {
		if n, ok := r.(*dom.Node); ok {
			out = append(out, n)
			continue
		}
		out = append(out, dom.Raw(dom.HTML([]dom.Renderable{r})))
	}
	return out
}

// Resets returns how many times the board was reset.
func (b *Board) Resets() int {
	return b.resets
}

// Counter holds a number.
type Counter struct {
	Label string

	id    component.Identifier
	value int
}

// Value returns the current count.
func (c *Counter) Value() int {
	return c.value
}

// Mount implements component.Mounter.
func (c *Counter) Mount(id component.Identifier, _ component.UpdateFunc) {
	c.id = id
}

// HandleEvent implements component.Component.
func (c *Counter) HandleEvent(_ component.Identifier, et dom.EventType, ev dom.Event) ([]int, bool) {
	switch et {
	case dom.EventClick:
		c.value++
	case dom.EventKeyDown:
		k, _ := ev.(dom.KeyboardEvent)
		step := 1
		if k.Modifiers.Has(dom.ModShift) {
			step = 10
		}
		switch k.Key {
		case "ArrowUp":
			c.value += step
		case "ArrowDown":
			c.value -= step
		default:
			return nil, false
		}
	case dom.EventInput, dom.EventChange:
		in, _ := ev.(dom.InputEvent)
		v, err := strconv.Atoi(strings.TrimSpace(in.Value))
		if err != nil || v == c.value {
			return nil, false
		}
		c.value = v
	default:
		return nil, false
	}
	return []int{}, true
}

// Render implements component.Component.
func (c *Counter) Render(component.RenderType) ([]dom.Renderable, bool) {
	return dom.Items(dom.El("button", kid(c.id), dom.Class("counter"),
		dom.Text(c.Label+": "+strconv.Itoa(c.value)))), true
}

// Clock shows the time of its last tick.
type Clock struct {
	tick time.Duration
	now  func() time.Time

	mu    sync.Mutex
	id    component.Identifier
	last  time.Time
	ticks int
	stop  chan struct{}
}

// NewClock creates a clock ticking every tick.
func NewClock(tick time.Duration, now func() time.Time) *Clock {
	return &Clock{tick: tick, now: now, last: now()}
}

// Mount implements component.Mounter. The ticker goroutine only posts to
// the tree's mailbox; the tree renders the clock on its own goroutine.
func (c *Clock) Mount(id component.Identifier, update component.UpdateFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.id = id
	if c.tick <= 0 || c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	go c.run(c.stop, update)
}

func (c *Clock) run(stop <-chan struct{}, update component.UpdateFunc) {
	t := time.NewTicker(c.tick)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			c.mu.Lock()
			c.last = c.now()
			c.ticks++
			c.mu.Unlock()
			update()
		}
	}
}

// Unmount implements component.Unmounter.
func (c *Clock) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Ticks returns how many times the clock has ticked.
func (c *Clock) Ticks() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ticks
}

// HandleEvent implements component.Component. The clock ignores events.
func (c *Clock) HandleEvent(component.Identifier, dom.EventType, dom.Event) ([]int, bool) {
	return nil, false
}

// Render implements component.Component.
func (c *Clock) Render(component.RenderType) ([]dom.Renderable, bool) {
	c.mu.Lock()
	id, last := c.id, c.last
	c.mu.Unlock()
	return dom.Items(dom.El("time", kid(id), dom.Attr("datetime", last.UTC().Format(time.RFC3339)),
		dom.Text(last.Format("15:04:05")))), true
}
