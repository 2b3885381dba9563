package nested

import (
	"errors"
	"runtime/debug"
	"time"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// Dispatch routes an event to the node addressed by id and renders what
// its HandleEvent reports as stale. id is absolute and must lie under c.
//
// Exactly one HandleEvent call and one render pass happen per event.
// Messages queued during the pass are drained before Dispatch returns.
func (c *Controller) Dispatch(id component.Identifier, eventType dom.EventType, event dom.Event) error {
	t := c.tree
	if t.busy {
		return ErrBusy
	}

	info := PassInfo{
		Kind:      PassDispatch,
		Target:    id,
		EventType: eventType,
		Event:     event,
		Start:     time.Now(),
	}

	target, err := c.Resolve(id)
	if err == nil {
		info.Changed, info.Reported, info.Scopes, err = c.pass(target, func() ([]int, bool, error) {
			return target.handle(id, eventType, event)
		})
	}
	info.Err = err
	c.finish(info)

	return c.afterPass(err)
}

// Propagate applies the render-scope decision for indices at this
// controller, as if its component's HandleEvent had returned them.
// No indices means the controller's own node is re-rendered.
//
// If a pass is already running the request is queued and handled when
// that pass finishes.
func (c *Controller) Propagate(indices ...int) error {
	if c.detached {
		return &UnresolvedIdentifierError{Target: c.id, From: c.id, Detached: true}
	}
	t := c.tree
	if t.busy {
		t.mailbox.Post(Message{Target: c.id, Indices: indices, from: c})
		return nil
	}

	return c.afterPass(c.propagate(indices, false))
}

// afterPass drains messages queued while a pass ran.
func (c *Controller) afterPass(err error) error {
	if derr := c.drainQueued(true); derr != nil {
		return errors.Join(err, derr)
	}
	return err
}

// Drain processes every queued propagation message in posting order.
// Messages whose target no longer exists, or whose sender was removed from
// the tree, fail with ErrUnresolvedIdentifier; the remaining messages are
// still processed and all failures are returned joined.
//
// Messages posted by the passes Drain runs are drained too, up to the
// tree's follow-up limit. Past it the rest stays queued and Drain returns
// a *FollowupLimitError.
func (c *Controller) Drain() error {
	if c.tree.busy {
		return nil
	}
	return c.drainQueued(false)
}

// drainQueued processes the mailbox. followup marks passes drained right
// after another pass, as opposed to an explicit Drain.
func (c *Controller) drainQueued(followup bool) error {
	t := c.tree
	if d := t.mailbox.Dropped(); d > t.dropped {
		t.logger.Warn("mailbox overflowed, oldest propagations were dropped",
			"dropped", d-t.dropped, "total", d)
		t.dropped = d
	}
	var errs []error
	spent := 0
	for {
		msgs := t.mailbox.take()
		if len(msgs) == 0 {
			break
		}
		for n, msg := range msgs {
			if followup && spent >= t.followupLimit {
				t.mailbox.requeue(msgs[n:])
				err := &FollowupLimitError{Root: t.root.id, Limit: t.followupLimit, Queued: len(msgs) - n}
				t.logger.Warn("follow-up limit reached, deferring propagation",
					"limit", t.followupLimit, "queued", len(msgs)-n)
				return errors.Join(append(errs, err)...)
			}
			if followup {
				spent++
			}

			target, err := t.root.Resolve(msg.Target)
			if err == nil && msg.from != nil && (msg.from.detached || msg.from != target) {
				err = &UnresolvedIdentifierError{Target: msg.Target, From: msg.Target, Detached: true}
			}
			if err != nil {
				t.logger.Warn("dropping propagation for missing node",
					"target", msg.Target.String(), "error", err)
				t.observer.ObservePass(PassInfo{
					Kind:     PassPropagate,
					Target:   msg.Target,
					Changed:  msg.Indices,
					Reported: true,
					Followup: followup,
					Start:    time.Now(),
					Err:      err,
				})
				errs = append(errs, err)
				continue
			}
			if err := target.propagate(msg.Indices, followup); err != nil {
				errs = append(errs, err)
			}
		}
		// Anything queued now was posted by the passes just run.
		followup = true
	}
	return errors.Join(errs...)
}

func (c *Controller) propagate(indices []int, followup bool) error {
	info := PassInfo{
		Kind:     PassPropagate,
		Target:   c.id,
		Followup: followup,
		Start:    time.Now(),
	}
	var err error
	info.Changed, info.Reported, info.Scopes, err = c.pass(c, func() ([]int, bool, error) {
		return indices, true, nil
	})
	info.Err = err
	c.finish(info)
	return err
}

// pass runs one Idle -> Dispatching -> Rendering -> Idle cycle on target.
func (c *Controller) pass(target *Controller, change func() ([]int, bool, error)) (changed []int, reported bool, scopes []component.RenderType, err error) {
	t := c.tree
	t.busy = true
	c.state = StateDispatching
	target.state = StateDispatching
	defer func() {
		t.busy = false
		c.state = StateIdle
		target.state = StateIdle
	}()

	changed, reported, err = change()
	if err != nil || !reported {
		return changed, reported, nil, err
	}

	scopes, err = target.scopes(changed)
	if err != nil {
		return changed, reported, nil, err
	}

	c.state = StateRendering
	target.state = StateRendering
	for _, rt := range scopes {
		if err := target.commit(rt); err != nil {
			return changed, reported, scopes, err
		}
	}
	return changed, reported, scopes, nil
}

func (c *Controller) finish(info PassInfo) {
	info.Duration = time.Since(info.Start)
	t := c.tree
	if info.Err != nil {
		if errors.Is(info.Err, ErrUnresolvedIdentifier) {
			t.logger.Warn("ignoring event for missing node",
				"kind", info.Kind.String(), "target", info.Target.String(), "error", info.Err)
		} else {
			t.logger.Error("pass failed",
				"kind", info.Kind.String(), "target", info.Target.String(), "error", info.Err)
		}
	}
	t.observer.ObservePass(info)
}

// scopes turns a changed-index list into the renders to issue. An empty
// list renders the node at Root. Duplicates are coalesced keeping first
// occurrence order, and every index is checked before anything renders.
func (c *Controller) scopes(changed []int) ([]component.RenderType, error) {
	if len(changed) == 0 {
		return []component.RenderType{component.RenderRoot()}, nil
	}
	seen := make(map[int]struct{}, len(changed))
	scopes := make([]component.RenderType, 0, len(changed))
	for _, i := range changed {
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		rt := component.RenderPartial(i)
		if _, ok := c.children[i]; !ok {
			return nil, &IndexOutOfRangeError{Target: c.id, Node: c.id, Scope: rt, Children: c.Indices()}
		}
		scopes = append(scopes, rt)
	}
	return scopes, nil
}

// commit renders one scope and hands the output to the sink.
func (c *Controller) commit(rt component.RenderType) error {
	t := c.tree
	start := time.Now()
	items, present, err := c.Render(rt)
	if err == nil {
		if serr := t.sink.Commit(Update{Node: c.id, Scope: rt, Items: items, Present: present}); serr != nil {
			err = &SinkError{Node: c.id, Scope: rt, Err: serr}
		}
	}
	t.observer.ObserveRender(RenderInfo{
		Node:     c.id,
		Scope:    rt,
		Present:  present,
		Items:    len(items),
		Start:    start,
		Duration: time.Since(start),
		Err:      err,
	})
	return err
}

// Render produces the output of this node for rt.
//
// Root renders the node's component and composes it with the Root output
// of every child, in index order or through component.Composer. A node
// that renders nothing hides its subtree. Partial(i) delegates to child
// i's Root render and touches nothing else.
func (c *Controller) Render(rt component.RenderType) ([]dom.Renderable, bool, error) {
	if i, ok := rt.Index(); ok {
		child, exists := c.children[i]
		if !exists {
			return nil, false, &IndexOutOfRangeError{Target: c.id, Node: c.id, Scope: rt, Children: c.Indices()}
		}
		return child.Render(component.RenderRoot())
	}

	own, present, err := c.renderOwn()
	if err != nil || !present {
		return nil, false, err
	}
	if len(c.children) == 0 {
		return own, true, nil
	}

	children := make([]component.ChildOutput, 0, len(c.children))
	for _, i := range c.Indices() {
		items, ok, err := c.children[i].Render(component.RenderRoot())
		if err != nil {
			return nil, false, err
		}
		children = append(children, component.ChildOutput{Index: i, Items: items, Present: ok})
	}

	if composer, ok := c.comp.(component.Composer); ok {
		return c.compose(composer, own, children)
	}
	out := make([]dom.Renderable, 0, len(own)+len(children))
	out = append(out, own...)
	for _, ch := range children {
		if ch.Present {
			out = append(out, ch.Items...)
		}
	}
	return out, true, nil
}

func (c *Controller) renderOwn() (items []dom.Renderable, present bool, err error) {
	if c.comp == nil {
		return nil, true, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Node: c.id, Scope: component.RenderRoot(), Panic: r, Stack: debug.Stack()}
		}
	}()
	items, present = c.comp.Render(component.RenderRoot())
	return items, present, nil
}

func (c *Controller) compose(composer component.Composer, own []dom.Renderable, children []component.ChildOutput) (items []dom.Renderable, present bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &RenderError{Node: c.id, Scope: component.RenderRoot(), Panic: r, Stack: debug.Stack()}
		}
	}()
	return composer.Compose(own, children), true, nil
}

// handle calls the component's HandleEvent, recovering panics.
func (c *Controller) handle(id component.Identifier, eventType dom.EventType, event dom.Event) (changed []int, reported bool, err error) {
	if c.comp == nil {
		return nil, false, nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerError{Target: id, EventType: eventType, Panic: r, Stack: debug.Stack()}
		}
	}()
	changed, reported = c.comp.HandleEvent(id, eventType, event)
	return changed, reported, nil
}
