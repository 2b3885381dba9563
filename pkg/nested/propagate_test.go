package nested_test

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/vtest"
)

func TestPropagateMatchesDispatch(t *testing.T) {
	viaDispatch, recD, _ := buildTree(t)
	viaDispatch.Component().(*vtest.Probe).Returns([]int{0}, true)
	if err := viaDispatch.Dispatch(id(), dom.EventClick, nil); err != nil {
		t.Fatal(err)
	}

	viaPropagate, recP, probes := buildTree(t)
	if err := viaPropagate.Propagate(0); err != nil {
		t.Fatal(err)
	}

	vtest.ExpectUpdates(t, recP, recD.Summary()...)
	if recD.HTML(0) != recP.HTML(0) {
		t.Errorf("outputs differ:\n%s\n%s", recD.HTML(0), recP.HTML(0))
	}
	vtest.ExpectEvents(t, probes["root"], 0)
}

func TestPropagateEmptyRendersSelf(t *testing.T) {
	root, rec, probes := buildTree(t)
	if err := root.Child(1).Propagate(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectUpdates(t, rec, "/1 Root")
	vtest.ExpectRenders(t, probes["a"], 0)
	vtest.ExpectRenders(t, probes["c"], 0)
}

func TestPropagateOutOfRange(t *testing.T) {
	root, rec, _ := buildTree(t)
	if err := root.Propagate(7); !errors.Is(err, nested.ErrIndexOutOfRange) {
		t.Errorf("error = %v, want ErrIndexOutOfRange", err)
	}
	vtest.ExpectUpdates(t, rec)
}

func TestUpdateFuncPostsToMailbox(t *testing.T) {
	root, rec, probes := buildTree(t)
	probes["b"].Update(1)
	probes["a"].Update()

	if got := root.Mailbox().Len(); got != 2 {
		t.Fatalf("mailbox len = %d, want 2", got)
	}
	select {
	case <-root.Mailbox().Notify():
	default:
		t.Error("Post should signal Notify")
	}
	vtest.ExpectUpdates(t, rec)

	if err := root.Drain(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectUpdates(t, rec, "/1 Partial(1)", "/0 Root")
	if root.Mailbox().Len() != 0 {
		t.Error("mailbox should be empty after Drain")
	}
}

func TestDrainSkipsRemovedNodes(t *testing.T) {
	root, rec, probes := buildTree(t)
	probes["b1"].Update()
	probes["c"].Update()
	if _, err := root.Child(1).Detach(1); err != nil {
		t.Fatal(err)
	}

	err := root.Drain()
	if !errors.Is(err, nested.ErrUnresolvedIdentifier) {
		t.Errorf("Drain error = %v, want ErrUnresolvedIdentifier", err)
	}
	vtest.ExpectUpdates(t, rec, "/2 Root")
}

// mountOnly keeps its UpdateFunc but never learns it was removed.
type mountOnly struct {
	update component.UpdateFunc
}

func (m *mountOnly) Mount(_ component.Identifier, update component.UpdateFunc) { m.update = update }

func (m *mountOnly) HandleEvent(component.Identifier, dom.EventType, dom.Event) ([]int, bool) {
	return nil, false
}

func (m *mountOnly) Render(component.RenderType) ([]dom.Renderable, bool) {
	return nil, true
}

func TestStaleUpdateFuncAfterReattach(t *testing.T) {
	rec := vtest.NewRecorder()
	root := nested.New(vtest.NewProbe("root"), nested.WithSink(rec))
	old := &mountOnly{}
	root.MustChild(0, old)
	if _, err := root.Detach(0); err != nil {
		t.Fatal(err)
	}
	fresh := vtest.NewProbe("fresh")
	root.MustChild(0, fresh)

	old.update()
	err := root.Drain()
	var unresolved *nested.UnresolvedIdentifierError
	if !errors.As(err, &unresolved) || !unresolved.Detached {
		t.Fatalf("Drain error = %v, want a detached UnresolvedIdentifierError", err)
	}
	vtest.ExpectUpdates(t, rec)
	vtest.ExpectRenders(t, fresh, 0)

	fresh.Update()
	if err := root.Drain(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectUpdates(t, rec, "/0 Root")
}

// restless asks for another render every time it renders.
type restless struct {
	update  component.UpdateFunc
	renders int
}

func (r *restless) Mount(_ component.Identifier, update component.UpdateFunc) { r.update = update }

func (r *restless) HandleEvent(component.Identifier, dom.EventType, dom.Event) ([]int, bool) {
	return nil, true
}

func (r *restless) Render(component.RenderType) ([]dom.Renderable, bool) {
	r.renders++
	r.update()
	return nil, true
}

func TestFollowupLimitStopsCascade(t *testing.T) {
	comp := &restless{}
	root := nested.New(comp, nested.WithFollowupLimit(3))

	err := root.Dispatch(id(), dom.EventClick, nil)
	var limit *nested.FollowupLimitError
	if !errors.As(err, &limit) || limit.Limit != 3 || limit.Queued != 1 {
		t.Fatalf("Dispatch error = %v, want FollowupLimitError{Limit: 3, Queued: 1}", err)
	}
	if comp.renders != 4 {
		t.Errorf("renders = %d, want 4", comp.renders)
	}
	if root.Mailbox().Len() != 1 {
		t.Errorf("mailbox len = %d, want the deferred message", root.Mailbox().Len())
	}
	if root.State() != nested.StateIdle {
		t.Errorf("state = %v, want Idle", root.State())
	}

	// Drain picks up where the pass stopped and is bounded the same way.
	if err := root.Drain(); !errors.Is(err, nested.ErrFollowupLimit) {
		t.Errorf("Drain error = %v, want ErrFollowupLimit", err)
	}
	if comp.renders != 8 {
		t.Errorf("renders = %d, want 8", comp.renders)
	}
}

// reentrant propagates from inside HandleEvent and tries a nested dispatch.
type reentrant struct {
	root        *nested.Controller
	dispatchErr error
}

func (r *reentrant) HandleEvent(component.Identifier, dom.EventType, dom.Event) ([]int, bool) {
	if err := r.root.Child(1).Propagate(); err != nil {
		panic(err)
	}
	r.dispatchErr = r.root.Dispatch(id(0), dom.EventClick, nil)
	if r.root.State() != nested.StateDispatching {
		panic("root should be dispatching")
	}
	return []int{0}, true
}

func (r *reentrant) Render(component.RenderType) ([]dom.Renderable, bool) {
	return nil, true
}

func TestReentrantCallsAreQueuedOrRejected(t *testing.T) {
	rec := vtest.NewRecorder()
	comp := &reentrant{}
	root := nested.New(comp, nested.WithSink(rec))
	comp.root = root
	k0 := vtest.NewProbe("k0")
	root.MustChild(0, k0)
	root.MustChild(1, vtest.NewProbe("k1"))

	if err := root.Dispatch(id(), dom.EventClick, nil); err != nil {
		t.Fatal(err)
	}
	if !errors.Is(comp.dispatchErr, nested.ErrBusy) {
		t.Errorf("nested dispatch error = %v, want ErrBusy", comp.dispatchErr)
	}
	vtest.ExpectEvents(t, k0, 0)
	// The dispatch pass renders first, then the queued propagation.
	vtest.ExpectUpdates(t, rec, "/ Partial(0)", "/1 Root")
	if root.State() != nested.StateIdle {
		t.Errorf("state = %v, want Idle", root.State())
	}
}

func TestUpdateFuncFromGoroutines(t *testing.T) {
	root, rec, probes := buildTree(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			probes["b"].Update(0)
		}()
	}
	wg.Wait()

	if err := root.Drain(); err != nil {
		t.Fatal(err)
	}
	if got := len(rec.Updates()); got != 8 {
		t.Errorf("updates = %d, want 8", got)
	}
}

func TestMailboxDropsOldest(t *testing.T) {
	var buf bytes.Buffer
	mb := nested.NewMailbox(2)
	root := nested.New(vtest.NewProbe("root"), nested.WithMailbox(mb),
		nested.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	root.MustChild(0, vtest.NewProbe("a"))
	mb.Post(nested.Message{Target: id(9)})
	mb.Post(nested.Message{Target: id(0)})
	mb.Post(nested.Message{Target: id()})
	if mb.Dropped() != 1 || mb.Len() != 2 {
		t.Errorf("dropped=%d len=%d, want 1 and 2", mb.Dropped(), mb.Len())
	}
	if err := root.Drain(); err != nil {
		t.Errorf("Drain error = %v; the stale message should have been dropped", err)
	}
	if got := strings.Count(buf.String(), "mailbox overflowed"); got != 1 {
		t.Errorf("overflow warnings = %d, want 1:\n%s", got, buf.String())
	}

	// Drops are reported once.
	if err := root.Drain(); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "mailbox overflowed"); got != 1 {
		t.Errorf("overflow warnings after second Drain = %d, want 1", got)
	}
}

type passLog struct {
	passes  []nested.PassInfo
	renders []nested.RenderInfo
}

func (p *passLog) ObservePass(info nested.PassInfo)     { p.passes = append(p.passes, info) }
func (p *passLog) ObserveRender(info nested.RenderInfo) { p.renders = append(p.renders, info) }

func TestObserver(t *testing.T) {
	log := &passLog{}
	other := &passLog{}
	root := nested.New(vtest.NewProbe("root").Returns([]int{1, 0}, true),
		nested.WithObserver(nested.Observers(log, nil, other)))
	root.MustChild(0, vtest.NewProbe("a"))
	root.MustChild(1, vtest.NewProbe("b"))

	if err := root.Dispatch(id(), dom.EventKeyDown, &dom.KeyboardEvent{Key: "a"}); err != nil {
		t.Fatal(err)
	}
	_ = root.Dispatch(id(4), dom.EventClick, nil)

	if len(log.passes) != 2 || len(other.passes) != 2 {
		t.Fatalf("passes = %d/%d, want 2", len(log.passes), len(other.passes))
	}
	p := log.passes[0]
	if p.Kind != nested.PassDispatch || p.EventType != dom.EventKeyDown || !p.Reported || len(p.Scopes) != 2 {
		t.Errorf("first pass = %+v", p)
	}
	if !errors.Is(log.passes[1].Err, nested.ErrUnresolvedIdentifier) {
		t.Errorf("second pass err = %v", log.passes[1].Err)
	}
	if len(log.renders) != 2 || log.renders[0].Scope != component.RenderPartial(1) || log.renders[0].Items != 1 {
		t.Errorf("renders = %+v", log.renders)
	}
}

func TestConfigureKeepsMailbox(t *testing.T) {
	root := nested.New(vtest.NewProbe("root"))
	mb := root.Mailbox()
	rec := vtest.NewRecorder()
	root.Configure(nested.WithMailbox(nested.NewMailbox(1)), nested.WithSink(rec), nil)
	if root.Mailbox() != mb {
		t.Error("Configure must not replace the mailbox")
	}
	if err := root.Propagate(); err != nil {
		t.Fatal(err)
	}
	vtest.ExpectUpdates(t, rec, "/ Root")
}

func TestFollowupMarksDrainedPasses(t *testing.T) {
	log := &passLog{}
	comp := &reentrant{}
	root := nested.New(comp, nested.WithObserver(log))
	comp.root = root
	root.MustChild(0, vtest.NewProbe("k0"))
	k1 := vtest.NewProbe("k1")
	root.MustChild(1, k1)

	if err := root.Dispatch(id(), dom.EventClick, nil); err != nil {
		t.Fatal(err)
	}
	k1.Update()
	if err := root.Drain(); err != nil {
		t.Fatal(err)
	}

	var got []string
	for _, p := range log.passes {
		s := p.Kind.String() + " " + p.Target.String()
		if p.Followup {
			s += " followup"
		}
		got = append(got, s)
	}
	want := []string{"dispatch /", "propagate /1 followup", "propagate /1"}
	if len(got) != len(want) {
		t.Fatalf("passes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("pass %d = %q, want %q", i, got[i], want[i])
		}
	}
}
