package vtest

import (
	"strconv"
	"sync"

	"github.com/vango-dev/kinesis/pkg/component"
	"github.com/vango-dev/kinesis/pkg/dom"
)

// Result is one scripted HandleEvent return value.
type Result struct {
	Changed  []int
	Reported bool
}

// EventCall records one HandleEvent invocation.
type EventCall struct {
	ID        component.Identifier
	EventType dom.EventType
	Event     dom.Event
}

// Probe is a scripted component for tests.
type Probe struct {
	Name string

	mu       sync.Mutex
	script   []Result
	events   []EventCall
	renders  []component.RenderType
	revision int
	hidden   bool
	update   component.UpdateFunc
	mountID  component.Identifier
	mounts   int
	unmounts int
	panicOn  string
}

// NewProbe creates a probe that reports no change until scripted.
func NewProbe(name string) *Probe {
	return &Probe{Name: name}
}

// Returns appends a scripted result. The last result repeats once the
// script is exhausted.
func (p *Probe) Returns(changed []int, reported bool) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.script = append(p.script, Result{Changed: changed, Reported: reported})
	return p
}

// Hide makes Render report nothing.
func (p *Probe) Hide(hidden bool) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hidden = hidden
	return p
}

// PanicOn makes the probe panic in "event" or "render".
func (p *Probe) PanicOn(phase string) *Probe {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.panicOn = phase
	return p
}

// Bump changes the probe's rendered output.
func (p *Probe) Bump() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revision++
}

// HandleEvent implements component.Component.
func (p *Probe) HandleEvent(id component.Identifier, eventType dom.EventType, event dom.Event) ([]int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, EventCall{ID: id, EventType: eventType, Event: event})
	if p.panicOn == "event" {
		panic("probe " + p.Name + ": event panic")
	}
	if len(p.script) == 0 {
		return nil, false
	}
	r := p.script[0]
	if len(p.script) > 1 {
		p.script = p.script[1:]
	}
	if r.Reported {
		p.revision++
	}
	return r.Changed, r.Reported
}

// Render implements component.Component.
func (p *Probe) Render(rt component.RenderType) ([]dom.Renderable, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.renders = append(p.renders, rt)
	if p.panicOn == "render" {
		panic("probe " + p.Name + ": render panic")
	}
	if p.hidden {
		return nil, false
	}
	return dom.Items(dom.El("div",
		dom.Attr("data-probe", p.Name),
		dom.Attr("data-rev", strconv.Itoa(p.revision)),
	)), true
}

// Mount implements component.Mounter.
func (p *Probe) Mount(id component.Identifier, update component.UpdateFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mountID = id
	p.update = update
	p.mounts++
}

// Unmount implements component.Unmounter.
func (p *Probe) Unmount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.unmounts++
}

// Update calls the UpdateFunc the probe was mounted with.
// It panics if the probe was never mounted.
func (p *Probe) Update(indices ...int) {
	p.mu.Lock()
	update := p.update
	p.mu.Unlock()
	if update == nil {
		panic("probe " + p.Name + " is not mounted")
	}
	update(indices...)
}

// Events returns the recorded HandleEvent calls.
func (p *Probe) Events() []EventCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]EventCall(nil), p.events...)
}

// Renders returns the recorded Render scopes.
func (p *Probe) Renders() []component.RenderType {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]component.RenderType(nil), p.renders...)
}

// MountedAt returns the identifier of the last Mount and the number of
// Mount and Unmount calls.
func (p *Probe) MountedAt() (id component.Identifier, mounts, unmounts int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mountID, p.mounts, p.unmounts
}

// Reset clears recorded calls.
func (p *Probe) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = nil
	p.renders = nil
}
