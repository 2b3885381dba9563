package nested

import (
	"sync"

	"github.com/vango-dev/kinesis/pkg/component"
)

// DefaultMailboxSize bounds the number of undelivered messages a mailbox
// holds before it starts dropping the oldest ones.
const DefaultMailboxSize = 1024

// Message reports changed children of the node at Target.
type Message struct {
	Target  component.Identifier
	Indices []int

	// from is the controller that posted the message, if it came from a
	// tree. A message is only delivered while from still sits at Target.
	from *Controller
}

// Mailbox queues propagation messages for a tree. Post is safe from any
// goroutine; the tree drains the queue on its own goroutine.
type Mailbox struct {
	mu      sync.Mutex
	queue   []Message
	limit   int
	dropped uint64
	notify  chan struct{}
}

// NewMailbox creates a mailbox holding at most limit messages.
// A limit of zero or less means DefaultMailboxSize.
func NewMailbox(limit int) *Mailbox {
	if limit <= 0 {
		limit = DefaultMailboxSize
	}
	return &Mailbox{
		limit:  limit,
		notify: make(chan struct{}, 1),
	}
}

// Post queues a message and wakes whoever is waiting on Notify.
func (m *Mailbox) Post(msg Message) {
	indices := make([]int, len(msg.Indices))
	copy(indices, msg.Indices)
	msg.Indices = indices

	m.mu.Lock()
	if len(m.queue) >= m.limit {
		m.queue = m.queue[1:]
		m.dropped++
	}
	m.queue = append(m.queue, msg)
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// Notify returns a channel that receives a value after Post. A single
// receive may cover many posted messages.
func (m *Mailbox) Notify() <-chan struct{} {
	return m.notify
}

// Len returns the number of queued messages.
func (m *Mailbox) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Dropped returns how many messages were discarded because the mailbox was full.
func (m *Mailbox) Dropped() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// requeue puts msgs back in front of the queue, oldest first. Messages
// beyond the limit are dropped from the front.
func (m *Mailbox) requeue(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	m.mu.Lock()
	q := make([]Message, 0, len(msgs)+len(m.queue))
	q = append(q, msgs...)
	q = append(q, m.queue...)
	if over := len(q) - m.limit; over > 0 {
		q = q[over:]
		m.dropped += uint64(over)
	}
	m.queue = q
	m.mu.Unlock()

	select {
	case m.notify <- struct{}{}:
	default:
	}
}

// take removes and returns all queued messages in posting order.
func (m *Mailbox) take() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) == 0 {
		return nil
	}
	q := m.queue
	m.queue = nil
	return q
}
