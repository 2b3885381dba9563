package journal

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/vango-dev/kinesis/pkg/dom"
	"github.com/vango-dev/kinesis/pkg/nested"
	"github.com/vango-dev/kinesis/pkg/protocol"
)

// DefaultBatchSize is the number of buffered records that wakes the
// background flusher early.
const DefaultBatchSize = 256

// Recorder turns observed passes into records and writes them to a
// Store in batches. ObservePass never blocks on the store; records are
// written by Flush, which Start calls periodically.
type Recorder struct {
	store     Store
	journalID string
	batchSize int
	logger    *slog.Logger

	mu      sync.Mutex
	seq     uint64
	pending []Record
	written uint64
	closed  bool

	// flushMu serializes writes so batches land in sequence order.
	flushMu sync.Mutex
	wake    chan struct{}
	stop    chan struct{}
	done    chan struct{}
}

// RecorderOption configures a Recorder.
type RecorderOption func(*Recorder)

// WithBatchSize sets how many buffered records wake the flusher.
func WithBatchSize(n int) RecorderOption {
	return func(r *Recorder) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithRecorderLogger sets the logger used for flush failures.
func WithRecorderLogger(l *slog.Logger) RecorderOption {
	return func(r *Recorder) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRecorder creates a recorder writing the journal journalID to store.
func NewRecorder(store Store, journalID string, opts ...RecorderOption) *Recorder {
	r := &Recorder{
		store:     store,
		journalID: journalID,
		batchSize: DefaultBatchSize,
		logger:    slog.Default(),
		wake:      make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With("journal", journalID)
	return r
}

// JournalID returns the journal this recorder writes.
func (r *Recorder) JournalID() string {
	return r.journalID
}

// ObservePass implements nested.Observer.
func (r *Recorder) ObservePass(info nested.PassInfo) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.seq++
	rec := FromPass(r.seq, info)
	r.sanitize(&rec)
	r.pending = append(r.pending, rec)
	full := len(r.pending) >= r.batchSize
	r.mu.Unlock()

	if full {
		select {
		case r.wake <- struct{}{}:
		default:
		}
	}
}

// sanitize keeps a record with an unencodable event from failing its
// whole batch. The payload is dropped; an unknown type is recorded as
// EventCustom.
func (r *Recorder) sanitize(rec *Record) {
	if rec.Kind != nested.PassDispatch {
		return
	}
	err := protocol.EncodeEventPayload(protocol.NewEncoder(), rec.EventType, rec.Event)
	if err == nil {
		return
	}
	r.logger.Warn("journal dropping event payload", "seq", rec.Seq, "type", rec.EventType.String(), "error", err)
	if !rec.EventType.Valid() {
		rec.EventType = dom.EventCustom
	}
	rec.Event = nil
}

// ObserveRender implements nested.Observer. Renders are recorded as the
// scopes of their pass.
func (r *Recorder) ObserveRender(nested.RenderInfo) {}

// Pending returns the number of records not yet written.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Written returns the number of records written to the store.
func (r *Recorder) Written() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// Flush writes buffered records as one batch. On failure the records
// stay buffered and the next Flush retries them.
func (r *Recorder) Flush(ctx context.Context) error {
	r.flushMu.Lock()
	defer r.flushMu.Unlock()

	r.mu.Lock()
	batch := r.pending
	r.pending = nil
	r.mu.Unlock()

	if len(batch) == 0 {
		return nil
	}

	data, err := EncodeBatch(batch)
	if err == nil {
		err = r.store.Put(ctx, r.journalID, batch[0].Seq, data)
	}
	if err != nil {
		r.mu.Lock()
		r.pending = append(batch, r.pending...)
		r.mu.Unlock()
		return err
	}

	r.mu.Lock()
	r.written += uint64(len(batch))
	r.mu.Unlock()
	r.logger.Debug("journal batch written", "first_seq", batch[0].Seq, "records", len(batch))
	return nil
}

// Start flushes every interval, and whenever the buffer reaches the
// batch size, until ctx is done or Close is called.
func (r *Recorder) Start(ctx context.Context, interval time.Duration) {
	r.mu.Lock()
	if r.stop != nil || r.closed {
		r.mu.Unlock()
		return
	}
	r.stop = make(chan struct{})
	r.done = make(chan struct{})
	stop, done := r.stop, r.done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-stop:
				return
			case <-ticker.C:
			case <-r.wake:
			}
			if err := r.Flush(ctx); err != nil {
				r.logger.Error("journal flush failed", "error", err)
			}
		}
	}()
}

// Close stops the background flusher and writes what is left. Passes
// observed after Close are not recorded.
func (r *Recorder) Close(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	stop, done := r.stop, r.done
	r.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	if err := r.Flush(ctx); err != nil {
		return errors.Join(errors.New("journal: final flush failed"), err)
	}
	return nil
}
