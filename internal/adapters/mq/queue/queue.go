// Package queue holds the pending filter-change requests of one session.
//
// The queue is a latest-wins mailbox: it keeps at most one pending request
// and a newer request replaces an older one that has not been picked up yet.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/castle/internal/domain/filter"
	"github.com/okian/castle/pkg/metrics"
)

// Request is one filter change.
type Request struct {
	Seq        uint64
	State      filter.State
	ReceivedAt time.Time
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue offers a request. Returns false if the queue is closed or the
	// request is older than one already accepted.
	Enqueue(ctx context.Context, r Request) bool

	// Dequeue returns the channel pending requests are delivered on. The
	// channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Request

	// Latest returns the highest sequence number accepted so far.
	Latest() uint64

	// Len returns the number of pending requests, zero or one.
	Len(ctx context.Context) int

	// Close stops accepting requests and closes the dequeue channel.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// Mailbox implements Queue with a one-slot buffered channel.
type Mailbox struct {
	slot       chan Request
	onDrop     func(Request)
	now        func() time.Time
	latest     uint64
	superseded uint64

	mu     sync.Mutex
	closed bool
}

// NewMailbox creates an empty mailbox.
func NewMailbox(opts ...Option) *Mailbox {
	m := &Mailbox{
		slot: make(chan Request, 1),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue replaces any pending request with r. A zero Seq is assigned the
// next number after Latest.
func (m *Mailbox) Enqueue(ctx context.Context, r Request) bool { //nolint:gocritic // hugeParam: Request is passed by value for channel semantics
	if ctx.Err() != nil {
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return false
	}
	if r.Seq == 0 {
		r.Seq = m.latest + 1
	}
	if r.Seq <= m.latest {
		m.drop(r)
		return false
	}
	if r.ReceivedAt.IsZero() {
		r.ReceivedAt = m.now()
	}

	select {
	case old := <-m.slot:
		m.drop(old)
	default:
	}
	// Senders are serialized by mu and the slot was just emptied.
	m.slot <- r
	m.latest = r.Seq
	return true
}

func (m *Mailbox) drop(r Request) { //nolint:gocritic // hugeParam: Request is passed by value for channel semantics
	m.superseded++
	metrics.RecordRecomputeSuperseded()
	if m.onDrop != nil {
		m.onDrop(r)
	}
}

// Dequeue returns the delivery channel.
func (m *Mailbox) Dequeue(_ context.Context) <-chan Request {
	return m.slot
}

// Latest returns the highest sequence number accepted so far.
func (m *Mailbox) Latest() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.latest
}

// Superseded returns how many requests were dropped in favour of newer ones.
func (m *Mailbox) Superseded() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.superseded
}

// Len returns the number of pending requests.
func (m *Mailbox) Len(_ context.Context) int {
	return len(m.slot)
}

// Close gracefully shuts down the mailbox.
func (m *Mailbox) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil // already closed
	}

	close(m.slot)
	m.closed = true

	return nil
}

// IsClosed returns true if the mailbox has been closed.
func (m *Mailbox) IsClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
