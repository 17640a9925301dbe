package queue

import "time"

// Option applies a configuration option to the Mailbox.
type Option func(*Mailbox)

// WithDropHook registers fn to be called with every request that is dropped
// as stale. fn runs with the mailbox locked and must not call back into it.
func WithDropHook(fn func(Request)) Option {
	return func(m *Mailbox) {
		m.onDrop = fn
	}
}

// WithClock sets the time source used to stamp requests.
func WithClock(now func() time.Time) Option {
	return func(m *Mailbox) {
		if now != nil {
			m.now = now
		}
	}
}
