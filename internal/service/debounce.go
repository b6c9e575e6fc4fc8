package service

import (
	"context"
	"errors"
	"sync"
	"time"
)

// DefaultDebounce is the search-as-you-type delay
const DefaultDebounce = 500 * time.Millisecond

var ErrSuperseded = errors.New("superseded by a newer call")

// Debouncer implements a trailing-edge debounce for concurrent callers: every
// caller waits out the delay, and only the most recent one goes through.
type Debouncer struct {
	delay time.Duration
	mu    sync.Mutex
	gen   uint64
}

func NewDebouncer(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Settle returns nil for the last call of a burst and ErrSuperseded for the rest.
func (d *Debouncer) Settle(ctx context.Context) error {
	d.mu.Lock()
	d.gen++
	mine := d.gen
	d.mu.Unlock()

	if d.delay > 0 {
		t := time.NewTimer(d.delay)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if mine != d.gen {
		return ErrSuperseded
	}
	return nil
}
