package designer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SelectionFunc receives the full current selection. It must not call back
// into the Controller that owns the bridge.
type SelectionFunc func(labels []string)

// Bridge turns "selection changed" notifications into full-set queries
// against the handle. A result is delivered only if it was issued after the
// last delivered one, so a slow early query never overwrites a newer set.
type Bridge struct {
	log     zerolog.Logger
	metrics *Metrics
	deliver SelectionFunc
	timeout time.Duration

	mu        sync.Mutex
	handle    Handle
	issued    uint64
	delivered uint64
	detached  bool
	inflight  sync.WaitGroup
}

func newBridge(log zerolog.Logger, metrics *Metrics, timeout time.Duration, deliver SelectionFunc) *Bridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bridge{log: log, metrics: metrics, timeout: timeout, deliver: deliver}
}

func (b *Bridge) attach(h Handle) {
	b.mu.Lock()
	b.handle = h
	b.mu.Unlock()
}

// detach stops delivery. Queries already running finish but are discarded.
func (b *Bridge) detach() {
	b.mu.Lock()
	b.detached = true
	b.handle = nil
	b.mu.Unlock()
}

// Notify is registered with Widget.OnSelectionChanged.
func (b *Bridge) Notify() {
	b.mu.Lock()
	if b.detached || b.handle == nil {
		b.mu.Unlock()
		return
	}
	b.issued++
	seq, h := b.issued, b.handle
	b.inflight.Add(1)
	b.mu.Unlock()

	go b.query(h, seq)
}

// Wait blocks until every query started so far has finished.
func (b *Bridge) Wait() { b.inflight.Wait() }

func (b *Bridge) query(h Handle, seq uint64) {
	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), b.timeout)
	defer cancel()

	var labels []string
	err := guard(func() error {
		var err error
		labels, err = h.ListSelected(ctx)
		return err
	})
	if err != nil {
		b.metrics.QueryErrors.Inc()
		b.log.Warn().Err(fmt.Errorf("%w: %w", ErrQuerySync, err)).Uint64("seq", seq).Msg("selection query failed")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.detached || seq <= b.delivered {
		b.log.Debug().Uint64("seq", seq).Uint64("delivered", b.delivered).Msg("dropping stale selection")
		return
	}
	b.delivered = seq
	if b.deliver != nil {
		b.deliver(labels)
	}
}

// guard runs fn and converts a panic in vendor code into an error.
func guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
