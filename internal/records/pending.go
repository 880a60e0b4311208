package records

import (
	"context"
	"sync"
)

// PendingWrite tracks one in-flight full-list write.
//
// The in-memory list already reflects the change when a PendingWrite is returned; the
// handle lets the caller wait for, observe, or react to the storage outcome. A nil
// *PendingWrite means no write was issued and behaves as an already successful one.
type PendingWrite struct {
	seq  uint64
	done chan struct{}

	mu         sync.Mutex
	settled    bool
	err        error
	superseded bool
	callbacks  []func(error)
}

func newPendingWrite(seq uint64) *PendingWrite {
	return &PendingWrite{seq: seq, done: make(chan struct{})}
}

// Seq is the issue order of the write within its store.
func (p *PendingWrite) Seq() uint64 {
	if p == nil {
		return 0
	}
	return p.seq
}

// Done is closed once the write has settled.
func (p *PendingWrite) Done() <-chan struct{} {
	if p == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return p.done
}

// Wait blocks until the write settles or ctx ends.
func (p *PendingWrite) Wait(ctx context.Context) error {
	if p == nil {
		return nil
	}
	select {
	case <-p.done:
		return p.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Err reports the write failure, if any. It is nil until the write settles.
func (p *PendingWrite) Err() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Superseded reports whether the write was skipped because a later write had already
// reached the store.
func (p *PendingWrite) Superseded() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.superseded
}

// Then registers fn to run once the write settles. fn runs on the writer goroutine, or
// immediately when the write has already settled.
func (p *PendingWrite) Then(fn func(error)) {
	if p == nil {
		fn(nil)
		return
	}
	p.mu.Lock()
	if p.settled {
		err := p.err
		p.mu.Unlock()
		fn(err)
		return
	}
	p.callbacks = append(p.callbacks, fn)
	p.mu.Unlock()
}

func (p *PendingWrite) settle(err error, superseded bool) {
	p.mu.Lock()
	p.settled = true
	p.err = err
	p.superseded = superseded
	callbacks := p.callbacks
	p.callbacks = nil
	close(p.done)
	p.mu.Unlock()

	for _, fn := range callbacks {
		fn(err)
	}
}
