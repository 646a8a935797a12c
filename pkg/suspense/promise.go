package suspense

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCanceled is returned by All when one of its promises was cancelled.
// A Go function returning it settles its promise as cancelled rather than
// rejected.
var ErrCanceled = errors.New("suspense: promise canceled")

// State is the tri-state view of a promise result.
type State int

const (
	Pending State = iota // not settled yet
	Ready                // settled with a value (or cancelled)
	Failed               // settled with an error
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result is the outcome of a settled promise.
type Result struct {
	Value    any
	Err      error
	Canceled bool
}

// State reports Failed when the result carries an error, Ready otherwise.
func (r Result) State() State {
	if r.Err != nil {
		return Failed
	}
	return Ready
}

// Promise is a handle to a value that becomes available at most once.
// It is safe for concurrent use.
type Promise struct {
	done   chan struct{}
	once   sync.Once
	result Result
}

func newPromise() *Promise {
	return &Promise{done: make(chan struct{})}
}

// Go runs fn in a new goroutine and returns a promise for its outcome.
// A panic in fn rejects the promise.
func Go(fn func() (any, error)) *Promise {
	p := newPromise()
	go p.run(fn)
	return p
}

// GoContext is Go with a context that the returned cancel function stops.
// Cancelling is advisory: fn decides when to give up. An error returned
// after the context is done settles the promise as cancelled.
func GoContext(ctx context.Context, fn func(ctx context.Context) (any, error)) (*Promise, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	p := newPromise()
	go func() {
		defer cancel()
		p.run(func() (any, error) {
			v, err := fn(ctx)
			if err != nil && ctx.Err() != nil {
				return nil, ErrCanceled
			}
			return v, err
		})
	}()
	return p, cancel
}

func (p *Promise) run(fn func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			p.settle(Result{Err: fmt.Errorf("suspense: derivation panicked: %v", r)})
		}
	}()
	v, err := fn()
	if errors.Is(err, ErrCanceled) {
		p.settle(Result{Canceled: true})
		return
	}
	p.settle(Result{Value: v, Err: err})
}

// Resolved returns a promise already settled with v.
func Resolved(v any) *Promise {
	p := newPromise()
	p.settle(Result{Value: v})
	return p
}

// Rejected returns a promise already settled with err.
func Rejected(err error) *Promise {
	p := newPromise()
	p.settle(Result{Err: err})
	return p
}

// NewDeferred returns an unsettled promise with its resolve and reject
// functions. Only the first call to either has an effect.
func NewDeferred() (p *Promise, resolve func(any), reject func(error)) {
	p = newPromise()
	resolve = func(v any) { p.settle(Result{Value: v}) }
	reject = func(err error) { p.settle(Result{Err: err}) }
	return p, resolve, reject
}

// settle records r and releases waiters. Returns false if already settled.
func (p *Promise) settle(r Result) bool {
	settled := false
	p.once.Do(func() {
		p.result = r
		close(p.done)
		settled = true
	})
	return settled
}

// Done returns a channel closed once the promise settles.
func (p *Promise) Done() <-chan struct{} {
	return p.done
}

// Poll returns the result without blocking. ok is false while pending.
func (p *Promise) Poll() (r Result, ok bool) {
	select {
	case <-p.done:
		return p.result, true
	default:
		return Result{}, false
	}
}

// State returns Pending until the promise settles.
func (p *Promise) State() State {
	r, ok := p.Poll()
	if !ok {
		return Pending
	}
	return r.State()
}

// Await blocks until the promise settles or ctx is done.
// A cancelled promise yields (nil, nil); use Poll to tell it apart.
func (p *Promise) Await(ctx context.Context) (any, error) {
	select {
	case <-p.done:
		return p.result.Value, p.result.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
