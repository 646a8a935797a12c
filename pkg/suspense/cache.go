package suspense

import "sync"

// Status is the lifecycle of a cache entry. Every state but StatusPending
// is terminal.
type Status int

const (
	StatusPending Status = iota
	StatusResolved
	StatusRejected
	StatusCanceled
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResolved:
		return "resolved"
	case StatusRejected:
		return "rejected"
	case StatusCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

type entry struct {
	status   Status
	base     *Promise
	wrapper  *Promise
	value    any
	canceled chan struct{}

	// stop, when set, abandons the work producing base.
	stop func()
}

// Cache tracks cancellable wrappers, keyed by the wrapper handed back to
// callers rather than by the promise that was wrapped.
type Cache struct {
	mu      sync.Mutex
	entries map[*Promise]*entry
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[*Promise]*entry)}
}

// Wrap returns a cancellable wrapper for p.
//
// If p is a wrapper this cache already tracks, a pending wrapper is returned
// as is and a resolved one is returned as a fresh Resolved promise of its
// value. Any other promise gets a new tracked wrapper.
func (c *Cache) Wrap(p *Promise) *Promise {
	return c.WrapCancel(p, nil)
}

// WrapCancel is Wrap with a stop function that Cancel and Forget call when
// they cancel the new wrapper. stop is ignored when p is already tracked.
func (c *Cache) WrapCancel(p *Promise, stop func()) *Promise {
	if p == nil {
		return nil
	}

	c.mu.Lock()
	if e, ok := c.entries[p]; ok {
		status, value := e.status, e.value
		c.mu.Unlock()
		if status == StatusResolved {
			return Resolved(value)
		}
		return p
	}

	e := &entry{
		status:   StatusPending,
		base:     p,
		wrapper:  newPromise(),
		canceled: make(chan struct{}),
		stop:     stop,
	}
	c.entries[e.wrapper] = e
	c.mu.Unlock()

	go c.watch(e)
	return e.wrapper
}

// watch forwards the base settlement to the wrapper unless the entry was
// cancelled first.
func (c *Cache) watch(e *entry) {
	select {
	case <-e.base.Done():
	case <-e.canceled:
		return
	}

	r, _ := e.base.Poll()

	c.mu.Lock()
	if e.status != StatusPending {
		c.mu.Unlock()
		return
	}
	switch {
	case r.Canceled:
		e.status = StatusCanceled
	case r.Err != nil:
		e.status = StatusRejected
	default:
		e.status = StatusResolved
		e.value = r.Value
	}
	c.mu.Unlock()

	e.wrapper.settle(r)
}

// Cancel moves a pending wrapper to StatusCanceled and resolves it with no
// value and no error, then stops the wrapped work if a stop function was
// given. It reports whether the wrapper was pending.
func (c *Cache) Cancel(w *Promise) bool {
	c.mu.Lock()
	e, ok := c.entries[w]
	if !ok || e.status != StatusPending {
		c.mu.Unlock()
		return false
	}
	e.status = StatusCanceled
	close(e.canceled)
	c.mu.Unlock()

	e.wrapper.settle(Result{Canceled: true})
	if e.stop != nil {
		e.stop()
	}
	return true
}

// Status returns the entry status for wrapper w.
func (c *Cache) Status(w *Promise) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[w]
	if !ok {
		return 0, false
	}
	return e.status, true
}

// Forget drops the entry for w. A pending entry is cancelled first so its
// watcher exits.
func (c *Cache) Forget(w *Promise) {
	c.Cancel(w)
	c.mu.Lock()
	delete(c.entries, w)
	c.mu.Unlock()
}

// Len returns the number of tracked wrappers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
