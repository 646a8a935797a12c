package store

import (
	"slices"
	"sync"
)

// Listener is notified after a state change.
type Listener func()

type subscription struct {
	fn Listener
}

// listenerList is a copy-on-write list: add and remove replace the slice, so
// a snapshot taken by a notification pass is never affected by changes made
// while the pass runs.
type listenerList struct {
	mu   sync.Mutex
	subs []*subscription
}

func (l *listenerList) add(fn Listener) func() {
	if fn == nil {
		panic(nilListenerError())
	}
	sub := &subscription{fn: fn}

	l.mu.Lock()
	next := make([]*subscription, 0, len(l.subs)+1)
	next = append(next, l.subs...)
	l.subs = append(next, sub)
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			l.subs = without(l.subs, sub)
			l.mu.Unlock()
		})
	}
}

func (l *listenerList) snapshot() []*subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.subs
}

func (l *listenerList) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// partListeners holds the listeners of each part id. The map itself is
// replaced on every change.
type partListeners struct {
	mu   sync.Mutex
	byID map[uint64][]*subscription
}

func (l *partListeners) add(id uint64, fn Listener) func() {
	if fn == nil {
		panic(nilListenerError())
	}
	sub := &subscription{fn: fn}

	l.mu.Lock()
	next := cloneListeners(l.byID)
	subs := make([]*subscription, 0, len(next[id])+1)
	subs = append(subs, next[id]...)
	next[id] = append(subs, sub)
	l.byID = next
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			next := cloneListeners(l.byID)
			if rest := without(next[id], sub); len(rest) > 0 {
				next[id] = rest
			} else {
				delete(next, id)
			}
			l.byID = next
			l.mu.Unlock()
		})
	}
}

func (l *partListeners) snapshot() map[uint64][]*subscription {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.byID
}

func cloneListeners(m map[uint64][]*subscription) map[uint64][]*subscription {
	next := make(map[uint64][]*subscription, len(m)+1)
	for id, subs := range m {
		next[id] = subs
	}
	return next
}

// without returns a new slice lacking sub.
func without(subs []*subscription, sub *subscription) []*subscription {
	i := slices.Index(subs, sub)
	if i < 0 {
		return subs
	}
	next := make([]*subscription, 0, len(subs)-1)
	next = append(next, subs[:i]...)
	return append(next, subs[i+1:]...)
}
