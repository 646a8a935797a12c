package store

import "sync"

// Reducer computes the next state from the previous state and an action.
type Reducer func(state any, action any) any

// InitAction is dispatched by NewBase when the store is created so reducers
// can fill in their initial state.
type InitAction struct{}

// Base is the minimal store contract the partitioner enhances.
type Base interface {
	// Dispatch applies action and returns it.
	Dispatch(action any) any

	// State returns the current state tree.
	State() any

	// Subscribe registers a listener called after every dispatch. The
	// returned function unsubscribes; calling it twice is harmless.
	Subscribe(fn Listener) func()
}

// Creator creates a Base store.
type Creator func(reducer Reducer, preloaded any) Base

// Enhancer wraps a Creator to return a store with extra capabilities.
type Enhancer func(next Creator) Creator

type baseStore struct {
	mu        sync.RWMutex
	reducer   Reducer
	state     any
	listeners listenerList
}

// NewBase creates a reducer-driven store holding preloaded, then dispatches
// InitAction. It is a Creator.
func NewBase(reducer Reducer, preloaded any) Base {
	b := &baseStore{reducer: reducer, state: preloaded}
	b.Dispatch(InitAction{})
	return b
}

func (b *baseStore) Dispatch(action any) any {
	if action == nil {
		panic(nilActionError())
	}

	b.reduce(action)

	for _, sub := range b.listeners.snapshot() {
		sub.fn()
	}
	return action
}

// reduce runs the reducer under the lock. A panicking reducer leaves the
// state unchanged and the lock released.
func (b *baseStore) reduce(action any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = b.reducer(b.state, action)
}

func (b *baseStore) State() any {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

func (b *baseStore) Subscribe(fn Listener) func() {
	return b.listeners.add(fn)
}
