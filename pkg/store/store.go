package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/vango-dev/partition/pkg/part"
)

// Store is a Base store enhanced with part-aware reads, per-part
// subscriptions and batched notification. It implements part.Reader and
// part.Dispatcher.
type Store struct {
	id     string
	base   Base
	pt     *Partitioner
	logger *slog.Logger

	notifier  Notifier
	observers []Observer
	dispatch  DispatchFunc

	// mu serializes applying actions and guards the fields below it.
	mu         sync.Mutex
	dirty      []uint64
	dirtySet   map[uint64]struct{}
	changed    bool
	batchDepth int

	version atomic.Uint64

	listeners     listenerList
	partListeners partListeners
}

var (
	_ part.Reader     = (*Store)(nil)
	_ part.Dispatcher = (*Store)(nil)
	_ Base            = (*Store)(nil)
)

// New creates a store over the parts of pt backed by NewBase.
func New(pt *Partitioner, opts ...Option) *Store {
	o := applyOptions(opts)
	return pt.Enhancer(opts...)(NewBase)(pt.Reducer(), o.preloaded).(*Store)
}

// Enhancer returns an Enhancer producing a *Store around the base store
// created by the next Creator. The reducer passed to the returned Creator
// should be pt.Reducer(), possibly wrapped.
func (pt *Partitioner) Enhancer(opts ...Option) Enhancer {
	return func(next Creator) Creator {
		return func(reducer Reducer, preloaded any) Base {
			return newStore(pt, next(reducer, preloaded), applyOptions(opts))
		}
	}
}

func newStore(pt *Partitioner, base Base, o options) *Store {
	s := &Store{
		id:        uuid.NewString(),
		base:      base,
		pt:        pt,
		logger:    o.logger,
		notifier:  o.notifier,
		observers: o.observers,
		dirtySet:  make(map[uint64]struct{}),
	}

	s.dispatch = s.apply
	for i := len(o.middleware) - 1; i >= 0; i-- {
		s.dispatch = o.middleware[i](s, s.dispatch)
	}
	return s
}

// ID returns a unique identifier of the store instance.
func (s *Store) ID() string { return s.id }

// Partitioner returns the partitioner the store was created with.
func (s *Store) Partitioner() *Partitioner { return s.pt }

// Logger returns the store logger.
func (s *Store) Logger() *slog.Logger { return s.logger }

// Dispatch applies an action through the middleware chain.
//
// A part.Thunk is called with the store and its result returned. A
// part.Action must target a part known to the partitioner; anything else
// panics with ErrUnknownPart. Other values are passed to the reducers as is.
func (s *Store) Dispatch(action any) any {
	return s.dispatch(action)
}

// apply is the innermost dispatch function.
func (s *Store) apply(action any) any {
	switch a := action.(type) {
	case nil:
		panic(nilActionError())
	case part.Thunk:
		return a(s, s)
	case func(part.Dispatcher, part.Reader) any:
		return a(s, s)
	case part.Action:
		if !s.pt.Knows(a.PartID) {
			panic(unknownPartError(a.PartID))
		}
	}

	result, changed, deferred := s.reduce(action)
	if changed && !deferred {
		s.notifier(s.notify)
	}
	return result
}

// reduce dispatches action to the base store under s.mu and records whether
// the state changed. The lock is released even when a reducer panics.
func (s *Store) reduce(action any) (result any, changed, deferred bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.base.State()
	result = s.base.Dispatch(action)
	changed = !part.Is(prev, s.base.State())
	if changed {
		s.version.Add(1)
		s.changed = true
		if a, ok := action.(part.Action); ok {
			s.markDirty(a.PartID)
		}
	}
	return result, changed, s.batchDepth > 0
}

// markDirty records id. Callers hold s.mu.
func (s *Store) markDirty(id uint64) {
	if _, ok := s.dirtySet[id]; ok {
		return
	}
	s.dirtySet[id] = struct{}{}
	s.dirty = append(s.dirty, id)
}

// State returns the full state tree.
func (s *Store) State() any {
	return s.base.State()
}

// Get returns the current value of p. Stateful parts read their slice,
// derived parts return their memoized value, update parts return nil.
func (s *Store) Get(p *part.Part) any {
	if p == nil {
		return nil
	}
	return p.Get(s)
}

// Version returns a counter bumped on every state-changing dispatch.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// Subscribe registers a listener called on every notification pass. It
// panics with ErrNilListener if fn is nil.
func (s *Store) Subscribe(fn Listener) func() {
	return s.listeners.add(fn)
}

// SubscribeToPart registers a listener called when p or anything p depends
// on may have changed. It panics with ErrNilListener if fn is nil.
func (s *Store) SubscribeToPart(p *part.Part, fn Listener) func() {
	if p == nil || p.Graph() != s.pt.Graph() {
		var id uint64
		if p != nil {
			id = p.ID()
		}
		panic(unknownPartError(id))
	}
	return s.partListeners.add(p.ID(), fn)
}

// Batch runs fn and defers notification until the outermost batch returns.
// Dispatches inside fn are applied immediately; listeners then fire once.
func (s *Store) Batch(fn func()) {
	s.mu.Lock()
	s.batchDepth++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.batchDepth--
		flush := s.batchDepth == 0 && s.changed
		s.mu.Unlock()

		if flush {
			s.notifier(s.notify)
		}
	}()

	fn()
}

// notify runs one notification pass over everything dirtied since the last
// one. A pass with nothing to report returns immediately.
func (s *Store) notify() {
	s.mu.Lock()
	if !s.changed {
		s.mu.Unlock()
		return
	}
	dirty := s.dirty
	s.dirty = nil
	s.dirtySet = make(map[uint64]struct{})
	s.changed = false
	version := s.version.Load()
	s.mu.Unlock()

	start := time.Now()
	fired := 0

	for _, sub := range s.listeners.snapshot() {
		sub.fn()
		fired++
	}

	byID := s.partListeners.snapshot()
	g := s.pt.Graph()
	seen := make(map[uint64]bool)

	visit := func(id uint64) {
		if seen[id] {
			return
		}
		seen[id] = true
		for _, sub := range byID[id] {
			sub.fn()
			fired++
		}
	}
	// Dependents are a transitive closure, so one level is enough.
	visitAll := func(id uint64) {
		visit(id)
		for _, dep := range g.Dependents(id) {
			visit(dep)
		}
	}

	for _, id := range s.expand(dirty) {
		visitAll(id)
	}
	for _, id := range g.Always() {
		visitAll(id)
	}

	info := NotifyInfo{
		StoreID:   s.id,
		Version:   version,
		Dirty:     dirty,
		Parts:     len(seen),
		Listeners: fired,
		Duration:  time.Since(start),
	}
	s.logger.Debug("partition notify",
		"store", s.id,
		"version", version,
		"dirty", len(dirty),
		"parts", info.Parts,
		"listeners", fired,
	)
	for _, obs := range s.observers {
		obs.OnNotify(info)
	}
}

// expand adds the descendants of dirty composed parts: replacing a composed
// slice directly changes every part below it.
func (s *Store) expand(dirty []uint64) []uint64 {
	out := make([]uint64, 0, len(dirty))
	var add func(p *part.Part)
	add = func(p *part.Part) {
		out = append(out, p.ID())
		for _, c := range p.Children() {
			add(c)
		}
	}
	for _, id := range dirty {
		if p, ok := s.pt.Graph().Lookup(id); ok {
			add(p)
		}
	}
	return out
}
