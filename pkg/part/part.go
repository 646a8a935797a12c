package part

import (
	"fmt"
	"slices"
	"strings"
)

// Action is the plain action a stateful part produces. PartID routes it to
// the owning part's reducer.
type Action struct {
	PartID uint64
	Type   string
	Value  any
}

// Reader reads the state tree and part values.
type Reader interface {
	// State returns the full state tree.
	State() any

	// Get returns the current value of p.
	Get(p *Part) any

	// Version returns a counter bumped on every state-changing dispatch.
	Version() uint64
}

// Dispatcher accepts an Action, a Thunk, or any other action value.
type Dispatcher interface {
	Dispatch(action any) any
}

// Thunk is a dispatchable function with access to the store.
type Thunk func(d Dispatcher, r Reader) any

// Updater computes a part's next value from its previous value. Passing an
// Updater (or a plain func(any) any) to Set makes a functional update.
type Updater func(prev any) any

// SelectFunc derives a value from source values, in source order.
type SelectFunc func(values ...any) any

// StateFunc derives a value from the whole store.
type StateFunc func(r Reader) any

// WriteFunc is the writer of a proxy part.
type WriteFunc func(d Dispatcher, r Reader, args ...any) any

// EqualFunc compares two derived values.
type EqualFunc func(a, b any) bool

// Part is a node of the part graph. See Kind for the variants.
type Part struct {
	id    uint64
	kind  Kind
	graph *Graph

	// Stateful parts. parent and path are guarded by graph.mu.
	name     string
	parent   *Part
	path     []string
	initial  any
	children []*Part

	// Derived parts.
	sources     []*Part
	derive      SelectFunc
	deriveState StateFunc
	write       WriteFunc
	equal       EqualFunc
	alwaysStale bool
	memo        memo

	// Update parts.
	target     *Part
	actionType string
	updateFn   SelectFunc
}

// ID returns the part id, unique within its graph.
func (p *Part) ID() uint64 { return p.id }

// Kind returns the part variant.
func (p *Part) Kind() Kind { return p.kind }

// Graph returns the graph the part was declared on.
func (p *Part) Graph() *Graph { return p.graph }

// Name returns the local key of a stateful part, or the label of a derived one.
func (p *Part) Name() string { return p.name }

// Initial returns the initial state of a stateful part.
func (p *Part) Initial() any { return p.initial }

// Children returns the parts composed into this part.
func (p *Part) Children() []*Part { return slices.Clone(p.children) }

// Sources returns the parts a derived part reads. Empty for unbound parts.
func (p *Part) Sources() []*Part { return slices.Clone(p.sources) }

// Target returns the part an update part writes to.
func (p *Part) Target() *Part { return p.target }

// AlwaysStale reports whether consumers must treat the part as changed on
// every state change. True for update parts, unbound derived parts and parts
// derived from an update part.
func (p *Part) AlwaysStale() bool { return p.alwaysStale }

// Unbound reports whether a derived part reads the whole store.
func (p *Part) Unbound() bool { return p.deriveState != nil }

// Parent returns the composed part this part belongs to, if any.
func (p *Part) Parent() *Part {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	return p.parent
}

// Path returns the key sequence from the state root to this part's slice.
func (p *Part) Path() []string {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	return slices.Clone(p.path)
}

// Owner returns the root-level key this part lives under.
func (p *Part) Owner() string {
	p.graph.mu.RLock()
	defer p.graph.mu.RUnlock()
	if len(p.path) == 0 {
		return ""
	}
	return p.path[0]
}

// ActionType returns the default action type of a stateful part, derived
// from its current path.
func (p *Part) ActionType() string {
	switch p.kind {
	case KindPrimitive, KindComposed:
		return "UPDATE_" + screamingSnake(p.Path())
	case KindUpdate:
		return p.actionType
	default:
		return ""
	}
}

// Dependents returns every part that must be considered changed when this
// part changes.
func (p *Part) Dependents() []*Part {
	return p.graph.resolve(p.graph.Dependents(p.id))
}

// WithEquals sets the equality used to decide whether a recomputed derived
// value replaces the cached one. Call it before the part is first read.
func (p *Part) WithEquals(fn EqualFunc) *Part {
	p.memo.mu.Lock()
	p.equal = fn
	p.memo.mu.Unlock()
	return p
}

// String returns a debug representation such as "primitive#3(user.first)".
func (p *Part) String() string {
	label := p.name
	if path := p.Path(); len(path) > 0 {
		label = strings.Join(path, ".")
	}
	if label == "" {
		return fmt.Sprintf("%s#%d", p.kind, p.id)
	}
	return fmt.Sprintf("%s#%d(%s)", p.kind, p.id, label)
}

// Action returns the plain action that sets this part to value.
func (p *Part) Action(value any) Action {
	if !p.kind.Stateful() {
		panic(readOnlyError(p))
	}
	return Action{PartID: p.id, Type: p.ActionType(), Value: value}
}

// Set returns a thunk that writes to the part.
//
// For stateful parts the first argument is the next value, or an Updater
// applied to the current value. For proxy parts all arguments are passed to
// the writer. Other kinds panic.
func (p *Part) Set(args ...any) Thunk {
	switch p.kind {
	case KindPrimitive, KindComposed:
		return func(d Dispatcher, r Reader) any {
			next := applyUpdater(firstArg(args), r, p)
			return d.Dispatch(p.Action(next))
		}
	case KindProxy:
		return func(d Dispatcher, r Reader) any {
			return p.write(d, r, args...)
		}
	default:
		panic(readOnlyError(p))
	}
}

// Update returns an update part that dispatches this part's action stamped
// with actionType. If fn is nil the first call argument is the next value;
// otherwise fn computes it from the call arguments. Either may be an Updater.
func (p *Part) Update(actionType string, fn SelectFunc) *Part {
	if !p.kind.Stateful() {
		panic(readOnlyError(p))
	}
	return p.graph.newUpdate(p, actionType, fn)
}

// Call returns the thunk an update part dispatches for args.
func (p *Part) Call(args ...any) Thunk {
	if p.kind != KindUpdate {
		panic(configError("P020", ErrInvalidConfig, p, "Call is only defined on update parts"))
	}
	return func(d Dispatcher, r Reader) any {
		var next any
		if p.updateFn != nil {
			next = p.updateFn(args...)
		} else {
			next = firstArg(args)
		}
		next = applyUpdater(next, r, p.target)

		actionType := p.actionType
		if actionType == "" {
			actionType = p.target.ActionType()
		}
		return d.Dispatch(Action{PartID: p.target.id, Type: actionType, Value: next})
	}
}

// Get returns the current value of the part as seen by r.
func (p *Part) Get(r Reader) any {
	switch p.kind {
	case KindPrimitive, KindComposed:
		return walk(r.State(), p.Path())
	case KindSelect, KindProxy:
		return p.selectValue(r)
	default:
		return nil
	}
}

// Value reads p through r and converts it to T. The zero value is returned
// when the value has another type.
func Value[T any](r Reader, p *Part) T {
	v, _ := r.Get(p).(T)
	return v
}

func firstArg(args []any) any {
	if len(args) == 0 {
		return nil
	}
	return args[0]
}

func applyUpdater(v any, r Reader, p *Part) any {
	switch fn := v.(type) {
	case Updater:
		return fn(r.Get(p))
	case func(any) any:
		return fn(r.Get(p))
	default:
		return v
	}
}
