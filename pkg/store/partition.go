package store

import (
	"maps"
	"slices"

	"github.com/vango-dev/partition/pkg/part"
)

// Partitioner owns the mapping from part ids to root state keys.
type Partitioner struct {
	graph    *part.Graph
	parts    []*part.Part
	reducers map[string]Reducer
	keys     []string

	// owners maps every stateful part id under a top-level part to that
	// top-level part.
	owners map[uint64]*part.Part
}

// PartitionOption configures a Partitioner.
type PartitionOption func(*Partitioner)

// WithReducers merges plain reducers into the root state, one per key.
// Every reducer sees every action and must return a non-nil slice.
func WithReducers(reducers map[string]Reducer) PartitionOption {
	return func(pt *Partitioner) {
		for k, r := range reducers {
			pt.reducers[k] = r
		}
	}
}

// Partition validates the top-level stateful parts of a store and returns
// the partitioner that routes their actions. Parts must be fully composed
// before they are partitioned.
func Partition(parts []*part.Part, opts ...PartitionOption) (*Partitioner, error) {
	pt := &Partitioner{
		parts:    slices.Clone(parts),
		reducers: make(map[string]Reducer),
		owners:   make(map[uint64]*part.Part),
	}
	for _, opt := range opts {
		opt(pt)
	}

	names := make(map[string]bool, len(parts))
	for _, p := range parts {
		switch {
		case p == nil:
			return nil, invalidPartition(nil, "nil part")
		case !p.Kind().Stateful():
			return nil, invalidPartition(p, "only primitive and composed parts own state")
		case p.Parent() != nil:
			return nil, invalidPartition(p, "the part is composed into "+p.Parent().String()+"; partition the top-level owner")
		case pt.graph != nil && p.Graph() != pt.graph:
			return nil, invalidPartition(p, "all parts must belong to the same graph")
		case names[p.Name()]:
			return nil, invalidPartition(p, "duplicate top-level name "+p.Name())
		}
		names[p.Name()] = true
		pt.graph = p.Graph()
		pt.register(p, p)
	}

	for k, r := range pt.reducers {
		switch {
		case r == nil:
			return nil, invalidPartition(nil, "nil reducer for key "+k)
		case names[k]:
			return nil, invalidPartition(nil, "reducer key "+k+" collides with a part")
		}
	}
	pt.keys = slices.Sorted(maps.Keys(pt.reducers))

	if pt.graph == nil {
		pt.graph = part.NewGraph()
	}
	return pt, nil
}

// MustPartition is like Partition but panics on error.
func MustPartition(parts []*part.Part, opts ...PartitionOption) *Partitioner {
	pt, err := Partition(parts, opts...)
	if err != nil {
		panic(err)
	}
	return pt
}

func (pt *Partitioner) register(top, p *part.Part) {
	pt.owners[p.ID()] = top
	for _, c := range p.Children() {
		pt.register(top, c)
	}
}

// Graph returns the graph of the partitioned parts.
func (pt *Partitioner) Graph() *part.Graph { return pt.graph }

// Parts returns the top-level parts.
func (pt *Partitioner) Parts() []*part.Part { return slices.Clone(pt.parts) }

// Knows reports whether actions for part id can be dispatched.
func (pt *Partitioner) Knows(id uint64) bool {
	_, ok := pt.owners[id]
	return ok
}

// Reducer returns the root reducer.
func (pt *Partitioner) Reducer() Reducer { return pt.reduce }

// InitialState returns the root state before any action.
func (pt *Partitioner) InitialState() map[string]any {
	return pt.reduce(nil, InitAction{}).(map[string]any)
}

// reduce replaces only the root keys whose slice changed. The previous map
// is returned when nothing changed.
func (pt *Partitioner) reduce(state any, action any) any {
	prev, _ := state.(map[string]any)
	var next map[string]any

	set := func(key string, v any) {
		if next == nil {
			next = make(map[string]any, len(pt.parts)+len(pt.keys))
			maps.Copy(next, prev)
		}
		next[key] = v
	}

	switch a := action.(type) {
	case InitAction:
		for _, p := range pt.parts {
			if _, ok := prev[p.Name()]; !ok {
				set(p.Name(), p.Initial())
			}
		}
	case part.Action:
		if top, ok := pt.owners[a.PartID]; ok {
			slice := prev[top.Name()]
			if v := top.Reduce(slice, a); !part.Is(v, slice) {
				set(top.Name(), v)
			}
		}
	}

	for _, k := range pt.keys {
		slice := prev[k]
		v := pt.reducers[k](slice, action)
		if v == nil {
			panic(undefinedSliceError(k))
		}
		if !part.Is(v, slice) {
			set(k, v)
		}
	}

	if next == nil {
		if prev == nil {
			return map[string]any{}
		}
		return prev
	}
	return next
}
