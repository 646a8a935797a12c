package part

import (
	"slices"
	"sync"

	"github.com/vango-dev/partition/pkg/suspense"
)

// Graph owns a set of parts: their ids, their dependency closure and the
// promise cache used by async derivations. Parts of different graphs never
// share ids.
type Graph struct {
	mu sync.RWMutex

	nextID uint64
	parts  map[uint64]*Part

	// dependents[x] lists every part that changes when x changes, in
	// insertion order. upstream is the reverse index.
	dependents map[uint64][]uint64
	depSet     map[uint64]map[uint64]struct{}
	upstream   map[uint64][]uint64

	// always lists derived parts consumers must treat as changed on every
	// state change.
	always []uint64

	promises *suspense.Cache
}

// NewGraph creates an empty graph.
func NewGraph() *Graph {
	return &Graph{
		parts:      make(map[uint64]*Part),
		dependents: make(map[uint64][]uint64),
		depSet:     make(map[uint64]map[uint64]struct{}),
		upstream:   make(map[uint64][]uint64),
		promises:   suspense.NewCache(),
	}
}

// Config describes a part explicitly. Kind may be left zero, in which case
// it is inferred from the fields that are set:
//
//   - Children set: KindComposed
//   - Derive or DeriveState set: KindProxy if Write is set, else KindSelect
//   - otherwise, Name set: KindPrimitive
type Config struct {
	Kind Kind

	// Name is the local state key of a stateful part, or a label for a
	// derived part.
	Name string

	// Initial is the initial state of a primitive part.
	Initial any

	// Children are the parts folded into a composed part.
	Children []*Part

	// Sources and Derive describe a bound derived part.
	Sources []*Part
	Derive  SelectFunc

	// DeriveState describes an unbound derived part.
	DeriveState StateFunc

	// Write makes a derived part a proxy.
	Write WriteFunc

	// Equal compares derived values. Defaults to Is.
	Equal EqualFunc
}

func (c Config) inferKind() Kind {
	switch {
	case c.Kind != KindInvalid:
		return c.Kind
	case c.Children != nil:
		return KindComposed
	case c.Derive != nil || c.DeriveState != nil:
		if c.Write != nil {
			return KindProxy
		}
		return KindSelect
	case c.Name != "":
		return KindPrimitive
	default:
		return KindInvalid
	}
}

func (c Config) validate(kind Kind) string {
	derived := c.Derive != nil || c.DeriveState != nil || c.Write != nil || c.Sources != nil || c.Equal != nil

	switch kind {
	case KindPrimitive:
		switch {
		case c.Name == "":
			return "primitive parts need a name"
		case c.Children != nil || derived:
			return "primitive parts take only a name and an initial state"
		}
	case KindComposed:
		switch {
		case c.Name == "":
			return "composed parts need a name"
		case c.Initial != nil || derived:
			return "composed parts take only a name and children; their initial state comes from the children"
		}
	case KindSelect, KindProxy:
		switch {
		case c.Children != nil || c.Initial != nil:
			return "derived parts have no children or initial state"
		case c.Derive != nil && c.DeriveState != nil:
			return "set either Derive (with Sources) or DeriveState, not both"
		case c.Derive == nil && c.DeriveState == nil:
			return "derived parts need a derive function"
		case c.Derive != nil && len(c.Sources) == 0:
			return "Derive needs at least one source; use DeriveState to read the whole store"
		case c.DeriveState != nil && len(c.Sources) > 0:
			return "DeriveState reads the whole store and takes no sources"
		case kind == KindProxy && c.Write == nil:
			return "proxy parts need a Write function"
		case kind == KindSelect && c.Write != nil:
			return "select parts are read-only; use KindProxy with a Write function"
		}
	case KindUpdate:
		return "update parts are created with Part.Update"
	default:
		return "the configuration does not describe any part kind"
	}
	return ""
}

// New declares a part from an explicit configuration.
func (g *Graph) New(cfg Config) (*Part, error) {
	kind := cfg.inferKind()
	if detail := cfg.validate(kind); detail != "" {
		return nil, configError("P020", ErrInvalidConfig, nil, detail)
	}

	switch kind {
	case KindPrimitive:
		return g.newPrimitive(cfg.Name, cfg.Initial), nil
	case KindComposed:
		return g.compose(cfg.Name, cfg.Children)
	case KindSelect, KindProxy:
		return g.newDerived(kind, cfg)
	default:
		return nil, configError("P020", ErrInvalidConfig, nil, "unsupported part kind "+kind.String())
	}
}

// State declares a primitive part holding initial.
func (g *Graph) State(name string, initial any) *Part {
	return must(g.New(Config{Kind: KindPrimitive, Name: name, Initial: initial}))
}

// Compose declares a composed part whose slice holds the children's slices
// keyed by name. It panics if a child already has a parent.
func (g *Graph) Compose(name string, children ...*Part) *Part {
	if children == nil {
		children = []*Part{}
	}
	return must(g.New(Config{Kind: KindComposed, Name: name, Children: children}))
}

// Select declares a read-only part derived from sources.
func (g *Graph) Select(sources []*Part, fn SelectFunc) *Part {
	return must(g.New(Config{Kind: KindSelect, Sources: sources, Derive: fn}))
}

// SelectState declares a read-only part derived from the whole store. It
// recomputes on every state change.
func (g *Graph) SelectState(fn StateFunc) *Part {
	return must(g.New(Config{Kind: KindSelect, DeriveState: fn}))
}

// Proxy declares a part derived from sources with an arbitrary writer.
func (g *Graph) Proxy(sources []*Part, fn SelectFunc, write WriteFunc) *Part {
	return must(g.New(Config{Kind: KindProxy, Sources: sources, Derive: fn, Write: write}))
}

// ProxyState declares an unbound proxy part.
func (g *Graph) ProxyState(fn StateFunc, write WriteFunc) *Part {
	return must(g.New(Config{Kind: KindProxy, DeriveState: fn, Write: write}))
}

func must(p *Part, err error) *Part {
	if err != nil {
		panic(err)
	}
	return p
}

// Lookup returns the part with the given id.
func (g *Graph) Lookup(id uint64) (*Part, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	p, ok := g.parts[id]
	return p, ok
}

// Parts returns every part of the graph ordered by id.
func (g *Graph) Parts() []*Part {
	g.mu.RLock()
	ids := make([]uint64, 0, len(g.parts))
	for id := range g.parts {
		ids = append(ids, id)
	}
	g.mu.RUnlock()

	slices.Sort(ids)
	return g.resolve(ids)
}

// Dependents returns the ids of every part that changes when part id changes.
func (g *Graph) Dependents(id uint64) []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.dependents[id])
}

// Always returns the ids of derived parts that change on every state change.
func (g *Graph) Always() []uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return slices.Clone(g.always)
}

// Promises returns the cache wrapping async derivations of this graph.
func (g *Graph) Promises() *suspense.Cache {
	return g.promises
}

func (g *Graph) resolve(ids []uint64) []*Part {
	g.mu.RLock()
	defer g.mu.RUnlock()
	out := make([]*Part, 0, len(ids))
	for _, id := range ids {
		if p, ok := g.parts[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// register assigns an id and records p. Callers hold g.mu.
func (g *Graph) register(p *Part) {
	g.nextID++
	p.id = g.nextID
	p.graph = g
	g.parts[p.id] = p
}

func (g *Graph) newPrimitive(name string, initial any) *Part {
	p := &Part{kind: KindPrimitive, name: name, initial: initial, path: []string{name}}

	g.mu.Lock()
	g.register(p)
	g.mu.Unlock()
	return p
}

func (g *Graph) compose(name string, children []*Part) (*Part, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	seen := make(map[string]bool, len(children))
	for _, c := range children {
		switch {
		case c == nil:
			return nil, configError("P020", ErrInvalidConfig, nil, "nil child passed to Compose")
		case c.graph != g:
			return nil, configError("P023", ErrForeignGraph, c, "")
		case !c.kind.Stateful():
			return nil, configError("P020", ErrInvalidConfig, c, "only primitive and composed parts can be composed")
		case c.parent != nil:
			return nil, configError("P021", ErrAlreadyComposed, c, "").
				WithSuggestion("Declare a separate part, or compose the existing parent instead")
		case seen[c.name]:
			return nil, configError("P022", ErrDuplicateName, c, "")
		}
		seen[c.name] = true
	}

	initial := make(map[string]any, len(children))
	for _, c := range children {
		initial[c.name] = c.initial
	}

	p := &Part{
		kind:     KindComposed,
		name:     name,
		initial:  initial,
		children: slices.Clone(children),
		path:     []string{name},
	}
	g.register(p)

	for _, c := range children {
		c.parent = p
		repath(c, p.path)
		g.link(c.id, p.id)
	}
	return p, nil
}

// repath rewrites the path of p and all its descendants under prefix.
func repath(p *Part, prefix []string) {
	path := make([]string, 0, len(prefix)+1)
	path = append(path, prefix...)
	p.path = append(path, p.name)
	for _, c := range p.children {
		repath(c, p.path)
	}
}

func (g *Graph) newDerived(kind Kind, cfg Config) (*Part, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	stale := cfg.DeriveState != nil
	for _, s := range cfg.Sources {
		switch {
		case s == nil:
			return nil, configError("P020", ErrInvalidConfig, nil, "nil source passed to a derived part")
		case s.graph != g:
			return nil, configError("P023", ErrForeignGraph, s, "")
		case s.alwaysStale:
			stale = true
		}
	}

	equal := cfg.Equal
	if equal == nil {
		equal = Is
	}

	p := &Part{
		kind:        kind,
		name:        cfg.Name,
		sources:     slices.Clone(cfg.Sources),
		derive:      cfg.Derive,
		deriveState: cfg.DeriveState,
		write:       cfg.Write,
		equal:       equal,
		alwaysStale: stale,
	}
	g.register(p)

	for _, s := range p.sources {
		if s.kind != KindUpdate {
			g.link(s.id, p.id)
		}
	}
	if stale {
		g.always = appendUnique(g.always, p.id)
	}
	return p, nil
}

func (g *Graph) newUpdate(target *Part, actionType string, fn SelectFunc) *Part {
	p := &Part{
		kind:        KindUpdate,
		name:        actionType,
		target:      target,
		actionType:  actionType,
		updateFn:    fn,
		alwaysStale: true,
	}

	g.mu.Lock()
	g.register(p)
	g.mu.Unlock()
	return p
}

// link records that v changes whenever u changes, keeping the closure
// transitive: every part upstream of u gains v and v's dependents. Callers
// hold g.mu.
func (g *Graph) link(u, v uint64) {
	from := make([]uint64, 0, 1+len(g.upstream[u]))
	from = append(from, u)
	from = append(from, g.upstream[u]...)

	to := make([]uint64, 0, 1+len(g.dependents[v]))
	to = append(to, v)
	to = append(to, g.dependents[v]...)

	for _, x := range from {
		for _, y := range to {
			if x != y {
				g.addDependent(x, y)
			}
		}
	}
}

func (g *Graph) addDependent(x, y uint64) {
	set := g.depSet[x]
	if set == nil {
		set = make(map[uint64]struct{})
		g.depSet[x] = set
	}
	if _, ok := set[y]; ok {
		return
	}
	set[y] = struct{}{}
	g.dependents[x] = append(g.dependents[x], y)
	g.upstream[y] = append(g.upstream[y], x)
}
