package part

import (
	"errors"
	"slices"
	"testing"
)

func ids(parts []*Part) []uint64 {
	out := make([]uint64, len(parts))
	for i, p := range parts {
		out[i] = p.ID()
	}
	return out
}

func TestPrimitivePart(t *testing.T) {
	g := NewGraph()
	p := g.State("count", 0)

	if p.Kind() != KindPrimitive {
		t.Errorf("expected primitive, got %s", p.Kind())
	}
	if !slices.Equal(p.Path(), []string{"count"}) {
		t.Errorf("unexpected path %v", p.Path())
	}
	if p.Owner() != "count" {
		t.Errorf("unexpected owner %q", p.Owner())
	}
	if p.ActionType() != "UPDATE_COUNT" {
		t.Errorf("unexpected action type %q", p.ActionType())
	}

	a := p.Action(5)
	if a.PartID != p.ID() || a.Value != 5 || a.Type != "UPDATE_COUNT" {
		t.Errorf("unexpected action %+v", a)
	}
}

func TestIDsAreUniquePerGraph(t *testing.T) {
	g1, g2 := NewGraph(), NewGraph()
	a := g1.State("a", nil)
	b := g1.State("b", nil)
	c := g2.State("c", nil)

	if a.ID() == b.ID() {
		t.Error("parts of one graph must have distinct ids")
	}
	if c.ID() != a.ID() {
		t.Errorf("graphs have independent id spaces, got %d and %d", a.ID(), c.ID())
	}
	if g1.Promises() == nil || g1.Promises() == g2.Promises() {
		t.Error("each graph owns its own promise cache")
	}
}

func TestComposeRewritesPaths(t *testing.T) {
	g := NewGraph()
	first := g.State("firstName", "Ada")
	last := g.State("lastName", "Lovelace")
	name := g.Compose("name", first, last)
	user := g.Compose("user", name)

	if !slices.Equal(first.Path(), []string{"user", "name", "firstName"}) {
		t.Errorf("unexpected path %v", first.Path())
	}
	if first.Owner() != "user" {
		t.Errorf("unexpected owner %q", first.Owner())
	}
	if first.ActionType() != "UPDATE_USER_NAME_FIRST_NAME" {
		t.Errorf("unexpected action type %q", first.ActionType())
	}
	if first.Parent() != name || name.Parent() != user {
		t.Error("unexpected parents")
	}

	init, ok := user.Initial().(map[string]any)
	if !ok {
		t.Fatalf("composed initial state should be a map, got %T", user.Initial())
	}
	inner := init["name"].(map[string]any)
	if inner["firstName"] != "Ada" || inner["lastName"] != "Lovelace" {
		t.Errorf("unexpected initial state %v", init)
	}
}

func TestComposeTwiceFails(t *testing.T) {
	g := NewGraph()
	leaf := g.State("leaf", 1)
	g.Compose("a", leaf)

	_, err := g.New(Config{Name: "b", Children: []*Part{leaf}})
	if !errors.Is(err, ErrAlreadyComposed) {
		t.Errorf("expected ErrAlreadyComposed, got %v", err)
	}
}

func TestComposeValidation(t *testing.T) {
	g := NewGraph()
	other := NewGraph().State("x", 1)
	a := g.State("dup", 1)
	b := g.State("dup", 2)
	sel := g.Select([]*Part{a}, func(v ...any) any { return v[0] })

	tests := []struct {
		name     string
		children []*Part
		want     error
	}{
		{"duplicate names", []*Part{a, b}, ErrDuplicateName},
		{"foreign graph", []*Part{other}, ErrForeignGraph},
		{"derived child", []*Part{sel}, ErrInvalidConfig},
		{"nil child", []*Part{nil}, ErrInvalidConfig},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := g.New(Config{Name: "parent", Children: tt.children})
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestConfigValidation(t *testing.T) {
	g := NewGraph()
	src := g.State("src", 1)
	derive := func(v ...any) any { return v[0] }
	deriveState := func(r Reader) any { return nil }
	write := func(d Dispatcher, r Reader, args ...any) any { return nil }

	tests := []struct {
		name string
		cfg  Config
		want Kind
	}{
		{"empty", Config{}, KindInvalid},
		{"primitive", Config{Name: "a", Initial: 1}, KindPrimitive},
		{"composed", Config{Name: "a", Children: []*Part{}}, KindComposed},
		{"select", Config{Sources: []*Part{src}, Derive: derive}, KindSelect},
		{"unbound select", Config{DeriveState: deriveState}, KindSelect},
		{"proxy", Config{Sources: []*Part{src}, Derive: derive, Write: write}, KindProxy},
		{"derive without sources", Config{Derive: derive}, KindInvalid},
		{"both derive functions", Config{Sources: []*Part{src}, Derive: derive, DeriveState: deriveState}, KindInvalid},
		{"unbound with sources", Config{Sources: []*Part{src}, DeriveState: deriveState}, KindInvalid},
		{"write without derive", Config{Write: write}, KindInvalid},
		{"primitive with sources", Config{Kind: KindPrimitive, Name: "a", Sources: []*Part{src}}, KindInvalid},
		{"proxy without write", Config{Kind: KindProxy, Sources: []*Part{src}, Derive: derive}, KindInvalid},
		{"select with write", Config{Kind: KindSelect, Sources: []*Part{src}, Derive: derive, Write: write}, KindInvalid},
		{"explicit update", Config{Kind: KindUpdate}, KindInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := g.New(tt.cfg)
			if tt.want == KindInvalid {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("expected ErrInvalidConfig, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if p.Kind() != tt.want {
				t.Errorf("expected %s, got %s", tt.want, p.Kind())
			}
		})
	}
}

func TestHelpersPanicOnInvalidConfig(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig panic, got %v", r)
		}
	}()
	NewGraph().State("", 1)
}

func TestDependentsClosure(t *testing.T) {
	g := NewGraph()
	a := g.State("a", 1)
	sibling := g.State("sibling", 1)
	b := g.Compose("b", a, sibling)
	s := g.Select([]*Part{b}, func(v ...any) any { return v[0] })
	tt := g.Select([]*Part{s}, func(v ...any) any { return v[0] })
	c := g.Compose("c", b)
	other := g.State("other", 1)
	u := g.Select([]*Part{other}, func(v ...any) any { return v[0] })

	got := ids(a.Dependents())
	for _, want := range []*Part{b, s, tt, c} {
		if !slices.Contains(got, want.ID()) {
			t.Errorf("dependents of a missing %s: %v", want, got)
		}
	}
	for _, unwanted := range []*Part{sibling, other, u, a} {
		if slices.Contains(got, unwanted.ID()) {
			t.Errorf("dependents of a should not include %s", unwanted)
		}
	}

	if deps := ids(s.Dependents()); !slices.Equal(deps, []uint64{tt.ID()}) {
		t.Errorf("dependents of s = %v, want [%d]", deps, tt.ID())
	}
}

func TestDependentsAreDeduplicated(t *testing.T) {
	g := NewGraph()
	a := g.State("a", 1)
	b := g.Compose("b", a)
	s := g.Select([]*Part{a, b}, func(v ...any) any { return nil })

	count := 0
	for _, id := range g.Dependents(a.ID()) {
		if id == s.ID() {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected s once among dependents of a, found %d times", count)
	}
}

func TestUnboundAndUpdateConsumersAreAlwaysStale(t *testing.T) {
	g := NewGraph()
	a := g.State("a", 1)
	set := a.Update("SET_A", nil)
	unbound := g.SelectState(func(r Reader) any { return r.State() })
	fromUpdate := g.Select([]*Part{set}, func(v ...any) any { return v[0] })
	plain := g.Select([]*Part{a}, func(v ...any) any { return v[0] })

	if !set.AlwaysStale() || !unbound.AlwaysStale() || !fromUpdate.AlwaysStale() {
		t.Error("update parts and their consumers should be always stale")
	}
	if plain.AlwaysStale() {
		t.Error("bound select over a primitive is not always stale")
	}

	always := g.Always()
	if !slices.Contains(always, unbound.ID()) || !slices.Contains(always, fromUpdate.ID()) {
		t.Errorf("unexpected always set %v", always)
	}
	if slices.Contains(always, plain.ID()) {
		t.Error("plain select should not be in the always set")
	}
}

func TestGraphParts(t *testing.T) {
	g := NewGraph()
	a := g.State("a", 1)
	b := g.State("b", 2)
	c := g.Compose("c", a, b)

	parts := g.Parts()
	if !slices.Equal(ids(parts), []uint64{a.ID(), b.ID(), c.ID()}) {
		t.Errorf("unexpected parts %v", ids(parts))
	}
	if p, ok := g.Lookup(b.ID()); !ok || p != b {
		t.Error("Lookup should find b")
	}
	if _, ok := g.Lookup(999); ok {
		t.Error("Lookup should miss unknown ids")
	}
}

func TestPartString(t *testing.T) {
	g := NewGraph()
	a := g.State("a", 1)
	g.Compose("root", a)
	s := g.Select([]*Part{a}, func(v ...any) any { return v[0] })

	if got := a.String(); got != "primitive#1(root.a)" {
		t.Errorf("String() = %q", got)
	}
	if got := s.String(); got != "select#3" {
		t.Errorf("String() = %q", got)
	}
}
