// Package part provides the part graph: stateful cells that own a slice of a
// shared state tree, and derived cells computed from them.
//
// Parts are declared once, during a wiring phase, on a Graph. The graph owns
// the id counter and the dependency closure, so a change to any part can be
// answered by lookup: every part whose value could have changed is already
// listed among its dependents.
//
// # Part Kinds
//
// Primitive parts hold a leaf value:
//
//	g := part.NewGraph()
//	first := g.State("first", "Ada")
//	last := g.State("last", "Lovelace")
//
// Composed parts group stateful parts under one key:
//
//	user := g.Compose("user", first, last)
//	// state: {"user": {"first": "Ada", "last": "Lovelace"}}
//
// Select parts derive a read-only value from sources and recompute only when
// one of the source values changed:
//
//	full := g.Select([]*part.Part{first, last}, func(v ...any) any {
//	    return v[0].(string) + " " + v[1].(string)
//	})
//
// Proxy parts pair a derivation with an arbitrary writer, and update parts
// dispatch a part's action under a readable action type:
//
//	rename := first.Update("RENAME_USER", nil)
//	store.Dispatch(rename.Call("Grace"))
//
// # Async Derivations
//
// A source value or derive result of type *suspense.Promise makes the select
// asynchronous: its value becomes a cancellable promise from the graph's
// cache. Superseded promises are cancelled, never rejected.
//
// # Thread Safety
//
// Wiring (constructors, Compose, Update) and reading are safe for concurrent
// use. Derived values are memoized per reader and per state version.
package part
