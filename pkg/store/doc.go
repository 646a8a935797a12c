// Package store turns a reducer-driven state container into one that knows
// about parts.
//
// A Partitioner is built from the top-level stateful parts of a graph. It
// provides the root reducer, which routes a part action to the one slice that
// owns it, and an Enhancer that wraps any Base store with per-part
// subscriptions and batched notification.
//
// Most programs use New:
//
//	g := part.NewGraph()
//	name := g.State("name", "value")
//	upper := g.Select([]*part.Part{name}, func(v ...any) any {
//	    return strings.ToUpper(v[0].(string))
//	})
//
//	st := store.New(store.MustPartition([]*part.Part{name}))
//	unsubscribe := st.SubscribeToPart(upper, func() {
//	    fmt.Println(st.Get(upper))
//	})
//	defer unsubscribe()
//
//	st.Dispatch(name.Set("next value")) // prints NEXT VALUE
//
// # Notification
//
// A dispatch that leaves the root state identical notifies nobody. Otherwise
// the store bumps its version, records the dispatched part as dirty and runs a
// notification pass: store listeners fire first, in registration order, then
// the listeners of every dirty part, its dependents, and the parts that are
// always stale. Each part's listeners fire at most once per pass.
//
// The pass runs through the configured Notifier, so it can be deferred or
// coalesced. Batch defers it until the outermost batch returns.
//
// # Concurrency
//
// Dispatch, Get and the subscribe functions are safe for concurrent use.
// Actions are applied one at a time. Listeners run outside the store lock and
// may dispatch; reducers must not.
package store
