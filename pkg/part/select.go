package part

import (
	"context"
	"sync"

	"github.com/vango-dev/partition/pkg/suspense"
)

// memo is the cache of a derived part. A cached result is valid for one
// reader at one state version; when the version moves on but no source value
// changed, the result is kept and only the version is refreshed.
type memo struct {
	mu       sync.Mutex
	reader   Reader
	computed bool
	version  uint64
	values   []any
	result   any

	// owned is set when result is a wrapper this part created, and so may
	// cancel when it is superseded.
	owned bool
}

// selectValue returns the memoized value of a derived part. The memo lock is
// held while deriving; locks are taken from consumer to source, which the
// graph keeps acyclic.
func (p *Part) selectValue(r Reader) any {
	m := &p.memo
	version := r.Version()

	m.mu.Lock()
	defer m.mu.Unlock()

	valid := m.computed && m.reader == r
	if valid && m.version == version {
		return m.result
	}

	var (
		next  any
		owned bool
	)
	switch {
	case p.deriveState != nil:
		next, owned = p.track(p.deriveState(r))
	case p.alwaysStale:
		values := p.readSources(r)
		m.values = values
		next, owned = p.compute(values)
	default:
		values := p.readSources(r)
		if valid && sameValues(values, m.values) {
			m.version = version
			return m.result
		}
		m.values = values
		next, owned = p.compute(values)
	}

	m.version = version
	m.reader = r

	if valid && p.equal(m.result, next) {
		if np, ok := next.(*suspense.Promise); ok && owned && np != m.result {
			p.graph.promises.Forget(np)
		}
		return m.result
	}

	if old, ok := m.result.(*suspense.Promise); ok && m.owned {
		p.graph.promises.Forget(old)
	}
	m.result = next
	m.owned = owned
	m.computed = true
	return next
}

func (p *Part) readSources(r Reader) []any {
	values := make([]any, len(p.sources))
	for i, s := range p.sources {
		values[i] = r.Get(s)
	}
	return values
}

// compute applies the derive function, joining first when any source value
// is a promise. owned reports whether the result is a wrapper created here.
//
// A join whose wrapper is cancelled stops waiting on its sources. A cancelled
// source cancels the join without calling derive.
func (p *Part) compute(values []any) (v any, owned bool) {
	if !suspense.HasPromise(values...) {
		return p.track(p.derive(values...))
	}

	derive := p.derive
	base, stop := suspense.GoContext(context.Background(), func(ctx context.Context) (any, error) {
		resolved, err := suspense.All(ctx, values...)
		if err != nil {
			return nil, err
		}
		out := derive(resolved...)
		inner, ok := out.(*suspense.Promise)
		if !ok {
			return out, nil
		}
		res, err := inner.Await(ctx)
		if r, _ := inner.Poll(); r.Canceled {
			return nil, suspense.ErrCanceled
		}
		return res, err
	})
	return p.graph.promises.WrapCancel(base, stop), true
}

// track routes promise results through the graph cache so they can be
// cancelled when superseded. Wrappers the cache already knows, such as a
// source's own value passed through, are returned as the cache hands them
// back and are not owned.
func (p *Part) track(v any) (any, bool) {
	pr, ok := v.(*suspense.Promise)
	if !ok {
		return v, false
	}
	if _, known := p.graph.promises.Status(pr); known {
		return p.graph.promises.Wrap(pr), false
	}
	return p.graph.promises.Wrap(pr), true
}
