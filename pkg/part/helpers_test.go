package part

// testStore is a minimal reducer-driven store over top-level parts, enough to
// exercise reading, reducing and memoization without the store package.
type testStore struct {
	parts   []*Part
	state   map[string]any
	version uint64
}

func newTestStore(parts ...*Part) *testStore {
	s := &testStore{parts: parts, state: make(map[string]any, len(parts))}
	for _, p := range parts {
		s.state[p.Name()] = p.Initial()
	}
	return s
}

func (s *testStore) State() any      { return s.state }
func (s *testStore) Get(p *Part) any { return p.Get(s) }
func (s *testStore) Version() uint64 { return s.version }

func (s *testStore) Dispatch(action any) any {
	switch a := action.(type) {
	case Thunk:
		return a(s, s)
	case Action:
		for _, top := range s.parts {
			if !top.Contains(a.PartID) {
				continue
			}
			prev := s.state[top.Name()]
			next := top.Reduce(prev, a)
			if Is(prev, next) {
				return a
			}
			state := make(map[string]any, len(s.state))
			for k, v := range s.state {
				state[k] = v
			}
			state[top.Name()] = next
			s.state = state
			s.version++
		}
		return a
	default:
		return action
	}
}
