package part

// Reduce returns the next slice of a stateful part for action a.
//
// A primitive part takes a.Value when the action targets it and the value is
// not identical to prev. A composed part either takes a.Value when targeted
// directly, or delegates to the child on the path to the target and returns a
// shallow copy with only that key replaced. When nothing changed prev is
// returned as is; slice identity is the change signal.
func (p *Part) Reduce(prev any, a Action) any {
	switch p.kind {
	case KindPrimitive:
		if a.PartID != p.id || Is(prev, a.Value) {
			return prev
		}
		return a.Value

	case KindComposed:
		if a.PartID == p.id {
			if Is(prev, a.Value) {
				return prev
			}
			return a.Value
		}

		child := p.childToward(a.PartID)
		if child == nil {
			return prev
		}

		cur, _ := prev.(map[string]any)
		slice := cur[child.name]
		next := child.Reduce(slice, a)
		if Is(next, slice) {
			return prev
		}

		out := make(map[string]any, len(cur)+1)
		for k, v := range cur {
			out[k] = v
		}
		out[child.name] = next
		return out

	default:
		return prev
	}
}

// Contains reports whether id is p or one of its descendants.
func (p *Part) Contains(id uint64) bool {
	return p.id == id || p.childToward(id) != nil
}

// childToward returns the direct child of p whose subtree holds part id.
func (p *Part) childToward(id uint64) *Part {
	g := p.graph
	g.mu.RLock()
	defer g.mu.RUnlock()

	cur, ok := g.parts[id]
	if !ok {
		return nil
	}
	for cur.parent != nil {
		if cur.parent == p {
			return cur
		}
		cur = cur.parent
	}
	return nil
}
