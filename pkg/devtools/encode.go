package devtools

import (
	"github.com/vango-dev/partition/pkg/part"
	"github.com/vango-dev/partition/pkg/store"
	"github.com/vango-dev/partition/pkg/suspense"
)

// PromiseView is the JSON form of an async value.
type PromiseView struct {
	State    string `json:"state"`
	Value    any    `json:"value,omitempty"`
	Error    string `json:"error,omitempty"`
	Canceled bool   `json:"canceled,omitempty"`
}

// encodeValue replaces promises, at any depth of nested maps and slices of
// any, with their PromiseView.
func encodeValue(v any) any {
	switch x := v.(type) {
	case *suspense.Promise:
		r, ok := x.Poll()
		if !ok {
			return PromiseView{State: suspense.Pending.String()}
		}
		view := PromiseView{State: r.State().String(), Canceled: r.Canceled}
		if r.Err != nil {
			view.Error = r.Err.Error()
		} else {
			view.Value = encodeValue(r.Value)
		}
		return view
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = encodeValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = encodeValue(e)
		}
		return out
	default:
		return v
	}
}

// PartInfo describes a part of the inspected graph.
type PartInfo struct {
	ID          uint64   `json:"id" yaml:"id"`
	Kind        string   `json:"kind" yaml:"kind"`
	Name        string   `json:"name,omitempty" yaml:"name,omitempty"`
	Path        []string `json:"path,omitempty" yaml:"path,omitempty,flow"`
	ActionType  string   `json:"actionType,omitempty" yaml:"actionType,omitempty"`
	Children    []uint64 `json:"children,omitempty" yaml:"children,omitempty,flow"`
	Sources     []uint64 `json:"sources,omitempty" yaml:"sources,omitempty,flow"`
	Target      uint64   `json:"target,omitempty" yaml:"target,omitempty"`
	Dependents  []uint64 `json:"dependents" yaml:"dependents,flow"`
	AlwaysStale bool     `json:"alwaysStale,omitempty" yaml:"alwaysStale,omitempty"`
	Writable    bool     `json:"writable" yaml:"writable"`
	Partitioned bool     `json:"partitioned" yaml:"partitioned"`
}

// Describe returns the inspector view of p.
func Describe(p *part.Part, pt *store.Partitioner) PartInfo {
	info := PartInfo{
		ID:          p.ID(),
		Kind:        p.Kind().String(),
		Name:        p.Name(),
		Path:        p.Path(),
		ActionType:  p.ActionType(),
		Children:    ids(p.Children()),
		Sources:     ids(p.Sources()),
		Dependents:  ids(p.Dependents()),
		AlwaysStale: p.AlwaysStale(),
		Writable:    p.Kind() != part.KindSelect,
		Partitioned: pt != nil && pt.Knows(p.ID()),
	}
	if t := p.Target(); t != nil {
		info.Target = t.ID()
		info.Partitioned = pt != nil && pt.Knows(t.ID())
	}
	return info
}

func ids(parts []*part.Part) []uint64 {
	if len(parts) == 0 {
		return nil
	}
	out := make([]uint64, len(parts))
	for i, p := range parts {
		out[i] = p.ID()
	}
	return out
}
