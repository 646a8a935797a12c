package middleware

import "github.com/vango-dev/partition/pkg/part"

// Action kinds used as metric labels and span attributes.
const (
	kindAction = "action"
	kindThunk  = "thunk"
	kindOther  = "other"
)

// describe classifies action and returns the part fields of part actions.
func describe(action any) (kind string, partID uint64, actionType string) {
	switch a := action.(type) {
	case part.Action:
		return kindAction, a.PartID, a.Type
	case part.Thunk, func(part.Dispatcher, part.Reader) any:
		return kindThunk, 0, ""
	default:
		return kindOther, 0, ""
	}
}
