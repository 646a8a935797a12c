package part

// Kind is the closed set of part variants.
type Kind int

const (
	KindInvalid Kind = iota
	KindPrimitive
	KindComposed
	KindSelect
	KindProxy
	KindUpdate
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindComposed:
		return "composed"
	case KindSelect:
		return "select"
	case KindProxy:
		return "proxy"
	case KindUpdate:
		return "update"
	default:
		return "invalid"
	}
}

// Stateful reports whether parts of this kind own a slice of the state tree.
func (k Kind) Stateful() bool {
	switch k {
	case KindPrimitive, KindComposed:
		return true
	default:
		return false
	}
}

// Derived reports whether parts of this kind compute their value from sources.
func (k Kind) Derived() bool {
	switch k {
	case KindSelect, KindProxy:
		return true
	default:
		return false
	}
}
