package part

import (
	"math"
	"reflect"
	"strings"
	"unicode"
)

// Is reports whether a and b are the same value.
//
// Comparable values compare with ==, except that NaN equals NaN. Maps,
// slices, pointers and channels compare by identity, so a copied map is a
// different value even when its contents match. Structs and arrays holding
// such fields compare field by field under the same rules, so a struct is
// always the same value as itself. Functions are never equal.
func Is(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return same(reflect.ValueOf(a), reflect.ValueOf(b))
}

func same(va, vb reflect.Value) bool {
	if va.Type() != vb.Type() {
		return false
	}

	switch va.Kind() {
	case reflect.Float32, reflect.Float64:
		fa, fb := va.Float(), vb.Float()
		if math.IsNaN(fa) && math.IsNaN(fb) {
			return true
		}
		return fa == fb
	case reflect.Map, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		return va.Pointer() == vb.Pointer() && va.Len() == vb.Len()
	case reflect.Func:
		return false
	case reflect.Interface:
		if va.IsNil() || vb.IsNil() {
			return va.IsNil() && vb.IsNil()
		}
		return same(va.Elem(), vb.Elem())
	case reflect.Struct:
		for i := 0; i < va.NumField(); i++ {
			if !same(va.Field(i), vb.Field(i)) {
				return false
			}
		}
		return true
	case reflect.Array:
		for i := 0; i < va.Len(); i++ {
			if !same(va.Index(i), vb.Index(i)) {
				return false
			}
		}
		return true
	}

	return va.Equal(vb)
}

// sameValues reports whether two source tuples are element-wise identical.
func sameValues(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Is(a[i], b[i]) {
			return false
		}
	}
	return true
}

// appendUnique appends id unless it is already present.
func appendUnique(ids []uint64, id uint64) []uint64 {
	for _, existing := range ids {
		if existing == id {
			return ids
		}
	}
	return append(ids, id)
}

// screamingSnake converts a path such as ["user", "firstName"] to
// "USER_FIRST_NAME".
func screamingSnake(path []string) string {
	var b strings.Builder
	for i, seg := range path {
		if i > 0 {
			b.WriteByte('_')
		}
		prevLower := false
		for _, r := range seg {
			switch {
			case r == '-' || r == '.' || unicode.IsSpace(r):
				b.WriteByte('_')
				prevLower = false
			case unicode.IsUpper(r):
				if prevLower {
					b.WriteByte('_')
				}
				b.WriteRune(r)
				prevLower = false
			default:
				b.WriteRune(unicode.ToUpper(r))
				prevLower = unicode.IsLower(r) || unicode.IsDigit(r)
			}
		}
	}
	return b.String()
}

// walk follows path through nested map[string]any slices.
func walk(state any, path []string) any {
	cur := state
	for _, key := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[key]
	}
	return cur
}
