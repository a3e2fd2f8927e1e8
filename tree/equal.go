package tree

import (
	"reflect"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var equalOptions = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.FilterValues(sharedMap, cmp.Comparer(func(_, _ map[string]any) bool { return true })),
	cmp.FilterValues(sharedSlice, cmp.Comparer(func(_, _ []any) bool { return true })),
	cmp.FilterValues(bothFuncs, cmp.Comparer(sameFunc)),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Equal reports whether a and b are structurally equal. Maps and sequences are
// compared element-wise, nil and empty containers are equal, and subtrees
// shared by both sides are accepted without being walked. Funcs are equal
// only when they are the same func value. Types with an Equal method are
// compared through it, which is how store-bound callables compare. Extra cmp
// options can be supplied for domain types.
func Equal(a, b any, opts ...cmp.Option) bool {
	if len(opts) == 0 {
		return cmp.Equal(a, b, equalOptions)
	}
	return cmp.Equal(a, b, equalOptions, cmp.Options(opts))
}

// Diff renders a human readable difference between a and b, empty when Equal.
func Diff(a, b any, opts ...cmp.Option) string {
	return cmp.Diff(a, b, equalOptions, cmp.Options(opts))
}

func sharedMap(x, y map[string]any) bool {
	return len(x) > 0 && len(x) == len(y) && reflect.ValueOf(x).Pointer() == reflect.ValueOf(y).Pointer()
}

func sharedSlice(x, y []any) bool {
	return len(x) > 0 && len(x) == len(y) && &x[0] == &y[0]
}

func bothFuncs(x, y any) bool {
	return reflect.ValueOf(x).Kind() == reflect.Func && reflect.ValueOf(y).Kind() == reflect.Func
}

func sameFunc(x, y any) bool {
	vx, vy := reflect.ValueOf(x), reflect.ValueOf(y)
	if vx.IsNil() || vy.IsNil() {
		return vx.IsNil() && vy.IsNil()
	}
	return vx.Type() == vy.Type() && vx.Pointer() == vy.Pointer()
}
