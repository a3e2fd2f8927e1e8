package relax

import "github.com/goliatone/go-relax/tree"

// ShouldUpdate reports whether a unit must re-emit: true when the input props
// or the derived props differ structurally. Fresh instances of equal data
// compare equal, nil and empty containers compare equal, and store-bound
// callables compare equal while bound to the same store.
func ShouldUpdate(prevInput, nextInput map[string]any, prevDerived, nextDerived Props) bool {
	if !tree.Equal(prevInput, nextInput) {
		return true
	}
	return !tree.Equal(map[string]any(prevDerived), map[string]any(nextDerived))
}
