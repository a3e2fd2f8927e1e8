package tree

import "reflect"

// SetIn returns a root where path holds value. Only the branches along path
// are copied; when the node already holds the same value the original root is
// returned with changed == false. Missing or scalar intermediate nodes are
// replaced by fresh maps. A numeric segment equal to a sequence's length
// appends.
func SetIn(root map[string]any, path Path, value any) (map[string]any, bool) {
	if len(path) == 0 {
		next, ok := value.(map[string]any)
		if !ok || Same(root, next) {
			return root, false
		}
		return next, true
	}
	next, changed := setNode(root, path, value)
	if !changed {
		return root, false
	}
	return next.(map[string]any), true
}

// UpdateIn applies fn to the value found at path and stores the result.
func UpdateIn(root map[string]any, path Path, fn func(current any) any) (map[string]any, bool) {
	if fn == nil {
		return root, false
	}
	current, _ := Get(root, path)
	return SetIn(root, path, fn(current))
}

// DeleteIn removes the node at path. Removing from a sequence shifts the
// following elements.
func DeleteIn(root map[string]any, path Path) (map[string]any, bool) {
	if len(path) == 0 || root == nil {
		return root, false
	}
	next, changed := deleteNode(root, path)
	if !changed {
		return root, false
	}
	return next.(map[string]any), true
}

func setNode(node any, path Path, value any) (any, bool) {
	if len(path) == 0 {
		if Same(node, value) {
			return node, false
		}
		return value, true
	}

	key := path[0]
	switch typed := node.(type) {
	case map[string]any:
		current, exists := typed[key]
		next, changed := setNode(current, path[1:], value)
		if !changed && exists {
			return node, false
		}
		out := make(map[string]any, len(typed)+1)
		for k, v := range typed {
			out[k] = v
		}
		out[key] = next
		return out, true
	case []any:
		if i, ok := index(key, len(typed)+1); ok {
			var current any
			if i < len(typed) {
				current = typed[i]
			}
			next, changed := setNode(current, path[1:], value)
			if !changed && i < len(typed) {
				return node, false
			}
			out := make([]any, len(typed), len(typed)+1)
			copy(out, typed)
			if i == len(typed) {
				out = append(out, next)
			} else {
				out[i] = next
			}
			return out, true
		}
	}

	next, _ := setNode(nil, path[1:], value)
	return map[string]any{key: next}, true
}

func deleteNode(node any, path Path) (any, bool) {
	key := path[0]
	switch typed := node.(type) {
	case map[string]any:
		current, exists := typed[key]
		if !exists {
			return node, false
		}
		out := make(map[string]any, len(typed))
		for k, v := range typed {
			out[k] = v
		}
		if len(path) == 1 {
			delete(out, key)
			return out, true
		}
		next, changed := deleteNode(current, path[1:])
		if !changed {
			return node, false
		}
		out[key] = next
		return out, true
	case []any:
		i, ok := index(key, len(typed))
		if !ok {
			return node, false
		}
		if len(path) == 1 {
			out := make([]any, 0, len(typed)-1)
			out = append(out, typed[:i]...)
			out = append(out, typed[i+1:]...)
			return out, true
		}
		next, changed := deleteNode(typed[i], path[1:])
		if !changed {
			return node, false
		}
		out := make([]any, len(typed))
		copy(out, typed)
		out[i] = next
		return out, true
	}
	return node, false
}

// Same reports whether a and b are the same value without descending into
// them: identical references for maps, pointers, funcs and channels, the same
// backing array and length for slices, and == for comparable values.
func Same(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if va.Type() != vb.Type() {
		return false
	}
	switch va.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	case reflect.Slice:
		if va.Len() != vb.Len() {
			return false
		}
		return va.Len() == 0 || va.Pointer() == vb.Pointer()
	}
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	return false
}
