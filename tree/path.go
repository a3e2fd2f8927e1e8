// Package tree provides copy-on-write helpers over the state trees held by a
// relax store. A tree is a map[string]any whose branches are map[string]any or
// []any values; every helper returns a new root that shares all untouched
// subtrees with the input, so a reference to an old root always observes a
// consistent frozen view.
package tree

import (
	"reflect"
	"strconv"
	"strings"
)

// Path addresses a node inside a state tree, one segment per level. Numeric
// segments index into sequences.
type Path []string

// ParsePath splits a dotted key ("user.name") into a Path. Empty segments are
// dropped.
func ParsePath(key string) Path {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, ".")
	path := make(Path, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		path = append(path, part)
	}
	return path
}

// Last returns the final segment, or "" for an empty path.
func (p Path) Last() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Clone returns a copy that does not alias p.
func (p Path) Clone() Path {
	if p == nil {
		return nil
	}
	return append(Path(nil), p...)
}

// Get walks path starting at root. An empty path returns root itself. Besides
// canonical branches it understands string-keyed maps, structs (exported
// fields by name), slices and arrays of any type, dereferencing pointers and
// interfaces on the way.
func Get(root any, path Path) (any, bool) {
	current := root
	for _, segment := range path {
		next, ok := child(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

func child(node any, segment string) (any, bool) {
	switch typed := node.(type) {
	case nil:
		return nil, false
	case map[string]any:
		value, ok := typed[segment]
		return value, ok
	case []any:
		i, ok := index(segment, len(typed))
		if !ok {
			return nil, false
		}
		return typed[i], true
	}

	rv := reflect.ValueOf(node)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}
	switch rv.Kind() {
	case reflect.Map:
		keyType := rv.Type().Key()
		if keyType.Kind() != reflect.String {
			return nil, false
		}
		value := rv.MapIndex(reflect.ValueOf(segment).Convert(keyType))
		if !value.IsValid() {
			return nil, false
		}
		return value.Interface(), true
	case reflect.Struct:
		field, ok := rv.Type().FieldByName(segment)
		if !ok || !field.IsExported() {
			return nil, false
		}
		return rv.FieldByIndex(field.Index).Interface(), true
	case reflect.Slice, reflect.Array:
		i, ok := index(segment, rv.Len())
		if !ok {
			return nil, false
		}
		return rv.Index(i).Interface(), true
	}
	return nil, false
}

// index parses segment as a position below limit.
func index(segment string, limit int) (int, bool) {
	i, err := strconv.Atoi(segment)
	if err != nil || i < 0 || i >= limit {
		return 0, false
	}
	return i, true
}
