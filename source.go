package relax

import (
	"strings"

	"github.com/goliatone/go-relax/tree"
)

// ViewActionMarker is the dependency string that requests the store's whole
// action surface.
const ViewActionMarker = "viewAction"

// SourceKind classifies one declared dependency.
type SourceKind int

const (
	SourceUnsupported SourceKind = iota
	SourceKey
	SourcePath
	SourceQuery
	SourcePartial
	SourceViewAction
	SourceFunc
)

func (k SourceKind) String() string {
	switch k {
	case SourceKey:
		return "key"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourcePartial:
		return "partial"
	case SourceViewAction:
		return "view_action"
	case SourceFunc:
		return "func"
	default:
		return "unsupported"
	}
}

// readsState reports whether resolving the kind touches the store snapshot.
func (k SourceKind) readsState() bool {
	switch k {
	case SourceKey, SourcePath, SourceQuery, SourcePartial:
		return true
	}
	return false
}

// Source is a classified dependency. Only the field matching Kind is set; Raw
// keeps the declaration for diagnostics.
type Source struct {
	Kind    SourceKind
	Path    tree.Path
	Query   Descriptor
	Partial *PartialQueryLang
	Func    Handler
	Raw     any
}

// KeySource reads one top-level key.
func KeySource(key string) Source {
	return Source{Kind: SourceKey, Path: tree.Path{key}, Raw: key}
}

// PathSource reads a nested node.
func PathSource(path ...string) Source {
	return Source{Kind: SourcePath, Path: tree.Path(path).Clone(), Raw: tree.Path(path).String()}
}

// QuerySource evaluates a full descriptor.
func QuerySource(d Descriptor) Source {
	return Source{Kind: SourceQuery, Query: d, Raw: d}
}

// PartialSource binds a partial descriptor to the store.
func PartialSource(p *PartialQueryLang) Source {
	return Source{Kind: SourcePartial, Partial: p, Raw: p}
}

// FuncSource is a literal callable, replaced by a store action of the same
// prop name when one exists.
func FuncSource(fn Handler) Source {
	return Source{Kind: SourceFunc, Func: fn, Raw: fn}
}

// ViewActionSource requests the store's action surface.
func ViewActionSource() Source {
	return Source{Kind: SourceViewAction, Raw: ViewActionMarker}
}

// SourceOf classifies a raw dependency declaration. Strings are keys, dotted
// strings are paths and the literal "viewAction" is the action marker.
// Anything unrecognised yields SourceUnsupported.
func SourceOf(v any) Source {
	switch typed := v.(type) {
	case nil:
		return Source{Kind: SourceUnsupported}
	case Source:
		return typed
	case string:
		return stringSource(typed)
	case tree.Path:
		return pathSource(typed, v)
	case []string:
		return pathSource(tree.Path(typed), v)
	case *PartialQueryLang:
		if typed == nil {
			return Source{Kind: SourceUnsupported, Raw: v}
		}
		return PartialSource(typed)
	case Descriptor:
		if isNilDescriptor(typed) {
			return Source{Kind: SourceUnsupported, Raw: v}
		}
		return QuerySource(typed)
	case Handler:
		if typed == nil {
			return Source{Kind: SourceUnsupported, Raw: v}
		}
		return FuncSource(typed)
	case func(args ...any) (any, error):
		if typed == nil {
			return Source{Kind: SourceUnsupported, Raw: v}
		}
		return FuncSource(Handler(typed))
	case func():
		if typed == nil {
			return Source{Kind: SourceUnsupported, Raw: v}
		}
		return Source{Kind: SourceFunc, Func: func(...any) (any, error) {
			typed()
			return nil, nil
		}, Raw: v}
	case Callable:
		return Source{Kind: SourceFunc, Func: typed.Call, Raw: v}
	}
	return Source{Kind: SourceUnsupported, Raw: v}
}

func stringSource(s string) Source {
	key := strings.TrimSpace(s)
	switch {
	case key == "":
		return Source{Kind: SourceUnsupported, Raw: s}
	case key == ViewActionMarker:
		return ViewActionSource()
	case strings.Contains(key, "."):
		path := tree.ParsePath(key)
		if len(path) == 0 {
			return Source{Kind: SourceUnsupported, Raw: s}
		}
		return Source{Kind: SourcePath, Path: path, Raw: s}
	default:
		return KeySource(key)
	}
}

func pathSource(path tree.Path, raw any) Source {
	if len(path) == 0 {
		return Source{Kind: SourceUnsupported, Raw: raw}
	}
	if len(path) == 1 {
		return KeySource(path[0])
	}
	return Source{Kind: SourcePath, Path: path.Clone(), Raw: raw}
}

// defaultName is the prop name a source takes when declared in a sequence.
func (s Source) defaultName() string {
	switch s.Kind {
	case SourceKey, SourcePath:
		return s.Path.Last()
	case SourceQuery:
		return s.Query.Name()
	case SourcePartial:
		return s.Partial.Name()
	case SourceViewAction:
		return ViewActionMarker
	}
	return ""
}

func isNilDescriptor(d Descriptor) bool {
	switch typed := d.(type) {
	case *QueryLang:
		return typed == nil
	case *ExprQuery:
		return typed == nil
	}
	return false
}
