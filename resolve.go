package relax

import (
	"fmt"
	"time"

	"github.com/goliatone/go-relax/pkg/activity"
)

// Props is a derived props snapshot. A new map is built on every pass.
type Props map[string]any

// Resolve computes the derived props of mapping against store.
func Resolve(mapping Mapping, store *Store) Props {
	props, _ := ResolveWithTrace(mapping, store)
	return props
}

// ResolveWithTrace resolves mapping and reports how every entry was handled.
// opts are applied over the store's configuration; WithName sets the
// component name used in diagnostics.
func ResolveWithTrace(mapping Mapping, store *Store, opts ...Option) (Props, Trace) {
	layered := append([]Option{WithName("")}, opts...)
	var cfg config
	if store != nil {
		cfg = store.cfg.with(layered)
	} else {
		cfg = applyOptions(layered)
	}
	r := resolver{cfg: cfg, diag: newDiagnostics(cfg, cfg.name, "", store)}
	return r.resolve(mapping, store)
}

type resolver struct {
	cfg  config
	diag *diagnostics
}

func (r resolver) resolve(mapping Mapping, store *Store) (Props, Trace) {
	start := time.Now()
	props := make(Props, mapping.Len())
	trace := Trace{Component: r.diag.component, Props: make([]PropTrace, 0, mapping.Len())}
	if store != nil {
		trace.Store = store.Name()
	}

	for _, name := range mapping.order {
		src := mapping.entries[name]
		entry := PropTrace{Name: name, Kind: src.Kind.String(), Source: describeSource(src)}

		switch src.Kind {
		case SourceViewAction:
			if store == nil {
				break
			}
			if !store.HasActions() {
				r.cfg.logger.Warn("store has no actions to expose as viewAction", "component", r.diag.component, "store", store.Name())
				r.diag.emit(activity.BuildMissingActionEvent(r.diag.input(nil), name))
			}
			props[name] = store.ViewAction()
			entry.Resolved = true

		case SourceKey, SourcePath, SourceQuery:
			if store == nil {
				break
			}
			value, err := store.Query(src)
			if err != nil {
				r.cfg.logger.Error("query failed", "component", r.diag.component, "prop", name, "error", err)
				entry.Error = err.Error()
				value = nil
			}
			props[name] = value
			entry.Resolved = err == nil

		case SourceFunc:
			if store != nil {
				if action, ok := store.Action(name); ok {
					props[name] = action
					entry.Resolved = true
					break
				}
			}
			r.cfg.logger.Warn(fmt.Sprintf("store can not find '%s' method", name), "component", r.diag.component)
			r.diag.emit(activity.BuildMissingActionEvent(r.diag.input(nil), name))
			props[name] = src.Func
			entry.Resolved = true

		case SourcePartial:
			if store == nil {
				break
			}
			props[name] = src.Partial.Bind(store)
			entry.Resolved = true

		default:
			if r.cfg.warnUnsupported {
				r.cfg.logger.Warn("unsupported dependency", "component", r.diag.component, "prop", name, "type", fmt.Sprintf("%T", src.Raw))
				r.diag.emit(activity.BuildUnsupportedSourceEvent(r.diag.input(nil), name))
			}
		}
		trace.Props = append(trace.Props, entry)
	}

	r.cfg.metrics.Resolve(r.diag.componentLabel(), len(props), time.Since(start))
	return props, trace
}

func describeSource(src Source) string {
	switch src.Kind {
	case SourceKey, SourcePath:
		return src.Path.String()
	case SourceQuery:
		return src.Query.Name()
	case SourcePartial:
		return src.Partial.Name()
	case SourceViewAction:
		return ViewActionMarker
	}
	return ""
}
