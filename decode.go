package relax

import "github.com/goliatone/go-relax/internal/hydrate"

// DecodeOption configures DecodeProps.
type DecodeOption = hydrate.Option

// DecodeProps converts the data part of derived props into T through a JSON
// round trip. Actions, view actions and bound queries are skipped.
func DecodeProps[T any](b *Binding, opts ...DecodeOption) (T, error) {
	props := b.Props()
	data := make(map[string]any, len(props))
	for name, value := range props {
		switch value.(type) {
		case Callable, ViewAction, BoundQuery:
			continue
		}
		data[name] = value
	}
	return hydrate.Decode[T](hydrate.Context{Component: b.Name(), InstanceID: b.ID()}, data, opts...)
}

// DecodeUseNumber keeps numbers as json.Number.
func DecodeUseNumber() DecodeOption { return hydrate.UseNumber() }

// DecodeStrict rejects props that have no matching field.
func DecodeStrict() DecodeOption { return hydrate.DisallowUnknownFields() }
