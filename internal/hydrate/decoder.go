package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// Context identifies the binding whose props are being decoded.
type Context struct {
	Component  string
	InstanceID string
}

// Option tunes the json.Decoder used by Decode.
type Option func(*json.Decoder)

// UseNumber keeps numbers as json.Number.
func UseNumber() Option {
	return func(dec *json.Decoder) { dec.UseNumber() }
}

// DisallowUnknownFields rejects props without a matching field in T.
func DisallowUnknownFields() Option {
	return func(dec *json.Decoder) { dec.DisallowUnknownFields() }
}

// Decode converts derived props into T through a JSON round trip. Values JSON
// cannot carry (funcs, channels) are dropped first.
func Decode[T any](ctx Context, props map[string]any, opts ...Option) (T, error) {
	var out T
	if props == nil {
		return out, fmt.Errorf("hydrate: props are nil for component %q", ctx.Component)
	}
	buffer, err := json.Marshal(encodable(props))
	if err != nil {
		return out, fmt.Errorf("hydrate: marshal props for component %q: %w", ctx.Component, err)
	}
	dec := json.NewDecoder(bytes.NewReader(buffer))
	for _, opt := range opts {
		if opt != nil {
			opt(dec)
		}
	}
	if err := dec.Decode(&out); err != nil {
		var zero T
		return zero, fmt.Errorf("hydrate: decode component %q: %w", ctx.Component, err)
	}
	return out, nil
}

// encodable copies the top level of props without values JSON rejects.
// Nested containers are shared; decoding never writes to them.
func encodable(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for key, value := range props {
		if value == nil {
			out[key] = nil
			continue
		}
		switch reflect.TypeOf(value).Kind() {
		case reflect.Func, reflect.Chan, reflect.UnsafePointer, reflect.Complex64, reflect.Complex128:
			continue
		}
		out[key] = value
	}
	return out
}
