package hydrate

import (
	"encoding/json"
	"strings"
	"testing"
)

type todoProps struct {
	Title string   `json:"title"`
	Count int      `json:"count"`
	Tags  []string `json:"tags"`
}

func TestDecodeDropsCallables(t *testing.T) {
	props := map[string]any{
		"title":  "groceries",
		"count":  2,
		"tags":   []any{"home"},
		"onSave": func(...any) (any, error) { return nil, nil },
		"events": make(chan int),
	}

	got, err := Decode[todoProps](Context{Component: "TodoList"}, props)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title != "groceries" || got.Count != 2 || len(got.Tags) != 1 || got.Tags[0] != "home" {
		t.Fatalf("unexpected decode %+v", got)
	}
	if _, ok := props["onSave"]; !ok {
		t.Fatalf("decode must not modify the caller's props")
	}
}

func TestDecodeNilProps(t *testing.T) {
	_, err := Decode[todoProps](Context{Component: "TodoList"}, nil)
	if err == nil || !strings.Contains(err.Error(), `component "TodoList"`) {
		t.Fatalf("expected nil props error, got %v", err)
	}
}

func TestDecodeOptions(t *testing.T) {
	cases := []struct {
		name    string
		props   map[string]any
		opts    []Option
		wantErr string
	}{
		{name: "unknown field allowed", props: map[string]any{"title": "x", "extra": true}},
		{name: "unknown field rejected", props: map[string]any{"title": "x", "extra": true}, opts: []Option{DisallowUnknownFields()}, wantErr: "unknown field"},
		{name: "type mismatch", props: map[string]any{"count": "two"}, wantErr: `component "Row"`},
		{name: "nil option ignored", props: map[string]any{"title": "x"}, opts: []Option{nil}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode[todoProps](Context{Component: "Row"}, tc.props, tc.opts...)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("decode: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestDecodeUseNumber(t *testing.T) {
	got, err := Decode[map[string]any](Context{}, map[string]any{"count": 3}, UseNumber())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, ok := got["count"].(json.Number); !ok {
		t.Fatalf("expected json.Number, got %T", got["count"])
	}
}
