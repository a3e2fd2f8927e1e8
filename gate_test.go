package relax

import "testing"

func TestShouldUpdate(t *testing.T) {
	store := NewStore(nil, WithAction("save", func(*Store, ...any) (any, error) { return nil, nil }))
	other := NewStore(nil, WithAction("save", func(*Store, ...any) (any, error) { return nil, nil }))
	save, _ := store.Action("save")
	saveAgain, _ := store.Action("save")
	otherSave, _ := other.Action("save")
	partial := PQL("byID", nil)

	cases := []struct {
		name       string
		prevInput  map[string]any
		nextInput  map[string]any
		prev, next Props
		want       bool
	}{
		{
			name: "fresh equal data",
			prev: Props{"todos": []any{map[string]any{"id": 1}}},
			next: Props{"todos": []any{map[string]any{"id": 1}}},
			want: false,
		},
		{
			name: "changed derived value",
			prev: Props{"count": 1},
			next: Props{"count": 2},
			want: true,
		},
		{
			name:      "changed input",
			prevInput: map[string]any{"title": "a"},
			nextInput: map[string]any{"title": "b"},
			want:      true,
		},
		{
			name:      "nil and empty input",
			prevInput: nil,
			nextInput: map[string]any{},
			want:      false,
		},
		{
			name: "re-bound action",
			prev: Props{"save": save},
			next: Props{"save": saveAgain},
			want: false,
		},
		{
			name: "action of another store",
			prev: Props{"save": save},
			next: Props{"save": otherSave},
			want: true,
		},
		{
			name: "view action",
			prev: Props{"viewAction": store.ViewAction()},
			next: Props{"viewAction": store.ViewAction()},
			want: false,
		},
		{
			name: "re-bound partial",
			prev: Props{"byID": partial.Bind(store)},
			next: Props{"byID": partial.Bind(store)},
			want: false,
		},
		{
			name: "prop removed",
			prev: Props{"a": 1, "b": nil},
			next: Props{"a": 1},
			want: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ShouldUpdate(tc.prevInput, tc.nextInput, tc.prev, tc.next); got != tc.want {
				t.Fatalf("ShouldUpdate = %v, want %v", got, tc.want)
			}
		})
	}
}
