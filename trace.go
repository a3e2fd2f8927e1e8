package relax

import (
	"encoding/json"
)

// Trace records how each declared dependency of a unit was resolved.
type Trace struct {
	Component string      `json:"component,omitempty"`
	Store     string      `json:"store,omitempty"`
	Props     []PropTrace `json:"props"`
}

// PropTrace details the resolution of one derived prop.
type PropTrace struct {
	Name     string `json:"name"`
	Kind     string `json:"kind"`
	Source   string `json:"source,omitempty"`
	Resolved bool   `json:"resolved"`
	Error    string `json:"error,omitempty"`
}

// Prop returns the trace entry for name.
func (t Trace) Prop(name string) (PropTrace, bool) {
	for _, prop := range t.Props {
		if prop.Name == name {
			return prop, true
		}
	}
	return PropTrace{}, false
}

// ToJSON serialises the trace into JSON for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a JSON payload that was previously generated via
// ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}
