package activity

import (
	"strings"
	"time"
)

// Lifecycle verbs raised by bindings and providers.
const (
	VerbWillMount         = "relax.will_mount"
	VerbWillUpdate        = "relax.will_update"
	VerbTooManyInstances  = "relax.too_many_instances"
	VerbMissingAction     = "relax.missing_action"
	VerbUnsupportedSource = "relax.unsupported_source"
	VerbProviderMount     = "provider.mount"
	VerbProviderSync      = "provider.sync"
	VerbProviderUnmount   = "provider.unmount"
)

// LifecycleInput describes the common fields of a lifecycle event.
type LifecycleInput struct {
	Component  string
	InstanceID string
	Store      string
	Channel    string
	Props      map[string]any
	Input      map[string]any
	Metadata   map[string]any
	OccurredAt time.Time
}

// BuildWillMountEvent records the derived props a binding mounts with.
func BuildWillMountEvent(input LifecycleInput) Event {
	return buildLifecycleEvent(VerbWillMount, input)
}

// BuildWillUpdateEvent records the derived props a binding renders with.
func BuildWillUpdateEvent(input LifecycleInput) Event {
	return buildLifecycleEvent(VerbWillUpdate, input)
}

// BuildTooManyInstancesEvent reports a per-name instance count over the limit.
func BuildTooManyInstancesEvent(input LifecycleInput, count, limit int) Event {
	input.Metadata = ensureMetadata(cloneMap(input.Metadata))
	input.Metadata["count"] = count
	input.Metadata["limit"] = limit
	return buildLifecycleEvent(VerbTooManyInstances, input)
}

// BuildMissingActionEvent reports a Func source with no store action behind it.
func BuildMissingActionEvent(input LifecycleInput, prop string) Event {
	input.Metadata = ensureMetadata(cloneMap(input.Metadata))
	input.Metadata["prop"] = prop
	return buildLifecycleEvent(VerbMissingAction, input)
}

// BuildUnsupportedSourceEvent reports a dependency that could not be classified.
func BuildUnsupportedSourceEvent(input LifecycleInput, prop string) Event {
	input.Metadata = ensureMetadata(cloneMap(input.Metadata))
	input.Metadata["prop"] = prop
	return buildLifecycleEvent(VerbUnsupportedSource, input)
}

// BuildProviderEvent builds provider.mount, provider.sync or provider.unmount.
func BuildProviderEvent(verb string, input LifecycleInput) Event {
	return buildLifecycleEvent(verb, input)
}

func buildLifecycleEvent(verb string, input LifecycleInput) Event {
	metadata := cloneMap(input.Metadata)
	if len(input.Props) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["relax"] = cloneMap(input.Props)
	}
	if len(input.Input) > 0 {
		metadata = ensureMetadata(metadata)
		metadata["props"] = cloneMap(input.Input)
	}
	component := strings.TrimSpace(input.Component)
	if component == "" {
		component = "anonymous"
	}
	return Event{
		Verb:       verb,
		Component:  component,
		InstanceID: strings.TrimSpace(input.InstanceID),
		Store:      strings.TrimSpace(input.Store),
		Channel:    strings.TrimSpace(input.Channel),
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
