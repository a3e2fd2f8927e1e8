package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-relax/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts lifecycle events to a go-users ActivitySink. The binding or
// provider instance id becomes both the actor and the object id; the
// component name is the object type.
type Hook struct {
	Sink usertypes.ActivitySink
	// TenantID is stamped on every record when set.
	TenantID uuid.UUID
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if normalized.Verb == "" || normalized.Component == "" {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	objectID := normalized.InstanceID
	if objectID == "" {
		objectID = normalized.Component
	}
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.InstanceID),
		TenantID:   h.TenantID,
		Verb:       normalized.Verb,
		ObjectType: normalized.Component,
		ObjectID:   objectID,
		Channel:    normalized.Channel,
		Data:       cloneMap(normalized.Metadata),
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if normalized.Store != "" {
		if record.Data == nil {
			record.Data = map[string]any{}
		}
		record.Data["store"] = normalized.Store
	}

	return h.Sink.Log(ctx, record)
}

func parseUUID(input string) uuid.UUID {
	id, err := uuid.Parse(strings.TrimSpace(input))
	if err != nil {
		return uuid.Nil
	}
	return id
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
