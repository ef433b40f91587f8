// Package activitymap flattens session activity into a transport agnostic
// record for audit feeds.
package activitymap

import (
	"context"
	"strings"
	"time"

	authclient "github.com/goliatone/go-auth-client"
)

const (
	// MetadataKeyRole stores the role name of the session
	MetadataKeyRole = "role"
	// MetadataKeyRoleCode stores the numeric role code of the session
	MetadataKeyRoleCode = "role_code"
	// MetadataKeyPath stores the route path of a guard denial
	MetadataKeyPath = "path"
)

const (
	defaultChannel    = "session"
	defaultObjectType = "session"
	defaultActorID    = "anonymous"
)

// Record is the flattened shape of an activity event.
type Record struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization.
type Option func(*options)

type options struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(authclient.ActivityEvent) string
	now              func() time.Time
}

// Normalize converts a session activity event into a Record. Route denials
// use the denied path as object id; everything else uses the user id.
func Normalize(event authclient.ActivityEvent, opts ...Option) Record {
	o := options{
		channel:       defaultChannel,
		objectType:    defaultObjectType,
		actorFallback: defaultActorID,
		now:           time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = o.now().UTC()
	}

	return Record{
		ActorID:    firstNonEmpty(strings.TrimSpace(event.UserID), o.actorFallback),
		Verb:       string(event.EventType),
		ObjectType: o.objectType,
		ObjectID:   resolveObjectID(event, o.objectIDResolver),
		Channel:    o.channel,
		Metadata:   metadataFor(event),
		OccurredAt: occurredAt,
	}
}

// Sink adapts a Record consumer into an authclient.ActivitySink.
func Sink(fn func(Record) error, opts ...Option) authclient.ActivitySink {
	return authclient.ActivitySinkFunc(func(_ context.Context, event authclient.ActivityEvent) error {
		return fn(Normalize(event, opts...))
	})
}

// WithChannel sets the channel of every record
func WithChannel(channel string) Option {
	return func(o *options) {
		o.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType sets the object type of every record
func WithObjectType(objectType string) Option {
	return func(o *options) {
		o.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object id extraction.
func WithObjectIDResolver(resolver func(authclient.ActivityEvent) string) Option {
	return func(o *options) {
		o.objectIDResolver = resolver
	}
}

// WithActorFallback sets the actor id used when the event has no user.
func WithActorFallback(actorID string) Option {
	return func(o *options) {
		if actorID = strings.TrimSpace(actorID); actorID != "" {
			o.actorFallback = actorID
		}
	}
}

// WithClock overrides the timestamp source for events without one
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func resolveObjectID(event authclient.ActivityEvent, resolver func(authclient.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	if event.EventType == authclient.ActivityEventRouteDenied && event.Path != "" {
		return event.Path
	}
	return strings.TrimSpace(event.UserID)
}

func metadataFor(event authclient.ActivityEvent) map[string]any {
	metadata := make(map[string]any, len(event.Metadata)+3)
	for key, value := range event.Metadata {
		metadata[key] = value
	}

	if _, exists := metadata[MetadataKeyRole]; !exists {
		metadata[MetadataKeyRole] = event.Role.String()
		metadata[MetadataKeyRoleCode] = event.Role.Code()
	}
	if event.Path != "" {
		metadata[MetadataKeyPath] = event.Path
	}
	return metadata
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
