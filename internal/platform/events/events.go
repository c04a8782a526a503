// Package events publishes domain events after state changes have been
// committed. Delivery is best effort: callers log failures and carry on.
package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Event is one committed change. Type doubles as the AMQP routing key,
// e.g. "appointment.booked".
type Event struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	Actor      string      `json:"actor,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NopPublisher discards every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

// LogPublisher writes events to the request logger instead of a broker. It is
// the fallback when no AMQP_URL is configured.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, ev Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event", ev.Type).
		Str("event_id", ev.ID).
		Str("actor", ev.Actor).
		Msg("domain event")
	return nil
}
