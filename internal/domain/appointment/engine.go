// Package appointment implements the clinic's booking workflow: availability,
// conflict-free booking, the status state machine and per-operation access
// checks. Persistence is delegated to a Store.
package appointment

import (
	"errors"
	"time"
)

// DefaultTemplate is the clinic-wide half-hour grid used for doctors without
// their own AvailableTimes.
var DefaultTemplate = []string{
	"09:00", "09:30", "10:00", "10:30", "11:00", "11:30", "12:00", "12:30", "13:00",
	"13:30", "14:00", "14:30", "15:00", "15:30", "16:00", "16:30", "17:00", "17:30",
}

const DefaultCancellationReason = "No reason provided"

// Policy holds the booking rules. NewEngine copies it, so later changes by
// the caller have no effect.
type Policy struct {
	LeadTime time.Duration  // minimum gap between now and a start
	Buffer   time.Duration  // required gap between two appointments of a doctor
	Template []string       // "HH:MM" labels in display order
	Location *time.Location // clinic time zone for days and labels
}

func DefaultPolicy() Policy {
	return Policy{
		LeadTime: 2 * time.Hour,
		Buffer:   30 * time.Minute,
		Template: DefaultTemplate,
		Location: time.UTC,
	}
}

type Engine struct {
	store  Store
	policy Policy
	now    func() time.Time
}

type Option func(*Engine)

// WithClock overrides the engine's notion of "now".
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func NewEngine(store Store, policy Policy, opts ...Option) *Engine {
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	if len(policy.Template) == 0 {
		policy.Template = DefaultTemplate
	}
	policy.Template = append([]string(nil), policy.Template...)
	e := &Engine{store: store, policy: policy, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Policy() Policy {
	p := e.policy
	p.Template = append([]string(nil), p.Template...)
	return p
}

// dayBounds returns [00:00, next 00:00) of t's calendar day in clinic time.
func (e *Engine) dayBounds(t time.Time) (time.Time, time.Time) {
	y, m, d := t.In(e.policy.Location).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, e.policy.Location)
	return start, start.AddDate(0, 0, 1)
}

func (e *Engine) tooSoon(start time.Time) bool {
	return start.Before(e.now().Add(e.policy.LeadTime))
}

// mapSaveErr turns Store.Save failures into engine errors. A stale version
// becomes the operation's own rejection.
func mapSaveErr(err, stale error) error {
	switch {
	case errors.Is(err, ErrStaleVersion):
		return stale
	case errors.Is(err, ErrNotFound):
		return ErrAppointmentNotFound
	}
	return storeErr(err)
}
