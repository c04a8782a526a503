package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	exchanges []string
	err       error
	closed    bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchanges = append(f.exchanges, exchange)
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "clinic.events")
	fixed := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	err := p.Publish(context.Background(), Event{
		Type:    "appointment.booked",
		Actor:   "patient:7",
		Payload: map[string]int{"id": 156},
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(ch.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(ch.published))
	}
	if ch.exchanges[0] != "clinic.events" || ch.keys[0] != "appointment.booked" {
		t.Errorf("unexpected routing %s/%s", ch.exchanges[0], ch.keys[0])
	}
	msg := ch.published[0]
	if msg.DeliveryMode != amqp.Persistent {
		t.Error("expected persistent delivery")
	}
	if msg.MessageId == "" {
		t.Error("expected a message id")
	}
	if !msg.Timestamp.Equal(fixed) {
		t.Errorf("expected timestamp %v, got %v", fixed, msg.Timestamp)
	}

	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if ev.ID != msg.MessageId || ev.Actor != "patient:7" {
		t.Errorf("unexpected body %+v", ev)
	}
}

func TestAMQPPublisher_PublishError(t *testing.T) {
	ch := &fakeChannel{err: errors.New("channel closed")}
	p := newAMQPPublisher(ch, "x")
	err := p.Publish(context.Background(), Event{Type: "appointment.cancelled"})
	if err == nil || !strings.Contains(err.Error(), "appointment.cancelled") {
		t.Errorf("expected wrapped publish error, got %v", err)
	}
}

func TestAMQPPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p := newAMQPPublisher(ch, "x")
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if !ch.closed {
		t.Error("expected channel to be closed")
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	ctx := zerolog.New(&buf).WithContext(context.Background())
	if err := (LogPublisher{}).Publish(ctx, Event{ID: "e1", Type: "appointment.confirmed"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"event":"appointment.confirmed"`) {
		t.Errorf("expected event in log line, got %s", buf.String())
	}
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	if err := p.Publish(context.Background(), Event{Type: "x"}); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
