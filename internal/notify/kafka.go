package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"meeting-scheduler/internal/model"
)

const (
	TopicBookingCreated       = "booking.created.v1"
	TopicAttendeeConfirmation = "booking.attendee_confirmation.v1"
	TopicCalendarSyncFailed   = "booking.calendar_failed.v1"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher emits booking notifications as Kafka events keyed by organizer,
// for a downstream notification service to deliver.
type Publisher struct {
	w   messageWriter
	now func() time.Time
}

func NewPublisher(brokers []string) *Publisher {
	return &Publisher{
		w: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Balancer: &kafka.Hash{},
		}),
		now: time.Now,
	}
}

func (p *Publisher) Close() error { return p.w.Close() }

type organizerRef struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type bookingEvent struct {
	EventID    string        `json:"event_id"`
	EventType  string        `json:"event_type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Organizer  organizerRef  `json:"organizer"`
	Booking    model.Booking `json:"booking"`
	Error      string        `json:"error,omitempty"`
}

func (p *Publisher) publish(ctx context.Context, topic string, n Notice, cause error) error {
	ev := bookingEvent{
		EventID:    uuid.NewString(),
		EventType:  topic,
		OccurredAt: p.now().UTC(),
		Organizer:  organizerRef{ID: n.Organizer.ID, Name: n.Organizer.Name, Email: n.Organizer.Email},
		Booking:    n.Booking,
	}
	if cause != nil {
		ev.Error = cause.Error()
	}
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(strconv.FormatInt(n.Organizer.ID, 10)),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(ev.EventID)},
			{Key: "event_type", Value: []byte(topic)},
		},
	}
	carrier := &headerCarrier{headers: msg.Headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	msg.Headers = carrier.headers
	return p.w.WriteMessages(ctx, msg)
}

func (p *Publisher) NotifyOrganizer(ctx context.Context, n Notice) error {
	return p.publish(ctx, TopicBookingCreated, n, nil)
}

func (p *Publisher) NotifyAttendee(ctx context.Context, n Notice) error {
	return p.publish(ctx, TopicAttendeeConfirmation, n, nil)
}

func (p *Publisher) AlertOrganizerOfError(ctx context.Context, n Notice, cause error) error {
	return p.publish(ctx, TopicCalendarSyncFailed, n, cause)
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	for _, h := range c.headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ReadyCheck dials the first broker.
func ReadyCheck(brokers []string) func(context.Context) error {
	return func(ctx context.Context) error {
		if len(brokers) == 0 {
			return errors.New("kafka brokers not configured")
		}
		dialer := kafka.Dialer{Timeout: 2 * time.Second}
		conn, err := dialer.DialContext(ctx, "tcp", brokers[0])
		if err != nil {
			return err
		}
		return conn.Close()
	}
}
