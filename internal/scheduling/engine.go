// Package scheduling computes bookable slots for organizers and reserves
// them without ever letting two bookings of one organizer overlap.
package scheduling

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

type OrganizerStore interface {
	CreateOrganizer(ctx context.Context, o *model.Organizer) error
	GetOrganizer(ctx context.Context, id int64) (model.Organizer, error)
	GetOrganizerByUsername(ctx context.Context, username string) (model.Organizer, error)
}

type RuleStore interface {
	ListRules(ctx context.Context, organizerID int64) ([]model.AvailabilityRule, error)
	ReplaceRules(ctx context.Context, organizerID int64, rules []model.AvailabilityRule) error
}

type SettingsStore interface {
	GetSettings(ctx context.Context, organizerID int64) (model.MeetingSettings, error)
	UpsertSettings(ctx context.Context, st model.MeetingSettings) error
}

type MeetingTypeStore interface {
	ListMeetingTypes(ctx context.Context, organizerID int64) ([]model.MeetingType, error)
	GetMeetingTypeBySlug(ctx context.Context, organizerID int64, slug string) (model.MeetingType, error)
	GetDefaultMeetingType(ctx context.Context, organizerID int64) (model.MeetingType, error)
	SaveMeetingType(ctx context.Context, mt *model.MeetingType) error
	DeleteMeetingType(ctx context.Context, organizerID, id int64) error
}

// BookingStore persists bookings. InsertBooking must run guard against the
// organizer's bookings of the same date and the insert as one unit with
// respect to other InsertBooking calls for that organizer and date.
type BookingStore interface {
	ListBookings(ctx context.Context, organizerID int64, from, to string) ([]model.Booking, error)
	ListOrganizerBookings(ctx context.Context, organizerID int64) ([]model.Booking, error)
	InsertBooking(ctx context.Context, b *model.Booking, guard store.Guard) error
	AttachExternalEvent(ctx context.Context, bookingID int64, eventID, link string) error
}

type Store interface {
	OrganizerStore
	RuleStore
	SettingsStore
	MeetingTypeStore
	BookingStore
}

// BusySource reports busy time from an organizer's external calendar.
// Dates are inclusive YYYY-MM-DD bounds.
type BusySource interface {
	IsConnected(ctx context.Context, organizerID int64) bool
	FetchBusy(ctx context.Context, organizerID int64, from, to string) ([]model.BusyInterval, error)
}

type Options struct {
	// Busy is optional; without it no external conflicts are considered.
	Busy        BusySource
	Location    *time.Location
	BusyTimeout time.Duration
	Now         func() time.Time
	Logger      *slog.Logger
}

type Engine struct {
	store       Store
	busy        BusySource
	loc         *time.Location
	busyTimeout time.Duration
	now         func() time.Time
	logger      *slog.Logger
	tracer      trace.Tracer
}

const defaultBusyTimeout = 5 * time.Second

func New(s Store, opts Options) *Engine {
	e := &Engine{
		store:       s,
		busy:        opts.Busy,
		loc:         opts.Location,
		busyTimeout: opts.BusyTimeout,
		now:         opts.Now,
		logger:      opts.Logger,
		tracer:      otel.Tracer("meeting-scheduler/scheduling"),
	}
	if e.loc == nil {
		e.loc = time.UTC
	}
	if e.busyTimeout <= 0 {
		e.busyTimeout = defaultBusyTimeout
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e
}

// Location is the fixed organizer timezone all wall-clock values refer to.
func (e *Engine) Location() *time.Location { return e.loc }

// fetchBusy asks the external calendar for busy intervals within [from, to].
// Failures, timeouts and a disconnected calendar all yield no intervals.
func (e *Engine) fetchBusy(ctx context.Context, organizerID int64, from, to string) []model.BusyInterval {
	if e.busy == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, e.busyTimeout)
	defer cancel()

	type result struct {
		busy []model.BusyInterval
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		if !e.busy.IsConnected(ctx, organizerID) {
			ch <- result{}
			return
		}
		busy, err := e.busy.FetchBusy(ctx, organizerID, from, to)
		ch <- result{busy: busy, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil {
			e.logger.Warn("external busy time unavailable", "organizer_id", organizerID, "from", from, "to", to, "err", r.err)
			return nil
		}
		return r.busy
	case <-ctx.Done():
		e.logger.Warn("external busy time timed out", "organizer_id", organizerID, "from", from, "to", to)
		return nil
	}
}
