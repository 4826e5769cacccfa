// Package followup runs the side effects of a saved booking: the calendar
// event and the notifications. None of them can undo or fail the booking.
package followup

import (
	"context"
	"log/slog"
	"time"

	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/notify"
)

type EventCreator interface {
	IsConnected(ctx context.Context, organizerID int64) bool
	CreateEvent(ctx context.Context, organizerID int64, req calendar.EventRequest) (calendar.EventRef, error)
}

type EventRecorder interface {
	AttachExternalEvent(ctx context.Context, bookingID int64, eventID, link string) error
}

// CacheInvalidator drops cached busy time once an event was written.
type CacheInvalidator interface {
	Forget(ctx context.Context, organizerID int64)
}

type Options struct {
	// Events is nil when no calendar integration is configured.
	Events       EventCreator
	Recorder     EventRecorder
	Notifier     notify.Notifier
	Cache        CacheInvalidator
	EventTimeout time.Duration
	Logger       *slog.Logger
}

type Followup struct {
	events   EventCreator
	recorder EventRecorder
	notifier notify.Notifier
	cache    CacheInvalidator
	timeout  time.Duration
	logger   *slog.Logger
}

func New(opts Options) *Followup {
	f := &Followup{
		events:   opts.Events,
		recorder: opts.Recorder,
		notifier: opts.Notifier,
		cache:    opts.Cache,
		timeout:  opts.EventTimeout,
		logger:   opts.Logger,
	}
	if f.notifier == nil {
		f.notifier = notify.Nop{}
	}
	if f.timeout <= 0 {
		f.timeout = 10 * time.Second
	}
	if f.logger == nil {
		f.logger = slog.New(slog.DiscardHandler)
	}
	return f
}

// AfterBooking creates the calendar event when the organizer is connected
// and sends the notifications. The returned booking carries the event
// reference when one was created.
//
// Google invites the attendee itself, so the attendee email only goes out
// when no event exists. The organizer is always notified.
func (f *Followup) AfterBooking(ctx context.Context, organizer model.Organizer, b model.Booking) model.Booking {
	created := false
	if f.events != nil && f.events.IsConnected(ctx, organizer.ID) {
		ref, err := f.createEvent(ctx, organizer, b)
		if err != nil {
			f.logger.Warn("calendar event creation failed", "organizer_id", organizer.ID, "booking_id", b.ID, "err", err)
			_ = f.notifier.AlertOrganizerOfError(ctx, notify.Notice{Booking: b, Organizer: organizer}, err)
		} else {
			created = true
			b.ExternalEventID = ref.ID
			b.ExternalMeetingLink = ref.MeetingLink
			if err := f.recorder.AttachExternalEvent(ctx, b.ID, ref.ID, ref.MeetingLink); err != nil {
				f.logger.Error("recording calendar event failed", "booking_id", b.ID, "event_id", ref.ID, "err", err)
			}
			if f.cache != nil {
				f.cache.Forget(ctx, organizer.ID)
			}
		}
	}

	n := notify.Notice{Booking: b, Organizer: organizer}
	if !created {
		_ = f.notifier.NotifyAttendee(ctx, n)
	}
	_ = f.notifier.NotifyOrganizer(ctx, n)
	return b
}

func (f *Followup) createEvent(ctx context.Context, organizer model.Organizer, b model.Booking) (calendar.EventRef, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()
	return f.events.CreateEvent(ctx, organizer.ID, calendar.EventRequest{
		Attendee:        calendar.Attendee{Name: b.AttendeeName, Email: b.AttendeeEmail},
		Organizer:       calendar.Attendee{Name: organizer.Name, Email: organizer.Email},
		Date:            b.Date,
		Time:            b.Time,
		DurationMinutes: b.DurationMinutes,
	})
}
