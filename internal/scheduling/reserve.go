package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

// ReserveRequest is a guest's booking attempt. Duration and MeetingSlug are
// optional and resolve like they do for slot queries.
type ReserveRequest struct {
	OrganizerID   int64  `json:"user_id" validate:"required"`
	AttendeeName  string `json:"attendee_name" validate:"min=2,max=100"`
	AttendeeEmail string `json:"attendee_email" validate:"required,email"`
	AttendeePhone string `json:"attendee_phone" validate:"omitempty,max=32"`
	Date          string `json:"booking_date" validate:"required,datetime=2006-01-02"`
	Time          string `json:"booking_time" validate:"required,hhmm"`
	Duration      int    `json:"duration" validate:"omitempty,min=15,max=480,quarter_hour"`
	MeetingSlug   string `json:"meeting_slug"`
}

// Reserve books the requested slot. The overlap check against the current
// bookings runs inside the store together with the insert; a lost race and a
// slot that was never offered both fail with ErrSlotTaken.
func (e *Engine) Reserve(ctx context.Context, req ReserveRequest) (model.Booking, error) {
	ctx, span := e.tracer.Start(ctx, "scheduling.reserve", trace.WithAttributes(
		attribute.Int64("organizer.id", req.OrganizerID),
		attribute.String("date", req.Date),
		attribute.String("time", req.Time),
	))
	defer span.End()

	req.AttendeeName = strings.TrimSpace(req.AttendeeName)
	req.AttendeeEmail = strings.TrimSpace(req.AttendeeEmail)
	req.AttendeePhone = strings.TrimSpace(req.AttendeePhone)
	if err := check(req); err != nil {
		return model.Booking{}, err
	}

	p, err := e.resolve(ctx, req.OrganizerID, req.Duration, req.MeetingSlug)
	if err != nil {
		span.RecordError(err)
		return model.Booking{}, err
	}

	start, err := e.offerable(ctx, req, p)
	if err != nil {
		span.RecordError(err)
		return model.Booking{}, err
	}
	end := start.Add(time.Duration(p.duration) * time.Minute)
	midnight := availability.At(start, 0, e.loc)

	b := model.Booking{
		OrganizerID:     req.OrganizerID,
		AttendeeName:    req.AttendeeName,
		AttendeeEmail:   req.AttendeeEmail,
		AttendeePhone:   req.AttendeePhone,
		Date:            req.Date,
		Time:            req.Time,
		DurationMinutes: p.duration,
	}
	err = e.store.InsertBooking(ctx, &b, func(existing []model.Booking) bool {
		return availability.IsFree(existing, b.Time, b.DurationMinutes) &&
			!availability.OverlapsBusy(start, end, availability.Booked(midnight, existing, e.loc))
	})
	switch {
	case errors.Is(err, store.ErrRejected):
		span.RecordError(ErrSlotTaken)
		return model.Booking{}, ErrSlotTaken
	case err != nil:
		span.RecordError(err)
		return model.Booking{}, storeErr("booking", err)
	}

	span.SetAttributes(attribute.Int64("booking.id", b.ID))
	e.logger.Info("booking reserved", "organizer_id", b.OrganizerID, "booking_id", b.ID,
		"date", b.Date, "time", b.Time, "duration", b.DurationMinutes)
	return b, nil
}

// offerable checks what the slot listing would have checked: the slot lies
// inside an availability window, exists on the local clock, respects the
// minimum notice and does not collide with known external busy time. It
// returns the slot's start instant.
func (e *Engine) offerable(ctx context.Context, req ReserveRequest, p params) (time.Time, error) {
	midnight, err := availability.ParseDate(req.Date, e.loc)
	if err != nil {
		return time.Time{}, invalid("booking_date", err.Error())
	}
	startMin, err := availability.ParseClock(req.Time)
	if err != nil {
		return time.Time{}, invalid("booking_time", err.Error())
	}
	endMin := startMin + p.duration

	rules, err := e.store.ListRules(ctx, req.OrganizerID)
	if err != nil {
		return time.Time{}, storeErr("availability", err)
	}
	windows, err := availability.ResolveWindows(rules, req.Date)
	if err != nil {
		return time.Time{}, invalid("booking_date", err.Error())
	}
	if !withinWindow(windows, startMin, endMin) || !availability.Exists(midnight, startMin, e.loc) {
		return time.Time{}, ErrSlotTaken
	}

	start := availability.At(midnight, startMin, e.loc)
	if start.Before(e.now().Add(time.Duration(p.noticeHours) * time.Hour)) {
		return time.Time{}, ErrSlotTaken
	}

	busy := e.fetchBusy(ctx, req.OrganizerID, req.Date, req.Date)
	if availability.OverlapsBusy(start, start.Add(time.Duration(p.duration)*time.Minute), busy) {
		return time.Time{}, ErrSlotTaken
	}
	return start, nil
}

func withinWindow(windows []availability.Window, start, end int) bool {
	for _, w := range windows {
		ws, err := availability.ParseClock(w.Start)
		if err != nil {
			continue
		}
		we, err := availability.ParseClock(w.End)
		if err != nil {
			continue
		}
		if start >= ws && end <= we {
			return true
		}
	}
	return false
}
