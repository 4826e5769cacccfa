package scheduling

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

// Query selects the slots of one organizer on one date. Duration, when
// positive, overrides every configured duration; MeetingSlug selects a
// meeting type.
type Query struct {
	OrganizerID int64
	Date        string
	Duration    int
	MeetingSlug string
}

// MonthQuery selects a calendar month; Month is 1..12.
type MonthQuery struct {
	OrganizerID int64
	Year        int
	Month       int
	Duration    int
	MeetingSlug string
}

// params are the resolved per-organizer inputs of slot computation.
type params struct {
	duration    int
	noticeHours int
}

// day is everything the per-slot predicate needs for one date.
type day struct {
	date     string
	midnight time.Time
	windows  []availability.Window
	bookings []model.Booking
	busy     []model.BusyInterval
}

// SlotsForDate lists the candidate slots of q.Date in time order. Slots that
// start before now plus the minimum notice are omitted.
func (e *Engine) SlotsForDate(ctx context.Context, q Query) ([]model.Slot, error) {
	ctx, span := e.tracer.Start(ctx, "scheduling.slots_for_date", trace.WithAttributes(
		attribute.Int64("organizer.id", q.OrganizerID),
		attribute.String("date", q.Date),
	))
	defer span.End()

	midnight, err := availability.ParseDate(q.Date, e.loc)
	if err != nil {
		return nil, invalid("date", "must be a date in YYYY-MM-DD format")
	}
	p, err := e.resolve(ctx, q.OrganizerID, q.Duration, q.MeetingSlug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	rules, err := e.store.ListRules(ctx, q.OrganizerID)
	if err != nil {
		return nil, storeErr("availability", err)
	}
	windows, err := availability.ResolveWindows(rules, q.Date)
	if err != nil {
		return nil, invalid("date", err.Error())
	}
	if len(windows) == 0 {
		return []model.Slot{}, nil
	}

	bookings, err := e.store.ListBookings(ctx, q.OrganizerID, q.Date, q.Date)
	if err != nil {
		return nil, storeErr("bookings", err)
	}
	d := day{
		date:     q.Date,
		midnight: midnight,
		windows:  windows,
		bookings: bookings,
		busy:     e.fetchBusy(ctx, q.OrganizerID, q.Date, q.Date),
	}
	slots := e.evaluate(d, p, false)
	span.SetAttributes(attribute.Int("slots", len(slots)))
	return slots, nil
}

// SlotsForMonth reports for every date of the month whether at least one
// slot is free. It agrees with SlotsForDate date by date.
func (e *Engine) SlotsForMonth(ctx context.Context, q MonthQuery) (map[string]bool, error) {
	ctx, span := e.tracer.Start(ctx, "scheduling.slots_for_month", trace.WithAttributes(
		attribute.Int64("organizer.id", q.OrganizerID),
		attribute.Int("year", q.Year),
		attribute.Int("month", q.Month),
	))
	defer span.End()

	if q.Month < 1 || q.Month > 12 {
		return nil, invalid("month", "must be between 1 and 12")
	}
	if q.Year < 1970 || q.Year > 9999 {
		return nil, invalid("year", "must be between 1970 and 9999")
	}
	p, err := e.resolve(ctx, q.OrganizerID, q.Duration, q.MeetingSlug)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	first := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, e.loc)
	days := first.AddDate(0, 1, -1).Day()
	from := first.Format(availability.DateLayout)
	to := time.Date(q.Year, time.Month(q.Month), days, 0, 0, 0, 0, e.loc).Format(availability.DateLayout)

	rules, err := e.store.ListRules(ctx, q.OrganizerID)
	if err != nil {
		return nil, storeErr("availability", err)
	}
	bookings, err := e.store.ListBookings(ctx, q.OrganizerID, from, to)
	if err != nil {
		return nil, storeErr("bookings", err)
	}
	byDate := make(map[string][]model.Booking)
	for _, b := range bookings {
		byDate[b.Date] = append(byDate[b.Date], b)
	}

	out := make(map[string]bool, days)
	var (
		busy        []model.BusyInterval
		busyFetched bool
	)
	for i := 0; i < days; i++ {
		midnight := time.Date(q.Year, time.Month(q.Month), i+1, 0, 0, 0, 0, e.loc)
		date := midnight.Format(availability.DateLayout)
		windows, err := availability.ResolveWindows(rules, date)
		if err != nil || len(windows) == 0 {
			out[date] = false
			continue
		}
		if !busyFetched {
			// One fetch covers the whole month, and only when some day can
			// actually offer slots.
			busy = e.fetchBusy(ctx, q.OrganizerID, from, to)
			busyFetched = true
		}
		d := day{date: date, midnight: midnight, windows: windows, bookings: byDate[date], busy: busy}
		out[date] = slices.ContainsFunc(e.evaluate(d, p, true), func(s model.Slot) bool { return s.Available })
	}
	return out, nil
}

// evaluate applies the per-slot predicate to every candidate of d. A slot
// reached through several windows is reported once, available if any window
// finds it free. With firstFree it stops at the first free slot.
func (e *Engine) evaluate(d day, p params, firstFree bool) []model.Slot {
	earliest := e.now().Add(time.Duration(p.noticeHours) * time.Hour)
	length := time.Duration(p.duration) * time.Minute
	booked := availability.Booked(d.midnight, d.bookings, e.loc)

	seen := make(map[string]int)
	out := []model.Slot{}
	for _, w := range d.windows {
		for _, t := range availability.GenerateSlots(w.Start, w.End, p.duration) {
			m, err := availability.ParseClock(t)
			if err != nil {
				continue
			}
			if !availability.Exists(d.midnight, m, e.loc) {
				continue
			}
			start := availability.At(d.midnight, m, e.loc)
			if start.Before(earliest) {
				continue
			}
			end := start.Add(length)
			free := availability.IsFree(d.bookings, t, p.duration) &&
				!availability.OverlapsBusy(start, end, booked) &&
				!availability.OverlapsBusy(start, end, d.busy)

			if i, ok := seen[t]; ok {
				out[i].Available = out[i].Available || free
			} else {
				seen[t] = len(out)
				out = append(out, model.Slot{Time: t, Available: free})
			}
			if free && firstFree {
				return out
			}
		}
	}
	slices.SortFunc(out, func(a, b model.Slot) int { return strings.Compare(a.Time, b.Time) })
	return out
}

// resolve picks the meeting duration, in order: explicit duration, the
// meeting type named by slug, the organizer's default meeting type, the
// organizer's settings. Minimum notice always comes from the settings.
func (e *Engine) resolve(ctx context.Context, organizerID int64, duration int, slug string) (params, error) {
	if duration != 0 {
		if duration < 15 || duration > 480 {
			return params{}, invalid("duration", "must be between 15 and 480")
		}
		if duration%15 != 0 {
			return params{}, invalid("duration", "must be a multiple of 15")
		}
	}
	if _, err := e.store.GetOrganizer(ctx, organizerID); err != nil {
		return params{}, storeErr("organizer", err)
	}

	var p params
	settings, err := e.store.GetSettings(ctx, organizerID)
	switch {
	case err == nil:
		p.noticeHours = settings.MinimumNoticeHours
	case errors.Is(err, store.ErrNotFound):
	default:
		return params{}, storeErr("meeting settings", err)
	}

	switch {
	case duration > 0:
		p.duration = duration
	case slug != "":
		mt, err := e.store.GetMeetingTypeBySlug(ctx, organizerID, slug)
		if err != nil {
			return params{}, storeErr("meeting type", err)
		}
		p.duration = mt.DurationMinutes
	default:
		mt, err := e.store.GetDefaultMeetingType(ctx, organizerID)
		switch {
		case err == nil:
			p.duration = mt.DurationMinutes
		case errors.Is(err, store.ErrNotFound):
			p.duration = settings.DurationMinutes
		default:
			return params{}, storeErr("meeting type", err)
		}
	}
	if p.duration <= 0 {
		return params{}, fmt.Errorf("organizer %d: %w", organizerID, ErrConfigurationMissing)
	}
	return p, nil
}
