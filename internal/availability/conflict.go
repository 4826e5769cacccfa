package availability

import (
	"time"

	"meeting-scheduler/internal/model"
)

// Overlaps reports whether the half-open ranges [s1,e1) and [s2,e2) intersect.
// Ranges that only touch do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return s1 < e2 && e1 > s2
}

// IsFree reports whether a meeting of duration minutes starting at start
// fits between bookings. The caller supplies the bookings of a single
// organizer and date.
func IsFree(bookings []model.Booking, start string, duration int) bool {
	s, err := ParseClock(start)
	if err != nil {
		return false
	}
	e := s + duration
	for _, b := range bookings {
		bs, err := ParseClock(b.Time)
		if err != nil {
			continue
		}
		if Overlaps(s, e, bs, bs+b.DurationMinutes) {
			return false
		}
	}
	return true
}

// OverlapsBusy reports whether [start,end) intersects any busy interval.
func OverlapsBusy(start, end time.Time, busy []model.BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}

// Booked places the bookings of date in loc as absolute intervals, so that
// overlaps across a daylight saving gap show up in OverlapsBusy.
func Booked(date time.Time, bookings []model.Booking, loc *time.Location) []model.BusyInterval {
	out := make([]model.BusyInterval, 0, len(bookings))
	for _, b := range bookings {
		m, err := ParseClock(b.Time)
		if err != nil {
			continue
		}
		start := At(date, m, loc)
		out = append(out, model.BusyInterval{Start: start, End: start.Add(time.Duration(b.DurationMinutes) * time.Minute)})
	}
	return out
}
