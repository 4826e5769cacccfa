package scheduling

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store/sqlite"
)

var warsaw = mustLoad("Europe/Warsaw")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

type fakeBusy struct {
	connected bool
	busy      []model.BusyInterval
	err       error
	block     bool
}

func (f *fakeBusy) IsConnected(context.Context, int64) bool { return f.connected }

func (f *fakeBusy) FetchBusy(ctx context.Context, _ int64, _, _ string) ([]model.BusyInterval, error) {
	if f.block {
		<-make(chan struct{})
	}
	return f.busy, f.err
}

type fixture struct {
	engine    *Engine
	store     *sqlite.Store
	organizer model.Organizer
}

// newFixture creates an organizer with the given weekly rules and a
// 30 minute default duration.
func newFixture(t *testing.T, now time.Time, busy BusySource, notice int, rules ...model.AvailabilityRule) fixture {
	t.Helper()
	ctx := context.Background()
	s := sqlite.OpenTest(t)
	e := New(s, Options{
		Busy:        busy,
		Location:    warsaw,
		BusyTimeout: 50 * time.Millisecond,
		Now:         func() time.Time { return now },
	})

	o, err := e.CreateOrganizer(ctx, model.Organizer{Username: "anna", Email: "anna@example.com", Name: "Anna"})
	require.NoError(t, err)
	require.NoError(t, e.ReplaceAvailability(ctx, o.ID, rules))
	require.NoError(t, e.SaveSettings(ctx, model.MeetingSettings{OrganizerID: o.ID, DurationMinutes: 30, MinimumNoticeHours: notice}))
	return fixture{engine: e, store: s, organizer: o}
}

func times(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func availableAt(t *testing.T, slots []model.Slot, at string) bool {
	t.Helper()
	for _, s := range slots {
		if s.Time == at {
			return s.Available
		}
	}
	t.Fatalf("slot %s not listed", at)
	return false
}

// 2026-01-26 is a Monday.
const monday = "2026-01-26"

var longAgo = time.Date(2026, 1, 1, 8, 0, 0, 0, warsaw)

func TestBookingScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0, model.WeekdayRule(time.Monday, "09:00", "11:00"))

	slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, times(slots))
	for _, s := range slots {
		assert.True(t, s.Available, s.Time)
	}

	b, err := f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID:   f.organizer.ID,
		AttendeeName:  "Jan Kowalski",
		AttendeeEmail: "jan@example.com",
		Date:          monday,
		Time:          "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 30, b.DurationMinutes)
	assert.NotZero(t, b.ID)

	slots, err = f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
	require.NoError(t, err)
	assert.True(t, availableAt(t, slots, "09:00"))
	assert.True(t, availableAt(t, slots, "09:30"))
	assert.False(t, availableAt(t, slots, "10:00"))
	assert.True(t, availableAt(t, slots, "10:30"))

	_, err = f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID:   f.organizer.ID,
		AttendeeName:  "Ola Nowak",
		AttendeeEmail: "ola@example.com",
		Date:          monday,
		Time:          "10:00",
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
}

func TestMinimumNoticeBoundary(t *testing.T) {
	ctx := context.Background()
	rule := model.WeekdayRule(time.Monday, "09:00", "12:00")

	t.Run("slot three hours fifty nine minutes ahead is omitted", func(t *testing.T) {
		now := time.Date(2026, 1, 26, 7, 1, 0, 0, warsaw)
		f := newFixture(t, now, nil, 4, rule)
		slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday, Duration: 15})
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		assert.Equal(t, "11:15", slots[0].Time)
	})

	t.Run("slot four hours one minute ahead is kept", func(t *testing.T) {
		now := time.Date(2026, 1, 26, 6, 59, 0, 0, warsaw)
		f := newFixture(t, now, nil, 4, rule)
		slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday, Duration: 15})
		require.NoError(t, err)
		require.NotEmpty(t, slots)
		assert.Equal(t, "11:00", slots[0].Time)
	})

	t.Run("reserving inside the notice window fails", func(t *testing.T) {
		now := time.Date(2026, 1, 26, 7, 1, 0, 0, warsaw)
		f := newFixture(t, now, nil, 4, rule)
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
			Date: monday, Time: "11:00", Duration: 15,
		})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})
}

func TestExternalBusyTime(t *testing.T) {
	ctx := context.Background()
	rule := model.WeekdayRule(time.Monday, "09:00", "11:00")

	t.Run("busy interval marks overlapping slots", func(t *testing.T) {
		busy := &fakeBusy{connected: true, busy: []model.BusyInterval{{
			Start: time.Date(2026, 1, 26, 9, 45, 0, 0, warsaw),
			End:   time.Date(2026, 1, 26, 10, 0, 0, 0, warsaw),
		}}}
		f := newFixture(t, longAgo, busy, 0, rule)
		slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
		require.NoError(t, err)
		assert.True(t, availableAt(t, slots, "09:00"))
		assert.False(t, availableAt(t, slots, "09:30"))
		assert.True(t, availableAt(t, slots, "10:00"))

		_, err = f.engine.Reserve(ctx, ReserveRequest{
			OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
			Date: monday, Time: "09:30",
		})
		assert.ErrorIs(t, err, ErrSlotTaken)
	})

	t.Run("disconnected calendar is ignored", func(t *testing.T) {
		busy := &fakeBusy{busy: []model.BusyInterval{{
			Start: time.Date(2026, 1, 26, 9, 0, 0, 0, warsaw),
			End:   time.Date(2026, 1, 26, 11, 0, 0, 0, warsaw),
		}}}
		f := newFixture(t, longAgo, busy, 0, rule)
		slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
		require.NoError(t, err)
		for _, s := range slots {
			assert.True(t, s.Available, s.Time)
		}
	})

	for name, busy := range map[string]*fakeBusy{
		"fetch error": {connected: true, err: errors.New("token expired")},
		"fetch hangs": {connected: true, block: true},
	} {
		t.Run(name+" degrades to bookings only", func(t *testing.T) {
			f := newFixture(t, longAgo, busy, 0, rule)
			_, err := f.engine.Reserve(ctx, ReserveRequest{
				OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
				Date: monday, Time: "09:00",
			})
			require.NoError(t, err)

			slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
			require.NoError(t, err)
			assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30"}, times(slots))
			assert.False(t, availableAt(t, slots, "09:00"))
			assert.True(t, availableAt(t, slots, "09:30"))
		})
	}
}

func TestOverlappingWindowsReportSlotOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0,
		model.WeekdayRule(time.Monday, "10:00", "11:00"),
		model.WeekdayRule(time.Monday, "09:00", "10:30"),
		model.DateRangeRule("2026-01-20", "2026-01-31", "16:00", "17:00"),
	)
	slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: monday})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:30", "10:00", "10:30", "16:00", "16:30"}, times(slots))
}

func TestMonthAgreesWithDays(t *testing.T) {
	ctx := context.Background()
	busy := &fakeBusy{connected: true, busy: []model.BusyInterval{{
		// Covers the whole Friday window on 2026-02-13.
		Start: time.Date(2026, 2, 13, 8, 0, 0, 0, warsaw),
		End:   time.Date(2026, 2, 13, 12, 0, 0, 0, warsaw),
	}}}
	now := time.Date(2026, 2, 4, 9, 0, 0, 0, warsaw)
	f := newFixture(t, now, busy, 2,
		model.WeekdayRule(time.Monday, "09:00", "10:00"),
		model.WeekdayRule(time.Friday, "09:00", "11:00"),
		model.DateRangeRule("2026-02-20", "2026-02-22", "14:00", "15:00"),
	)

	// Fill Monday 2026-02-09 completely.
	for _, at := range []string{"09:00", "09:30"} {
		_, err := f.engine.Reserve(ctx, ReserveRequest{
			OrganizerID: f.organizer.ID, AttendeeName: "Guest", AttendeeEmail: "guest@example.com",
			Date: "2026-02-09", Time: at,
		})
		require.NoError(t, err)
	}

	month, err := f.engine.SlotsForMonth(ctx, MonthQuery{OrganizerID: f.organizer.ID, Year: 2026, Month: 2})
	require.NoError(t, err)
	require.Len(t, month, 28)

	for date, free := range month {
		slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: date})
		require.NoError(t, err)
		anyFree := false
		for _, s := range slots {
			anyFree = anyFree || s.Available
		}
		assert.Equal(t, anyFree, free, date)
	}

	assert.False(t, month["2026-02-02"], "before now")
	assert.False(t, month["2026-02-09"], "fully booked")
	assert.False(t, month["2026-02-13"], "externally busy")
	assert.True(t, month["2026-02-16"])
	assert.True(t, month["2026-02-20"])
	assert.True(t, month["2026-02-22"])
	assert.False(t, month["2026-02-24"])
}

func TestConcurrentReservationsNeverOverlap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0, model.WeekdayRule(time.Monday, "09:00", "12:00"))

	starts := []string{"10:00", "10:15", "10:20", "10:05"}
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		won   int
		taken int
	)
	for i := 0; i < 5; i++ {
		for _, at := range starts {
			wg.Add(1)
			go func(at string) {
				defer wg.Done()
				_, err := f.engine.Reserve(ctx, ReserveRequest{
					OrganizerID: f.organizer.ID, AttendeeName: "Guest", AttendeeEmail: "guest@example.com",
					Date: monday, Time: at,
				})
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					won++
				case errors.Is(err, ErrSlotTaken):
					taken++
				default:
					t.Errorf("reserve %s: %v", at, err)
				}
			}(at)
		}
	}
	wg.Wait()

	assert.Equal(t, 1, won)
	assert.Equal(t, len(starts)*5-1, taken)

	bookings, err := f.engine.Bookings(ctx, f.organizer.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 1)
}

func TestDurationResolution(t *testing.T) {
	ctx := context.Background()
	s := sqlite.OpenTest(t)
	e := New(s, Options{Location: warsaw, Now: func() time.Time { return longAgo }})

	o, err := e.CreateOrganizer(ctx, model.Organizer{Username: "piotr", Email: "piotr@example.com", Name: "Piotr"})
	require.NoError(t, err)
	require.NoError(t, e.ReplaceAvailability(ctx, o.ID, []model.AvailabilityRule{model.WeekdayRule(time.Monday, "09:00", "11:00")}))

	_, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday})
	assert.ErrorIs(t, err, ErrConfigurationMissing)

	slots, err := e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday, Duration: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "10:00"}, times(slots))

	_, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday, Duration: 20})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.SlotsForMonth(ctx, MonthQuery{OrganizerID: o.ID, Year: 2026, Month: 1, Duration: 50})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.SaveMeetingType(ctx, model.MeetingType{OrganizerID: o.ID, Name: "Deep dive", Slug: "deep-dive", DurationMinutes: 120})
	require.NoError(t, err)
	_, err = e.SaveMeetingType(ctx, model.MeetingType{OrganizerID: o.ID, Name: "Chat", Slug: "chat", DurationMinutes: 45, IsDefault: true})
	require.NoError(t, err)

	slots, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00", "09:45"}, times(slots))

	slots, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday, MeetingSlug: "deep-dive"})
	require.NoError(t, err)
	assert.Equal(t, []string{"09:00"}, times(slots))

	_, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID, Date: monday, MeetingSlug: "missing"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = e.SlotsForDate(ctx, Query{OrganizerID: o.ID + 1, Date: monday, Duration: 30})
	assert.ErrorIs(t, err, ErrNotFound)

	b, err := e.Reserve(ctx, ReserveRequest{
		OrganizerID: o.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
		Date: monday, Time: "09:00", MeetingSlug: "deep-dive",
	})
	require.NoError(t, err)
	assert.Equal(t, 120, b.DurationMinutes)
}

func TestReserveValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0, model.WeekdayRule(time.Monday, "09:00", "11:00"))

	_, err := f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID:   f.organizer.ID,
		AttendeeName:  " J ",
		AttendeeEmail: "not-an-email",
		Date:          "26-01-2026",
		Time:          "9:00",
		Duration:      500,
	})
	require.ErrorIs(t, err, ErrValidation)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "attendee_name")
	assert.Contains(t, verr.Fields, "attendee_email")
	assert.Contains(t, verr.Fields, "booking_date")
	assert.Equal(t, "must be a time in HH:MM format", verr.Fields["booking_time"])
	assert.Contains(t, verr.Fields, "duration")

	for _, bad := range []string{"9:00", "09:00pm", "24:00", "09:60", "09:00:00"} {
		_, err = f.engine.Reserve(ctx, ReserveRequest{
			OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
			Date: monday, Time: bad,
		})
		require.ErrorAs(t, err, &verr, bad)
		assert.Contains(t, verr.Fields, "booking_time", bad)
	}

	_, err = f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
		Date: monday, Time: "09:00", Duration: 20,
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{"duration": "must be a multiple of 15"}, verr.Fields)

	bookings, err := f.engine.Bookings(ctx, f.organizer.ID)
	require.NoError(t, err)
	assert.Empty(t, bookings)

	_, err = f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
		Date: monday, Time: "10:45",
	})
	assert.ErrorIs(t, err, ErrSlotTaken, "runs past the window end")

	_, err = f.engine.Reserve(ctx, ReserveRequest{
		OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
		Date: "2026-01-27", Time: "09:00",
	})
	assert.ErrorIs(t, err, ErrSlotTaken, "no window on Tuesday")
}

// 2026-03-29 is a Sunday; Warsaw clocks jump from 02:00 to 03:00.
const springForward = "2026-03-29"

func TestDaylightSavingGap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0, model.WeekdayRule(time.Sunday, "01:00", "04:00"))

	slots, err := f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: springForward, Duration: 60})
	require.NoError(t, err)
	assert.Equal(t, []string{"01:00", "03:00"}, times(slots), "02:00 does not exist")

	reserve := func(at string, duration int) (model.Booking, error) {
		return f.engine.Reserve(ctx, ReserveRequest{
			OrganizerID: f.organizer.ID, AttendeeName: "Jan", AttendeeEmail: "jan@example.com",
			Date: springForward, Time: at, Duration: duration,
		})
	}

	_, err = reserve("02:00", 60)
	assert.ErrorIs(t, err, ErrSlotTaken)
	_, err = reserve("02:30", 30)
	assert.ErrorIs(t, err, ErrSlotTaken)

	_, err = reserve("03:00", 60)
	require.NoError(t, err)

	// 01:30 CET plus an hour ends at 03:30 CEST, inside the 03:00 booking.
	_, err = reserve("01:30", 60)
	assert.ErrorIs(t, err, ErrSlotTaken)

	slots, err = f.engine.SlotsForDate(ctx, Query{OrganizerID: f.organizer.ID, Date: springForward, Duration: 45})
	require.NoError(t, err)
	assert.Equal(t, []string{"01:00", "01:45", "03:15"}, times(slots))
	assert.True(t, availableAt(t, slots, "01:00"))
	assert.False(t, availableAt(t, slots, "01:45"), "runs into the 03:00 booking across the gap")
	assert.False(t, availableAt(t, slots, "03:15"))

	_, err = reserve("01:00", 60)
	require.NoError(t, err, "ends exactly when the 03:00 booking starts")

	bookings, err := f.engine.Bookings(ctx, f.organizer.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)
}

func TestReplaceAvailabilityValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0, model.WeekdayRule(time.Monday, "09:00", "11:00"))

	err := f.engine.ReplaceAvailability(ctx, f.organizer.ID, []model.AvailabilityRule{
		model.WeekdayRule(time.Tuesday, "09:00", "11:00"),
		model.WeekdayRule(time.Wednesday, "12:00", "11:00"),
		model.DateRangeRule("2026-02-10", "2026-02-01", "09:00", "10:00"),
		{StartTime: "09:00", EndTime: "10:00"},
	})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, map[string]string{
		"rules[1].end_time":    "must be after start_time",
		"rules[2].end_date":    "must not be before start_date",
		"rules[3].day_of_week": "either day_of_week or start_date and end_date is required",
	}, verr.Fields)

	rules, err := f.engine.Availability(ctx, f.organizer.ID)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, time.Monday, rules[0].Weekday)
}

func TestSaveSettingsValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, longAgo, nil, 0)

	err := f.engine.SaveSettings(ctx, model.MeetingSettings{OrganizerID: f.organizer.ID, DurationMinutes: 20, MinimumNoticeHours: -1})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "must be a multiple of 15", verr.Fields["duration"])
	assert.Equal(t, "must be at least 0", verr.Fields["minimum_notice"])

	err = f.engine.SaveSettings(ctx, model.MeetingSettings{OrganizerID: f.organizer.ID + 9, DurationMinutes: 45})
	assert.ErrorIs(t, err, ErrNotFound)
}
