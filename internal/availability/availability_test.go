package availability

import (
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meeting-scheduler/internal/model"
)

func TestGenerateSlots(t *testing.T) {
	tests := []struct {
		name     string
		start    string
		end      string
		duration int
		want     []string
	}{
		{"full range", "09:00", "11:00", 30, []string{"09:00", "09:30", "10:00", "10:30"}},
		{"nothing fits", "09:00", "09:20", 30, nil},
		{"offset start", "09:30", "11:00", 30, []string{"09:30", "10:00", "10:30"}},
		{"last slot overruns", "09:00", "10:45", 30, []string{"09:00", "09:30", "10:00"}},
		{"inverted range", "11:00", "09:00", 30, nil},
		{"empty range", "09:00", "09:00", 15, nil},
		{"malformed", "9am", "11:00", 30, nil},
		{"zero duration", "09:00", "11:00", 0, nil},
		{"trailing seconds", "09:00:00", "10:00:00", 60, nil},
		{"trailing suffix", "09:00pm", "11:00", 30, nil},
		{"unpadded hour", "9:00", "11:00", 30, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, GenerateSlots(tc.start, tc.end, tc.duration))
		})
	}
}

func TestParseClock(t *testing.T) {
	m, err := ParseClock("23:59")
	require.NoError(t, err)
	assert.Equal(t, 23*60+59, m)
	assert.Equal(t, "07:05", FormatClock(7*60+5))

	_, err = ParseClock("24:00")
	assert.Error(t, err)
	_, err = ParseClock("ab:cd")
	assert.Error(t, err)
	_, err = ParseClock("09:00pm")
	assert.Error(t, err)
	_, err = ParseClock("9:00")
	assert.Error(t, err)
}

func TestExists(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)

	gap := time.Date(2026, 3, 29, 0, 0, 0, 0, warsaw)
	assert.True(t, Exists(gap, 1*60+59, warsaw))
	assert.False(t, Exists(gap, 2*60, warsaw))
	assert.False(t, Exists(gap, 2*60+45, warsaw))
	assert.True(t, Exists(gap, 3*60, warsaw))

	// The repeated hour in October exists, once or twice.
	assert.True(t, Exists(time.Date(2026, 10, 25, 0, 0, 0, 0, warsaw), 2*60+30, warsaw))
	assert.True(t, Exists(gap, 2*60, time.UTC))
}

func TestBooked(t *testing.T) {
	warsaw, err := time.LoadLocation("Europe/Warsaw")
	require.NoError(t, err)
	date := time.Date(2026, 3, 29, 0, 0, 0, 0, warsaw)

	got := Booked(date, []model.Booking{
		{Time: "01:30", DurationMinutes: 60},
		{Time: "bad", DurationMinutes: 30},
		{Time: "03:00", DurationMinutes: 30},
	}, warsaw)
	require.Len(t, got, 2)
	assert.Equal(t, time.Date(2026, 3, 29, 0, 30, 0, 0, time.UTC), got[0].Start.UTC())
	assert.Equal(t, time.Date(2026, 3, 29, 1, 30, 0, 0, time.UTC), got[0].End.UTC())
	assert.Equal(t, time.Date(2026, 3, 29, 1, 0, 0, 0, time.UTC), got[1].Start.UTC())

	// Free by the wall clock, yet the same hour in absolute time.
	assert.True(t, IsFree([]model.Booking{{Time: "03:00", DurationMinutes: 30}}, "01:30", 60))
	assert.True(t, OverlapsBusy(got[0].Start, got[0].End, got[1:]))
}

func TestValidateRule(t *testing.T) {
	tests := []struct {
		name string
		rule model.AvailabilityRule
		want map[string]string
	}{
		{"weekday", model.WeekdayRule(time.Monday, "09:00", "17:00"), map[string]string{}},
		{"date range", model.DateRangeRule("2026-02-01", "2026-02-10", "09:00", "10:00"), map[string]string{}},
		{"single day range", model.DateRangeRule("2026-02-01", "2026-02-01", "09:00", "10:00"), map[string]string{}},
		{"weekday out of range", model.WeekdayRule(time.Weekday(7), "09:00", "17:00"),
			map[string]string{"day_of_week": "must be between 0 and 6"}},
		{"end before start", model.WeekdayRule(time.Monday, "12:00", "11:00"),
			map[string]string{"end_time": "must be after start_time"}},
		{"empty window", model.WeekdayRule(time.Monday, "12:00", "12:00"),
			map[string]string{"end_time": "must be after start_time"}},
		{"seconds", model.WeekdayRule(time.Monday, "09:00:00", "17:00"),
			map[string]string{"start_time": "must be a time in HH:MM format"}},
		{"suffix", model.WeekdayRule(time.Monday, "09:00", "05:00pm"),
			map[string]string{"end_time": "must be a time in HH:MM format"}},
		{"reversed range", model.DateRangeRule("2026-02-10", "2026-02-01", "09:00", "10:00"),
			map[string]string{"end_date": "must not be before start_date"}},
		{"bad dates", model.DateRangeRule("2026-2-1", "tomorrow", "09:00", "10:00"),
			map[string]string{"start_date": "must be a date in YYYY-MM-DD format", "end_date": "must be a date in YYYY-MM-DD format"}},
		{"inert", model.AvailabilityRule{StartTime: "09:00", EndTime: "10:00"},
			map[string]string{"day_of_week": "either day_of_week or start_date and end_date is required"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateRule(tc.rule))
		})
	}
}

func TestResolveWindows(t *testing.T) {
	rules := []model.AvailabilityRule{
		model.WeekdayRule(time.Monday, "09:00", "11:00"),
		model.WeekdayRule(time.Monday, "17:00", "19:00"),
		model.WeekdayRule(time.Tuesday, "08:00", "12:00"),
		model.DateRangeRule("2026-01-20", "2026-01-26", "13:00", "14:00"),
		{Kind: model.RuleDateRange, StartDate: "2026-01-01", StartTime: "06:00", EndTime: "07:00"},
		{StartTime: "00:00", EndTime: "23:00"},
	}

	// 2026-01-26 is a Monday and the last day of the range.
	got, err := ResolveWindows(rules, "2026-01-26")
	require.NoError(t, err)
	assert.Equal(t, []Window{
		{Start: "09:00", End: "11:00"},
		{Start: "17:00", End: "19:00"},
		{Start: "13:00", End: "14:00"},
	}, got)

	got, err = ResolveWindows(rules, "2026-01-27")
	require.NoError(t, err)
	assert.Equal(t, []Window{{Start: "08:00", End: "12:00"}}, got)

	got, err = ResolveWindows(rules, "2026-01-25")
	require.NoError(t, err)
	assert.Equal(t, []Window{{Start: "13:00", End: "14:00"}}, got)

	_, err = ResolveWindows(rules, "26-01-2026")
	assert.Error(t, err)
}

func TestIsFree(t *testing.T) {
	existing := []model.Booking{{Time: "10:00", DurationMinutes: 30}}

	assert.True(t, IsFree(existing, "10:30", 30), "back-to-back after")
	assert.True(t, IsFree(existing, "09:30", 30), "back-to-back before")
	assert.False(t, IsFree(existing, "10:15", 30))
	assert.False(t, IsFree(existing, "09:45", 30))
	assert.False(t, IsFree(existing, "09:00", 120), "enclosing")
	assert.False(t, IsFree(existing, "10:00", 15), "enclosed")
	assert.True(t, IsFree(nil, "10:00", 30))
}

func TestOverlapsBusy(t *testing.T) {
	day := time.Date(2026, 1, 26, 0, 0, 0, 0, time.UTC)
	busy := []model.BusyInterval{{Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)}}

	assert.False(t, OverlapsBusy(day.Add(10*time.Hour+30*time.Minute), day.Add(11*time.Hour), busy))
	assert.True(t, OverlapsBusy(day.Add(10*time.Hour+15*time.Minute), day.Add(10*time.Hour+45*time.Minute), busy))
	assert.False(t, OverlapsBusy(day.Add(9*time.Hour), day.Add(10*time.Hour), busy))
}
