package availability

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const DateLayout = "2006-01-02"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)

// ParseClock converts a zero-padded wall-clock "HH:MM" into minutes since
// midnight. Anything else, including trailing seconds, is an error.
func ParseClock(s string) (int, error) {
	m := clockPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid time string: %q", s)
	}
	h, _ := strconv.Atoi(m[1])
	mm, _ := strconv.Atoi(m[2])
	return h*60 + mm, nil
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a zero-padded YYYY-MM-DD calendar date in loc.
func ParseDate(date string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, date, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date: %q", date)
	}
	return d, nil
}

// At returns the instant of the wall-clock minute on date in loc.
func At(date time.Time, minutes int, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc)
}

// Exists reports whether the wall-clock minute occurs on date in loc. Minutes
// skipped by a daylight saving transition do not.
func Exists(date time.Time, minutes int, loc *time.Location) bool {
	t := At(date, minutes, loc)
	y, m, d := date.Date()
	ty, tm, td := t.Date()
	return y == ty && m == tm && d == td && t.Hour()*60+t.Minute() == minutes
}
