package availability

import (
	"time"

	"meeting-scheduler/internal/model"
)

// Window is one bookable wall-clock range on a specific date.
type Window struct {
	Start string
	End   string
}

// ResolveWindows returns the windows contributed by rules on date, in rule
// order and unmerged. Weekday rules match on the date's weekday (0=Sunday),
// date-range rules when date lies within [StartDate, EndDate]. Inert or
// half-filled rules contribute nothing.
func ResolveWindows(rules []model.AvailabilityRule, date string) ([]Window, error) {
	d, err := ParseDate(date, time.UTC)
	if err != nil {
		return nil, err
	}
	wd := d.Weekday()

	var out []Window
	for _, r := range rules {
		if !Matches(r, date, wd) {
			continue
		}
		out = append(out, Window{Start: r.StartTime, End: r.EndTime})
	}
	return out, nil
}

// Matches reports whether r applies to date, whose weekday is wd.
func Matches(r model.AvailabilityRule, date string, wd time.Weekday) bool {
	switch r.Kind {
	case model.RuleWeekday:
		return r.Weekday == wd
	case model.RuleDateRange:
		// Zero-padded dates order lexicographically.
		if r.StartDate == "" || r.EndDate == "" {
			return false
		}
		return date >= r.StartDate && date <= r.EndDate
	default:
		return false
	}
}
