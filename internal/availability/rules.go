package availability

import (
	"time"

	"meeting-scheduler/internal/model"
)

// ValidateRule returns a message per malformed field of r, keyed by the
// field's JSON name. An empty map means the rule is usable.
func ValidateRule(r model.AvailabilityRule) map[string]string {
	out := map[string]string{}
	switch r.Kind {
	case model.RuleWeekday:
		if r.Weekday < 0 || r.Weekday > 6 {
			out["day_of_week"] = "must be between 0 and 6"
		}
	case model.RuleDateRange:
		if _, err := ParseDate(r.StartDate, time.UTC); err != nil {
			out["start_date"] = "must be a date in YYYY-MM-DD format"
		}
		if _, err := ParseDate(r.EndDate, time.UTC); err != nil {
			out["end_date"] = "must be a date in YYYY-MM-DD format"
		}
		if len(out) == 0 && r.EndDate < r.StartDate {
			out["end_date"] = "must not be before start_date"
		}
	default:
		out["day_of_week"] = "either day_of_week or start_date and end_date is required"
	}

	start, serr := ParseClock(r.StartTime)
	end, eerr := ParseClock(r.EndTime)
	if serr != nil {
		out["start_time"] = "must be a time in HH:MM format"
	}
	if eerr != nil {
		out["end_time"] = "must be a time in HH:MM format"
	}
	if serr == nil && eerr == nil && start >= end {
		out["end_time"] = "must be after start_time"
	}
	return out
}
