package model

import "time"

type Organizer struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// RuleKind discriminates the two availability rule variants. The zero value
// is inert: a rule of that kind never contributes a window.
type RuleKind int

const (
	RuleInert RuleKind = iota
	RuleWeekday
	RuleDateRange
)

func (k RuleKind) String() string {
	switch k {
	case RuleWeekday:
		return "weekday"
	case RuleDateRange:
		return "date_range"
	default:
		return "inert"
	}
}

// AvailabilityRule declares bookable wall-clock hours in the organizer
// timezone. Weekday is meaningful only for RuleWeekday, StartDate/EndDate
// only for RuleDateRange.
type AvailabilityRule struct {
	ID          int64
	OrganizerID int64
	Kind        RuleKind
	Weekday     time.Weekday
	StartDate   string
	EndDate     string
	StartTime   string
	EndTime     string
}

// WeekdayRule builds a rule recurring every week on wd.
func WeekdayRule(wd time.Weekday, start, end string) AvailabilityRule {
	return AvailabilityRule{Kind: RuleWeekday, Weekday: wd, StartTime: start, EndTime: end}
}

// DateRangeRule builds a rule covering every day in [from, to].
func DateRangeRule(from, to, start, end string) AvailabilityRule {
	return AvailabilityRule{Kind: RuleDateRange, StartDate: from, EndDate: to, StartTime: start, EndTime: end}
}

type MeetingSettings struct {
	OrganizerID        int64 `json:"user_id"`
	DurationMinutes    int   `json:"duration" validate:"min=15,max=480,quarter_hour"`
	MinimumNoticeHours int   `json:"minimum_notice" validate:"min=0,max=8760"`
}

type MeetingType struct {
	ID              int64  `json:"id"`
	OrganizerID     int64  `json:"user_id"`
	Name            string `json:"name" validate:"required,max=100"`
	Slug            string `json:"slug" validate:"required,max=64,slug"`
	DurationMinutes int    `json:"duration" validate:"min=15,max=480,quarter_hour"`
	IsDefault       bool   `json:"is_default"`
}

type Booking struct {
	ID                  int64     `json:"id"`
	OrganizerID         int64     `json:"user_id"`
	AttendeeName        string    `json:"attendee_name"`
	AttendeeEmail       string    `json:"attendee_email"`
	AttendeePhone       string    `json:"attendee_phone,omitempty"`
	Date                string    `json:"booking_date"`
	Time                string    `json:"booking_time"`
	DurationMinutes     int       `json:"duration"`
	ExternalEventID     string    `json:"google_calendar_event_id,omitempty"`
	ExternalMeetingLink string    `json:"google_meet_link,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
}

// BusyInterval is a half-open [Start, End) range reported by an external
// calendar. It is never persisted.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Slot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// CalendarToken is the stored OAuth credential for an organizer's external
// calendar.
type CalendarToken struct {
	OrganizerID  int64
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
}
