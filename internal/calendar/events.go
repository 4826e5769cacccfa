package calendar

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/api/calendar/v3"
)

// UpcomingEvent is an entry of the organizer's primary calendar. Start and
// End hold an RFC 3339 date-time, or a plain date for all-day events.
type UpcomingEvent struct {
	ID          string   `json:"id"`
	Summary     string   `json:"summary"`
	Start       string   `json:"start"`
	End         string   `json:"end"`
	Attendees   []string `json:"attendees"`
	MeetingLink string   `json:"meet_link,omitempty"`
	HTMLLink    string   `json:"html_link,omitempty"`
}

const defaultUpcoming = 10

// UpcomingEvents lists at most limit events of the primary calendar that end
// after now, in start order with recurring events expanded.
func (g *Google) UpcomingEvents(ctx context.Context, organizerID int64, limit int) ([]UpcomingEvent, error) {
	if limit <= 0 || limit > 250 {
		limit = defaultUpcoming
	}
	srv, err := g.service(ctx, organizerID)
	if err != nil {
		return nil, err
	}

	events, err := srv.Events.List("primary").
		TimeMin(g.now().Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	out := make([]UpcomingEvent, 0, len(events.Items))
	for _, item := range events.Items {
		ev := UpcomingEvent{
			ID:          item.Id,
			Summary:     item.Summary,
			Start:       eventTime(item.Start),
			End:         eventTime(item.End),
			Attendees:   []string{},
			MeetingLink: meetingLink(item),
			HTMLLink:    item.HtmlLink,
		}
		if ev.Summary == "" {
			ev.Summary = "(no title)"
		}
		for _, a := range item.Attendees {
			ev.Attendees = append(ev.Attendees, a.Email)
		}
		out = append(out, ev)
	}
	return out, nil
}

func eventTime(t *calendar.EventDateTime) string {
	if t == nil {
		return ""
	}
	if t.DateTime != "" {
		return t.DateTime
	}
	return t.Date
}
