// Package calendar connects organizers' Google calendars: busy time for slot
// computation and Meet events for new bookings.
package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

// ErrNotConnected means the organizer has no usable Google credential.
var ErrNotConnected = errors.New("google calendar not connected")

// refreshMargin is how long before expiry an access token is refreshed.
const refreshMargin = 5 * time.Minute

type TokenStore interface {
	GetCalendarToken(ctx context.Context, organizerID int64) (model.CalendarToken, error)
	PutCalendarToken(ctx context.Context, tok model.CalendarToken) error
	DeleteCalendarToken(ctx context.Context, organizerID int64) error
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	// StateSecret signs the OAuth state parameter.
	StateSecret []byte
	Location    *time.Location

	// Endpoint and HTTPClient redirect Google traffic, e.g. to a test server.
	Endpoint   oauth2.Endpoint
	APIBaseURL string
	HTTPClient *http.Client
}

type Attendee struct {
	Name  string
	Email string
}

type EventRequest struct {
	Attendee        Attendee
	Organizer       Attendee
	Date            string
	Time            string
	DurationMinutes int
}

type EventRef struct {
	ID          string
	MeetingLink string
}

type Google struct {
	oauth      *oauth2.Config
	tokens     TokenStore
	loc        *time.Location
	secret     []byte
	apiBaseURL string
	httpClient *http.Client
	now        func() time.Time
	logger     *slog.Logger
}

// NewGoogle returns nil when no OAuth client is configured.
func NewGoogle(cfg Config, tokens TokenStore, logger *slog.Logger) *Google {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		return nil
	}
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = google.Endpoint
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Google{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{calendar.CalendarScope, calendar.CalendarEventsScope},
			Endpoint:     endpoint,
		},
		tokens:     tokens,
		loc:        loc,
		secret:     cfg.StateSecret,
		apiBaseURL: cfg.APIBaseURL,
		httpClient: cfg.HTTPClient,
		now:        time.Now,
		logger:     logger,
	}
}

// IsConnected reports whether a credential is stored for the organizer.
func (g *Google) IsConnected(ctx context.Context, organizerID int64) bool {
	_, err := g.tokens.GetCalendarToken(ctx, organizerID)
	return err == nil
}

// Disconnect forgets the organizer's credential. Disconnecting twice is not
// an error.
func (g *Google) Disconnect(ctx context.Context, organizerID int64) error {
	return g.tokens.DeleteCalendarToken(ctx, organizerID)
}

func needsRefresh(expiry, now time.Time) bool {
	if expiry.IsZero() {
		return false
	}
	return !now.Before(expiry.Add(-refreshMargin))
}

func (g *Google) oauthContext(ctx context.Context) context.Context {
	if g.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
}

// token loads the organizer's credential, refreshing it first when it is
// about to expire. A failed refresh reads as ErrNotConnected.
func (g *Google) token(ctx context.Context, organizerID int64) (*oauth2.Token, error) {
	stored, err := g.tokens.GetCalendarToken(ctx, organizerID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, fmt.Errorf("loading calendar token: %w", err)
	}

	tok := &oauth2.Token{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		TokenType:    stored.TokenType,
		Expiry:       stored.Expiry,
	}
	if !needsRefresh(tok.Expiry, g.now()) {
		return tok, nil
	}

	fresh, err := g.oauth.TokenSource(g.oauthContext(ctx), &oauth2.Token{RefreshToken: stored.RefreshToken}).Token()
	if err != nil {
		g.logger.Warn("google token refresh failed", "organizer_id", organizerID, "err", err)
		return nil, ErrNotConnected
	}
	if fresh.RefreshToken == "" {
		fresh.RefreshToken = stored.RefreshToken
	}
	if err := g.tokens.PutCalendarToken(ctx, toModel(organizerID, fresh)); err != nil {
		g.logger.Warn("storing refreshed google token failed", "organizer_id", organizerID, "err", err)
	}
	return fresh, nil
}

func toModel(organizerID int64, t *oauth2.Token) model.CalendarToken {
	return model.CalendarToken{
		OrganizerID:  organizerID,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		TokenType:    t.TokenType,
		Expiry:       t.Expiry,
	}
}

func (g *Google) service(ctx context.Context, organizerID int64) (*calendar.Service, error) {
	tok, err := g.token(ctx, organizerID)
	if err != nil {
		return nil, err
	}
	client := oauth2.NewClient(g.oauthContext(ctx), oauth2.StaticTokenSource(tok))
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.apiBaseURL != "" {
		opts = append(opts, option.WithEndpoint(g.apiBaseURL))
	}
	return calendar.NewService(ctx, opts...)
}

// FetchBusy returns the busy intervals of all the organizer's calendars
// between from 00:00 and to 23:59:59 in the organizer timezone.
func (g *Google) FetchBusy(ctx context.Context, organizerID int64, from, to string) ([]model.BusyInterval, error) {
	start, err := availability.ParseDate(from, g.loc)
	if err != nil {
		return nil, err
	}
	end, err := availability.ParseDate(to, g.loc)
	if err != nil {
		return nil, err
	}
	end = end.AddDate(0, 0, 1).Add(-time.Second)

	srv, err := g.service(ctx, organizerID)
	if err != nil {
		return nil, err
	}

	var items []*calendar.FreeBusyRequestItem
	list, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing calendars: %w", err)
	}
	for _, c := range list.Items {
		items = append(items, &calendar.FreeBusyRequestItem{Id: c.Id})
	}
	if len(items) == 0 {
		items = []*calendar.FreeBusyRequestItem{{Id: "primary"}}
	}

	resp, err := srv.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin:  start.Format(time.RFC3339),
		TimeMax:  end.Format(time.RFC3339),
		TimeZone: g.loc.String(),
		Items:    items,
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("querying free/busy: %w", err)
	}

	var out []model.BusyInterval
	for id, c := range resp.Calendars {
		for _, e := range c.Errors {
			g.logger.Warn("free/busy calendar error", "organizer_id", organizerID, "calendar", id, "reason", e.Reason)
		}
		for _, p := range c.Busy {
			s, err1 := time.Parse(time.RFC3339, p.Start)
			e, err2 := time.Parse(time.RFC3339, p.End)
			if err1 != nil || err2 != nil {
				continue
			}
			out = append(out, model.BusyInterval{Start: s, End: e})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

// CreateEvent puts the booking into the organizer's primary calendar with a
// Google Meet conference and invites both parties.
func (g *Google) CreateEvent(ctx context.Context, organizerID int64, req EventRequest) (EventRef, error) {
	day, err := availability.ParseDate(req.Date, g.loc)
	if err != nil {
		return EventRef{}, err
	}
	m, err := availability.ParseClock(req.Time)
	if err != nil {
		return EventRef{}, err
	}
	start := availability.At(day, m, g.loc)
	end := start.Add(time.Duration(req.DurationMinutes) * time.Minute)

	srv, err := g.service(ctx, organizerID)
	if err != nil {
		return EventRef{}, err
	}

	const local = "2006-01-02T15:04:05"
	ev := &calendar.Event{
		Summary:     fmt.Sprintf("Meeting: %s & %s", req.Organizer.Name, req.Attendee.Name),
		Description: fmt.Sprintf("Booked by %s (%s)", req.Attendee.Name, req.Attendee.Email),
		Start:       &calendar.EventDateTime{DateTime: start.Format(local), TimeZone: g.loc.String()},
		End:         &calendar.EventDateTime{DateTime: end.Format(local), TimeZone: g.loc.String()},
		Attendees: []*calendar.EventAttendee{
			{Email: req.Attendee.Email, DisplayName: req.Attendee.Name},
			{Email: req.Organizer.Email, DisplayName: req.Organizer.Name},
		},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
		Reminders: &calendar.EventReminders{
			UseDefault: false,
			Overrides: []*calendar.EventReminder{
				{Method: "email", Minutes: 24 * 60},
				{Method: "popup", Minutes: 30},
			},
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := srv.Events.Insert("primary", ev).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return EventRef{}, fmt.Errorf("inserting event: %w", err)
	}

	return EventRef{ID: created.Id, MeetingLink: meetingLink(created)}, nil
}

func meetingLink(ev *calendar.Event) string {
	if ev.HangoutLink != "" {
		return ev.HangoutLink
	}
	if ev.ConferenceData != nil && len(ev.ConferenceData.EntryPoints) > 0 {
		return ev.ConferenceData.EntryPoints[0].Uri
	}
	return ""
}
