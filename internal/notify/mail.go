package notify

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net/smtp"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// Every is the minimum spacing between two messages.
	Every time.Duration
}

type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends plain-text booking emails over SMTP.
type Mailer struct {
	addr    string
	from    string
	auth    smtp.Auth
	limiter *rate.Limiter
	send    sendFunc
}

func NewMailer(cfg SMTPConfig) *Mailer {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = "no-reply@meeting-scheduler.local"
	}
	every := cfg.Every
	if every <= 0 {
		every = time.Second
	}
	m := &Mailer{
		addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		from:    from,
		limiter: rate.NewLimiter(rate.Every(every), 1),
		send:    smtp.SendMail,
	}
	if cfg.Username != "" {
		m.auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	return m
}

func (m *Mailer) deliver(ctx context.Context, to, subject, body string) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}

	buf := &bytes.Buffer{}
	fmt.Fprintf(buf, "From: %s\r\n", m.from)
	fmt.Fprintf(buf, "To: %s\r\n", to)
	fmt.Fprintf(buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", subject))
	fmt.Fprintf(buf, "MIME-Version: 1.0\r\n")
	fmt.Fprintf(buf, "Content-Type: text/plain; charset=utf-8\r\n\r\n")
	buf.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	buf.WriteString("\r\n")

	if err := m.send(m.addr, m.auth, m.from, []string{to}, buf.Bytes()); err != nil {
		return fmt.Errorf("sending mail to %s: %w", to, err)
	}
	return nil
}

func when(n Notice) string {
	return fmt.Sprintf("%s at %s (%d minutes)", n.Booking.Date, n.Booking.Time, n.Booking.DurationMinutes)
}

func (m *Mailer) NotifyOrganizer(ctx context.Context, n Notice) error {
	b := n.Booking
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n%s booked a meeting with you on %s.\n\n", n.Organizer.Name, b.AttendeeName, when(n))
	fmt.Fprintf(&body, "Name: %s\nEmail: %s\n", b.AttendeeName, b.AttendeeEmail)
	if b.AttendeePhone != "" {
		fmt.Fprintf(&body, "Phone: %s\n", b.AttendeePhone)
	}
	if b.ExternalMeetingLink != "" {
		fmt.Fprintf(&body, "Google Meet: %s\n", b.ExternalMeetingLink)
	}
	return m.deliver(ctx, n.Organizer.Email, "New booking: "+b.AttendeeName, body.String())
}

func (m *Mailer) NotifyAttendee(ctx context.Context, n Notice) error {
	b := n.Booking
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nyour meeting with %s is confirmed for %s.\n", b.AttendeeName, n.Organizer.Name, when(n))
	if b.ExternalMeetingLink != "" {
		fmt.Fprintf(&body, "\nJoin with Google Meet: %s\n", b.ExternalMeetingLink)
	}
	fmt.Fprintf(&body, "\nIf you need to reschedule, reply to %s.\n", n.Organizer.Email)
	return m.deliver(ctx, b.AttendeeEmail, "Meeting confirmed with "+n.Organizer.Name, body.String())
}

func (m *Mailer) AlertOrganizerOfError(ctx context.Context, n Notice, cause error) error {
	b := n.Booking
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\nthe booking by %s <%s> on %s was saved, ", n.Organizer.Name, b.AttendeeName, b.AttendeeEmail, when(n))
	fmt.Fprintf(&body, "but it could not be added to your Google Calendar.\n\nError: %v\n\n", cause)
	fmt.Fprintf(&body, "The attendee received a confirmation email instead. Please add the meeting manually ")
	fmt.Fprintf(&body, "or reconnect your calendar.\n")
	return m.deliver(ctx, n.Organizer.Email, "Calendar sync failed for booking with "+b.AttendeeName, body.String())
}
