// Package notify tells organizers and attendees about new bookings. Every
// sender is best effort: callers dispatch through Async and never wait.
package notify

import (
	"context"
	"errors"

	"meeting-scheduler/internal/model"
)

// Notice describes one booking to the people involved in it.
type Notice struct {
	Booking   model.Booking
	Organizer model.Organizer
}

type Notifier interface {
	NotifyOrganizer(ctx context.Context, n Notice) error
	NotifyAttendee(ctx context.Context, n Notice) error
	// AlertOrganizerOfError reports that the booking was saved but its
	// calendar event could not be created.
	AlertOrganizerOfError(ctx context.Context, n Notice, cause error) error
}

type Nop struct{}

func (Nop) NotifyOrganizer(context.Context, Notice) error { return nil }
func (Nop) NotifyAttendee(context.Context, Notice) error { return nil }
func (Nop) AlertOrganizerOfError(context.Context, Notice, error) error { return nil }

// Multi fans every notification out to all notifiers.
type Multi []Notifier

func (m Multi) NotifyOrganizer(ctx context.Context, n Notice) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.NotifyOrganizer(ctx, n))
	}
	return errors.Join(errs...)
}

func (m Multi) NotifyAttendee(ctx context.Context, n Notice) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.NotifyAttendee(ctx, n))
	}
	return errors.Join(errs...)
}

func (m Multi) AlertOrganizerOfError(ctx context.Context, n Notice, cause error) error {
	var errs []error
	for _, x := range m {
		errs = append(errs, x.AlertOrganizerOfError(ctx, n, cause))
	}
	return errors.Join(errs...)
}
