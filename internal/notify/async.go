package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Async runs every notification on its own goroutine, detached from the
// caller's cancellation, and logs failures. Its methods always return nil.
type Async struct {
	next    Notifier
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewAsync(next Notifier, timeout time.Duration, logger *slog.Logger) *Async {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Async{next: next, timeout: timeout, logger: logger}
}

func (a *Async) dispatch(ctx context.Context, kind string, n Notice, fn func(context.Context) error) {
	ctx = context.WithoutCancel(ctx)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			a.logger.Error("notification failed", "kind", kind,
				"booking_id", n.Booking.ID, "organizer_id", n.Organizer.ID, "err", err)
		}
	}()
}

func (a *Async) NotifyOrganizer(ctx context.Context, n Notice) error {
	a.dispatch(ctx, "organizer", n, func(ctx context.Context) error { return a.next.NotifyOrganizer(ctx, n) })
	return nil
}

func (a *Async) NotifyAttendee(ctx context.Context, n Notice) error {
	a.dispatch(ctx, "attendee", n, func(ctx context.Context) error { return a.next.NotifyAttendee(ctx, n) })
	return nil
}

func (a *Async) AlertOrganizerOfError(ctx context.Context, n Notice, cause error) error {
	a.dispatch(ctx, "alert", n, func(ctx context.Context) error { return a.next.AlertOrganizerOfError(ctx, n, cause) })
	return nil
}

// Wait blocks until in-flight notifications finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
