package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

const bookingColumns = `id, organizer_id, attendee_name, attendee_email, attendee_phone,
	booking_date, booking_time, duration_minutes, external_event_id, external_meeting_link, created_at`

// ListBookings returns the organizer's bookings with from <= date <= to,
// ordered by date and time.
func (s *Store) ListBookings(ctx context.Context, organizerID int64, from, to string) ([]model.Booking, error) {
	return listBookings(ctx, s.pool, organizerID, from, to)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func listBookings(ctx context.Context, q querier, organizerID int64, from, to string) ([]model.Booking, error) {
	rows, err := q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE organizer_id = $1 AND booking_date >= $2 AND booking_date <= $3
		ORDER BY booking_date, booking_time
	`, organizerID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		var b model.Booking
		if err := rows.Scan(&b.ID, &b.OrganizerID, &b.AttendeeName, &b.AttendeeEmail, &b.AttendeePhone,
			&b.Date, &b.Time, &b.DurationMinutes, &b.ExternalEventID, &b.ExternalMeetingLink, &b.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBooking serializes reservations per organizer and date with a
// transaction-scoped advisory lock, runs guard against the bookings already
// on that date and inserts b only when the guard accepts it.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking, guard store.Guard) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended($1::text || '/' || $2, 0))`,
		b.OrganizerID, b.Date); err != nil {
		return err
	}

	existing, err := listBookings(ctx, tx, b.OrganizerID, b.Date, b.Date)
	if err != nil {
		return err
	}
	if guard != nil && !guard(existing) {
		return store.ErrRejected
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings
			(organizer_id, attendee_name, attendee_email, attendee_phone, booking_date, booking_time, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, b.OrganizerID, b.AttendeeName, b.AttendeeEmail, b.AttendeePhone, b.Date, b.Time, b.DurationMinutes,
	).Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if errors.Is(mapErr(err), store.ErrDuplicate) {
			return store.ErrRejected
		}
		return err
	}
	return tx.Commit(ctx)
}

// AttachExternalEvent records the calendar event created for a booking.
func (s *Store) AttachExternalEvent(ctx context.Context, bookingID int64, eventID, link string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE bookings SET external_event_id = $2, external_meeting_link = $3
		WHERE id = $1 AND external_event_id = ''
	`, bookingID, eventID, link)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListOrganizerBookings(ctx context.Context, organizerID int64) ([]model.Booking, error) {
	return listBookings(ctx, s.pool, organizerID, "0000-00-00", "9999-99-99")
}
