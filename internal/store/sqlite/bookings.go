package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

const bookingColumns = `id, organizer_id, attendee_name, attendee_email, attendee_phone,
	booking_date, booking_time, duration_minutes, external_event_id, external_meeting_link, created_at`

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func (s *Store) ListBookings(ctx context.Context, organizerID int64, from, to string) ([]model.Booking, error) {
	return listBookings(ctx, s.db, organizerID, from, to)
}

func (s *Store) ListOrganizerBookings(ctx context.Context, organizerID int64) ([]model.Booking, error) {
	return listBookings(ctx, s.db, organizerID, "0000-00-00", "9999-99-99")
}

func listBookings(ctx context.Context, q querier, organizerID int64, from, to string) ([]model.Booking, error) {
	rows, err := q.QueryContext(ctx, `
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
		var (
			b       model.Booking
			created int64
		)
		if err := rows.Scan(&b.ID, &b.OrganizerID, &b.AttendeeName, &b.AttendeeEmail, &b.AttendeePhone,
			&b.Date, &b.Time, &b.DurationMinutes, &b.ExternalEventID, &b.ExternalMeetingLink, &created); err != nil {
			return nil, err
		}
		b.CreatedAt = time.Unix(created, 0).UTC()
		out = append(out, b)
	}
	return out, rows.Err()
}

// InsertBooking holds the organizer/date mutex across the guard and the
// insert, so two overlapping reservations can never both pass the guard.
func (s *Store) InsertBooking(ctx context.Context, b *model.Booking, guard store.Guard) error {
	unlock := s.lock(b.OrganizerID, b.Date)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	existing, err := listBookings(ctx, tx, b.OrganizerID, b.Date, b.Date)
	if err != nil {
		return err
	}
	if guard != nil && !guard(existing) {
		return store.ErrRejected
	}

	var created int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO bookings
			(organizer_id, attendee_name, attendee_email, attendee_phone, booking_date, booking_time, duration_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`, b.OrganizerID, b.AttendeeName, b.AttendeeEmail, b.AttendeePhone, b.Date, b.Time, b.DurationMinutes,
	).Scan(&b.ID, &created)
	if err != nil {
		if errors.Is(mapErr(err), store.ErrDuplicate) {
			return store.ErrRejected
		}
		return err
	}
	b.CreatedAt = time.Unix(created, 0).UTC()
	return tx.Commit()
}

func (s *Store) AttachExternalEvent(ctx context.Context, bookingID int64, eventID, link string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE bookings SET external_event_id = $2, external_meeting_link = $3
		WHERE id = $1 AND external_event_id = ''
	`, bookingID, eventID, link)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
