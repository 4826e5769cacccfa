// Package sqlite implements the scheduler stores on an embedded SQLite
// database. It backs local development and the test suites.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

//go:embed schema.sql
var schema string

type Store struct {
	db *sql.DB

	mu    sync.Mutex
	locks map[string]*dateLock
}

// dateLock serializes reservations for one organizer and date. refs counts
// the holders and waiters; the entry is dropped when it reaches zero.
type dateLock struct {
	sync.Mutex
	refs int
}

// Open opens (creating when missing) the database at path and applies the
// schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf("file:%s?cache=shared&mode=rwc&_journal_mode=WAL&_pragma=foreign_keys(1)", path))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &Store{db: db, locks: map[string]*dateLock{}}, nil
}

// OpenTest creates a store in a temporary directory owned by t.
func OpenTest(t *testing.T) *Store {
	s, err := Open(filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *Store) Close() error { return s.db.Close() }

// lock acquires the reservation mutex for one organizer and date and
// returns its release func.
func (s *Store) lock(organizerID int64, date string) func() {
	key := fmt.Sprintf("%d/%s", organizerID, date)
	s.mu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &dateLock{}
		s.locks[key] = l
	}
	l.refs++
	s.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		s.mu.Lock()
		if l.refs--; l.refs == 0 {
			delete(s.locks, key)
		}
		s.mu.Unlock()
	}
}

func (s *Store) CreateOrganizer(ctx context.Context, o *model.Organizer) error {
	var created int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO organizers (username, email, name) VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, o.Username, o.Email, o.Name).Scan(&o.ID, &created)
	if err != nil {
		return mapErr(err)
	}
	o.CreatedAt = time.Unix(created, 0).UTC()
	return nil
}

func (s *Store) GetOrganizer(ctx context.Context, id int64) (model.Organizer, error) {
	return scanOrganizer(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, name, created_at FROM organizers WHERE id = $1`, id))
}

func (s *Store) GetOrganizerByUsername(ctx context.Context, username string) (model.Organizer, error) {
	return scanOrganizer(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, name, created_at FROM organizers WHERE username = $1`, username))
}

func scanOrganizer(row *sql.Row) (model.Organizer, error) {
	var (
		o       model.Organizer
		created int64
	)
	if err := row.Scan(&o.ID, &o.Username, &o.Email, &o.Name, &created); err != nil {
		return model.Organizer{}, mapErr(err)
	}
	o.CreatedAt = time.Unix(created, 0).UTC()
	return o, nil
}

func (s *Store) ListRules(ctx context.Context, organizerID int64) ([]model.AvailabilityRule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, organizer_id, day_of_week, start_date, end_date, start_time, end_time
		FROM availability_rules WHERE organizer_id = $1 ORDER BY id
	`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		var (
			r        model.AvailabilityRule
			weekday  sql.NullInt64
			from, to sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.OrganizerID, &weekday, &from, &to, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		switch {
		case weekday.Valid:
			r.Kind = model.RuleWeekday
			r.Weekday = time.Weekday(weekday.Int64)
		case from.Valid && to.Valid:
			r.Kind = model.RuleDateRange
			r.StartDate, r.EndDate = from.String, to.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) ReplaceRules(ctx context.Context, organizerID int64, rules []model.AvailabilityRule) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM availability_rules WHERE organizer_id = $1`, organizerID); err != nil {
		return err
	}
	for i := range rules {
		r := &rules[i]
		var (
			weekday  sql.NullInt64
			from, to sql.NullString
		)
		switch r.Kind {
		case model.RuleWeekday:
			weekday = sql.NullInt64{Int64: int64(r.Weekday), Valid: true}
		case model.RuleDateRange:
			from = sql.NullString{String: r.StartDate, Valid: true}
			to = sql.NullString{String: r.EndDate, Valid: true}
		default:
			return fmt.Errorf("rule %d: inert rules cannot be stored", i)
		}
		err := tx.QueryRowContext(ctx, `
			INSERT INTO availability_rules (organizer_id, day_of_week, start_date, end_date, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6) RETURNING id
		`, organizerID, weekday, from, to, r.StartTime, r.EndTime).Scan(&r.ID)
		if err != nil {
			return err
		}
		r.OrganizerID = organizerID
	}
	return tx.Commit()
}

func (s *Store) GetSettings(ctx context.Context, organizerID int64) (model.MeetingSettings, error) {
	st := model.MeetingSettings{OrganizerID: organizerID}
	err := s.db.QueryRowContext(ctx, `
		SELECT duration_minutes, minimum_notice_hours FROM meeting_settings WHERE organizer_id = $1
	`, organizerID).Scan(&st.DurationMinutes, &st.MinimumNoticeHours)
	return st, mapErr(err)
}

func (s *Store) UpsertSettings(ctx context.Context, st model.MeetingSettings) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO meeting_settings (organizer_id, duration_minutes, minimum_notice_hours)
		VALUES ($1, $2, $3)
		ON CONFLICT (organizer_id) DO UPDATE SET
			duration_minutes = excluded.duration_minutes,
			minimum_notice_hours = excluded.minimum_notice_hours
	`, st.OrganizerID, st.DurationMinutes, st.MinimumNoticeHours)
	return mapErr(err)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, err)
	}
	return err
}
