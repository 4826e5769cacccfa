// Package postgres implements the scheduler stores on PostgreSQL via pgx.
package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

//go:embed schema.sql
var schema string

type Store struct {
	pool *pgxpool.Pool
}

func Open(ctx context.Context, databaseURL string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = 10
	cfg.MinConns = 1
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) CreateOrganizer(ctx context.Context, o *model.Organizer) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO organizers (username, email, name)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, o.Username, o.Email, o.Name).Scan(&o.ID, &o.CreatedAt)
	return mapErr(err)
}

func (s *Store) GetOrganizer(ctx context.Context, id int64) (model.Organizer, error) {
	return s.scanOrganizer(s.pool.QueryRow(ctx, `
		SELECT id, username, email, name, created_at FROM organizers WHERE id = $1
	`, id))
}

func (s *Store) GetOrganizerByUsername(ctx context.Context, username string) (model.Organizer, error) {
	return s.scanOrganizer(s.pool.QueryRow(ctx, `
		SELECT id, username, email, name, created_at FROM organizers WHERE username = $1
	`, username))
}

func (s *Store) scanOrganizer(row pgx.Row) (model.Organizer, error) {
	var o model.Organizer
	err := row.Scan(&o.ID, &o.Username, &o.Email, &o.Name, &o.CreatedAt)
	return o, mapErr(err)
}

func (s *Store) ListRules(ctx context.Context, organizerID int64) ([]model.AvailabilityRule, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organizer_id, day_of_week, start_date, end_date, start_time, end_time
		FROM availability_rules
		WHERE organizer_id = $1
		ORDER BY id
	`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.AvailabilityRule
	for rows.Next() {
		var (
			r        model.AvailabilityRule
			weekday  *int16
			from, to *string
		)
		if err := rows.Scan(&r.ID, &r.OrganizerID, &weekday, &from, &to, &r.StartTime, &r.EndTime); err != nil {
			return nil, err
		}
		switch {
		case weekday != nil:
			r.Kind = model.RuleWeekday
			r.Weekday = time.Weekday(*weekday)
		case from != nil && to != nil:
			r.Kind = model.RuleDateRange
			r.StartDate, r.EndDate = *from, *to
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReplaceRules clears the organizer's rules and inserts the new set in one
// transaction.
func (s *Store) ReplaceRules(ctx context.Context, organizerID int64, rules []model.AvailabilityRule) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM availability_rules WHERE organizer_id = $1`, organizerID); err != nil {
		return err
	}
	for i := range rules {
		r := &rules[i]
		var (
			weekday  *int16
			from, to *string
		)
		switch r.Kind {
		case model.RuleWeekday:
			wd := int16(r.Weekday)
			weekday = &wd
		case model.RuleDateRange:
			from, to = &r.StartDate, &r.EndDate
		default:
			return fmt.Errorf("rule %d: inert rules cannot be stored", i)
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO availability_rules (organizer_id, day_of_week, start_date, end_date, start_time, end_time)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`, organizerID, weekday, from, to, r.StartTime, r.EndTime).Scan(&r.ID)
		if err != nil {
			return err
		}
		r.OrganizerID = organizerID
	}
	return tx.Commit(ctx)
}

func (s *Store) GetSettings(ctx context.Context, organizerID int64) (model.MeetingSettings, error) {
	st := model.MeetingSettings{OrganizerID: organizerID}
	err := s.pool.QueryRow(ctx, `
		SELECT duration_minutes, minimum_notice_hours FROM meeting_settings WHERE organizer_id = $1
	`, organizerID).Scan(&st.DurationMinutes, &st.MinimumNoticeHours)
	return st, mapErr(err)
}

func (s *Store) UpsertSettings(ctx context.Context, st model.MeetingSettings) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO meeting_settings (organizer_id, duration_minutes, minimum_notice_hours)
		VALUES ($1, $2, $3)
		ON CONFLICT (organizer_id) DO UPDATE SET
			duration_minutes = EXCLUDED.duration_minutes,
			minimum_notice_hours = EXCLUDED.minimum_notice_hours
	`, st.OrganizerID, st.DurationMinutes, st.MinimumNoticeHours)
	return mapErr(err)
}

func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", store.ErrDuplicate, pgErr.ConstraintName)
	}
	return err
}
