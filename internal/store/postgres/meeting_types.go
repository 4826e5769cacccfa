package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

func (s *Store) ListMeetingTypes(ctx context.Context, organizerID int64) ([]model.MeetingType, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, organizer_id, name, slug, duration_minutes, is_default
		FROM meeting_types WHERE organizer_id = $1
		ORDER BY is_default DESC, id
	`, organizerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MeetingType
	for rows.Next() {
		var mt model.MeetingType
		if err := rows.Scan(&mt.ID, &mt.OrganizerID, &mt.Name, &mt.Slug, &mt.DurationMinutes, &mt.IsDefault); err != nil {
			return nil, err
		}
		out = append(out, mt)
	}
	return out, rows.Err()
}

func (s *Store) GetMeetingTypeBySlug(ctx context.Context, organizerID int64, slug string) (model.MeetingType, error) {
	return scanMeetingType(s.pool.QueryRow(ctx, `
		SELECT id, organizer_id, name, slug, duration_minutes, is_default
		FROM meeting_types WHERE organizer_id = $1 AND slug = $2
	`, organizerID, slug))
}

func (s *Store) GetDefaultMeetingType(ctx context.Context, organizerID int64) (model.MeetingType, error) {
	return scanMeetingType(s.pool.QueryRow(ctx, `
		SELECT id, organizer_id, name, slug, duration_minutes, is_default
		FROM meeting_types WHERE organizer_id = $1 AND is_default
	`, organizerID))
}

func scanMeetingType(row pgx.Row) (model.MeetingType, error) {
	var mt model.MeetingType
	err := row.Scan(&mt.ID, &mt.OrganizerID, &mt.Name, &mt.Slug, &mt.DurationMinutes, &mt.IsDefault)
	return mt, mapErr(err)
}

// SaveMeetingType inserts mt when its ID is zero and updates it otherwise.
// Flagging a type as default clears the flag on the organizer's other types.
func (s *Store) SaveMeetingType(ctx context.Context, mt *model.MeetingType) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if mt.IsDefault {
		if _, err := tx.Exec(ctx, `
			UPDATE meeting_types SET is_default = false WHERE organizer_id = $1 AND id <> $2
		`, mt.OrganizerID, mt.ID); err != nil {
			return err
		}
	}

	if mt.ID == 0 {
		err = tx.QueryRow(ctx, `
			INSERT INTO meeting_types (organizer_id, name, slug, duration_minutes, is_default)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`, mt.OrganizerID, mt.Name, mt.Slug, mt.DurationMinutes, mt.IsDefault).Scan(&mt.ID)
		if err != nil {
			return mapErr(err)
		}
	} else {
		tag, err := tx.Exec(ctx, `
			UPDATE meeting_types SET name = $3, slug = $4, duration_minutes = $5, is_default = $6
			WHERE id = $1 AND organizer_id = $2
		`, mt.ID, mt.OrganizerID, mt.Name, mt.Slug, mt.DurationMinutes, mt.IsDefault)
		if err != nil {
			return mapErr(err)
		}
		if tag.RowsAffected() == 0 {
			return store.ErrNotFound
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteMeetingType(ctx context.Context, organizerID, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM meeting_types WHERE id = $1 AND organizer_id = $2`, id, organizerID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
