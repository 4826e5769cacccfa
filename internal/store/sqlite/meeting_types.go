package sqlite

import (
	"context"
	"database/sql"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/store"
)

func (s *Store) ListMeetingTypes(ctx context.Context, organizerID int64) ([]model.MeetingType, error) {
	rows, err := s.db.QueryContext(ctx, `
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
	return scanMeetingType(s.db.QueryRowContext(ctx, `
		SELECT id, organizer_id, name, slug, duration_minutes, is_default
		FROM meeting_types WHERE organizer_id = $1 AND slug = $2
	`, organizerID, slug))
}

func (s *Store) GetDefaultMeetingType(ctx context.Context, organizerID int64) (model.MeetingType, error) {
	return scanMeetingType(s.db.QueryRowContext(ctx, `
		SELECT id, organizer_id, name, slug, duration_minutes, is_default
		FROM meeting_types WHERE organizer_id = $1 AND is_default = 1
	`, organizerID))
}

func scanMeetingType(row *sql.Row) (model.MeetingType, error) {
	var mt model.MeetingType
	err := row.Scan(&mt.ID, &mt.OrganizerID, &mt.Name, &mt.Slug, &mt.DurationMinutes, &mt.IsDefault)
	return mt, mapErr(err)
}

func (s *Store) SaveMeetingType(ctx context.Context, mt *model.MeetingType) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if mt.IsDefault {
		if _, err := tx.ExecContext(ctx, `
			UPDATE meeting_types SET is_default = 0 WHERE organizer_id = $1 AND id <> $2
		`, mt.OrganizerID, mt.ID); err != nil {
			return err
		}
	}

	if mt.ID == 0 {
		err = tx.QueryRowContext(ctx, `
			INSERT INTO meeting_types (organizer_id, name, slug, duration_minutes, is_default)
			VALUES ($1, $2, $3, $4, $5) RETURNING id
		`, mt.OrganizerID, mt.Name, mt.Slug, mt.DurationMinutes, mt.IsDefault).Scan(&mt.ID)
		if err != nil {
			return mapErr(err)
		}
	} else {
		res, err := tx.ExecContext(ctx, `
			UPDATE meeting_types SET name = $3, slug = $4, duration_minutes = $5, is_default = $6
			WHERE id = $1 AND organizer_id = $2
		`, mt.ID, mt.OrganizerID, mt.Name, mt.Slug, mt.DurationMinutes, mt.IsDefault)
		if err != nil {
			return mapErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return store.ErrNotFound
		}
	}
	return tx.Commit()
}

func (s *Store) DeleteMeetingType(ctx context.Context, organizerID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM meeting_types WHERE id = $1 AND organizer_id = $2`, id, organizerID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}
