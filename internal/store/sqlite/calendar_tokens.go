package sqlite

import (
	"context"
	"time"

	"meeting-scheduler/internal/model"
)

func (s *Store) GetCalendarToken(ctx context.Context, organizerID int64) (model.CalendarToken, error) {
	tok := model.CalendarToken{OrganizerID: organizerID}
	var expiry int64
	err := s.db.QueryRowContext(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM calendar_tokens WHERE organizer_id = $1
	`, organizerID).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if err != nil {
		return model.CalendarToken{}, mapErr(err)
	}
	if expiry > 0 {
		tok.Expiry = time.Unix(expiry, 0).UTC()
	}
	return tok, nil
}

func (s *Store) PutCalendarToken(ctx context.Context, tok model.CalendarToken) error {
	var expiry int64
	if !tok.Expiry.IsZero() {
		expiry = tok.Expiry.Unix()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO calendar_tokens (organizer_id, access_token, refresh_token, token_type, expiry)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organizer_id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = COALESCE(NULLIF(excluded.refresh_token, ''), calendar_tokens.refresh_token),
			token_type = excluded.token_type,
			expiry = excluded.expiry
	`, tok.OrganizerID, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry)
	return mapErr(err)
}

func (s *Store) DeleteCalendarToken(ctx context.Context, organizerID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM calendar_tokens WHERE organizer_id = $1`, organizerID)
	return err
}
