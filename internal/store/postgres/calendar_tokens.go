package postgres

import (
	"context"
	"time"

	"meeting-scheduler/internal/model"
)

func (s *Store) GetCalendarToken(ctx context.Context, organizerID int64) (model.CalendarToken, error) {
	tok := model.CalendarToken{OrganizerID: organizerID}
	var expiry *time.Time
	err := s.pool.QueryRow(ctx, `
		SELECT access_token, refresh_token, token_type, expiry
		FROM calendar_tokens WHERE organizer_id = $1
	`, organizerID).Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if err != nil {
		return model.CalendarToken{}, mapErr(err)
	}
	if expiry != nil {
		tok.Expiry = *expiry
	}
	return tok, nil
}

// PutCalendarToken upserts the token. An empty refresh token keeps the one
// already stored, since Google only returns it on the first consent.
func (s *Store) PutCalendarToken(ctx context.Context, tok model.CalendarToken) error {
	var expiry *time.Time
	if !tok.Expiry.IsZero() {
		expiry = &tok.Expiry
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO calendar_tokens (organizer_id, access_token, refresh_token, token_type, expiry)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (organizer_id) DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), calendar_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry
	`, tok.OrganizerID, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiry)
	return mapErr(err)
}

// DeleteCalendarToken is idempotent: deleting a missing token is not an error.
func (s *Store) DeleteCalendarToken(ctx context.Context, organizerID int64) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM calendar_tokens WHERE organizer_id = $1`, organizerID)
	return err
}
