package calendar

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const stateAudience = "google-calendar-oauth"

var ErrInvalidState = errors.New("invalid or expired oauth state")

// AuthURL returns the Google consent URL for the organizer. The organizer id
// travels in a signed state token valid for ten minutes.
func (g *Google) AuthURL(organizerID int64) (string, error) {
	now := g.now()
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(organizerID, 10),
		Audience:  jwt.ClaimStrings{stateAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(10 * time.Minute)),
	}).SignedString(g.secret)
	if err != nil {
		return "", fmt.Errorf("signing oauth state: %w", err)
	}
	return g.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

func (g *Google) verifyState(state string) (int64, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (any, error) {
		return g.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(stateAudience),
		jwt.WithTimeFunc(g.now),
		jwt.WithLeeway(5*time.Second),
	)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrInvalidState, claims.Subject)
	}
	return id, nil
}

// Exchange completes the consent flow and stores the organizer's credential.
// It returns the organizer id carried by state.
func (g *Google) Exchange(ctx context.Context, code, state string) (int64, error) {
	organizerID, err := g.verifyState(state)
	if err != nil {
		return 0, err
	}
	if code == "" {
		return 0, errors.New("authorization code required")
	}
	tok, err := g.oauth.Exchange(g.oauthContext(ctx), code)
	if err != nil {
		return 0, fmt.Errorf("exchanging authorization code: %w", err)
	}
	if err := g.tokens.PutCalendarToken(ctx, toModel(organizerID, tok)); err != nil {
		return 0, fmt.Errorf("storing calendar token: %w", err)
	}
	g.logger.Info("google calendar connected", "organizer_id", organizerID)
	return organizerID, nil
}
