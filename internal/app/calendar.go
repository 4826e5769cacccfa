package app

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"meeting-scheduler/internal/calendar"
)

func (a *App) calendarConfigured(c *gin.Context) bool {
	if a.calendar == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Google Calendar not configured"})
		return false
	}
	return true
}

// GET /api/auth/google?userId=
// Returns the consent URL; the state parameter is signed and names the
// organizer.
func (a *App) GoogleAuthHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	if _, err := a.engine.Organizer(c.Request.Context(), organizerID); err != nil {
		a.respondError(c, err)
		return
	}
	url, err := a.calendar.AuthURL(organizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auth_url": url})
}

// GET /oauth2callback
func (a *App) GoogleOAuth2CallbackHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	if reason := c.Query("error"); reason != "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "authorization denied: " + reason})
		return
	}
	code, state := c.Query("code"), c.Query("state")
	if code == "" || state == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code and state are required"})
		return
	}

	ctx := c.Request.Context()
	organizerID, err := a.calendar.Exchange(ctx, code, state)
	if errors.Is(err, calendar.ErrInvalidState) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		a.logger.ErrorContext(ctx, "google oauth callback failed", "err", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to exchange code for token"})
		return
	}
	a.forgetBusy(c, organizerID)

	c.JSON(http.StatusOK, gin.H{
		"message": "Google Calendar connected",
		"user_id": organizerID,
	})
}

// GET /api/auth/google/status?userId=
func (a *App) GoogleStatusHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	connected := a.calendar != nil && a.calendar.IsConnected(c.Request.Context(), organizerID)
	c.JSON(http.StatusOK, gin.H{"connected": connected})
}

// DELETE /api/auth/google?userId=
func (a *App) GoogleDisconnectHandler(c *gin.Context) {
	if !a.calendarConfigured(c) {
		return
	}
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	if err := a.calendar.Disconnect(c.Request.Context(), organizerID); err != nil {
		a.respondError(c, err)
		return
	}
	a.forgetBusy(c, organizerID)
	c.Status(http.StatusNoContent)
}

// GET /api/calendar/events?userId=&max=
// Lists upcoming events of the organizer's primary calendar. Anything that
// keeps the calendar from answering yields an empty list.
func (a *App) GetCalendarEventsHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	limit, ok := optionalInt(c, "max")
	if !ok {
		return
	}
	if a.calendar == nil {
		c.JSON(http.StatusOK, []calendar.UpcomingEvent{})
		return
	}

	ctx := c.Request.Context()
	events, err := a.calendar.UpcomingEvents(ctx, organizerID, limit)
	if err != nil {
		if !errors.Is(err, calendar.ErrNotConnected) {
			a.logger.WarnContext(ctx, "listing calendar events failed",
				"organizer_id", organizerID,
				"err", err,
			)
		}
		events = nil
	}
	c.JSON(http.StatusOK, nonNil(events))
}

func (a *App) forgetBusy(c *gin.Context, organizerID int64) {
	if a.cache != nil {
		a.cache.Forget(c.Request.Context(), organizerID)
	}
}
