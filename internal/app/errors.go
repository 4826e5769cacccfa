package app

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meeting-scheduler/internal/scheduling"
)

// respondError maps engine errors onto status codes.
func (a *App) respondError(c *gin.Context, err error) {
	var verr *scheduling.ValidationError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": verr.Fields})
	case errors.Is(err, scheduling.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, scheduling.ErrConfigurationMissing):
		c.JSON(http.StatusBadRequest, gin.H{"error": scheduling.ErrConfigurationMissing.Error()})
	case errors.Is(err, scheduling.ErrSlotTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		a.logger.ErrorContext(c.Request.Context(), "request failed",
			"request_id", RequestIDFrom(c),
			"path", c.FullPath(),
			"err", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func badField(c *gin.Context, field, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "details": gin.H{field: msg}})
}

// int64Param reads a required positive integer from the query string or
// path. It writes the 400 response itself when the value is unusable.
func int64Param(c *gin.Context, name, raw string) (int64, bool) {
	if raw == "" {
		badField(c, name, "is required")
		return 0, false
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		badField(c, name, "must be a positive integer")
		return 0, false
	}
	return v, true
}

func organizerQuery(c *gin.Context) (int64, bool) {
	return int64Param(c, "userId", c.Query("userId"))
}

// optionalInt reads an optional integer query parameter; absent means zero.
func optionalInt(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badField(c, name, "must be an integer")
		return 0, false
	}
	return v, true
}
