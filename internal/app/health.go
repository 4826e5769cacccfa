package app

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// ReadyCheck is a named dependency check for /readyz.
type ReadyCheck struct {
	Name  string
	Check func(context.Context) error
}

// GET /healthz
func (a *App) HealthHandler(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /readyz
func (a *App) ReadyHandler(c *gin.Context) {
	var failures []string
	for _, check := range a.checks {
		if check.Check == nil {
			continue
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := check.Check(ctx)
		cancel()
		if err != nil {
			name := check.Name
			if name == "" {
				name = "dependency"
			}
			failures = append(failures, name+": "+err.Error())
		}
	}
	if len(failures) > 0 {
		c.String(http.StatusServiceUnavailable, strings.Join(failures, "; "))
		return
	}
	c.String(http.StatusOK, "ok")
}
