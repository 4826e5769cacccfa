// Package app exposes the scheduling engine over HTTP.
package app

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"meeting-scheduler/internal/calendar"
	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/scheduling"
)

// CalendarConnector runs the organizer side of the external calendar
// connection.
type CalendarConnector interface {
	AuthURL(organizerID int64) (string, error)
	Exchange(ctx context.Context, code, state string) (int64, error)
	IsConnected(ctx context.Context, organizerID int64) bool
	Disconnect(ctx context.Context, organizerID int64) error
	UpcomingEvents(ctx context.Context, organizerID int64, limit int) ([]calendar.UpcomingEvent, error)
}

type BookingFollowup interface {
	AfterBooking(ctx context.Context, organizer model.Organizer, b model.Booking) model.Booking
}

type BusyCache interface {
	Forget(ctx context.Context, organizerID int64)
}

type Options struct {
	Engine *scheduling.Engine
	// Calendar is nil when Google Calendar is not configured.
	Calendar  CalendarConnector
	BusyCache BusyCache
	Followup  BookingFollowup
	// Auth guards the organizer routes.
	Auth gin.HandlerFunc
	// BookingLimiter throttles POST /api/bookings per client when set.
	BookingLimiter Limiter
	Checks         []ReadyCheck
	Logger         *slog.Logger
}

type App struct {
	engine   *scheduling.Engine
	calendar CalendarConnector
	cache    BusyCache
	followup BookingFollowup
	auth     gin.HandlerFunc
	limiter  Limiter
	checks   []ReadyCheck
	logger   *slog.Logger
}

func New(opts Options) *App {
	a := &App{
		engine:   opts.Engine,
		calendar: opts.Calendar,
		cache:    opts.BusyCache,
		followup: opts.Followup,
		auth:     opts.Auth,
		limiter:  opts.BookingLimiter,
		checks:   opts.Checks,
		logger:   opts.Logger,
	}
	if a.logger == nil {
		a.logger = slog.New(slog.DiscardHandler)
	}
	if a.auth == nil {
		a.auth = AuthMiddleware(nil, "")
	}
	return a
}

// Router builds the gin engine with every route mounted.
func (a *App) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), AccessLog(a.logger))

	router.GET("/healthz", a.HealthHandler)
	router.GET("/readyz", a.ReadyHandler)

	// Public routes
	router.GET("/oauth2callback", a.GoogleOAuth2CallbackHandler)
	public := router.Group("/api")
	{
		public.GET("/users/:username", a.GetOrganizerProfileHandler)
		public.GET("/meeting-types/:slug", a.GetMeetingTypeHandler)
		public.GET("/availability/slots", a.GetSlotsHandler)
		public.GET("/availability/month", a.GetMonthHandler)
		if a.limiter != nil {
			public.POST("/bookings", RateLimit(a.limiter, a.logger), a.CreateBookingHandler)
		} else {
			public.POST("/bookings", a.CreateBookingHandler)
		}
	}

	// Organizer routes
	api := router.Group("/api")
	api.Use(a.auth)
	{
		api.POST("/users", a.CreateOrganizerHandler)

		api.GET("/availability", a.ListAvailabilityHandler)
		api.POST("/availability", a.SetAvailabilityHandler)

		api.GET("/meeting-settings", a.GetSettingsHandler)
		api.POST("/meeting-settings", a.SaveSettingsHandler)

		api.GET("/meeting-types", a.ListMeetingTypesHandler)
		api.POST("/meeting-types", a.CreateMeetingTypeHandler)
		api.PUT("/meeting-types/:id", a.UpdateMeetingTypeHandler)
		api.DELETE("/meeting-types/:id", a.DeleteMeetingTypeHandler)

		api.GET("/bookings", a.ListBookingsHandler)

		api.GET("/auth/google", a.GoogleAuthHandler)
		api.GET("/auth/google/status", a.GoogleStatusHandler)
		api.DELETE("/auth/google", a.GoogleDisconnectHandler)

		api.GET("/calendar/events", a.GetCalendarEventsHandler)
	}

	return router
}
