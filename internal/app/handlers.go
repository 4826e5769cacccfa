package app

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"meeting-scheduler/internal/model"
	"meeting-scheduler/internal/scheduling"
)

type organizerProfile struct {
	ID           int64               `json:"id"`
	Username     string              `json:"username"`
	Name         string              `json:"name"`
	MeetingTypes []model.MeetingType `json:"meeting_types"`
}

// GET /api/users/:username
func (a *App) GetOrganizerProfileHandler(c *gin.Context) {
	ctx := c.Request.Context()
	org, err := a.engine.OrganizerByUsername(ctx, c.Param("username"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	types, err := a.engine.MeetingTypes(ctx, org.ID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, organizerProfile{
		ID:           org.ID,
		Username:     org.Username,
		Name:         org.Name,
		MeetingTypes: nonNil(types),
	})
}

// POST /api/users
func (a *App) CreateOrganizerHandler(c *gin.Context) {
	var payload struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	org, err := a.engine.CreateOrganizer(c.Request.Context(), model.Organizer{
		Username: payload.Username,
		Email:    payload.Email,
		Name:     payload.Name,
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, org)
}

// GET /api/availability/slots?userId=&date=&duration=&slug=
func (a *App) GetSlotsHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	duration, ok := optionalInt(c, "duration")
	if !ok {
		return
	}
	date := c.Query("date")
	if date == "" {
		badField(c, "date", "is required")
		return
	}

	slots, err := a.engine.SlotsForDate(c.Request.Context(), scheduling.Query{
		OrganizerID: organizerID,
		Date:        date,
		Duration:    duration,
		MeetingSlug: c.Query("slug"),
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GET /api/availability/month?userId=&year=&month=&duration=&slug=
func (a *App) GetMonthHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	year, ok := optionalInt(c, "year")
	if !ok {
		return
	}
	month, ok := optionalInt(c, "month")
	if !ok {
		return
	}
	duration, ok := optionalInt(c, "duration")
	if !ok {
		return
	}

	days, err := a.engine.SlotsForMonth(c.Request.Context(), scheduling.MonthQuery{
		OrganizerID: organizerID,
		Year:        year,
		Month:       month,
		Duration:    duration,
		MeetingSlug: c.Query("slug"),
	})
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, days)
}

// POST /api/bookings
// The calendar event and notifications run after the booking is stored and
// never change the outcome.
func (a *App) CreateBookingHandler(c *gin.Context) {
	var req scheduling.ReserveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()

	booking, err := a.engine.Reserve(ctx, req)
	if err != nil {
		a.respondError(c, err)
		return
	}

	if a.followup != nil {
		org, err := a.engine.Organizer(ctx, booking.OrganizerID)
		if err != nil {
			a.logger.WarnContext(ctx, "booking follow-up skipped",
				"booking_id", booking.ID,
				"err", err,
			)
		} else {
			booking = a.followup.AfterBooking(ctx, org, booking)
		}
	}

	c.JSON(http.StatusCreated, booking)
}

// GET /api/bookings?userId=
func (a *App) ListBookingsHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	bookings, err := a.engine.Bookings(c.Request.Context(), organizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(bookings))
}

// GET /api/meeting-settings?userId=
func (a *App) GetSettingsHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	st, err := a.engine.Settings(c.Request.Context(), organizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// POST /api/meeting-settings
func (a *App) SaveSettingsHandler(c *gin.Context) {
	var st model.MeetingSettings
	if err := c.ShouldBindJSON(&st); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if st.OrganizerID <= 0 {
		badField(c, "user_id", "is required")
		return
	}
	if err := a.engine.SaveSettings(c.Request.Context(), st); err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// GET /api/meeting-types?userId=
func (a *App) ListMeetingTypesHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	types, err := a.engine.MeetingTypes(c.Request.Context(), organizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, nonNil(types))
}

// GET /api/meeting-types/:slug?userId=
func (a *App) GetMeetingTypeHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	mt, err := a.engine.MeetingType(c.Request.Context(), organizerID, c.Param("slug"))
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, mt)
}

// POST /api/meeting-types
func (a *App) CreateMeetingTypeHandler(c *gin.Context) {
	var mt model.MeetingType
	if err := c.ShouldBindJSON(&mt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if mt.OrganizerID <= 0 {
		badField(c, "user_id", "is required")
		return
	}
	mt.ID = 0
	saved, err := a.engine.SaveMeetingType(c.Request.Context(), mt)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

// PUT /api/meeting-types/:id
func (a *App) UpdateMeetingTypeHandler(c *gin.Context) {
	id, ok := int64Param(c, "id", c.Param("id"))
	if !ok {
		return
	}
	var mt model.MeetingType
	if err := c.ShouldBindJSON(&mt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if mt.OrganizerID <= 0 {
		badField(c, "user_id", "is required")
		return
	}
	mt.ID = id
	saved, err := a.engine.SaveMeetingType(c.Request.Context(), mt)
	if err != nil {
		a.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// DELETE /api/meeting-types/:id?userId=
func (a *App) DeleteMeetingTypeHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id", c.Param("id"))
	if !ok {
		return
	}
	if err := a.engine.DeleteMeetingType(c.Request.Context(), organizerID, id); err != nil {
		a.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ruleDTO is the wire form of an availability rule. day_of_week selects a
// weekly rule; start_date with end_date selects a date range.
type ruleDTO struct {
	ID        int64  `json:"id,omitempty"`
	DayOfWeek *int   `json:"day_of_week,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

var errMixedRule = errors.New("day_of_week cannot be combined with start_date or end_date")

func (r ruleDTO) toModel() (model.AvailabilityRule, error) {
	start, end := strings.TrimSpace(r.StartTime), strings.TrimSpace(r.EndTime)
	hasRange := r.StartDate != "" || r.EndDate != ""
	switch {
	case r.DayOfWeek != nil && hasRange:
		return model.AvailabilityRule{}, errMixedRule
	case r.DayOfWeek != nil:
		return model.WeekdayRule(time.Weekday(*r.DayOfWeek), start, end), nil
	case hasRange:
		return model.DateRangeRule(r.StartDate, r.EndDate, start, end), nil
	default:
		return model.AvailabilityRule{StartTime: start, EndTime: end}, nil
	}
}

func ruleFromModel(r model.AvailabilityRule) ruleDTO {
	out := ruleDTO{ID: r.ID, StartTime: r.StartTime, EndTime: r.EndTime}
	switch r.Kind {
	case model.RuleWeekday:
		wd := int(r.Weekday)
		out.DayOfWeek = &wd
	case model.RuleDateRange:
		out.StartDate, out.EndDate = r.StartDate, r.EndDate
	}
	return out
}

// GET /api/availability?userId=
func (a *App) ListAvailabilityHandler(c *gin.Context) {
	organizerID, ok := organizerQuery(c)
	if !ok {
		return
	}
	rules, err := a.engine.Availability(c.Request.Context(), organizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	out := make([]ruleDTO, 0, len(rules))
	for _, r := range rules {
		out = append(out, ruleFromModel(r))
	}
	c.JSON(http.StatusOK, out)
}

// POST /api/availability
// Replaces the organizer's whole rule set.
func (a *App) SetAvailabilityHandler(c *gin.Context) {
	var payload struct {
		OrganizerID int64     `json:"user_id"`
		Rules       []ruleDTO `json:"rules"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if payload.OrganizerID <= 0 {
		badField(c, "user_id", "is required")
		return
	}

	rules := make([]model.AvailabilityRule, 0, len(payload.Rules))
	for i, dto := range payload.Rules {
		r, err := dto.toModel()
		if err != nil {
			badField(c, fmt.Sprintf("rules[%d].day_of_week", i), err.Error())
			return
		}
		r.OrganizerID = payload.OrganizerID
		rules = append(rules, r)
	}

	ctx := c.Request.Context()
	if err := a.engine.ReplaceAvailability(ctx, payload.OrganizerID, rules); err != nil {
		a.respondError(c, err)
		return
	}
	saved, err := a.engine.Availability(ctx, payload.OrganizerID)
	if err != nil {
		a.respondError(c, err)
		return
	}
	out := make([]ruleDTO, 0, len(saved))
	for _, r := range saved {
		out = append(out, ruleFromModel(r))
	}
	c.JSON(http.StatusOK, out)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
