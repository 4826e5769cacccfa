package scheduling

import (
	"context"
	"fmt"
	"strings"

	"meeting-scheduler/internal/availability"
	"meeting-scheduler/internal/model"
)

type newOrganizer struct {
	Username string `json:"username" validate:"required,min=3,max=50,slug"`
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=100"`
}

func (e *Engine) CreateOrganizer(ctx context.Context, o model.Organizer) (model.Organizer, error) {
	o.Username = strings.ToLower(strings.TrimSpace(o.Username))
	o.Email = strings.TrimSpace(o.Email)
	o.Name = strings.TrimSpace(o.Name)
	if err := check(newOrganizer{Username: o.Username, Email: o.Email, Name: o.Name}); err != nil {
		return model.Organizer{}, err
	}
	if err := e.store.CreateOrganizer(ctx, &o); err != nil {
		return model.Organizer{}, storeErr("organizer", err)
	}
	return o, nil
}

func (e *Engine) Organizer(ctx context.Context, id int64) (model.Organizer, error) {
	o, err := e.store.GetOrganizer(ctx, id)
	return o, storeErr("organizer", err)
}

func (e *Engine) OrganizerByUsername(ctx context.Context, username string) (model.Organizer, error) {
	o, err := e.store.GetOrganizerByUsername(ctx, strings.ToLower(username))
	return o, storeErr("organizer", err)
}

func (e *Engine) Availability(ctx context.Context, organizerID int64) ([]model.AvailabilityRule, error) {
	rules, err := e.store.ListRules(ctx, organizerID)
	return rules, storeErr("availability", err)
}

// ReplaceAvailability swaps the organizer's whole rule set. Either every rule
// is valid and stored, or nothing changes.
func (e *Engine) ReplaceAvailability(ctx context.Context, organizerID int64, rules []model.AvailabilityRule) error {
	if _, err := e.store.GetOrganizer(ctx, organizerID); err != nil {
		return storeErr("organizer", err)
	}
	verr := &ValidationError{Fields: map[string]string{}}
	for i, r := range rules {
		for field, msg := range availability.ValidateRule(r) {
			verr.Fields[fmt.Sprintf("rules[%d].%s", i, field)] = msg
		}
	}
	if len(verr.Fields) > 0 {
		return verr
	}
	return storeErr("availability", e.store.ReplaceRules(ctx, organizerID, rules))
}

// Settings returns the organizer's meeting settings; ErrNotFound when none
// were saved yet.
func (e *Engine) Settings(ctx context.Context, organizerID int64) (model.MeetingSettings, error) {
	st, err := e.store.GetSettings(ctx, organizerID)
	return st, storeErr("meeting settings", err)
}

func (e *Engine) SaveSettings(ctx context.Context, st model.MeetingSettings) error {
	if err := check(st); err != nil {
		return err
	}
	if _, err := e.store.GetOrganizer(ctx, st.OrganizerID); err != nil {
		return storeErr("organizer", err)
	}
	return storeErr("meeting settings", e.store.UpsertSettings(ctx, st))
}

func (e *Engine) MeetingTypes(ctx context.Context, organizerID int64) ([]model.MeetingType, error) {
	mts, err := e.store.ListMeetingTypes(ctx, organizerID)
	return mts, storeErr("meeting types", err)
}

func (e *Engine) MeetingType(ctx context.Context, organizerID int64, slug string) (model.MeetingType, error) {
	mt, err := e.store.GetMeetingTypeBySlug(ctx, organizerID, strings.ToLower(slug))
	return mt, storeErr("meeting type", err)
}

// SaveMeetingType creates mt when its ID is zero and updates it otherwise.
// Marking a type as default clears the flag on the organizer's other types.
func (e *Engine) SaveMeetingType(ctx context.Context, mt model.MeetingType) (model.MeetingType, error) {
	mt.Name = strings.TrimSpace(mt.Name)
	mt.Slug = strings.ToLower(strings.TrimSpace(mt.Slug))
	if err := check(mt); err != nil {
		return model.MeetingType{}, err
	}
	if _, err := e.store.GetOrganizer(ctx, mt.OrganizerID); err != nil {
		return model.MeetingType{}, storeErr("organizer", err)
	}
	if err := e.store.SaveMeetingType(ctx, &mt); err != nil {
		return model.MeetingType{}, storeErr("meeting type", err)
	}
	return mt, nil
}

func (e *Engine) DeleteMeetingType(ctx context.Context, organizerID, id int64) error {
	return storeErr("meeting type", e.store.DeleteMeetingType(ctx, organizerID, id))
}

func (e *Engine) Bookings(ctx context.Context, organizerID int64) ([]model.Booking, error) {
	bs, err := e.store.ListOrganizerBookings(ctx, organizerID)
	return bs, storeErr("bookings", err)
}

// AttachExternalEvent records the calendar event created for a booking.
func (e *Engine) AttachExternalEvent(ctx context.Context, bookingID int64, eventID, link string) error {
	return storeErr("booking", e.store.AttachExternalEvent(ctx, bookingID, eventID, link))
}
