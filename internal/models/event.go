package models

import (
	"time"
)

// Per-event gating strategy for inbound RSVPs.
type AuthMode string

const (
	AuthModeOpen      AuthMode = "open"
	AuthModeCode      AuthMode = "code"
	AuthModeGuestList AuthMode = "guest_list"
)

type Event struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	UserID          *uint     `json:"user_id" gorm:"index"` // nil for legacy/anonymous events
	Title           string    `json:"title" gorm:"not null"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"starts_at"`
	URL             string    `json:"url" gorm:"unique;not null"`
	AdminToken      string    `json:"-" gorm:"unique;not null"`
	AuthMode        AuthMode  `json:"auth_mode" gorm:"type:varchar(16);default:'open'"`
	PromoCode       string    `json:"-" gorm:"type:varchar(64)"`
	AllowPlusGuests bool      `json:"allow_plus_guests" gorm:"default:true"`
	OpenInvite      bool      `json:"open_invite" gorm:"default:true"` // legacy column, pre auth_mode
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NormalizedAuthMode folds the legacy open_invite column into the auth_mode
// enum: events created before auth_mode existed carry open_invite=false to
// mean "guest list only".
func (e *Event) NormalizedAuthMode() AuthMode {
	switch e.AuthMode {
	case AuthModeOpen, AuthModeCode, AuthModeGuestList:
		return e.AuthMode
	}
	if !e.OpenInvite {
		return AuthModeGuestList
	}
	return AuthModeOpen
}

type EventRequest struct {
	Title           string    `json:"title" validate:"required"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"starts_at"`
	AuthMode        AuthMode  `json:"auth_mode" validate:"omitempty,auth_mode"`
	PromoCode       string    `json:"promo_code"`
	AllowPlusGuests bool      `json:"allow_plus_guests"`
}

type UpdateEventRequest struct {
	Title           *string    `json:"title"`
	Description     *string    `json:"description"`
	Location        *string    `json:"location"`
	StartsAt        *time.Time `json:"starts_at"`
	AuthMode        *AuthMode  `json:"auth_mode" validate:"omitempty,auth_mode"`
	PromoCode       *string    `json:"promo_code"`
	AllowPlusGuests *bool      `json:"allow_plus_guests"`
}

type EventResponse struct {
	ID              uint      `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Location        string    `json:"location"`
	StartsAt        time.Time `json:"starts_at"`
	URL             string    `json:"url"`
	AuthMode        AuthMode  `json:"auth_mode"`
	AllowPlusGuests bool      `json:"allow_plus_guests"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// EventStats summarizes responses for an organizer's dashboard.
type EventStats struct {
	AttendingPartySize int64 `json:"attending_party_size"`
	AttendingCount     int64 `json:"attending_count"`
	DeclinedCount      int64 `json:"declined_count"`
	GuestLimit         int   `json:"guest_limit"`
}

func (e *Event) ToResponse() EventResponse {
	return EventResponse{
		ID:              e.ID,
		Title:           e.Title,
		Description:     e.Description,
		Location:        e.Location,
		StartsAt:        e.StartsAt,
		URL:             e.URL,
		AuthMode:        e.NormalizedAuthMode(),
		AllowPlusGuests: e.AllowPlusGuests,
		CreatedAt:       e.CreatedAt,
		UpdatedAt:       e.UpdatedAt,
	}
}
