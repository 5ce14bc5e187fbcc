package models

import (
	"time"
)

type Attendee struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	EventID    uint      `json:"event_id" gorm:"index;not null"`
	FirstName  string    `json:"first_name" gorm:"not null"`
	LastName   string    `json:"last_name" gorm:"not null"`
	Email      string    `json:"email" gorm:"index"`
	Phone      string    `json:"phone"`
	Address    string    `json:"address"`
	Attending  bool      `json:"attending"`
	GuestCount int       `json:"guest_count" gorm:"default:0"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// PartySize is the capacity weight of this row: the attendee plus their
// declared guests, counted only when they are attending.
func (a *Attendee) PartySize() int {
	if !a.Attending {
		return 0
	}
	if a.GuestCount < 0 {
		return 1
	}
	return 1 + a.GuestCount
}

// RSVPRequest is the public submission body for POST /api/rsvp/:eventRef.
type RSVPRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email" validate:"omitempty,email"`
	Phone        string `json:"phone"`
	Address      string `json:"address"`
	Attending    bool   `json:"attending"`
	GuestCount   int    `json:"guest_count"`
	PromoCode    string `json:"promo_code"`
	CaptchaToken string `json:"captcha_token"`
}

// GuestListImportRequest pre-registers identities for guest_list events.
type GuestListImportRequest struct {
	Guests []GuestListEntry `json:"guests" validate:"required,min=1,dive"`
}

type GuestListEntry struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email" validate:"omitempty,email"`
}
