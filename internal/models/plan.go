package models

import "time"

// FreeTierGuestLimit is the party-size capacity granted to events whose owner
// has no resolvable paid tier (and to ownerless legacy events). Tier
// resolution fails closed to this value.
const FreeTierGuestLimit = 50

type Plan struct {
	ID              uint      `json:"id" gorm:"primaryKey"`
	Code            string    `json:"code" gorm:"unique;not null"`
	Name            string    `json:"name" gorm:"not null"`
	Description     string    `json:"description"`
	GuestLimit      int       `json:"guest_limit" gorm:"not null"`
	Price           float64   `json:"price" gorm:"not null"`
	StripePriceID   string    `json:"-"`
	OverflowBilling bool      `json:"overflow_billing" gorm:"default:false"`
	IsActive        bool      `json:"is_active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
)

// UserSubscription tracks one organizer's current tier. GuestLimit and
// OverflowBilling are denormalized from the plan at purchase time so a later
// plan edit does not retroactively change what was sold.
type UserSubscription struct {
	ID                   uint      `json:"id" gorm:"primaryKey"`
	UserID               uint      `json:"user_id" gorm:"index;not null"`
	PlanID               uint      `json:"plan_id" gorm:"not null"`
	GuestLimit           int       `json:"guest_limit" gorm:"not null"`
	OverflowBilling      bool      `json:"overflow_billing" gorm:"default:false"`
	StripeSubscriptionID string    `json:"-" gorm:"unique;not null"`
	StripeMeteredItemID  string    `json:"-"`
	Status               string    `json:"status" gorm:"not null;default:'active'"`
	CurrentPeriodEnd     time.Time `json:"current_period_end"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type CreateCheckoutSessionRequest struct {
	PlanCode string `json:"plan_code" validate:"required"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
