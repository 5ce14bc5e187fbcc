package admission

import (
	"fmt"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
)

type Outcome string

const (
	OutcomeAccepted             Outcome = "accepted"
	OutcomeAcceptedWithOverflow Outcome = "accepted_with_overflow"
	OutcomeRejected             Outcome = "rejected"
)

// RejectReason enumerates the expected business outcomes that turn a
// submission away. These are decision values, not errors: only infrastructure
// failures (unreachable database, failed queries) surface as error returns.
type RejectReason string

const (
	ReasonNotFound        RejectReason = "not_found"
	ReasonInvalidCode     RejectReason = "invalid_code"
	ReasonNotOnGuestList  RejectReason = "not_on_guest_list"
	ReasonMissingIdentity RejectReason = "missing_identity"
	ReasonAtCapacity      RejectReason = "at_capacity"
)

type Decision struct {
	Outcome Outcome      `json:"outcome"`
	Reason  RejectReason `json:"reason,omitempty"`

	// Capacity detail, populated for at_capacity rejections so the caller can
	// explain the shortfall.
	GuestLimit       int `json:"guest_limit,omitempty"`
	CurrentPartySize int `json:"current_party_size,omitempty"`

	// Guests admitted beyond the tier limit, metered against the owner's
	// subscription. Only set for accepted_with_overflow.
	OverflowGuests int `json:"overflow_guests,omitempty"`

	// The persisted row. Nil on rejection.
	Attendee *models.Attendee `json:"attendee,omitempty"`
}

func (d Decision) Accepted() bool {
	return d.Outcome == OutcomeAccepted || d.Outcome == OutcomeAcceptedWithOverflow
}

// Message is the human-readable explanation shown to the guest.
func (d Decision) Message() string {
	switch d.Outcome {
	case OutcomeAccepted:
		return "RSVP recorded"
	case OutcomeAcceptedWithOverflow:
		return "RSVP recorded"
	}

	switch d.Reason {
	case ReasonNotFound:
		return "Event not found"
	case ReasonInvalidCode:
		return "Invalid invitation code"
	case ReasonNotOnGuestList:
		return "You are not on the guest list for this event"
	case ReasonMissingIdentity:
		return "Please provide your name or email address"
	case ReasonAtCapacity:
		return fmt.Sprintf("This event is at capacity (%d of %d spots taken)",
			d.CurrentPartySize, d.GuestLimit)
	}
	return "RSVP could not be processed"
}

func rejected(reason RejectReason) Decision {
	return Decision{Outcome: OutcomeRejected, Reason: reason}
}
