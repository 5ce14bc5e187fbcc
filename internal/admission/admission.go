// Package admission decides whether a guest's RSVP submission is accepted,
// rejected, or accepted with a metered overflow charge. It is pure decision
// logic over four injected collaborators; all I/O lives behind the
// interfaces so the decision table can be tested without a database.
package admission

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
)

// EventDirectory resolves event references. Implementations return (nil, nil)
// on a miss; errors are reserved for infrastructure failures.
type EventDirectory interface {
	FindByID(ctx context.Context, id uint) (*models.Event, error)
	FindByAdminToken(ctx context.Context, token string) (*models.Event, error)
}

// AttendeeLedger is the store of guest responses for an event.
type AttendeeLedger interface {
	// SumAttendingPartySize returns the total capacity consumed by attending
	// rows: sum of 1+guest_count over rows with attending=true.
	SumAttendingPartySize(ctx context.Context, eventID uint) (int64, error)

	// FindByIdentity matches an existing row by email equality or by
	// case-insensitive (first, last) name pair. Returns (nil, nil) on a miss.
	FindByIdentity(ctx context.Context, eventID uint, email, firstName, lastName string) (*models.Attendee, error)

	// Upsert writes the row for its identity key, replacing a prior response
	// rather than adding a second row.
	Upsert(ctx context.Context, attendee *models.Attendee) (*models.Attendee, error)
}

// TierCapacity is the guest capacity resolved from the event owner's
// subscription tier at request time.
type TierCapacity struct {
	GuestLimit               int
	OverflowBillingAvailable bool
	MeteredItemRef           string
}

// TierResolver maps an event owner to their tier capacity. Implementations
// never fail open: any resolution problem yields the free tier.
type TierResolver interface {
	Resolve(ctx context.Context, ownerID *uint) TierCapacity
}

// OverflowBiller records metered usage for guests admitted beyond the tier
// limit.
type OverflowBiller interface {
	RecordOverflow(ctx context.Context, meteredItemRef string, quantity int) error
}

// Submission is one guest's response, decoupled from the HTTP request body.
type Submission struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Address    string
	Attending  bool
	GuestCount int
	PromoCode  string
}

type Controller struct {
	events  EventDirectory
	ledger  AttendeeLedger
	tiers   TierResolver
	billing OverflowBiller
	logger  *zap.Logger
}

func NewController(events EventDirectory, ledger AttendeeLedger, tiers TierResolver, billing OverflowBiller, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		events:  events,
		ledger:  ledger,
		tiers:   tiers,
		billing: billing,
		logger:  logger,
	}
}

// Admit runs the admission decision for one submission. The returned error is
// non-nil only for infrastructure failures; every business outcome, including
// all rejections, is carried in the Decision.
//
// The capacity gate runs before the auth-mode gate, so a submission that is
// both over capacity and missing a valid code is rejected for capacity.
// Existing clients depend on that reason.
func (c *Controller) Admit(ctx context.Context, eventRef string, sub Submission) (Decision, error) {
	event, err := c.resolveEvent(ctx, eventRef)
	if err != nil {
		return Decision{}, err
	}
	if event == nil {
		return rejected(ReasonNotFound), nil
	}

	sub.FirstName = strings.TrimSpace(sub.FirstName)
	sub.LastName = strings.TrimSpace(sub.LastName)
	sub.Email = strings.TrimSpace(sub.Email)
	if sub.GuestCount < 0 {
		// Normalized, not a validation error.
		sub.GuestCount = 0
	}
	if !event.AllowPlusGuests {
		sub.GuestCount = 0
	}

	var prior *models.Attendee
	if sub.Email != "" || (sub.FirstName != "" && sub.LastName != "") {
		prior, err = c.ledger.FindByIdentity(ctx, event.ID, sub.Email, sub.FirstName, sub.LastName)
		if err != nil {
			return Decision{}, err
		}
	}

	current, err := c.ledger.SumAttendingPartySize(ctx, event.ID)
	if err != nil {
		return Decision{}, err
	}
	// A resubmitting guest only competes for capacity beyond what their prior
	// response already holds.
	if prior != nil {
		current -= int64(prior.PartySize())
	}

	requested := 0
	if sub.Attending {
		requested = 1 + sub.GuestCount
	}

	capacity := c.tiers.Resolve(ctx, event.UserID)

	overflow := 0
	if int(current)+requested > capacity.GuestLimit {
		if !capacity.OverflowBillingAvailable || capacity.MeteredItemRef == "" {
			return atCapacity(capacity.GuestLimit, int(current)), nil
		}
		overflow = int(current) + requested - capacity.GuestLimit
	}

	switch event.NormalizedAuthMode() {
	case models.AuthModeOpen:
		// No further gate.
	case models.AuthModeCode:
		configured := strings.TrimSpace(event.PromoCode)
		if configured == "" || !strings.EqualFold(configured, strings.TrimSpace(sub.PromoCode)) {
			return rejected(ReasonInvalidCode), nil
		}
	case models.AuthModeGuestList:
		if sub.Email == "" && (sub.FirstName == "" || sub.LastName == "") {
			return rejected(ReasonMissingIdentity), nil
		}
		if prior == nil {
			return rejected(ReasonNotOnGuestList), nil
		}
	}

	// Usage is metered only once the guest has cleared every gate; a failed
	// usage record must never admit an unbilled guest.
	if overflow > 0 {
		if err := c.billing.RecordOverflow(ctx, capacity.MeteredItemRef, overflow); err != nil {
			c.logger.Warn("overflow usage record failed, rejecting at capacity",
				zap.Uint("event_id", event.ID),
				zap.Int("overflow", overflow),
				zap.Error(err))
			return atCapacity(capacity.GuestLimit, int(current)), nil
		}
	}

	row := buildRow(event.ID, prior, sub)
	persisted, err := c.ledger.Upsert(ctx, row)
	if err != nil {
		return Decision{}, err
	}

	decision := Decision{Outcome: OutcomeAccepted, Attendee: persisted}
	if overflow > 0 {
		decision.Outcome = OutcomeAcceptedWithOverflow
		decision.OverflowGuests = overflow
	}
	return decision, nil
}

// resolveEvent tries primary-key lookup first and falls back to the admin
// token: guest-facing and admin-facing links both land here in some paths.
func (c *Controller) resolveEvent(ctx context.Context, eventRef string) (*models.Event, error) {
	ref := strings.TrimSpace(eventRef)
	if ref == "" {
		return nil, nil
	}

	if id, err := strconv.ParseUint(ref, 10, 32); err == nil {
		event, err := c.events.FindByID(ctx, uint(id))
		if err != nil {
			return nil, err
		}
		if event != nil {
			return event, nil
		}
	}

	return c.events.FindByAdminToken(ctx, ref)
}

// buildRow merges the submission onto the guest's prior response. Contact
// fields are overwritten when the submission provides them and preserved
// otherwise.
func buildRow(eventID uint, prior *models.Attendee, sub Submission) *models.Attendee {
	row := &models.Attendee{EventID: eventID}
	if prior != nil {
		*row = *prior
	}

	if sub.FirstName != "" {
		row.FirstName = sub.FirstName
	}
	if sub.LastName != "" {
		row.LastName = sub.LastName
	}
	if sub.Email != "" {
		row.Email = sub.Email
	}
	if sub.Phone != "" {
		row.Phone = sub.Phone
	}
	if sub.Address != "" {
		row.Address = sub.Address
	}
	row.Attending = sub.Attending
	row.GuestCount = sub.GuestCount
	return row
}

func atCapacity(limit, current int) Decision {
	d := rejected(ReasonAtCapacity)
	d.GuestLimit = limit
	d.CurrentPartySize = current
	return d
}
