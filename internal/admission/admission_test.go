package admission

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
)

type fakeDirectory struct {
	byID    map[uint]*models.Event
	byToken map[string]*models.Event
}

func (f *fakeDirectory) FindByID(_ context.Context, id uint) (*models.Event, error) {
	return f.byID[id], nil
}

func (f *fakeDirectory) FindByAdminToken(_ context.Context, token string) (*models.Event, error) {
	return f.byToken[token], nil
}

type fakeLedger struct {
	rows    []*models.Attendee
	upserts int
}

func (f *fakeLedger) SumAttendingPartySize(_ context.Context, eventID uint) (int64, error) {
	var total int64
	for _, row := range f.rows {
		if row.EventID == eventID {
			total += int64(row.PartySize())
		}
	}
	return total, nil
}

func (f *fakeLedger) FindByIdentity(_ context.Context, eventID uint, email, firstName, lastName string) (*models.Attendee, error) {
	for _, row := range f.rows {
		if row.EventID != eventID {
			continue
		}
		if email != "" && row.Email != "" && strings.EqualFold(row.Email, email) {
			return row, nil
		}
		if firstName != "" && lastName != "" &&
			strings.EqualFold(row.FirstName, firstName) && strings.EqualFold(row.LastName, lastName) {
			return row, nil
		}
	}
	return nil, nil
}

func (f *fakeLedger) Upsert(ctx context.Context, attendee *models.Attendee) (*models.Attendee, error) {
	f.upserts++
	if attendee.ID == 0 {
		existing, _ := f.FindByIdentity(ctx, attendee.EventID, attendee.Email, attendee.FirstName, attendee.LastName)
		if existing != nil {
			attendee.ID = existing.ID
		}
	}
	for i, row := range f.rows {
		if row.ID == attendee.ID && attendee.ID != 0 {
			f.rows[i] = attendee
			return attendee, nil
		}
	}
	attendee.ID = uint(len(f.rows) + 1)
	f.rows = append(f.rows, attendee)
	return attendee, nil
}

type fakeTiers struct {
	capacity TierCapacity
}

func (f *fakeTiers) Resolve(context.Context, *uint) TierCapacity {
	return f.capacity
}

type overflowCall struct {
	itemRef  string
	quantity int
}

type fakeBiller struct {
	err   error
	calls []overflowCall
}

func (f *fakeBiller) RecordOverflow(_ context.Context, itemRef string, quantity int) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, overflowCall{itemRef: itemRef, quantity: quantity})
	return nil
}

func freeTier() *fakeTiers {
	return &fakeTiers{capacity: TierCapacity{GuestLimit: models.FreeTierGuestLimit}}
}

func meteredTier(limit int) *fakeTiers {
	return &fakeTiers{capacity: TierCapacity{
		GuestLimit:               limit,
		OverflowBillingAvailable: true,
		MeteredItemRef:           "si_test",
	}}
}

func newTestController(event *models.Event, ledger *fakeLedger, tiers TierResolver, biller OverflowBiller) *Controller {
	dir := &fakeDirectory{
		byID:    map[uint]*models.Event{},
		byToken: map[string]*models.Event{},
	}
	if event != nil {
		dir.byID[event.ID] = event
		if event.AdminToken != "" {
			dir.byToken[event.AdminToken] = event
		}
	}
	if tiers == nil {
		tiers = freeTier()
	}
	if biller == nil {
		biller = &fakeBiller{}
	}
	return NewController(dir, ledger, tiers, biller, nil)
}

func attendingRow(eventID uint, first, last, email string, guests int) *models.Attendee {
	return &models.Attendee{
		EventID:    eventID,
		FirstName:  first,
		LastName:   last,
		Email:      email,
		Attending:  true,
		GuestCount: guests,
	}
}

func TestOpenEventAcceptsSubmission(t *testing.T) {
	event := &models.Event{ID: 1, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{}
	ctrl := newTestController(event, ledger, nil, nil)

	decision, err := ctrl.Admit(context.Background(), "1", Submission{
		FirstName:  "Ana",
		LastName:   "Lee",
		Attending:  true,
		GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Outcome != OutcomeAccepted {
		t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
	}
	if decision.Attendee == nil || decision.Attendee.PartySize() != 3 {
		t.Fatalf("expected persisted party size 3, got %+v", decision.Attendee)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("expected one persisted row, got %d", len(ledger.rows))
	}
}

func TestEventNotFound(t *testing.T) {
	ctrl := newTestController(nil, &fakeLedger{}, nil, nil)

	decision, err := ctrl.Admit(context.Background(), "42", Submission{FirstName: "A", LastName: "B", Attending: true})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Reason != ReasonNotFound {
		t.Fatalf("expected not_found, got %s", decision.Reason)
	}
}

func TestAdminTokenFallback(t *testing.T) {
	event := &models.Event{ID: 7, AdminToken: "tok123", AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ctrl := newTestController(event, &fakeLedger{}, nil, nil)

	// Non-numeric ref goes straight to the token lookup.
	decision, err := ctrl.Admit(context.Background(), "tok123", Submission{FirstName: "A", LastName: "B", Attending: true})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if !decision.Accepted() {
		t.Fatalf("expected accepted via admin token, got %s (%s)", decision.Outcome, decision.Reason)
	}

	// A numeric ref that misses the primary key also falls back to the token.
	event.AdminToken = "99"
	ctrl = newTestController(event, &fakeLedger{}, nil, nil)
	decision, err = ctrl.Admit(context.Background(), "99", Submission{FirstName: "A", LastName: "B", Attending: true})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if !decision.Accepted() {
		t.Fatalf("expected accepted via numeric admin token, got %s (%s)", decision.Outcome, decision.Reason)
	}
}

func TestCodeEvent(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		submitted  string
		wantReason RejectReason
	}{
		{"exact match", "VIP2024", "VIP2024", ""},
		{"case insensitive", "VIP2024", "vip2024", ""},
		{"trims whitespace", "VIP2024", "  vip2024  ", ""},
		{"wrong code", "VIP2024", "VIP2025", ReasonInvalidCode},
		{"empty submission", "VIP2024", "", ReasonInvalidCode},
		{"empty configured code rejects everything", "", "", ReasonInvalidCode},
		{"empty configured code rejects non-empty too", "", "anything", ReasonInvalidCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := &models.Event{ID: 2, AuthMode: models.AuthModeCode, PromoCode: tt.configured, AllowPlusGuests: true, OpenInvite: true}
			ctrl := newTestController(event, &fakeLedger{}, nil, nil)

			decision, err := ctrl.Admit(context.Background(), "2", Submission{
				FirstName: "Guest",
				LastName:  "One",
				Attending: true,
				PromoCode: tt.submitted,
			})
			if err != nil {
				t.Fatalf("Admit returned error: %v", err)
			}
			if tt.wantReason == "" {
				if !decision.Accepted() {
					t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
				}
			} else if decision.Reason != tt.wantReason {
				t.Fatalf("expected %s, got %s", tt.wantReason, decision.Reason)
			}
		})
	}
}

func TestGuestListEvent(t *testing.T) {
	newEvent := func() *models.Event {
		return &models.Event{ID: 3, AuthMode: models.AuthModeGuestList, AllowPlusGuests: true, OpenInvite: true}
	}

	t.Run("email match overrides name mismatch", func(t *testing.T) {
		ledger := &fakeLedger{rows: []*models.Attendee{
			{ID: 1, EventID: 3, FirstName: "Alice", LastName: "Smith", Email: "a@x.com"},
		}}
		ctrl := newTestController(newEvent(), ledger, nil, nil)

		decision, err := ctrl.Admit(context.Background(), "3", Submission{
			FirstName: "Different",
			LastName:  "Name",
			Email:     "a@x.com",
			Attending: true,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if !decision.Accepted() {
			t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
		}
		if len(ledger.rows) != 1 {
			t.Fatalf("expected the matched row to be updated, got %d rows", len(ledger.rows))
		}
	})

	t.Run("name match without email", func(t *testing.T) {
		ledger := &fakeLedger{rows: []*models.Attendee{
			{ID: 1, EventID: 3, FirstName: "Bob", LastName: "Jones"},
		}}
		ctrl := newTestController(newEvent(), ledger, nil, nil)

		decision, err := ctrl.Admit(context.Background(), "3", Submission{
			FirstName: "bob",
			LastName:  "JONES",
			Attending: true,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if !decision.Accepted() {
			t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
		}
	})

	t.Run("no match", func(t *testing.T) {
		ledger := &fakeLedger{rows: []*models.Attendee{
			{ID: 1, EventID: 3, FirstName: "Bob", LastName: "Jones"},
		}}
		ctrl := newTestController(newEvent(), ledger, nil, nil)

		decision, err := ctrl.Admit(context.Background(), "3", Submission{
			FirstName: "Carol",
			LastName:  "White",
			Attending: true,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Reason != ReasonNotOnGuestList {
			t.Fatalf("expected not_on_guest_list, got %s", decision.Reason)
		}
		if len(ledger.rows) != 1 {
			t.Fatal("rejection must not create rows")
		}
	})

	t.Run("missing identity", func(t *testing.T) {
		ctrl := newTestController(newEvent(), &fakeLedger{}, nil, nil)

		decision, err := ctrl.Admit(context.Background(), "3", Submission{
			FirstName: "OnlyFirst",
			Attending: true,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Reason != ReasonMissingIdentity {
			t.Fatalf("expected missing_identity, got %s", decision.Reason)
		}
	})

	t.Run("legacy open_invite false normalizes to guest list", func(t *testing.T) {
		event := &models.Event{ID: 3, OpenInvite: false, AllowPlusGuests: true}
		ctrl := newTestController(event, &fakeLedger{}, nil, nil)

		decision, err := ctrl.Admit(context.Background(), "3", Submission{
			FirstName: "Not",
			LastName:  "Invited",
			Attending: true,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Reason != ReasonNotOnGuestList {
			t.Fatalf("expected not_on_guest_list, got %s", decision.Reason)
		}
	})
}

func TestCapacityBoundary(t *testing.T) {
	// limit=10, current=8: a party of 2 fits, a party of 3 does not.
	newLedger := func() *fakeLedger {
		return &fakeLedger{rows: []*models.Attendee{
			attendingRow(4, "Early", "Bird", "", 4),  // party of 5
			attendingRow(4, "Second", "Guest", "", 2), // party of 3
		}}
	}
	event := &models.Event{ID: 4, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}

	t.Run("party of two fits", func(t *testing.T) {
		ctrl := newTestController(event, newLedger(), &fakeTiers{capacity: TierCapacity{GuestLimit: 10}}, nil)
		decision, err := ctrl.Admit(context.Background(), "4", Submission{
			FirstName: "New", LastName: "Guest", Attending: true, GuestCount: 1,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Outcome != OutcomeAccepted {
			t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
		}
	})

	t.Run("party of three rejected on free tier", func(t *testing.T) {
		ctrl := newTestController(event, newLedger(), &fakeTiers{capacity: TierCapacity{GuestLimit: 10}}, nil)
		decision, err := ctrl.Admit(context.Background(), "4", Submission{
			FirstName: "New", LastName: "Guest", Attending: true, GuestCount: 2,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Reason != ReasonAtCapacity {
			t.Fatalf("expected at_capacity, got %s (%s)", decision.Outcome, decision.Reason)
		}
		if decision.GuestLimit != 10 || decision.CurrentPartySize != 8 {
			t.Fatalf("expected limit=10 current=8, got limit=%d current=%d",
				decision.GuestLimit, decision.CurrentPartySize)
		}
	})

	t.Run("party of three overflows on metered tier", func(t *testing.T) {
		biller := &fakeBiller{}
		ctrl := newTestController(event, newLedger(), meteredTier(10), biller)
		decision, err := ctrl.Admit(context.Background(), "4", Submission{
			FirstName: "New", LastName: "Guest", Attending: true, GuestCount: 2,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if decision.Outcome != OutcomeAcceptedWithOverflow {
			t.Fatalf("expected accepted_with_overflow, got %s (%s)", decision.Outcome, decision.Reason)
		}
		if decision.OverflowGuests != 1 {
			t.Fatalf("expected overflow of 1, got %d", decision.OverflowGuests)
		}
		if len(biller.calls) != 1 || biller.calls[0].quantity != 1 || biller.calls[0].itemRef != "si_test" {
			t.Fatalf("expected one usage record of 1 against si_test, got %+v", biller.calls)
		}
	})

	t.Run("declining consumes no capacity", func(t *testing.T) {
		ledger := newLedger()
		ledger.rows = append(ledger.rows, attendingRow(4, "Third", "Party", "", 1)) // now at 10/10
		ctrl := newTestController(event, ledger, &fakeTiers{capacity: TierCapacity{GuestLimit: 10}}, nil)
		decision, err := ctrl.Admit(context.Background(), "4", Submission{
			FirstName: "Sorry", LastName: "NoShow", Attending: false, GuestCount: 3,
		})
		if err != nil {
			t.Fatalf("Admit returned error: %v", err)
		}
		if !decision.Accepted() {
			t.Fatalf("expected declined RSVP to be accepted, got %s (%s)", decision.Outcome, decision.Reason)
		}
	})
}

func TestBillingFailureFallsBackToAtCapacity(t *testing.T) {
	event := &models.Event{ID: 5, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{rows: []*models.Attendee{attendingRow(5, "Full", "House", "", 9)}} // 10/10
	biller := &fakeBiller{err: errors.New("stripe unavailable")}
	ctrl := newTestController(event, ledger, meteredTier(10), biller)

	decision, err := ctrl.Admit(context.Background(), "5", Submission{
		FirstName: "Over", LastName: "Flow", Attending: true,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Reason != ReasonAtCapacity {
		t.Fatalf("billing failure must reject at capacity, got %s (%s)", decision.Outcome, decision.Reason)
	}
	if ledger.upserts != 0 {
		t.Fatal("billing failure must not persist the attendee")
	}
}

func TestCapacityCheckedBeforeAuthMode(t *testing.T) {
	// Over capacity AND wrong code: the capacity reason wins.
	event := &models.Event{ID: 6, AuthMode: models.AuthModeCode, PromoCode: "SECRET", AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{rows: []*models.Attendee{attendingRow(6, "Full", "House", "", 9)}}
	ctrl := newTestController(event, ledger, &fakeTiers{capacity: TierCapacity{GuestLimit: 10}}, nil)

	decision, err := ctrl.Admit(context.Background(), "6", Submission{
		FirstName: "Late", LastName: "Guest", Attending: true, PromoCode: "wrong",
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Reason != ReasonAtCapacity {
		t.Fatalf("expected at_capacity before invalid_code, got %s", decision.Reason)
	}
}

func TestNegativeGuestCountNormalized(t *testing.T) {
	event := &models.Event{ID: 8, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{}
	ctrl := newTestController(event, ledger, nil, nil)

	decision, err := ctrl.Admit(context.Background(), "8", Submission{
		FirstName: "Neg", LastName: "Guest", Attending: true, GuestCount: -5,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if !decision.Accepted() {
		t.Fatalf("negative guest count must not be rejected, got %s (%s)", decision.Outcome, decision.Reason)
	}
	if decision.Attendee.GuestCount != 0 {
		t.Fatalf("expected guest count clamped to 0, got %d", decision.Attendee.GuestCount)
	}
}

func TestPlusGuestsDisabledClampsParty(t *testing.T) {
	event := &models.Event{ID: 9, AuthMode: models.AuthModeOpen, AllowPlusGuests: false, OpenInvite: true}
	ledger := &fakeLedger{}
	ctrl := newTestController(event, ledger, nil, nil)

	decision, err := ctrl.Admit(context.Background(), "9", Submission{
		FirstName: "Solo", LastName: "Guest", Attending: true, GuestCount: 4,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Attendee.GuestCount != 0 {
		t.Fatalf("expected plus guests stripped, got %d", decision.Attendee.GuestCount)
	}
}

func TestIdempotentResubmission(t *testing.T) {
	event := &models.Event{ID: 10, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{}
	ctrl := newTestController(event, ledger, nil, nil)

	first := Submission{FirstName: "Dana", LastName: "Kim", Email: "dana@x.com", Attending: true, GuestCount: 4}
	if _, err := ctrl.Admit(context.Background(), "10", first); err != nil {
		t.Fatalf("first Admit returned error: %v", err)
	}

	second := first
	second.GuestCount = 1
	decision, err := ctrl.Admit(context.Background(), "10", second)
	if err != nil {
		t.Fatalf("second Admit returned error: %v", err)
	}
	if !decision.Accepted() {
		t.Fatalf("expected accepted, got %s (%s)", decision.Outcome, decision.Reason)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("resubmission must not duplicate rows, got %d", len(ledger.rows))
	}
	if got := ledger.rows[0].GuestCount; got != 1 {
		t.Fatalf("expected second submission's guest count to win, got %d", got)
	}
}

func TestResubmissionNetsPriorContribution(t *testing.T) {
	// Others hold 7, the resubmitting guest holds 3: the event sits at 10/10.
	event := &models.Event{ID: 11, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{rows: []*models.Attendee{
		attendingRow(11, "Other", "Party", "", 6),
		attendingRow(11, "Edit", "Me", "edit@x.com", 2),
	}}
	ledger.rows[0].ID = 1
	ledger.rows[1].ID = 2
	ctrl := newTestController(event, ledger, &fakeTiers{capacity: TierCapacity{GuestLimit: 10}}, nil)

	// Re-sending the same party of 3 must not self-block.
	decision, err := ctrl.Admit(context.Background(), "11", Submission{
		FirstName: "Edit", LastName: "Me", Email: "edit@x.com", Attending: true, GuestCount: 2,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if !decision.Accepted() {
		t.Fatalf("resubmission at the boundary must not self-block, got %s (%s)", decision.Outcome, decision.Reason)
	}

	// Growing the party past the limit is still rejected.
	decision, err = ctrl.Admit(context.Background(), "11", Submission{
		FirstName: "Edit", LastName: "Me", Email: "edit@x.com", Attending: true, GuestCount: 3,
	})
	if err != nil {
		t.Fatalf("Admit returned error: %v", err)
	}
	if decision.Reason != ReasonAtCapacity {
		t.Fatalf("expected at_capacity for grown party, got %s (%s)", decision.Outcome, decision.Reason)
	}
}

func TestContactFieldsPreservedOnResubmission(t *testing.T) {
	event := &models.Event{ID: 12, AuthMode: models.AuthModeOpen, AllowPlusGuests: true, OpenInvite: true}
	ledger := &fakeLedger{}
	ctrl := newTestController(event, ledger, nil, nil)

	if _, err := ctrl.Admit(context.Background(), "12", Submission{
		FirstName: "Pat", LastName: "Roe", Email: "pat@x.com", Phone: "555-0100", Attending: true,
	}); err != nil {
		t.Fatalf("first Admit returned error: %v", err)
	}

	// Resubmission without contact details keeps the stored ones.
	decision, err := ctrl.Admit(context.Background(), "12", Submission{
		FirstName: "Pat", LastName: "Roe", Attending: false,
	})
	if err != nil {
		t.Fatalf("second Admit returned error: %v", err)
	}
	row := decision.Attendee
	if row.Email != "pat@x.com" || row.Phone != "555-0100" {
		t.Fatalf("expected contact fields preserved, got email=%q phone=%q", row.Email, row.Phone)
	}
	if row.Attending {
		t.Fatal("expected attending flag replaced by the second submission")
	}
}
