package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/admission"
	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/pkg/utils"
)

type stubAdmitter struct {
	decision admission.Decision
	eventRef string
	sub      admission.Submission
}

func (s *stubAdmitter) Admit(_ context.Context, eventRef string, sub admission.Submission) (admission.Decision, error) {
	s.eventRef = eventRef
	s.sub = sub
	return s.decision, nil
}

func newRSVPTestApp(t *testing.T, admitter Admitter) *fiber.App {
	t.Helper()
	t.Setenv("CF_TURNSTILE_SECRET_KEY", "")

	h := NewRSVPHandler(admitter, nil, nil, nil, utils.NewValidator(), zap.NewNop())
	app := fiber.New()
	app.Post("/api/rsvp/:eventRef", h.SubmitRSVP)
	return app
}

func postRSVP(t *testing.T, app *fiber.App, eventRef, body string) (int, models.Response) {
	t.Helper()

	req := httptest.NewRequest("POST", "/api/rsvp/"+eventRef, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var envelope models.Response
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("could not decode response body: %v", err)
	}
	return resp.StatusCode, envelope
}

func TestSubmitRSVPAccepted(t *testing.T) {
	admitter := &stubAdmitter{decision: admission.Decision{Outcome: admission.OutcomeAccepted}}
	app := newRSVPTestApp(t, admitter)

	status, envelope := postRSVP(t, app, "42",
		`{"first_name":"Ana","last_name":"Lee","attending":true,"guest_count":2,"promo_code":"VIP"}`)
	if status != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", status)
	}
	if !envelope.Success {
		t.Fatalf("expected success envelope, got %+v", envelope)
	}

	if admitter.eventRef != "42" {
		t.Errorf("expected event ref passed through, got %q", admitter.eventRef)
	}
	want := admission.Submission{FirstName: "Ana", LastName: "Lee", Attending: true, GuestCount: 2, PromoCode: "VIP"}
	if admitter.sub != want {
		t.Errorf("submission = %+v, want %+v", admitter.sub, want)
	}
}

func TestSubmitRSVPRejectionStatuses(t *testing.T) {
	tests := []struct {
		reason admission.RejectReason
		status int
	}{
		{admission.ReasonNotFound, fiber.StatusNotFound},
		{admission.ReasonMissingIdentity, fiber.StatusBadRequest},
		{admission.ReasonInvalidCode, fiber.StatusForbidden},
		{admission.ReasonNotOnGuestList, fiber.StatusForbidden},
		{admission.ReasonAtCapacity, fiber.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			admitter := &stubAdmitter{decision: admission.Decision{
				Outcome: admission.OutcomeRejected,
				Reason:  tt.reason,
			}}
			app := newRSVPTestApp(t, admitter)

			status, envelope := postRSVP(t, app, "1",
				`{"first_name":"A","last_name":"B","attending":true}`)
			if status != tt.status {
				t.Errorf("expected %d, got %d", tt.status, status)
			}
			if envelope.Success {
				t.Error("rejections must not report success")
			}
			if envelope.Error == "" {
				t.Error("rejections must carry a message")
			}
		})
	}
}

func TestSubmitRSVPInvalidEmail(t *testing.T) {
	admitter := &stubAdmitter{decision: admission.Decision{Outcome: admission.OutcomeAccepted}}
	app := newRSVPTestApp(t, admitter)

	status, _ := postRSVP(t, app, "1",
		`{"first_name":"A","last_name":"B","email":"not-an-email","attending":true}`)
	if status != fiber.StatusBadRequest {
		t.Fatalf("expected 400 for malformed email, got %d", status)
	}
	if admitter.eventRef != "" {
		t.Error("validation failure must not reach the admission controller")
	}
}
