package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/admission"
	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/internal/service"
	"github.com/owlrsvp/owlrsvp-backend/pkg/captcha"
	"github.com/owlrsvp/owlrsvp-backend/pkg/email"
	"github.com/owlrsvp/owlrsvp-backend/pkg/utils"
)

// Admitter is what the handler needs from the admission controller.
type Admitter interface {
	Admit(ctx context.Context, eventRef string, sub admission.Submission) (admission.Decision, error)
}

type RSVPHandler struct {
	admitter     Admitter
	eventService *service.EventService
	userService  *service.UserService
	emailService *email.EmailService
	validator    *utils.Validator
	logger       *zap.Logger
}

func NewRSVPHandler(
	admitter Admitter,
	eventService *service.EventService,
	userService *service.UserService,
	emailService *email.EmailService,
	validator *utils.Validator,
	logger *zap.Logger,
) *RSVPHandler {
	return &RSVPHandler{
		admitter:     admitter,
		eventService: eventService,
		userService:  userService,
		emailService: emailService,
		validator:    validator,
		logger:       logger,
	}
}

func (h *RSVPHandler) SubmitRSVP(c *fiber.Ctx) error {
	var req models.RSVPRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	ok, err := captcha.VerifyTurnstile(req.CaptchaToken)
	if err != nil || !ok {
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse("Captcha verification failed"))
	}

	decision, err := h.admitter.Admit(c.UserContext(), c.Params("eventRef"), admission.Submission{
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Email:      req.Email,
		Phone:      req.Phone,
		Address:    req.Address,
		Attending:  req.Attending,
		GuestCount: req.GuestCount,
		PromoCode:  req.PromoCode,
	})
	if err != nil {
		h.logger.Error("admission failed", zap.String("event_ref", c.Params("eventRef")), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse("Could not process RSVP"))
	}

	if !decision.Accepted() {
		return c.Status(statusForReason(decision.Reason)).JSON(models.Response{
			Success: false,
			Error:   decision.Message(),
			Data:    decision,
		})
	}

	go h.notify(decision)

	return c.JSON(models.SuccessResponse(decision, decision.Message()))
}

// statusForReason maps each rejection kind to its HTTP status.
func statusForReason(reason admission.RejectReason) int {
	switch reason {
	case admission.ReasonNotFound:
		return fiber.StatusNotFound
	case admission.ReasonMissingIdentity:
		return fiber.StatusBadRequest
	case admission.ReasonInvalidCode, admission.ReasonNotOnGuestList:
		return fiber.StatusForbidden
	case admission.ReasonAtCapacity:
		return fiber.StatusConflict
	}
	return fiber.StatusBadRequest
}

// notify emails the organizer and, when the guest left an address, the guest.
// Failures are logged, never surfaced to the submitter.
func (h *RSVPHandler) notify(decision admission.Decision) {
	attendee := decision.Attendee
	if attendee == nil {
		return
	}

	event, err := h.eventService.GetEvent(attendee.EventID)
	if err != nil {
		h.logger.Warn("rsvp notification: event lookup failed",
			zap.Uint("event_id", attendee.EventID), zap.Error(err))
		return
	}

	if event.UserID != nil {
		organizer, err := h.userService.GetUserByID(*event.UserID)
		if err == nil {
			guestName := attendee.FirstName + " " + attendee.LastName
			if err := h.emailService.SendRSVPNotification(
				organizer.Email, event.Title, guestName, attendee.Attending, attendee.PartySize(),
			); err != nil {
				h.logger.Warn("organizer notification failed", zap.Error(err))
			}
		}
	}

	if attendee.Email != "" {
		if err := h.emailService.SendRSVPConfirmation(attendee.Email, event.Title, attendee.Attending); err != nil {
			h.logger.Warn("guest confirmation failed", zap.Error(err))
		}
	}
}
