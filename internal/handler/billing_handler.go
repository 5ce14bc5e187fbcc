package handler

import (
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v75/webhook"
	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/internal/service"
	"github.com/owlrsvp/owlrsvp-backend/pkg/utils"
)

type BillingHandler struct {
	billingService *service.BillingService
	validator      *utils.Validator
	logger         *zap.Logger
}

func NewBillingHandler(billingService *service.BillingService, validator *utils.Validator, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		billingService: billingService,
		validator:      validator,
		logger:         logger,
	}
}

func (h *BillingHandler) GetPlans(c *fiber.Ctx) error {
	plans, err := h.billingService.GetPlans()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(plans, "Plans retrieved successfully"))
}

func (h *BillingHandler) CreateCheckoutSession(c *fiber.Ctx) error {
	userID, ok := currentUserID(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse("User not authenticated"))
	}

	var req models.CreateCheckoutSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid request body"))
	}

	if err := h.validator.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse(err.Error()))
	}

	session, err := h.billingService.CreateCheckoutSession(userID, req.PlanCode)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.JSON(models.SuccessResponse(session, "Checkout session created"))
}

func (h *BillingHandler) HandleStripeWebhook(c *fiber.Ctx) error {
	webhookSecret := os.Getenv("STRIPE_WEBHOOK_SECRET")
	payload := c.Body()
	signatureHeader := c.Get("Stripe-Signature")

	event, err := webhook.ConstructEventWithOptions(payload, signatureHeader, webhookSecret,
		webhook.ConstructEventOptions{
			IgnoreAPIVersionMismatch: true,
		})
	if err != nil {
		h.logger.Warn("stripe webhook signature verification failed", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(models.ErrorResponse("Invalid webhook payload"))
	}

	if err := h.billingService.HandleStripeWebhook(&event); err != nil {
		h.logger.Error("stripe webhook handling failed",
			zap.String("event_type", string(event.Type)), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(models.ErrorResponse(err.Error()))
	}

	return c.SendStatus(fiber.StatusOK)
}
