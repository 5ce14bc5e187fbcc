package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/subscription"
	"go.uber.org/zap"

	"github.com/owlrsvp/owlrsvp-backend/internal/admission"
	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/internal/repository"
	"github.com/owlrsvp/owlrsvp-backend/pkg/payment"
)

type BillingService struct {
	stripeService    *payment.StripeService
	userRepo         *repository.UserRepository
	planRepo         *repository.PlanRepository
	subscriptionRepo *repository.SubscriptionRepository
	logger           *zap.Logger
}

func NewBillingService(
	stripeService *payment.StripeService,
	userRepo *repository.UserRepository,
	planRepo *repository.PlanRepository,
	subscriptionRepo *repository.SubscriptionRepository,
	logger *zap.Logger,
) *BillingService {
	return &BillingService{
		stripeService:    stripeService,
		userRepo:         userRepo,
		planRepo:         planRepo,
		subscriptionRepo: subscriptionRepo,
		logger:           logger,
	}
}

// Resolve maps an event owner to their tier capacity for the admission
// controller. It fails closed: ownerless events and any resolution failure
// get the free tier, never unlimited.
func (s *BillingService) Resolve(ctx context.Context, ownerID *uint) admission.TierCapacity {
	freeTier := admission.TierCapacity{GuestLimit: models.FreeTierGuestLimit}

	if ownerID == nil {
		return freeTier
	}

	sub, err := s.subscriptionRepo.GetActiveByUserID(ctx, *ownerID)
	if err != nil {
		s.logger.Warn("tier resolution failed, falling back to free tier",
			zap.Uint("owner_id", *ownerID),
			zap.Error(err))
		return freeTier
	}

	return capacityFromSubscription(sub)
}

// capacityFromSubscription derives the tier capacity from the stored
// subscription row. A nil row means free tier.
func capacityFromSubscription(sub *models.UserSubscription) admission.TierCapacity {
	if sub == nil || sub.Status != models.SubscriptionStatusActive {
		return admission.TierCapacity{GuestLimit: models.FreeTierGuestLimit}
	}

	capacity := admission.TierCapacity{GuestLimit: sub.GuestLimit}
	if sub.OverflowBilling && sub.StripeMeteredItemID != "" {
		capacity.OverflowBillingAvailable = true
		capacity.MeteredItemRef = sub.StripeMeteredItemID
	}
	return capacity
}

func (s *BillingService) GetPlans() ([]models.Plan, error) {
	return s.planRepo.GetAll()
}

func (s *BillingService) CreateCheckoutSession(userID uint, planCode string) (*models.CheckoutSession, error) {
	plan, err := s.planRepo.GetByCode(planCode)
	if err != nil {
		return nil, err
	}
	if plan.Price == 0 || plan.StripePriceID == "" {
		return nil, errors.New("plan is not purchasable")
	}

	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return nil, err
	}

	meteredPriceID := ""
	if plan.OverflowBilling {
		meteredPriceID = s.overflowPriceID()
	}

	session, err := s.stripeService.CreateSubscriptionCheckoutSession(
		user.Email,
		plan.StripePriceID,
		meteredPriceID,
		map[string]string{
			"user_id": fmt.Sprintf("%d", userID),
			"plan_id": fmt.Sprintf("%d", plan.ID),
		},
	)
	if err != nil {
		return nil, err
	}

	return &models.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

// HandleStripeWebhook reconciles subscription lifecycle events into the
// local subscription rows the tier resolver reads.
func (s *BillingService) HandleStripeWebhook(event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}
		if session.Mode != stripe.CheckoutSessionModeSubscription || session.Subscription == nil {
			return nil
		}
		return s.activateSubscription(&session)

	case "customer.subscription.updated":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		return s.syncSubscriptionStatus(&sub)

	case "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		record, err := s.subscriptionRepo.GetByStripeSubscriptionID(sub.ID)
		if err != nil {
			return err
		}
		record.Status = models.SubscriptionStatusCanceled
		return s.subscriptionRepo.Update(record)
	}

	return nil
}

func (s *BillingService) activateSubscription(session *stripe.CheckoutSession) error {
	userID, err := strconv.ParseUint(session.Metadata["user_id"], 10, 32)
	if err != nil {
		return fmt.Errorf("checkout session %s has no user_id metadata: %w", session.ID, err)
	}
	planID, err := strconv.ParseUint(session.Metadata["plan_id"], 10, 32)
	if err != nil {
		return fmt.Errorf("checkout session %s has no plan_id metadata: %w", session.ID, err)
	}

	plan, err := s.planRepo.GetByID(uint(planID))
	if err != nil {
		return err
	}

	// The session payload carries only the subscription ID; fetch the full
	// object to find the metered line item.
	stripeSub, err := subscription.Get(session.Subscription.ID, nil)
	if err != nil {
		return err
	}

	record := &models.UserSubscription{
		UserID:               uint(userID),
		PlanID:               plan.ID,
		GuestLimit:           plan.GuestLimit,
		OverflowBilling:      plan.OverflowBilling,
		StripeSubscriptionID: stripeSub.ID,
		StripeMeteredItemID:  meteredItemID(stripeSub),
		Status:               models.SubscriptionStatusActive,
		CurrentPeriodEnd:     time.Unix(stripeSub.CurrentPeriodEnd, 0),
	}

	if err := s.subscriptionRepo.Create(record); err != nil {
		return err
	}

	if session.Customer != nil {
		user, err := s.userRepo.GetByID(uint(userID))
		if err == nil && user.StripeCustomerID == "" {
			user.StripeCustomerID = session.Customer.ID
			if err := s.userRepo.Update(user); err != nil {
				s.logger.Warn("could not store stripe customer id",
					zap.Uint("user_id", uint(userID)), zap.Error(err))
			}
		}
	}

	return nil
}

func (s *BillingService) syncSubscriptionStatus(sub *stripe.Subscription) error {
	record, err := s.subscriptionRepo.GetByStripeSubscriptionID(sub.ID)
	if err != nil {
		// Updates can arrive before checkout.session.completed is processed.
		s.logger.Warn("subscription update for unknown subscription",
			zap.String("subscription_id", sub.ID))
		return nil
	}

	switch sub.Status {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		record.Status = models.SubscriptionStatusActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		record.Status = models.SubscriptionStatusPastDue
	case stripe.SubscriptionStatusCanceled, stripe.SubscriptionStatusIncompleteExpired:
		record.Status = models.SubscriptionStatusCanceled
	}
	record.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0)
	record.StripeMeteredItemID = meteredItemID(sub)

	return s.subscriptionRepo.Update(record)
}

func meteredItemID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil {
		return ""
	}
	for _, item := range sub.Items.Data {
		if item.Price != nil && item.Price.Recurring != nil &&
			item.Price.Recurring.UsageType == stripe.PriceRecurringUsageTypeMetered {
			return item.ID
		}
	}
	return ""
}

// overflowPriceID is the metered per-guest price attached alongside plans
// that include overflow billing.
func (s *BillingService) overflowPriceID() string {
	return os.Getenv("STRIPE_OVERFLOW_PRICE_ID")
}
