package payment

import (
	"context"
	"os"
	"time"

	"github.com/stripe/stripe-go/v75"
	"github.com/stripe/stripe-go/v75/checkout/session"
	"github.com/stripe/stripe-go/v75/usagerecord"
)

type StripeService struct {
	secretKey string
}

func NewStripeService(secretKey string) *StripeService {
	stripe.Key = secretKey
	return &StripeService{
		secretKey: secretKey,
	}
}

// CreateSubscriptionCheckoutSession starts a Stripe checkout for a plan. The
// metered overflow price, when the plan has one, rides along as a second line
// item with no fixed quantity.
func (s *StripeService) CreateSubscriptionCheckoutSession(userEmail, priceID, meteredPriceID string, metadata map[string]string) (*stripe.CheckoutSession, error) {
	lineItems := []*stripe.CheckoutSessionLineItemParams{
		{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		},
	}
	if meteredPriceID != "" {
		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			Price: stripe.String(meteredPriceID),
		})
	}

	params := &stripe.CheckoutSessionParams{
		CustomerEmail: &userEmail,
		PaymentMethodTypes: stripe.StringSlice([]string{
			"card",
		}),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems:  lineItems,
		SuccessURL: stripe.String(os.Getenv("FRONTEND_URL") + "/billing/success?session_id={CHECKOUT_SESSION_ID}"),
		CancelURL:  stripe.String(os.Getenv("FRONTEND_URL") + "/billing/cancel"),
	}

	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	if params.SubscriptionData == nil {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{}
	}
	for k, v := range metadata {
		params.SubscriptionData.AddMetadata(k, v)
	}

	return session.New(params)
}

// RecordOverflow meters guests admitted beyond the tier limit against the
// subscription's metered line item.
func (s *StripeService) RecordOverflow(ctx context.Context, meteredItemRef string, quantity int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &stripe.UsageRecordParams{
		SubscriptionItem: stripe.String(meteredItemRef),
		Quantity:         stripe.Int64(int64(quantity)),
		Timestamp:        stripe.Int64(time.Now().Unix()),
		Action:           stripe.String(stripe.UsageRecordActionIncrement),
	}

	_, err := usagerecord.New(params)
	return err
}
