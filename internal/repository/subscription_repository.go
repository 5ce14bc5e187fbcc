package repository

import (
	"context"
	"errors"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetActiveByUserID returns the owner's current active subscription, or
// (nil, nil) when they are on the free tier.
func (r *SubscriptionRepository) GetActiveByUserID(ctx context.Context, userID uint) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, models.SubscriptionStatusActive).
		Order("created_at DESC").
		First(&sub).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) GetByStripeSubscriptionID(subscriptionID string) (*models.UserSubscription, error) {
	var sub models.UserSubscription
	err := r.db.Where("stripe_subscription_id = ?", subscriptionID).First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

func (r *SubscriptionRepository) Create(sub *models.UserSubscription) error {
	return r.db.Create(sub).Error
}

func (r *SubscriptionRepository) Update(sub *models.UserSubscription) error {
	return r.db.Save(sub).Error
}
