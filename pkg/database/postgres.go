package database

import (
	"log"
	"os"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewDatabase() *gorm.DB {
	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := RunMigrations(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	return db
}

func RunMigrations(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Event{},
		&models.Attendee{},
		&models.Plan{},
		&models.UserSubscription{},
	)
	if err != nil {
		return err
	}

	return seedPlans(db)
}

// seedPlans inserts the pricing tiers if they are not present yet. Guest
// limits are party-size units, not row counts.
func seedPlans(db *gorm.DB) error {
	plans := []models.Plan{
		{
			Code:            "free",
			Name:            "Free",
			Description:     "Up to 50 guests per event",
			GuestLimit:      models.FreeTierGuestLimit,
			Price:           0,
			OverflowBilling: false,
			IsActive:        true,
		},
		{
			Code:            "basic",
			Name:            "Basic",
			Description:     "Up to 200 guests per event",
			GuestLimit:      200,
			Price:           9.99,
			OverflowBilling: false,
			IsActive:        true,
		},
		{
			Code:            "pro",
			Name:            "Pro",
			Description:     "Up to 500 guests per event, extra guests billed per head",
			GuestLimit:      500,
			Price:           29.99,
			OverflowBilling: true,
			IsActive:        true,
		},
	}

	for _, plan := range plans {
		var count int64
		db.Model(&models.Plan{}).Where("code = ?", plan.Code).Count(&count)
		if count == 0 {
			if err := db.Create(&plan).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
