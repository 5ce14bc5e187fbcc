package repository

import (
	"context"
	"errors"

	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"gorm.io/gorm"
)

type AttendeeRepository struct {
	db *gorm.DB
}

func NewAttendeeRepository(db *gorm.DB) *AttendeeRepository {
	return &AttendeeRepository{db: db}
}

// SumAttendingPartySize totals the capacity consumed by an event's attending
// rows: each contributes themselves plus their declared guests.
func (r *AttendeeRepository) SumAttendingPartySize(ctx context.Context, eventID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Attendee{}).
		Where("event_id = ? AND attending = ?", eventID, true).
		Select("COALESCE(SUM(1 + GREATEST(guest_count, 0)), 0)").
		Scan(&total).Error
	return total, err
}

// FindByIdentity matches a guest's existing row by email or by
// case-insensitive name pair. A miss is (nil, nil).
func (r *AttendeeRepository) FindByIdentity(ctx context.Context, eventID uint, email, firstName, lastName string) (*models.Attendee, error) {
	q := r.db.WithContext(ctx).Where("event_id = ?", eventID)

	hasEmail := email != ""
	hasNames := firstName != "" && lastName != ""
	switch {
	case hasEmail && hasNames:
		q = q.Where("LOWER(email) = LOWER(?) OR (LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?))",
			email, firstName, lastName)
	case hasEmail:
		q = q.Where("LOWER(email) = LOWER(?)", email)
	case hasNames:
		q = q.Where("LOWER(first_name) = LOWER(?) AND LOWER(last_name) = LOWER(?)", firstName, lastName)
	default:
		return nil, nil
	}

	var attendee models.Attendee
	err := q.Order("id").First(&attendee).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &attendee, nil
}

// Upsert writes the row for its identity key. A resubmission replaces the
// guest's prior response; it never creates a duplicate row.
func (r *AttendeeRepository) Upsert(ctx context.Context, attendee *models.Attendee) (*models.Attendee, error) {
	if attendee.ID == 0 {
		existing, err := r.FindByIdentity(ctx, attendee.EventID, attendee.Email, attendee.FirstName, attendee.LastName)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			attendee.ID = existing.ID
			attendee.CreatedAt = existing.CreatedAt
		}
	}
	if err := r.db.WithContext(ctx).Save(attendee).Error; err != nil {
		return nil, err
	}
	return attendee, nil
}

func (r *AttendeeRepository) CreateBatch(attendees []models.Attendee) error {
	if len(attendees) == 0 {
		return nil
	}
	return r.db.Create(&attendees).Error
}

func (r *AttendeeRepository) ListByEvent(eventID uint) ([]models.Attendee, error) {
	var attendees []models.Attendee
	err := r.db.Where("event_id = ?", eventID).
		Order("created_at DESC").
		Find(&attendees).Error
	return attendees, err
}

func (r *AttendeeRepository) CountByEvent(eventID uint, attending bool) (int64, error) {
	var count int64
	err := r.db.Model(&models.Attendee{}).
		Where("event_id = ? AND attending = ?", eventID, attending).
		Count(&count).Error
	return count, err
}

func (r *AttendeeRepository) DeleteByEvent(eventID uint) error {
	return r.db.Where("event_id = ?", eventID).Delete(&models.Attendee{}).Error
}
