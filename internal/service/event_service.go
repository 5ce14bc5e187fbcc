package service

import (
	"context"
	"errors"
	"strings"

	"github.com/owlrsvp/owlrsvp-backend/internal/admission"
	"github.com/owlrsvp/owlrsvp-backend/internal/models"
	"github.com/owlrsvp/owlrsvp-backend/internal/repository"
	"github.com/owlrsvp/owlrsvp-backend/pkg/utils"
)

type EventService struct {
	eventRepo    *repository.EventRepository
	attendeeRepo *repository.AttendeeRepository
	tiers        admission.TierResolver
}

func NewEventService(eventRepo *repository.EventRepository, attendeeRepo *repository.AttendeeRepository, tiers admission.TierResolver) *EventService {
	return &EventService{
		eventRepo:    eventRepo,
		attendeeRepo: attendeeRepo,
		tiers:        tiers,
	}
}

func (s *EventService) CreateEvent(userID uint, req models.EventRequest) (*models.Event, error) {
	if req.AuthMode == models.AuthModeCode && strings.TrimSpace(req.PromoCode) == "" {
		return nil, errors.New("a promo code is required for code-gated events")
	}

	url, err := s.generateUniqueURL()
	if err != nil {
		return nil, err
	}

	event := &models.Event{
		UserID:          &userID,
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartsAt:        req.StartsAt,
		URL:             url,
		AdminToken:      utils.GenerateRandomString(24),
		AuthMode:        req.AuthMode,
		PromoCode:       strings.TrimSpace(req.PromoCode),
		AllowPlusGuests: req.AllowPlusGuests,
		OpenInvite:      true,
	}
	if event.AuthMode == "" {
		event.AuthMode = models.AuthModeOpen
	}

	return s.eventRepo.Create(event)
}

func (s *EventService) GetEvent(eventID uint) (*models.Event, error) {
	return s.eventRepo.GetByID(eventID)
}

func (s *EventService) GetEventByURL(url string) (*models.Event, error) {
	return s.eventRepo.GetByURL(url)
}

func (s *EventService) GetUserEvents(userID uint) ([]models.Event, error) {
	return s.eventRepo.GetUserEvents(userID)
}

func (s *EventService) UpdateEvent(eventID uint, userID uint, req models.UpdateEventRequest) (*models.Event, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	if event.UserID == nil || *event.UserID != userID {
		return nil, errors.New("unauthorized")
	}

	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Location != nil {
		event.Location = *req.Location
	}
	if req.StartsAt != nil {
		event.StartsAt = *req.StartsAt
	}
	if req.AuthMode != nil {
		event.AuthMode = *req.AuthMode
	}
	if req.PromoCode != nil {
		event.PromoCode = strings.TrimSpace(*req.PromoCode)
	}
	if req.AllowPlusGuests != nil {
		event.AllowPlusGuests = *req.AllowPlusGuests
	}

	if event.NormalizedAuthMode() == models.AuthModeCode && event.PromoCode == "" {
		return nil, errors.New("a promo code is required for code-gated events")
	}

	if err := s.eventRepo.Update(event); err != nil {
		return nil, err
	}

	return event, nil
}

func (s *EventService) DeleteEvent(eventID uint, userID uint) error {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return err
	}

	if event.UserID == nil || *event.UserID != userID {
		return errors.New("unauthorized")
	}

	if err := s.attendeeRepo.DeleteByEvent(eventID); err != nil {
		return err
	}
	return s.eventRepo.Delete(eventID)
}

func (s *EventService) GetAttendees(eventID uint, userID uint) ([]models.Attendee, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	if event.UserID == nil || *event.UserID != userID {
		return nil, errors.New("unauthorized")
	}

	return s.attendeeRepo.ListByEvent(eventID)
}

// ImportGuestList pre-registers identities for a guest_list event. Imported
// rows start as not attending with no guests; the guest's own submission
// flips them.
func (s *EventService) ImportGuestList(ctx context.Context, eventID uint, userID uint, req models.GuestListImportRequest) (int, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return 0, err
	}

	if event.UserID == nil || *event.UserID != userID {
		return 0, errors.New("unauthorized")
	}

	var rows []models.Attendee
	for _, guest := range req.Guests {
		firstName := strings.TrimSpace(guest.FirstName)
		lastName := strings.TrimSpace(guest.LastName)
		emailAddr := strings.TrimSpace(guest.Email)
		if emailAddr == "" && (firstName == "" || lastName == "") {
			continue
		}

		existing, err := s.attendeeRepo.FindByIdentity(ctx, eventID, emailAddr, firstName, lastName)
		if err != nil {
			return 0, err
		}
		if existing != nil {
			continue
		}

		rows = append(rows, models.Attendee{
			EventID:   eventID,
			FirstName: firstName,
			LastName:  lastName,
			Email:     emailAddr,
			Attending: false,
		})
	}

	if err := s.attendeeRepo.CreateBatch(rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (s *EventService) GetEventStats(ctx context.Context, eventID uint, userID uint) (*models.EventStats, error) {
	event, err := s.eventRepo.GetByID(eventID)
	if err != nil {
		return nil, err
	}

	if event.UserID == nil || *event.UserID != userID {
		return nil, errors.New("unauthorized")
	}

	partySize, err := s.attendeeRepo.SumAttendingPartySize(ctx, eventID)
	if err != nil {
		return nil, err
	}
	attending, err := s.attendeeRepo.CountByEvent(eventID, true)
	if err != nil {
		return nil, err
	}
	declined, err := s.attendeeRepo.CountByEvent(eventID, false)
	if err != nil {
		return nil, err
	}

	capacity := s.tiers.Resolve(ctx, event.UserID)

	return &models.EventStats{
		AttendingPartySize: partySize,
		AttendingCount:     attending,
		DeclinedCount:      declined,
		GuestLimit:         capacity.GuestLimit,
	}, nil
}

func (s *EventService) generateUniqueURL() (string, error) {
	for i := 0; i < 5; i++ {
		url := utils.GenerateRandomString(10)
		exists, err := s.eventRepo.URLExists(url)
		if err != nil {
			return "", err
		}
		if !exists {
			return url, nil
		}
	}
	return "", errors.New("could not generate a unique event URL")
}
