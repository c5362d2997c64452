package service

import (
	"errors"
	"fmt"
	"strings"

	"comparte/internal/domain"
	"comparte/internal/repository"

	"gorm.io/gorm"
)

// RequestService turns a "contact the donor" action into a request
// notification. It deliberately creates no chat: the donor sees the message
// preview first and only acceptance provisions a conversation.
type RequestService struct {
	donationRepo *repository.DonationRepository
	userRepo     *repository.UserRepository
	notifSvc     *NotificationService
}

func NewRequestService(donationRepo *repository.DonationRepository, userRepo *repository.UserRepository, notifSvc *NotificationService) *RequestService {
	return &RequestService{donationRepo: donationRepo, userRepo: userRepo, notifSvc: notifSvc}
}

// Submit validates the request and appends exactly one notification to the
// donor's feed. The raw message is stored as the preview snapshot.
func (s *RequestService) Submit(requesterID, donorID, donationID uint, message string) error {
	if requesterID == 0 || donorID == 0 || donationID == 0 || strings.TrimSpace(message) == "" {
		return fmt.Errorf("%w: requester, donor, donation and message are required", domain.ErrValidation)
	}
	if requesterID == donorID {
		return fmt.Errorf("%w: cannot request your own donation", domain.ErrValidation)
	}
	donation, err := s.donationRepo.GetByID(donationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: donation %d", domain.ErrNotFound, donationID)
		}
		return fmt.Errorf("%w: load donation: %v", domain.ErrStorage, err)
	}
	if donation.OwnerID != donorID {
		return fmt.Errorf("%w: donation does not belong to that donor", domain.ErrValidation)
	}

	requesterName := "Someone"
	if u, err := s.userRepo.GetByID(requesterID); err == nil {
		requesterName = u.DisplayName()
	}
	reqID := requesterID
	donID := donationID
	_, err = s.notifSvc.Create(donorID, NotificationInput{
		Type:        domain.NotificationTypeRequest,
		Content:     requesterName + " wants to contact you about your donation",
		Preview:     strings.TrimSpace(message),
		RequesterID: &reqID,
		DonationID:  &donID,
	})
	return err
}
