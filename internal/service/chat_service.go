package service

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"comparte/internal/domain"
	"comparte/internal/models"
	"comparte/internal/repository"
	"comparte/internal/ws"

	"gorm.io/gorm"
)

// ChatID derives the conversation id for a (donation, requester, donor)
// triple. Donation-scoped so the same pair of users gets a separate thread
// per donation. Pure function; the same triple always maps to the same id.
func ChatID(donationID, requesterID, donorID uint) string {
	return fmt.Sprintf("%d_%d_%d", donationID, requesterID, donorID)
}

// ChatService owns conversation provisioning, message append and unread
// bookkeeping.
type ChatService struct {
	chatRepo     *repository.ChatRepository
	donationRepo *repository.DonationRepository
	userRepo     *repository.UserRepository
	notifSvc     *NotificationService
	rooms        *ws.ChatHub
	userHub      *ws.Hub
}

func NewChatService(
	chatRepo *repository.ChatRepository,
	donationRepo *repository.DonationRepository,
	userRepo *repository.UserRepository,
	notifSvc *NotificationService,
	rooms *ws.ChatHub,
	userHub *ws.Hub,
) *ChatService {
	return &ChatService{
		chatRepo:     chatRepo,
		donationRepo: donationRepo,
		userRepo:     userRepo,
		notifSvc:     notifSvc,
		rooms:        rooms,
		userHub:      userHub,
	}
}

// AcceptRequest provisions the conversation for an accepted contact request
// and seeds it with the requester's original message and the donor's reply.
// Idempotent: a second accept on the same request (double click, retry,
// concurrent tab) lands on the existing conversation with no duplicate seeds.
func (s *ChatService) AcceptRequest(donorID, notificationID uint, responseText string) (*models.Conversation, error) {
	notif, err := s.loadOwnedRequest(donorID, notificationID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(responseText) == "" {
		return nil, fmt.Errorf("%w: response text is required", domain.ErrValidation)
	}

	requesterID := *notif.RequesterID
	donationID := *notif.DonationID
	chatID := ChatID(donationID, requesterID, donorID)

	conv, err := s.chatRepo.GetByChatID(chatID)
	if err == nil {
		// Already provisioned; acceptance stays navigable.
		if err := s.notifSvc.MarkRead(notificationID); err != nil {
			return nil, err
		}
		return conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: lookup conversation: %v", domain.ErrStorage, err)
	}

	conv = &models.Conversation{
		ChatID:        chatID,
		DonationID:    donationID,
		RequesterID:   requesterID,
		DonorID:       donorID,
		RequesterName: s.displayName(requesterID),
		DonorName:     s.displayName(donorID),
		LastActivity:  time.Now(),
	}
	firstMessage := notif.Preview
	if strings.TrimSpace(firstMessage) == "" {
		firstMessage = notif.Content
	}
	seed := []models.Message{
		{SenderID: requesterID, Content: firstMessage},
		{SenderID: donorID, Content: strings.TrimSpace(responseText)},
	}
	// The donor is looking at the thread they just created; only the
	// requester starts unread.
	err = s.chatRepo.CreateWithSeed(conv, seed, requesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against a concurrent accept; the winner's
			// conversation is the one true thread.
			existing, lerr := s.chatRepo.GetByChatID(chatID)
			if lerr != nil {
				return nil, fmt.Errorf("%w: conversation vanished after conflict: %v", domain.ErrStorage, lerr)
			}
			if merr := s.notifSvc.MarkRead(notificationID); merr != nil {
				return nil, merr
			}
			return existing, nil
		}
		return nil, fmt.Errorf("%w: provision conversation: %v", domain.ErrStorage, err)
	}
	if err := s.notifSvc.MarkRead(notificationID); err != nil {
		return nil, err
	}
	s.pushUnreadBadge(requesterID, chatID)
	return conv, nil
}

// RejectRequest marks the request notification read. No conversation, no
// other side effects.
func (s *ChatService) RejectRequest(donorID, notificationID uint) error {
	if _, err := s.loadOwnedRequest(donorID, notificationID); err != nil {
		return err
	}
	return s.notifSvc.MarkRead(notificationID)
}

// SendMessage appends to the conversation, marks the counterpart unread and
// clears the sender's own flag, then fans out to live subscribers.
func (s *ChatService) SendMessage(chatID string, senderID uint, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: message content is required", domain.ErrValidation)
	}
	conv, err := s.getConversation(chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(senderID) {
		return nil, fmt.Errorf("%w: sender is not a participant", domain.ErrValidation)
	}
	m := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Content:        strings.TrimSpace(content),
	}
	other := conv.OtherParticipant(senderID)
	if err := s.chatRepo.AppendMessage(m, other); err != nil {
		return nil, fmt.Errorf("%w: append message: %v", domain.ErrStorage, err)
	}
	if s.rooms != nil {
		s.rooms.BroadcastAll(chatID, map[string]interface{}{
			"type":      "message",
			"id":        m.ID,
			"chat_id":   chatID,
			"sender_id": m.SenderID,
			"content":   m.Content,
			"timestamp": m.CreatedAt,
		})
	}
	s.pushUnreadBadge(other, chatID)
	return m, nil
}

// MarkSeen removes userID from the conversation's unread set. The caller (the
// UI layer) decides when the user is actually viewing the thread; the core
// never infers that from navigation state.
func (s *ChatService) MarkSeen(chatID string, userID uint) error {
	conv, err := s.getConversation(chatID)
	if err != nil {
		return err
	}
	if !conv.HasParticipant(userID) {
		return fmt.Errorf("%w: not a participant", domain.ErrValidation)
	}
	if err := s.chatRepo.RemoveUnread(conv.ID, userID); err != nil {
		return fmt.Errorf("%w: clear unread: %v", domain.ErrStorage, err)
	}
	return nil
}

// ListMessages returns the conversation history in non-decreasing timestamp
// order. Participants only.
func (s *ChatService) ListMessages(chatID string, callerID uint, limit, offset int) ([]models.Message, error) {
	conv, err := s.getConversation(chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrValidation)
	}
	list, err := s.chatRepo.MessagesByConversationID(conv.ID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", domain.ErrStorage, err)
	}
	return list, nil
}

// GetConversation returns the thread for participants.
func (s *ChatService) GetConversation(chatID string, callerID uint) (*models.Conversation, error) {
	conv, err := s.getConversation(chatID)
	if err != nil {
		return nil, err
	}
	if !conv.HasParticipant(callerID) {
		return nil, fmt.Errorf("%w: not a participant", domain.ErrValidation)
	}
	return conv, nil
}

// ConversationSummary is one row of the chat list, enriched with donation and
// counterpart display data.
type ConversationSummary struct {
	ChatID         string    `json:"chat_id"`
	DonationID     uint      `json:"donation_id"`
	DonationName   string    `json:"donation_name"`
	DonationImage  string    `json:"donation_image"`
	DonorID        uint      `json:"donor_id"`
	DonorName      string    `json:"donor_name"`
	DonorPhoto     string    `json:"donor_photo"`
	RequesterID    uint      `json:"requester_id"`
	RequesterName  string    `json:"requester_name"`
	RequesterPhoto string    `json:"requester_photo"`
	HasUnread      bool      `json:"has_unread"`
	LastActivity   time.Time `json:"last_activity"`
}

// ListConversationsForUser returns the user's chat list sorted by last
// activity. Conversations whose donation has expired (or disappeared) are
// garbage-collected on the way: messages, unread flags, then the thread.
func (s *ChatService) ListConversationsForUser(userID uint) ([]ConversationSummary, error) {
	if userID == 0 {
		return nil, fmt.Errorf("%w: user is required", domain.ErrValidation)
	}
	convs, err := s.chatRepo.ListByParticipant(userID)
	if err != nil {
		return nil, fmt.Errorf("%w: list conversations: %v", domain.ErrStorage, err)
	}
	now := time.Now()
	out := make([]ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		donation, derr := s.donationRepo.GetByID(conv.DonationID)
		expired := derr == nil && donation.Expired(now)
		if expired || errors.Is(derr, gorm.ErrRecordNotFound) {
			if gcErr := s.chatRepo.DeleteCascade(conv.ID); gcErr != nil {
				log.Printf("[chat] gc of %s failed: %v", conv.ChatID, gcErr)
			}
			continue
		}
		if derr != nil {
			return nil, fmt.Errorf("%w: load donation: %v", domain.ErrStorage, derr)
		}
		unread, uerr := s.chatRepo.IsUnreadFor(conv.ID, userID)
		if uerr != nil {
			return nil, fmt.Errorf("%w: unread lookup: %v", domain.ErrStorage, uerr)
		}
		summary := ConversationSummary{
			ChatID:        conv.ChatID,
			DonationID:    conv.DonationID,
			DonationName:  donation.Description,
			DonationImage: donation.FirstImageURL(),
			DonorID:       conv.DonorID,
			DonorName:     conv.DonorName,
			RequesterID:   conv.RequesterID,
			RequesterName: conv.RequesterName,
			HasUnread:     unread,
			LastActivity:  conv.LastActivity,
		}
		if donor, err := s.userRepo.GetByID(conv.DonorID); err == nil {
			summary.DonorPhoto = donor.PhotoURL
		}
		if requester, err := s.userRepo.GetByID(conv.RequesterID); err == nil {
			summary.RequesterPhoto = requester.PhotoURL
		}
		out = append(out, summary)
	}
	return out, nil
}

// HasUnread reports whether any conversation has unread messages for the
// user (navbar badge).
func (s *ChatService) HasUnread(userID uint) (bool, error) {
	ids, err := s.chatRepo.UnreadConversationIDs(userID)
	if err != nil {
		return false, fmt.Errorf("%w: unread lookup: %v", domain.ErrStorage, err)
	}
	return len(ids) > 0, nil
}

func (s *ChatService) getConversation(chatID string) (*models.Conversation, error) {
	if strings.TrimSpace(chatID) == "" {
		return nil, fmt.Errorf("%w: chat id is required", domain.ErrValidation)
	}
	conv, err := s.chatRepo.GetByChatID(chatID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: conversation %s", domain.ErrNotFound, chatID)
		}
		return nil, fmt.Errorf("%w: lookup conversation: %v", domain.ErrStorage, err)
	}
	return conv, nil
}

// loadOwnedRequest fetches a request notification and verifies the caller is
// its recipient. Ownership mismatches read as not-found so the endpoint does
// not leak other users' notification ids.
func (s *ChatService) loadOwnedRequest(donorID, notificationID uint) (*models.Notification, error) {
	if donorID == 0 || notificationID == 0 {
		return nil, fmt.Errorf("%w: donor and notification are required", domain.ErrValidation)
	}
	notif, err := s.notifSvc.repo.GetByID(notificationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: notification %d", domain.ErrNotFound, notificationID)
		}
		return nil, fmt.Errorf("%w: load notification: %v", domain.ErrStorage, err)
	}
	if notif.RecipientID != donorID {
		return nil, fmt.Errorf("%w: notification %d", domain.ErrNotFound, notificationID)
	}
	if !notif.IsRequest() {
		return nil, fmt.Errorf("%w: notification is not a contact request", domain.ErrValidation)
	}
	return notif, nil
}

func (s *ChatService) displayName(userID uint) string {
	if u, err := s.userRepo.GetByID(userID); err == nil {
		return u.DisplayName()
	}
	return "User"
}

func (s *ChatService) pushUnreadBadge(userID uint, chatID string) {
	if s.userHub == nil {
		return
	}
	s.userHub.BroadcastToUser(userID, map[string]interface{}{
		"type":    "chat_unread",
		"chat_id": chatID,
	})
}
