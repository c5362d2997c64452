package repository

import (
	"comparte/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ChatRepository struct {
	db *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{db: db}
}

func (r *ChatRepository) GetByChatID(chatID string) (*models.Conversation, error) {
	var c models.Conversation
	err := r.db.Where("chat_id = ?", chatID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// CreateWithSeed provisions a conversation together with its seed messages and
// the requester's unread flag in one transaction, so an accepted request never
// leaves a half-built thread behind. The unique index on chat_id turns a
// concurrent duplicate into gorm.ErrDuplicatedKey for the second writer.
func (r *ChatRepository) CreateWithSeed(conv *models.Conversation, seed []models.Message, unreadUserID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(conv).Error; err != nil {
			return err
		}
		for i := range seed {
			seed[i].ConversationID = conv.ID
			if err := tx.Create(&seed[i]).Error; err != nil {
				return err
			}
		}
		if len(seed) > 0 {
			conv.LastActivity = seed[len(seed)-1].CreatedAt
			if err := tx.Model(conv).Update("last_activity", conv.LastActivity).Error; err != nil {
				return err
			}
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ConversationUnread{ConversationID: conv.ID, UserID: unreadUserID}).Error
	})
}

// AppendMessage stores a message, bumps the conversation's last activity and
// flips the unread flags: the receiving side is marked, the sender's own flag
// (if any) is cleared. All in one transaction.
func (r *ChatRepository) AppendMessage(m *models.Message, markUnreadUserID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(m).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.Conversation{}).Where("id = ?", m.ConversationID).
			Update("last_activity", m.CreatedAt).Error; err != nil {
			return err
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.ConversationUnread{ConversationID: m.ConversationID, UserID: markUnreadUserID}).Error; err != nil {
			return err
		}
		return tx.Where("conversation_id = ? AND user_id = ?", m.ConversationID, m.SenderID).
			Delete(&models.ConversationUnread{}).Error
	})
}

func (r *ChatRepository) MessagesByConversationID(convID uint, limit, offset int) ([]models.Message, error) {
	var list []models.Message
	err := r.db.Where("conversation_id = ?", convID).
		Order("created_at ASC, id ASC").Limit(limit).Offset(offset).Find(&list).Error
	return list, err
}

func (r *ChatRepository) ListByParticipant(userID uint) ([]models.Conversation, error) {
	var list []models.Conversation
	err := r.db.Where("requester_id = ? OR donor_id = ?", userID, userID).
		Order("last_activity DESC").Find(&list).Error
	return list, err
}

func (r *ChatRepository) RemoveUnread(convID, userID uint) error {
	return r.db.Where("conversation_id = ? AND user_id = ?", convID, userID).
		Delete(&models.ConversationUnread{}).Error
}

func (r *ChatRepository) IsUnreadFor(convID, userID uint) (bool, error) {
	var c int64
	err := r.db.Model(&models.ConversationUnread{}).
		Where("conversation_id = ? AND user_id = ?", convID, userID).Count(&c).Error
	return c > 0, err
}

// UnreadConversationIDs returns the ids of all conversations with unread
// messages for the user (navbar badge).
func (r *ChatRepository) UnreadConversationIDs(userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.Model(&models.ConversationUnread{}).
		Where("user_id = ?", userID).Pluck("conversation_id", &ids).Error
	return ids, err
}

// DeleteCascade removes the conversation, its messages and unread flags.
// Messages go first so a concurrent reader never sees orphans.
func (r *ChatRepository) DeleteCascade(convID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("conversation_id = ?", convID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("conversation_id = ?", convID).Delete(&models.ConversationUnread{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Conversation{}, convID).Error
	})
}
