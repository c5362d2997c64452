package models

import (
	"time"
)

// Conversation is a two-party chat thread provisioned when a donor accepts a
// contact request. ChatID is derived deterministically from the
// (donation, requester, donor) triple; the unique index is what makes
// provisioning idempotent under concurrent accepts.
type Conversation struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	ChatID        string    `gorm:"uniqueIndex;size:64;not null" json:"chat_id"`
	DonationID    uint      `gorm:"not null;index" json:"donation_id"`
	RequesterID   uint      `gorm:"not null;index" json:"requester_id"`
	DonorID       uint      `gorm:"not null;index" json:"donor_id"`
	RequesterName string    `gorm:"size:128;not null" json:"requester_name"` // display-name snapshot at creation
	DonorName     string    `gorm:"size:128;not null" json:"donor_name"`
	CreatedAt     time.Time `json:"created_at"`
	LastActivity  time.Time `gorm:"not null;index" json:"last_activity"`

	Donation  Donation `gorm:"foreignKey:DonationID" json:"-"`
	Requester User     `gorm:"foreignKey:RequesterID" json:"-"`
	Donor     User     `gorm:"foreignKey:DonorID" json:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// HasParticipant reports whether userID is one of the two parties.
func (c *Conversation) HasParticipant(userID uint) bool {
	return userID == c.RequesterID || userID == c.DonorID
}

// OtherParticipant returns the counterpart of userID. Caller must have
// verified participation first.
func (c *Conversation) OtherParticipant(userID uint) uint {
	if userID == c.RequesterID {
		return c.DonorID
	}
	return c.RequesterID
}

// ConversationUnread marks one participant as having unread messages in one
// conversation. Row presence is the flag, so adds and removes are single
// atomic statements rather than read-modify-write of a set column.
type ConversationUnread struct {
	ID             uint `gorm:"primaryKey" json:"-"`
	ConversationID uint `gorm:"not null;uniqueIndex:idx_unread_conv_user" json:"conversation_id"`
	UserID         uint `gorm:"not null;uniqueIndex:idx_unread_conv_user;index" json:"user_id"`
}

func (ConversationUnread) TableName() string {
	return "conversation_unreads"
}

// Message is append-only; rows are removed only when the whole conversation
// is garbage-collected.
type Message struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	ConversationID uint      `gorm:"not null;index:idx_messages_conv_created" json:"conversation_id"`
	SenderID       uint      `gorm:"not null;index" json:"sender_id"`
	Content        string    `gorm:"type:text;not null" json:"content"`
	CreatedAt      time.Time `gorm:"index:idx_messages_conv_created" json:"timestamp"`

	Sender User `gorm:"foreignKey:SenderID" json:"-"`
}

func (Message) TableName() string {
	return "messages"
}
