package models

import (
	"time"

	"comparte/internal/domain"

	"gorm.io/gorm"
)

// Notification is a durable per-recipient event. Content and Preview are
// snapshots taken at creation time and are never re-derived from the live
// donation or user records.
type Notification struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	RecipientID uint           `gorm:"not null;index:idx_notifications_recipient_created" json:"recipient_id"`
	Type        string         `gorm:"size:32;not null;index" json:"type"` // info, request
	Content     string         `gorm:"size:512;not null" json:"content"`
	Preview     string         `gorm:"type:text" json:"preview"` // raw requester message, request type only
	RequesterID *uint          `gorm:"index" json:"requesterId"`
	DonationID  *uint          `gorm:"index" json:"donationId"`
	IsRead      bool           `gorm:"not null;default:false" json:"read"`
	CreatedAt   time.Time      `gorm:"index:idx_notifications_recipient_created" json:"createdAt"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Recipient User `gorm:"foreignKey:RecipientID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}

// IsRequest reports whether this notification carries a contact request that
// the recipient can accept or reject.
func (n *Notification) IsRequest() bool {
	return n.Type == domain.NotificationTypeRequest && n.RequesterID != nil && n.DonationID != nil
}
