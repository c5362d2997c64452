package models

import (
	"time"

	"gorm.io/gorm"
)

type Donation struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	OwnerID        uint           `gorm:"not null;index" json:"owner_id"`
	Type           string         `gorm:"size:64;not null;index" json:"type"`
	Description    string         `gorm:"size:512;not null" json:"description"`
	Quantity       float64        `gorm:"not null" json:"quantity"`
	Unit           string         `gorm:"size:16;not null" json:"unit"`
	Latitude       *float64       `gorm:"type:decimal(10,8);index:idx_donations_lat_lng" json:"latitude"`
	Longitude      *float64       `gorm:"type:decimal(11,8);index:idx_donations_lat_lng" json:"longitude"`
	ExpirationDate *time.Time     `gorm:"index" json:"expirationDate"`
	Status         string         `gorm:"size:20;not null;index" json:"status"` // AVAILABLE, RESERVED, DELIVERED
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`

	Owner  User            `gorm:"foreignKey:OwnerID" json:"-"`
	Images []DonationImage `gorm:"foreignKey:DonationID" json:"images"`
}

func (Donation) TableName() string {
	return "donations"
}

// Expired reports whether the donation is past its expiration date. Donations
// without one never expire.
func (d *Donation) Expired(now time.Time) bool {
	return d.ExpirationDate != nil && d.ExpirationDate.Before(now)
}

// FirstImageURL returns the primary image or empty string.
func (d *Donation) FirstImageURL() string {
	if len(d.Images) == 0 {
		return ""
	}
	return d.Images[0].URL
}

type DonationImage struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	DonationID uint           `gorm:"not null;index" json:"donation_id"`
	URL        string         `gorm:"size:512;not null" json:"url"`
	CreatedAt  time.Time      `json:"created_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`
}

func (DonationImage) TableName() string {
	return "donation_images"
}
