package domain

const (
	NotificationTypeInfo    = "info"
	NotificationTypeRequest = "request"
)

const (
	DonationStatusAvailable = "AVAILABLE"
	DonationStatusReserved  = "RESERVED"
	DonationStatusDelivered = "DELIVERED"
)

// DefaultNotificationText is the last-resort display text when a notification
// is created without content and without a preview.
const DefaultNotificationText = "You have a new notification"

// Donation unit options shown by the frontend
var DonationUnits = []string{"kg", "g", "l", "ml", "units", "boxes"}
