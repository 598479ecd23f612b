package models

// NotificationType groups notifications for display.
type NotificationType string

const (
	NotificationAppointment  NotificationType = "appointment"
	NotificationPrescription NotificationType = "prescription"
	NotificationEmergency    NotificationType = "emergency"
	NotificationOrder        NotificationType = "order"
	NotificationReminder     NotificationType = "reminder"
	NotificationMessage      NotificationType = "message"
	NotificationSystem       NotificationType = "system"
)

// Notification is created as a side effect of other mutations.
type Notification struct {
	BaseModel
	RecipientID    string           `gorm:"size:36;index" json:"recipientId,omitempty"`
	RecipientEmail string           `gorm:"size:255;index" json:"recipientEmail"`
	Title          string           `gorm:"size:255" json:"title"`
	Message        string           `gorm:"type:text" json:"message"`
	Type           NotificationType `gorm:"size:30" json:"type"`
	RelatedID      string           `gorm:"size:36" json:"relatedId,omitempty"`
	IsRead         bool             `gorm:"index;default:false" json:"isRead"`
}
