package models

import (
	"time"
)

// ConsultationMessage is a chat message inside an appointment.
type ConsultationMessage struct {
	BaseModel
	AppointmentID string     `gorm:"size:36;index" json:"appointmentId"`
	SenderID      string     `gorm:"size:36;index" json:"senderId"`
	SenderRole    Role       `gorm:"size:20" json:"senderRole"`
	Content       string     `gorm:"type:text" json:"content"`
	ReadAt        *time.Time `json:"readAt,omitempty"`
}
