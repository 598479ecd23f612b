package models

// EmergencyStatus represents the handling state of an emergency request.
type EmergencyStatus string

const (
	EmergencyPending      EmergencyStatus = "pending"
	EmergencyAcknowledged EmergencyStatus = "acknowledged"
	EmergencyDispatched   EmergencyStatus = "dispatched"
)

// EmergencyRequest is raised by a patient and handled by hospitals.
type EmergencyRequest struct {
	BaseModel
	PatientID         string          `gorm:"size:36;index" json:"patientId,omitempty"`
	PatientEmail      string          `gorm:"size:255" json:"patientEmail,omitempty"`
	PatientName       string          `gorm:"size:200" json:"patientName"`
	EmergencyType     string          `gorm:"size:50" json:"emergencyType"`
	Location          string          `gorm:"type:text" json:"location"`
	Latitude          *float64        `json:"latitude,omitempty"`
	Longitude         *float64        `json:"longitude,omitempty"`
	ContactPhone      string          `gorm:"size:30" json:"contactPhone"`
	Description       string          `gorm:"type:text" json:"description,omitempty"`
	Status            EmergencyStatus `gorm:"size:20;index" json:"status"`
	HandledBy         string          `gorm:"size:36" json:"handledBy,omitempty"`
	NotifiedHospitals int             `json:"notifiedHospitals"`
}
