package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "pending"
	StatusConfirmed AppointmentStatus = "confirmed"
	StatusCompleted AppointmentStatus = "completed"
	StatusCancelled AppointmentStatus = "cancelled"
	StatusRejected  AppointmentStatus = "rejected"
)

// Holds reports whether an appointment in this status occupies its slot.
func (s AppointmentStatus) Holds() bool {
	return s == StatusPending || s == StatusConfirmed
}

// PaymentStatusPaid is the only payment state; there is no gateway.
const PaymentStatusPaid = "paid"

// DateLayout is the wire format of appointment dates.
const DateLayout = "2006-01-02"

// SlotLayout is the wire format of time slots, e.g. "10:30 AM".
const SlotLayout = "3:04 PM"

// Appointment represents a scheduled medical appointment
type Appointment struct {
	BaseModel
	PatientID        string            `gorm:"size:36;index;uniqueIndex:idx_appt_idem,priority:1" json:"patientId"`
	PatientName      string            `gorm:"size:200" json:"patientName"`
	PatientEmail     string            `gorm:"size:255;index" json:"patientEmail"`
	PatientPhone     string            `gorm:"size:30" json:"patientPhone"`
	DoctorID         string            `gorm:"size:36;index" json:"doctorId"`
	DoctorName       string            `gorm:"size:200" json:"doctorName"`
	DoctorEmail      string            `gorm:"size:255" json:"doctorEmail"`
	Date             string            `gorm:"size:10;index" json:"date"`
	TimeSlot         string            `gorm:"size:20" json:"timeSlot"`
	StartTime        time.Time         `gorm:"index" json:"startTime"`
	ConsultationType ConsultationType  `gorm:"size:20" json:"consultationType"`
	Symptoms         string            `gorm:"type:text" json:"symptoms"`
	Status           AppointmentStatus `gorm:"size:20;index;default:'pending'" json:"status"`
	RejectionReason  string            `gorm:"type:text" json:"rejectionReason,omitempty"`
	Notes            string            `gorm:"type:text" json:"notes,omitempty"`
	MeetingLink      string            `gorm:"size:255" json:"meetingLink,omitempty"`
	ConsultationFee  float64           `json:"consultationFee"`
	PaymentStatus    string            `gorm:"size:20" json:"paymentStatus"`
	IdempotencyKey   *string           `gorm:"size:100;uniqueIndex:idx_appt_idem,priority:2" json:"-"`
	ReminderSentAt   *time.Time        `json:"-"`
}

// IsParticipant reports whether userID is the patient or the doctor.
func (a *Appointment) IsParticipant(userID string) bool {
	return userID != "" && (userID == a.PatientID || userID == a.DoctorID)
}

// ParseStart combines a date and a slot into a local time.
func ParseStart(date, slot string) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+SlotLayout, date+" "+slot, time.Local)
}
