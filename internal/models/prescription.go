package models

import (
	"gorm.io/datatypes"
)

// PrescribedMedicine is one line of a prescription.
type PrescribedMedicine struct {
	Name         string `json:"name"`
	Dosage       string `json:"dosage"`
	Frequency    string `json:"frequency"`
	Duration     string `json:"duration"`
	Instructions string `json:"instructions,omitempty"`
}

// Prescription is issued by a doctor after a consultation and is read-only afterwards.
type Prescription struct {
	BaseModel
	AppointmentID    string                                  `gorm:"size:36;index" json:"appointmentId"`
	PatientID        string                                  `gorm:"size:36;index" json:"patientId"`
	PatientName      string                                  `gorm:"size:200" json:"patientName"`
	PatientEmail     string                                  `gorm:"size:255;index" json:"patientEmail"`
	DoctorID         string                                  `gorm:"size:36;index" json:"doctorId"`
	DoctorName       string                                  `gorm:"size:200" json:"doctorName"`
	Diagnosis        string                                  `gorm:"type:text" json:"diagnosis"`
	Medicines        datatypes.JSONSlice[PrescribedMedicine] `json:"medicines"`
	Advice           string                                  `gorm:"type:text" json:"advice,omitempty"`
	FollowUpDate     string                                  `gorm:"size:10" json:"followUpDate,omitempty"`
	DigitalSignature string                                  `gorm:"size:128" json:"digitalSignature"`
}
