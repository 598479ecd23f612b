package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// HealthRecordType represents the type of health record
type HealthRecordType string

const (
	RecordTypeLabReport        HealthRecordType = "lab_report"
	RecordTypePrescription     HealthRecordType = "prescription"
	RecordTypeImaging          HealthRecordType = "imaging"
	RecordTypeVaccination      HealthRecordType = "vaccination"
	RecordTypeDischargeSummary HealthRecordType = "discharge_summary"
	RecordTypeConsultation     HealthRecordType = "consultation_note"
	RecordTypeOther            HealthRecordType = "other"
)

// HealthRecord is a patient-owned document, freely editable by its owner.
type HealthRecord struct {
	BaseModel
	PatientID     string                      `gorm:"size:36;index" json:"patientId"`
	PatientEmail  string                      `gorm:"size:255;index" json:"patientEmail"`
	Title         string                      `gorm:"size:255;not null" json:"title"`
	RecordType    HealthRecordType            `gorm:"size:50" json:"recordType"`
	RecordDate    time.Time                   `json:"recordDate"`
	Description   string                      `gorm:"type:text" json:"description"`
	DoctorName    string                      `gorm:"size:200" json:"doctorName,omitempty"`
	FileURL       string                      `gorm:"size:255" json:"fileUrl,omitempty"`
	FileID        string                      `gorm:"size:36" json:"fileId,omitempty"`
	LinkedRecords datatypes.JSONSlice[string] `json:"linkedRecords"`
	SharedWith    datatypes.JSONSlice[string] `json:"sharedWith"`
	ExtractedData datatypes.JSON              `json:"extractedData,omitempty"`
}

// SharedWithEmail reports whether email is in the share list.
func (r *HealthRecord) SharedWithEmail(email string) bool {
	if email == "" {
		return false
	}
	for _, e := range r.SharedWith {
		if strings.EqualFold(e, email) {
			return true
		}
	}
	return false
}

// StoredFile is an uploaded blob, stored in the database.
type StoredFile struct {
	BaseModel
	OwnerID     string `gorm:"size:36;index" json:"ownerId"`
	FileName    string `gorm:"not null" json:"fileName"`
	ContentType string `gorm:"size:100;not null" json:"contentType"`
	Size        int64  `json:"size"`
	Data        []byte `gorm:"not null" json:"-"`
}
