package models

import (
	"strings"

	"gorm.io/datatypes"
)

// ConsultationType is the appointment mode.
type ConsultationType string

const (
	ConsultationVideo  ConsultationType = "video"
	ConsultationClinic ConsultationType = "clinic"
)

// DoctorProfile holds the public practice details of a doctor user.
type DoctorProfile struct {
	BaseModel
	UserID            string                               `gorm:"size:36;uniqueIndex" json:"userId"`
	Specialty         string                               `gorm:"size:100;index" json:"specialty"`
	Qualification     string                               `gorm:"size:255" json:"qualification"`
	ExperienceYears   int                                  `json:"experienceYears"`
	ConsultationFee   float64                              `json:"consultationFee"`
	HospitalName      string                               `gorm:"size:255" json:"hospitalName"`
	Languages         string                               `gorm:"size:255" json:"languages"`
	Rating            float64                              `json:"rating"`
	About             string                               `gorm:"type:text" json:"about"`
	ConsultationTypes datatypes.JSONSlice[ConsultationType] `json:"consultationTypes"`
	AvailableSlots    datatypes.JSONSlice[string]           `json:"availableSlots"`
}

// Offers reports whether the doctor accepts the consultation type.
// A profile with no configured types accepts both.
func (p *DoctorProfile) Offers(t ConsultationType) bool {
	if len(p.ConsultationTypes) == 0 {
		return true
	}
	for _, ct := range p.ConsultationTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// HasSlot reports whether slot is one of the configured slots.
// A profile with no configured slots accepts any slot.
func (p *DoctorProfile) HasSlot(slot string) bool {
	if len(p.AvailableSlots) == 0 {
		return true
	}
	for _, s := range p.AvailableSlots {
		if strings.EqualFold(s, slot) {
			return true
		}
	}
	return false
}

// Doctor is a doctor user joined with their profile, as listed in the directory.
type Doctor struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	PhoneNumber       string             `json:"phoneNumber,omitempty"`
	ProfileImage      string             `json:"profileImage,omitempty"`
	Specialty         string             `json:"specialty"`
	Qualification     string             `json:"qualification"`
	ExperienceYears   int                `json:"experienceYears"`
	ConsultationFee   float64            `json:"consultationFee"`
	HospitalName      string             `json:"hospitalName"`
	Languages         string             `json:"languages"`
	Rating            float64            `json:"rating"`
	About             string             `json:"about,omitempty"`
	ConsultationTypes []ConsultationType `json:"consultationTypes"`
	AvailableSlots    []string           `json:"availableSlots"`
}

// NewDoctor flattens a user and profile. profile may be nil.
func NewDoctor(u *User, profile *DoctorProfile) Doctor {
	d := Doctor{
		ID:           u.ID,
		Name:         u.FullName(),
		Email:        u.Email,
		PhoneNumber:  u.PhoneNumber,
		ProfileImage: u.ProfileImage,
	}
	if profile != nil {
		d.Specialty = profile.Specialty
		d.Qualification = profile.Qualification
		d.ExperienceYears = profile.ExperienceYears
		d.ConsultationFee = profile.ConsultationFee
		d.HospitalName = profile.HospitalName
		d.Languages = profile.Languages
		d.Rating = profile.Rating
		d.About = profile.About
		d.ConsultationTypes = []ConsultationType(profile.ConsultationTypes)
		d.AvailableSlots = []string(profile.AvailableSlots)
	}
	return d
}

// MatchesSpecialty is a case-insensitive substring match in either direction.
// An empty specialty matches every doctor.
func (d Doctor) MatchesSpecialty(specialty string) bool {
	want := strings.ToLower(strings.TrimSpace(specialty))
	have := strings.ToLower(strings.TrimSpace(d.Specialty))
	if want == "" {
		return true
	}
	if have == "" {
		return false
	}
	return strings.Contains(have, want) || strings.Contains(want, have)
}
