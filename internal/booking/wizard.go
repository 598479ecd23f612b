// Package booking implements the appointment booking wizard and slot availability.
package booking

import (
	"strings"

	"medconnect-server/internal/apperr"
	"medconnect-server/internal/models"
)

// Step is a wizard page.
type Step int

const (
	StepSlotSelection Step = iota + 1
	StepPatientDetails
	StepPayment
	StepConfirmation
)

func (s Step) String() string {
	switch s {
	case StepSlotSelection:
		return "slot_selection"
	case StepPatientDetails:
		return "patient_details"
	case StepPayment:
		return "payment"
	case StepConfirmation:
		return "confirmation"
	}
	return "unknown"
}

// Wizard is the state of a booking in progress. It moves strictly forward
// one step at a time and only when the current step is complete.
type Wizard struct {
	Step             Step                    `json:"step"`
	DoctorID         string                  `json:"doctorId"`
	Date             string                  `json:"date"`
	TimeSlot         string                  `json:"timeSlot"`
	ConsultationType models.ConsultationType `json:"consultationType"`
	PatientName      string                  `json:"patientName"`
	PatientPhone     string                  `json:"patientPhone"`
	PatientEmail     string                  `json:"patientEmail"`
	Symptoms         string                  `json:"symptoms"`
	PaymentAccepted  bool                    `json:"paymentAccepted"`
}

// NewWizard starts a booking with doctorID on the first step.
func NewWizard(doctorID string) Wizard {
	return Wizard{
		Step:             StepSlotSelection,
		DoctorID:         doctorID,
		ConsultationType: models.ConsultationVideo,
	}
}

// missing returns the incomplete fields of the current step.
func (w Wizard) missing() map[string]string {
	fields := map[string]string{}
	switch w.Step {
	case StepSlotSelection:
		if strings.TrimSpace(w.Date) == "" {
			fields["date"] = "select a date"
		}
		if strings.TrimSpace(w.TimeSlot) == "" {
			fields["timeSlot"] = "select a time slot"
		}
		if w.ConsultationType != models.ConsultationVideo && w.ConsultationType != models.ConsultationClinic {
			fields["consultationType"] = "choose video or clinic"
		}
	case StepPatientDetails:
		if strings.TrimSpace(w.PatientName) == "" {
			fields["patientName"] = "name is required"
		}
		if strings.TrimSpace(w.PatientPhone) == "" {
			fields["patientPhone"] = "phone is required"
		}
	case StepPayment:
		if !w.PaymentAccepted {
			fields["paymentAccepted"] = "confirm the consultation fee"
		}
	case StepConfirmation:
		fields["step"] = "booking is already confirmed"
	default:
		fields["step"] = "unknown step"
	}
	return fields
}

// CanContinue reports whether the current step is complete.
func (w Wizard) CanContinue() bool {
	return len(w.missing()) == 0
}

// Next advances one step. When the current step is incomplete it returns a
// validation error listing the missing fields and stays put.
func (w *Wizard) Next() error {
	if fields := w.missing(); len(fields) > 0 {
		return apperr.ValidationFields("cannot continue from "+w.Step.String(), fields)
	}
	w.Step++
	return nil
}

// Back returns to the previous step. It does nothing on the first step and
// after confirmation.
func (w *Wizard) Back() {
	if w.Step > StepSlotSelection && w.Step < StepConfirmation {
		w.Step--
	}
}

// Validate walks a copy of the wizard from the first step through payment
// and returns the first incomplete step's error.
func (w Wizard) Validate() error {
	w.Step = StepSlotSelection
	for w.Step < StepConfirmation {
		if err := w.Next(); err != nil {
			return err
		}
	}
	return nil
}
