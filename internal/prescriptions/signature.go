package prescriptions

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"medconnect-server/internal/models"
)

type signedMedicine struct {
	Name         string `json:"n"`
	Dosage       string `json:"d"`
	Frequency    string `json:"f"`
	Duration     string `json:"t"`
	Instructions string `json:"i"`
}

// signedContent is the exact payload covered by the signature. Field order
// and names are part of the signature format.
type signedContent struct {
	ID            string           `json:"id"`
	AppointmentID string           `json:"appointmentId"`
	PatientID     string           `json:"patientId"`
	DoctorID      string           `json:"doctorId"`
	Diagnosis     string           `json:"diagnosis"`
	Medicines     []signedMedicine `json:"medicines"`
	Advice        string           `json:"advice"`
	FollowUpDate  string           `json:"followUpDate"`
}

// canonical encodes the signed fields so that no two distinct prescriptions
// share an encoding.
func canonical(rx *models.Prescription) []byte {
	content := signedContent{
		ID:            rx.ID,
		AppointmentID: rx.AppointmentID,
		PatientID:     rx.PatientID,
		DoctorID:      rx.DoctorID,
		Diagnosis:     rx.Diagnosis,
		Medicines:     make([]signedMedicine, 0, len(rx.Medicines)),
		Advice:        rx.Advice,
		FollowUpDate:  rx.FollowUpDate,
	}
	for _, m := range rx.Medicines {
		content.Medicines = append(content.Medicines, signedMedicine(m))
	}
	// only strings, cannot fail
	out, _ := json.Marshal(content)
	return out
}

// Sign returns the hex HMAC-SHA256 of the prescription content.
func Sign(secret string, rx *models.Prescription) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(canonical(rx))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature recomputes the signature and compares in constant time.
func VerifySignature(secret string, rx *models.Prescription) bool {
	got, err := hex.DecodeString(rx.DigitalSignature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(Sign(secret, rx))
	return hmac.Equal(got, want)
}
