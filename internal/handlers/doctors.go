package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/booking"
	"medconnect-server/internal/logger"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

// DoctorRepository is the persistence DoctorHandler needs.
type DoctorRepository interface {
	ListDoctors(ctx context.Context, q string) ([]models.Doctor, error)
	GetDoctor(ctx context.Context, id string) (*models.User, error)
	SaveDoctorProfile(ctx context.Context, profile *models.DoctorProfile) error
}

// DoctorHandler serves the doctor directory.
type DoctorHandler struct {
	repo    DoctorRepository
	booking *booking.Service
	logger  *logger.Logger
}

func NewDoctorHandler(repo DoctorRepository, bookingSvc *booking.Service, log *logger.Logger) *DoctorHandler {
	return &DoctorHandler{repo: repo, booking: bookingSvc, logger: log}
}

// ListDoctors handles GET /doctors?q=&specialty=.
func (h *DoctorHandler) ListDoctors(c *gin.Context) {
	doctors, err := h.repo.ListDoctors(c.Request.Context(), c.Query("q"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	specialty := c.Query("specialty")
	out := make([]models.Doctor, 0, len(doctors))
	for _, d := range doctors {
		if d.MatchesSpecialty(specialty) {
			out = append(out, d)
		}
	}
	utils.Success(c, "Doctors fetched successfully", out)
}

func (h *DoctorHandler) GetDoctor(c *gin.Context) {
	user, err := h.repo.GetDoctor(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Doctor fetched successfully", models.NewDoctor(user, user.DoctorProfile))
}

// Slots handles GET /doctors/:id/slots?date=YYYY-MM-DD. The date defaults to today.
func (h *DoctorHandler) Slots(c *gin.Context) {
	date := c.DefaultQuery("date", time.Now().Format(models.DateLayout))
	slots, err := h.booking.Availability(c.Request.Context(), c.Param("id"), date)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Slots fetched successfully", gin.H{"date": date, "slots": slots})
}

// ProfileRequest is a doctor's editable practice details.
type ProfileRequest struct {
	Specialty         string                    `json:"specialty" binding:"required"`
	Qualification     string                    `json:"qualification"`
	ExperienceYears   int                       `json:"experienceYears" binding:"min=0,max=80"`
	ConsultationFee   float64                   `json:"consultationFee" binding:"min=0"`
	HospitalName      string                    `json:"hospitalName"`
	Languages         string                    `json:"languages"`
	About             string                    `json:"about"`
	ConsultationTypes []models.ConsultationType `json:"consultationTypes" binding:"dive,oneof=video clinic"`
	AvailableSlots    []string                  `json:"availableSlots"`
}

// UpdateMyProfile handles PUT /doctors/me/profile.
func (h *DoctorHandler) UpdateMyProfile(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req ProfileRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	slots := make([]string, 0, len(req.AvailableSlots))
	for _, s := range req.AvailableSlots {
		s = strings.ToUpper(strings.TrimSpace(s))
		if _, err := models.ParseStart("2000-01-01", s); err != nil {
			utils.ValidationFailed(c, "Invalid time slot "+s, map[string]string{"availableSlots": `use "HH:MM AM" times`})
			return
		}
		slots = append(slots, s)
	}

	ctx := c.Request.Context()
	user, err := h.repo.GetDoctor(ctx, actor.ID)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	profile := user.DoctorProfile
	if profile == nil {
		profile = &models.DoctorProfile{UserID: actor.ID}
	}
	profile.Specialty = strings.TrimSpace(req.Specialty)
	profile.Qualification = req.Qualification
	profile.ExperienceYears = req.ExperienceYears
	profile.ConsultationFee = req.ConsultationFee
	profile.HospitalName = req.HospitalName
	profile.Languages = req.Languages
	profile.About = req.About
	profile.ConsultationTypes = req.ConsultationTypes
	profile.AvailableSlots = slots

	if err := h.repo.SaveDoctorProfile(ctx, profile); err != nil {
		utils.HandleError(c, err)
		return
	}

	h.logger.Audit(actor.ID, "update", "doctor_profile", true, nil)
	utils.Success(c, "Profile updated successfully", models.NewDoctor(user, profile))
}
