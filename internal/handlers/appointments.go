package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/appointments"
	"medconnect-server/internal/booking"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

// IdempotencyHeader lets a client retry a booking without creating a duplicate.
const IdempotencyHeader = "Idempotency-Key"

// AppointmentHandler handles appointment related requests.
type AppointmentHandler struct {
	booking      *booking.Service
	appointments *appointments.Service
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(bookingSvc *booking.Service, appointmentSvc *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{booking: bookingSvc, appointments: appointmentSvc}
}

// WizardRequest is the wizard state plus the navigation to apply.
type WizardRequest struct {
	booking.Wizard
	Action string `json:"action" binding:"required,oneof=next back check"`
}

// WizardResponse is the wizard after the action.
type WizardResponse struct {
	booking.Wizard
	StepName    string `json:"stepName"`
	CanContinue bool   `json:"canContinue"`
}

// Wizard handles POST /appointments/wizard. It stores nothing; clients send
// their state and receive the next one, or a validation error naming the
// fields the current step is missing.
func (h *AppointmentHandler) Wizard(c *gin.Context) {
	var req WizardRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	w := req.Wizard
	switch req.Action {
	case "next":
		if err := w.Next(); err != nil {
			utils.HandleError(c, err)
			return
		}
	case "back":
		w.Back()
	}

	utils.Success(c, "Wizard step "+w.Step.String(), WizardResponse{
		Wizard:      w,
		StepName:    w.Step.String(),
		CanContinue: w.CanContinue(),
	})
}

// CreateAppointment books a completed wizard.
func (h *AppointmentHandler) CreateAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req booking.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}
	req.IdempotencyKey = strings.TrimSpace(c.GetHeader(IdempotencyHeader))

	appt, err := h.booking.Book(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Appointment booked successfully", appt)
}

// GetAppointmentsForUser lists the caller's appointments, optionally by ?status=.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	list, err := h.appointments.List(c.Request.Context(), actor, models.AppointmentStatus(c.Query("status")))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Appointments fetched successfully", list)
}

func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	appt, err := h.appointments.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Appointment fetched successfully", appt)
}

// UpdateAppointmentStatus confirms, rejects, cancels or completes an appointment.
func (h *AppointmentHandler) UpdateAppointmentStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req appointments.StatusChange
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.appointments.UpdateStatus(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Appointment "+string(appt.Status), appt)
}

// RescheduleRequest moves an appointment to another slot.
type RescheduleRequest struct {
	Date     string `json:"date" binding:"required"`
	TimeSlot string `json:"timeSlot" binding:"required"`
}

func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req RescheduleRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appt, err := h.booking.Reschedule(c.Request.Context(), actor, c.Param("id"), req.Date, req.TimeSlot)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Appointment rescheduled successfully", appt)
}
