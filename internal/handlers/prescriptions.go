package handlers

import (
	"github.com/gin-gonic/gin"

	"medconnect-server/internal/prescriptions"
	"medconnect-server/internal/utils"
)

type PrescriptionHandler struct {
	svc *prescriptions.Service
}

func NewPrescriptionHandler(svc *prescriptions.Service) *PrescriptionHandler {
	return &PrescriptionHandler{svc: svc}
}

// Issue handles POST /prescriptions. Issuing completes the appointment.
func (h *PrescriptionHandler) Issue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req prescriptions.IssueRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	rx, err := h.svc.Issue(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Prescription issued successfully", rx)
}

// List handles GET /prescriptions?appointmentId=.
func (h *PrescriptionHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), actor, c.Query("appointmentId"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", list)
}

func (h *PrescriptionHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	rx, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Prescription fetched successfully", rx)
}

// Verify recomputes the digital signature.
func (h *PrescriptionHandler) Verify(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	v, err := h.svc.Verify(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	msg := "Signature is valid"
	if !v.Valid {
		msg = "Signature does not match the prescription content"
	}
	utils.Success(c, msg, v)
}
