package handlers

import (
	"github.com/gin-gonic/gin"

	"medconnect-server/internal/emergency"
	"medconnect-server/internal/models"
	"medconnect-server/internal/utils"
)

type EmergencyHandler struct {
	svc *emergency.Service
}

func NewEmergencyHandler(svc *emergency.Service) *EmergencyHandler {
	return &EmergencyHandler{svc: svc}
}

// Raise handles POST /emergency. The response carries how many hospitals
// were alerted; partial fan-out failures do not fail the request.
func (h *EmergencyHandler) Raise(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req emergency.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	er, err := h.svc.Raise(c.Request.Context(), actor, req)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Emergency request sent", er)
}

func (h *EmergencyHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), actor, models.EmergencyStatus(c.Query("status")))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Emergency requests fetched successfully", list)
}

func (h *EmergencyHandler) Get(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	er, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Emergency request fetched successfully", er)
}

// EmergencyStatusRequest advances an emergency request.
type EmergencyStatusRequest struct {
	Status models.EmergencyStatus `json:"status" binding:"required,oneof=acknowledged dispatched"`
}

func (h *EmergencyHandler) UpdateStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req EmergencyStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	er, err := h.svc.Advance(c.Request.Context(), actor, c.Param("id"), req.Status)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Emergency request "+string(er.Status), er)
}
