package handlers

import (
	"github.com/gin-gonic/gin"

	"medconnect-server/internal/symptoms"
	"medconnect-server/internal/utils"
)

// SymptomHandler serves the symptom checker and the health assistant chat.
type SymptomHandler struct {
	svc *symptoms.Service
}

func NewSymptomHandler(svc *symptoms.Service) *SymptomHandler {
	return &SymptomHandler{svc: svc}
}

// Check handles POST /symptoms/check.
func (h *SymptomHandler) Check(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var in symptoms.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	result, err := h.svc.Assess(c.Request.Context(), actor, in)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Assessment complete", result)
}

// ChatRequest is one question to the health assistant.
type ChatRequest struct {
	Question string `json:"question" binding:"required"`
}

// Chat handles POST /assistant/chat.
func (h *SymptomHandler) Chat(c *gin.Context) {
	var req ChatRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	answer, err := h.svc.Ask(c.Request.Context(), req.Question)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Answer ready", gin.H{"question": req.Question, "answer": answer})
}
