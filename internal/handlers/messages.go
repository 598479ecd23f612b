package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/consultation"
	"medconnect-server/internal/utils"
)

// MessageHandler handles consultation chat between an appointment's patient and doctor.
type MessageHandler struct {
	svc *consultation.Service
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(svc *consultation.Service) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// SendMessage handles POST /appointments/:id/messages.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	msg, err := h.svc.Send(c.Request.Context(), actor, c.Param("id"), req.Content)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}

// GetMessages handles GET /appointments/:id/messages?since=RFC3339. Polling
// clients pass the timestamp of the newest message they hold.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var since time.Time
	if raw := c.Query("since"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			utils.BadRequest(c, "Invalid since parameter. Use RFC3339 format")
			return
		}
		since = t
	}

	msgs, err := h.svc.List(c.Request.Context(), actor, c.Param("id"), since)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", msgs)
}
