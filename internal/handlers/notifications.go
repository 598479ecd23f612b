package handlers

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"medconnect-server/internal/models"
	"medconnect-server/internal/notifications"
	"medconnect-server/internal/utils"
)

// streamKeepAlive is how often an idle stream sends a comment line so
// proxies keep the connection open.
var streamKeepAlive = 25 * time.Second

type NotificationHandler struct {
	svc *notifications.Service
}

func NewNotificationHandler(svc *notifications.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List handles GET /notifications?unread=true&limit=.
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit", notifications.DefaultListLimit)
	if !ok {
		return
	}
	list, err := h.svc.List(c.Request.Context(), actor, queryBool(c, "unread"), limit)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Notifications fetched successfully", list)
}

// UnreadCount is the endpoint the header badge polls.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	n, err := h.svc.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Unread count fetched successfully", gin.H{"unread": n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.svc.MarkRead(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Notification marked as read", nil)
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	n, err := h.svc.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Notifications marked as read", gin.H{"updated": n})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Success(c, "Notification deleted", nil)
}

// CreateNotificationRequest is an admin-authored notification to one user.
type CreateNotificationRequest struct {
	RecipientID string                  `json:"recipientId" binding:"required"`
	Title       string                  `json:"title" binding:"required"`
	Message     string                  `json:"message" binding:"required"`
	Type        models.NotificationType `json:"type"`
	RelatedID   string                  `json:"relatedId"`
}

// Create handles POST /notifications (admin).
func (h *NotificationHandler) Create(c *gin.Context) {
	var req CreateNotificationRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	if req.Type == "" {
		req.Type = models.NotificationSystem
	}

	n := &models.Notification{
		RecipientID: req.RecipientID,
		Title:       req.Title,
		Message:     req.Message,
		Type:        req.Type,
		RelatedID:   req.RelatedID,
	}
	if err := h.svc.Notify(c.Request.Context(), n); err != nil {
		utils.HandleError(c, err)
		return
	}
	utils.Created(c, "Notification created", n)
}

// Stream handles GET /notifications/stream as server-sent events. Each new
// notification for the caller is sent as a "notification" event.
func (h *NotificationHandler) Stream(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	events, unsubscribe := h.svc.Subscribe(actor)
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"recipientId": actor.ID})
	c.Writer.Flush()

	ticker := time.NewTicker(streamKeepAlive)
	defer ticker.Stop()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case n, open := <-events:
			if !open {
				return false
			}
			c.SSEvent("notification", n)
			return true
		case <-ticker.C:
			_, _ = io.WriteString(w, ": keep-alive\n\n")
			return true
		}
	})
}
