package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"medride/internal/domain"
	"medride/internal/service"
)

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// SendNotificationRequest is the HTTP request body for an admin notification.
type SendNotificationRequest struct {
	UserID  string `json:"user_id"`
	Title   string `json:"title"`
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

// NotificationListResponse lists notifications with the unread count.
type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Unread        int                    `json:"unread"`
}

// List handles GET /v1/notifications
func (h *NotificationHandler) List(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	list, err := h.notifications.ListForUser(ctx, actor, limitParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	unread, err := h.notifications.UnreadCount(ctx, actor)
	if err != nil {
		respondError(c, err)
		return
	}

	response := NotificationListResponse{
		Notifications: make([]NotificationResponse, 0, len(list)),
		Unread:        unread,
	}
	for _, n := range list {
		response.Notifications = append(response.Notifications, toNotificationResponse(n))
	}
	respondJSON(c, http.StatusOK, response)
}

// MarkRead handles POST /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	if err := h.notifications.MarkRead(c.Request.Context(), c.Param("id"), actor); err != nil {
		respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Send handles POST /v1/admin/notifications
func (h *NotificationHandler) Send(c *gin.Context) {
	var req SendNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	n, err := h.notifications.Notify(c.Request.Context(), service.NotifyRequest{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    domain.NotificationType(req.Type),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusCreated, toNotificationResponse(n))
}
