package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/roster-api/internal/service"
	"github.com/noah-isme/roster-api/pkg/response"
)

// NotificationHandler exposes transient notifications for polling clients.
type NotificationHandler struct {
	notifications *service.NotificationService
}

// NewNotificationHandler constructs NotificationHandler.
func NewNotificationHandler(notifications *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

// List godoc
// @Summary Recent notifications
// @Description Notifications with a sequence number greater than after, oldest first
// @Tags Notifications
// @Produce json
// @Param after query int false "Last sequence number seen"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	var after uint64
	if raw := c.Query("after"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			response.Error(c, invalidQuery("after", "numeric"))
			return
		}
		after = v
	}
	response.JSON(c, http.StatusOK, h.notifications.Since(after), nil)
}
