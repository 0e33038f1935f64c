package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/util"
)

// GetNotifications returns the user's notifications, newest first, with
// the unread count
// GET /api/v1/notifications
func (h *Handlers) GetNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	page, perPage := util.ParsePagination(c.Query("page"), c.Query("per_page"))
	result, err := h.notifier.GetUserNotifications(userID, page, perPage)
	if err != nil {
		logger.ErrorWithFields("Failed to load notifications", err)
		util.RespondInternalError(c, "Failed to load notifications")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetUnreadCount returns only the unread notification count
// GET /api/v1/notifications/unread-count
func (h *Handlers) GetUnreadCount(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	count, err := h.notifier.UnreadCount(userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to load unread count")
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

// MarkNotificationRead marks one notification read. Already-read
// notifications come back unchanged.
// PUT /api/v1/notifications/:id/read
func (h *Handlers) MarkNotificationRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	notification, err := h.notifier.MarkRead(userID, c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "notification")
			return
		}
		util.RespondInternalError(c, "Failed to mark notification read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"notification": notification})
}

// MarkAllNotificationsRead marks every unread notification read
// PUT /api/v1/notifications/read-all
func (h *Handlers) MarkAllNotificationsRead(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	updated, err := h.notifier.MarkAllRead(userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to mark notifications read")
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// DeleteNotification removes one of the user's notifications
// DELETE /api/v1/notifications/:id
func (h *Handlers) DeleteNotification(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	if err := h.notifier.Delete(userID, c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			util.RespondNotFound(c, "notification")
			return
		}
		util.RespondInternalError(c, "Failed to delete notification")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "notification deleted"})
}

// DeleteAllNotifications clears the user's notification list
// DELETE /api/v1/notifications
func (h *Handlers) DeleteAllNotifications(c *gin.Context) {
	userID, ok := util.GetUserIDFromContext(c)
	if !ok {
		return
	}

	deleted, err := h.notifier.DeleteAll(userID)
	if err != nil {
		util.RespondInternalError(c, "Failed to delete notifications")
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}
