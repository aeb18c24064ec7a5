package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/realtime"
	"github.com/Aninda2000/Royal-Media-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
)

// NotificationHandler handles notification-related HTTP requests. Every
// mutation is broadcast to all of the recipient's live sessions so they
// stay consistent with each other.
type NotificationHandler struct {
	notificationRepository repositories.NotificationRepository
	hub                    *realtime.Hub
}

// NewNotificationHandler creates a new NotificationHandler
func NewNotificationHandler(notifRepo repositories.NotificationRepository, hub *realtime.Hub) *NotificationHandler {
	return &NotificationHandler{
		notificationRepository: notifRepo,
		hub:                    hub,
	}
}

// RegisterNotificationRoutes registers notification routes
func (h *NotificationHandler) RegisterNotificationRoutes(g *echo.Group) {
	g.GET("/notifications", h.GetNotifications)
	g.GET("/notifications/unread-count", h.GetUnreadCount)
	g.PATCH("/notifications/:id/read", h.MarkAsRead)
	g.PATCH("/notifications/:id/click", h.MarkAsClicked)
	g.PATCH("/notifications/read-all", h.MarkAllAsRead)
	g.DELETE("/notifications/:id", h.DeleteNotification)
	g.DELETE("/notifications", h.ClearAll)
}

// GetNotifications returns paginated notifications, newest first. Supports
// ?category= and ?unread=true filters.
func (h *NotificationHandler) GetNotifications(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	filter := repositories.ListFilter{}
	if raw := c.QueryParam("category"); raw != "" {
		category := models.Category(raw)
		if !category.Valid() {
			return echo.NewHTTPError(http.StatusBadRequest, "Unknown category")
		}
		filter.Category = &category
	}
	filter.UnreadOnly = c.QueryParam("unread") == "true"

	notifications, total, err := h.notificationRepository.List(c.Request().Context(), currentUserID, filter, page, limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	return c.JSON(http.StatusOK, echo.Map{
		"success": true,
		"data": echo.Map{
			"notifications": notifications,
		},
		"meta": echo.Map{
			"currentPage":     page,
			"totalPages":      totalPages,
			"totalItems":      total,
			"itemsPerPage":    limit,
			"hasNextPage":     page < totalPages,
			"hasPreviousPage": page > 1,
		},
	})
}

// GetUnreadCount returns the unread notification count
func (h *NotificationHandler) GetUnreadCount(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	count, err := h.notificationRepository.UnreadCount(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"count": count}})
}

// MarkAsRead marks a notification as read and notifies sibling sessions.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	return h.markOne(c, false)
}

// MarkAsClicked marks a notification as clicked, which implies read.
func (h *NotificationHandler) MarkAsClicked(c echo.Context) error {
	return h.markOne(c, true)
}

func (h *NotificationHandler) markOne(c echo.Context, clicked bool) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id := c.Param("id")

	if err := h.authorize(c, id, currentUserID); err != nil {
		return err
	}

	var (
		n   *models.Notification
		err error
	)
	if clicked {
		n, err = h.notificationRepository.MarkClicked(c.Request().Context(), id)
	} else {
		n, err = h.notificationRepository.MarkRead(c.Request().Context(), id)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.hub.Push(currentUserID, realtime.EventNotificationRead, echo.Map{"id": id})

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": n})
}

// MarkAllAsRead marks all notifications as read
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	updated, err := h.notificationRepository.MarkAllRead(c.Request().Context(), currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.hub.Push(currentUserID, realtime.EventAllRead, nil)

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"updated": updated}})
}

// DeleteNotification deletes a notification. Deleting an id that is already
// gone is a no-op, not an error.
func (h *NotificationHandler) DeleteNotification(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	id := c.Param("id")

	if err := h.authorize(c, id, currentUserID); err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) && httpErr.Code == http.StatusNotFound {
			// Already deleted or expired; idempotent.
			return c.JSON(http.StatusOK, echo.Map{"success": true})
		}
		return err
	}

	if err := h.notificationRepository.Delete(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.hub.Push(currentUserID, realtime.EventNotificationDeleted, echo.Map{"id": id})

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// ClearAll removes every notification of the recipient. Idempotent.
func (h *NotificationHandler) ClearAll(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	if err := h.notificationRepository.ClearAll(c.Request().Context(), currentUserID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.hub.Push(currentUserID, realtime.EventAllCleared, nil)

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// authorize checks that the notification exists, is visible, and belongs to
// the requester.
func (h *NotificationHandler) authorize(c echo.Context, id, userID string) error {
	n, err := h.notificationRepository.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "Notification not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if n.RecipientID != userID {
		return echo.NewHTTPError(http.StatusForbidden, "Not your notification")
	}
	return nil
}
