package handlers

import (
	"errors"
	"net/http"

	"github.com/Aninda2000/Royal-Media-sub001/internal/delivery"
	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

// EventHandler accepts producer events from platform collaborators (the
// comment service, the follow service, ...) and runs them through the
// delivery gate. Clients submitting over the realtime channel hit the same
// gate with the same validation.
type EventHandler struct {
	gate *delivery.Gate
}

// NewEventHandler creates a new EventHandler
func NewEventHandler(gate *delivery.Gate) *EventHandler {
	return &EventHandler{gate: gate}
}

// RegisterEventRoutes registers the producer event route
func (h *EventHandler) RegisterEventRoutes(g *echo.Group) {
	g.POST("/events", h.SubmitEvent)
}

// SubmitEvent validates and evaluates one producer event.
func (h *EventHandler) SubmitEvent(c echo.Context) error {
	if getUserIDFromContext(c) == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var ev models.Event
	if err := c.Bind(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid event payload")
	}
	if err := c.Validate(&ev); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	decision, err := h.gate.Evaluate(c.Request().Context(), &ev)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	status := http.StatusCreated
	if decision.Notification == nil {
		// Every channel disabled for this category; nothing was delivered.
		status = http.StatusOK
	}
	return c.JSON(status, echo.Map{"success": true, "data": decision})
}
