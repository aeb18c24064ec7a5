package handlers

import (
	"errors"
	"net/http"

	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/Aninda2000/Royal-Media-sub001/internal/repositories"
	"github.com/labstack/echo/v4"
)

// SettingsHandler handles notification-settings HTTP requests
type SettingsHandler struct {
	settingsRepository repositories.SettingsRepository
}

// NewSettingsHandler creates a new SettingsHandler
func NewSettingsHandler(settingsRepo repositories.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settingsRepository: settingsRepo}
}

// RegisterSettingsRoutes registers settings routes
func (h *SettingsHandler) RegisterSettingsRoutes(g *echo.Group) {
	g.GET("/notifications/settings", h.GetSettings)
	g.PATCH("/notifications/settings", h.UpdateSettings)
}

// GetSettings returns the recipient's settings, materializing defaults on
// first access.
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	settings, err := h.settingsRepository.Get(currentUserID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": settings})
}

// UpdateSettings merges a partial patch into the recipient's settings and
// returns the full merged record. Unspecified keys are never dropped.
func (h *SettingsHandler) UpdateSettings(c echo.Context) error {
	currentUserID := getUserIDFromContext(c)
	if currentUserID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}

	var patch models.SettingsPatch
	if err := c.Bind(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid settings payload")
	}

	settings, err := h.settingsRepository.Update(currentUserID, &patch)
	if err != nil {
		if errors.Is(err, models.ErrValidation) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, echo.Map{"success": true, "data": settings})
}
