package handlers

import (
	"github.com/Aninda2000/Royal-Media-sub001/internal/models"
	"github.com/labstack/echo/v4"
)

// getUserIDFromContext returns the authenticated recipient id set by the JWT
// middleware, or "" when the request is unauthenticated.
func getUserIDFromContext(c echo.Context) string {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok || claims == nil {
		return ""
	}
	return claims.UserID
}
