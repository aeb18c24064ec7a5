package models

import (
	"github.com/golang-jwt/jwt/v4"
)

// JwtCustomClaims are custom claims extending standard jwt.RegisteredClaims.
// UserID is the opaque verified identity issued by the account service; this
// engine never dereferences it.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}
