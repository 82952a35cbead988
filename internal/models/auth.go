package models

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the role claim carried by access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleMember     UserRole = "MEMBER"
)

// CanModerate reports whether the role grants moderation and taxonomy rights.
func (r UserRole) CanModerate() bool {
	switch UserRole(strings.ToUpper(string(r))) {
	case RoleSuperAdmin, RoleAdmin:
		return true
	}
	return false
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Identity is the signed-in caller as seen by the services.
type Identity struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	Name        string `json:"name"`
	CanModerate bool   `json:"canModerate"`
}

// IdentityFromClaims derives the caller identity from validated token claims.
func IdentityFromClaims(claims *JWTClaims) *Identity {
	if claims == nil || claims.UserID == "" {
		return nil
	}
	name := claims.FullName
	if name == "" {
		name = claims.Email
	}
	return &Identity{
		ID:          claims.UserID,
		Email:       claims.Email,
		Name:        name,
		CanModerate: claims.Role.CanModerate(),
	}
}
