package models

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role constants for the two marketplace sides.
const (
	RoleBrand   = "ROLE_BRAND"
	RoleCreator = "ROLE_CREATOR"
	RoleAdmin   = "ROLE_ADMIN"
)

// Claims carries the JWT payload issued by the identity service.
type Claims struct {
	UserID               uuid.UUID `json:"user_id"`
	Roles                []string  `json:"roles"`
	jwt.RegisteredClaims           // Issuer, Subject, ExpiresAt, IssuedAt, ID (JTI)
}

// HasRole reports whether the claim set contains the target role.
func HasRole(userRoles []string, targetRole string) bool {
	for _, role := range userRoles {
		if role == targetRole {
			return true
		}
	}
	return false
}
