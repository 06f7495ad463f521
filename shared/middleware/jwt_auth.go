package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"collab-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// Gin context keys set by JWTAuthMiddleware.
const (
	ContextUserIDKey = "user_id"
	ContextRolesKey  = "user_roles"
)

// JWTAuthMiddleware verifies the Bearer access token and, when requiredRoles
// are given, demands at least one of them. UserID and roles land in the gin
// context for handlers.
func JWTAuthMiddleware(secret string, logger *zap.Logger, requiredRoles ...string) gin.HandlerFunc {
	log := logger.Named("JWTAuth")
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			log.Warn("Authorization header missing", zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, "Missing token")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			log.Warn("Malformed Authorization header", zap.String("path", c.Request.URL.Path))
			abortUnauthorized(c, "Malformed token header")
			return
		}

		claims, err := verifyToken(parts[1], secret)
		if err != nil {
			log.Warn("Token verification failed", zap.Error(err))
			if errors.Is(err, models.ErrTokenExpired) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
					Code:    models.ErrCodeTokenExpired,
					Message: "Token has expired",
				})
				return
			}
			abortUnauthorized(c, "Token is invalid")
			return
		}

		if len(requiredRoles) > 0 && !hasAnyRole(claims.Roles, requiredRoles) {
			log.Warn("Insufficient role",
				zap.String("userID", claims.UserID.String()),
				zap.Strings("roles", claims.Roles))
			c.AbortWithStatusJSON(http.StatusForbidden, models.ErrorResponse{
				Code:    models.ErrCodeForbidden,
				Message: "Insufficient permissions",
			})
			return
		}

		c.Set(ContextUserIDKey, claims.UserID)
		c.Set(ContextRolesKey, claims.Roles)
		c.Next()
	}
}

func verifyToken(tokenString, secret string) (*models.Claims, error) {
	claims := &models.Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, fmt.Errorf("%v: %w", err, models.ErrTokenInvalid)
	}
	if !token.Valid {
		return nil, models.ErrTokenInvalid
	}
	return claims, nil
}

func hasAnyRole(userRoles, required []string) bool {
	for _, role := range required {
		if models.HasRole(userRoles, role) {
			return true
		}
	}
	return false
}

func abortUnauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, models.ErrorResponse{
		Code:    models.ErrCodeTokenInvalid,
		Message: message,
	})
}
