package api

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"evofit/meal-planner/internal/domain"
	"evofit/meal-planner/internal/ratelimit"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Constants for context keys
const (
	ContextUserIDKey   = "userID"
	ContextUserRoleKey = "userRole"
)

// AuthUser is the immutable caller identity handed to handlers. Handlers read
// it from the request context instead of any ambient global state.
type AuthUser struct {
	ID   primitive.ObjectID
	Role domain.Role
}

// authClaims mirrors the payload written by authService.generateJWT.
type authClaims struct {
	UserID string      `json:"uid"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware creates a Gin middleware for JWT authentication.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			respondError(c, http.StatusUnauthorized, "Authorization header is missing")
			return
		}

		// Expecting "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			respondError(c, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
			return
		}
		tokenString := parts[1]

		claims := &authClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(jwtSecret), nil
		})

		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				respondError(c, http.StatusUnauthorized, "Token has expired")
			} else {
				respondError(c, http.StatusUnauthorized, "Invalid token")
			}
			return
		}

		if !token.Valid || claims.UserID == "" || claims.Role == "" {
			respondError(c, http.StatusUnauthorized, "Invalid token or missing claims")
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "Invalid token subject")
			return
		}

		c.Set(ContextUserIDKey, userID)
		c.Set(ContextUserRoleKey, claims.Role)

		c.Next()
	}
}

// roleLabel renders a role for client-facing messages ("trainer" -> "Trainer").
func roleLabel(role domain.Role) string {
	s := string(role)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// RoleMiddleware rejects callers whose role is not in the allowed list. Must
// run AFTER AuthMiddleware. The rejection happens before any handler or
// storage code runs.
func RoleMiddleware(allowedRoles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := currentUser(c)
		if err != nil {
			respondError(c, http.StatusInternalServerError, "User identity not found in context")
			return
		}

		for _, allowed := range allowedRoles {
			if user.Role == allowed {
				c.Next()
				return
			}
		}

		if len(allowedRoles) == 1 {
			respondError(c, http.StatusForbidden, fmt.Sprintf("Access denied: %s role required", roleLabel(allowedRoles[0])))
			return
		}
		respondError(c, http.StatusForbidden, "Access denied: insufficient role")
	}
}

// RateLimitMiddleware enforces a fixed-window request budget per caller
// identity, falling back to the client IP before authentication. Over-budget
// requests are rejected outright; nothing is queued.
func RateLimitMiddleware(limiter ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if idRaw, exists := c.Get(ContextUserIDKey); exists {
			if id, ok := idRaw.(primitive.ObjectID); ok {
				key = id.Hex()
			}
		}

		allowed, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			// Limiter backend failure is an availability concern, not an
			// authorization one; let the request through and log it.
			log.Printf("WARN: rate limiter unavailable for %s: %v", key, err)
			c.Next()
			return
		}
		if !allowed {
			respondError(c, http.StatusTooManyRequests, "Too many requests, please retry later")
			return
		}

		c.Next()
	}
}

// currentUser extracts the authenticated caller set by AuthMiddleware.
func currentUser(c *gin.Context) (AuthUser, error) {
	idRaw, exists := c.Get(ContextUserIDKey)
	if !exists {
		return AuthUser{}, errors.New("user ID not found in context")
	}
	id, ok := idRaw.(primitive.ObjectID)
	if !ok {
		return AuthUser{}, errors.New("invalid user ID type in context")
	}

	roleRaw, exists := c.Get(ContextUserRoleKey)
	if !exists {
		return AuthUser{}, errors.New("user role not found in context")
	}
	role, ok := roleRaw.(domain.Role)
	if !ok {
		return AuthUser{}, errors.New("invalid user role type in context")
	}

	return AuthUser{ID: id, Role: role}, nil
}
