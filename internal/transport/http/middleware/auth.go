package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ErlanBelekov/recircular-api/internal/principal"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const errUnauthorized = "Unauthorized"

// UserIDKey is the gin context key holding the authenticated user id.
const UserIDKey = "userID"

// Auth validates a Bearer JWT and sets UserIDKey in the gin context.
func Auth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := bearerUserID(c, jwtKey)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errUnauthorized})
			return
		}
		setUser(c, userID)
		c.Next()
	}
}

// OptionalAuth identifies the caller when a valid bearer token is present and
// lets the request through anonymously otherwise.
func OptionalAuth(jwtKey []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID, ok := bearerUserID(c, jwtKey); ok {
			setUser(c, userID)
		}
		c.Next()
	}
}

func setUser(c *gin.Context, userID string) {
	c.Set(UserIDKey, userID)
	c.Request = c.Request.WithContext(principal.WithUserID(c.Request.Context(), userID))
}

func bearerUserID(c *gin.Context, jwtKey []byte) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}

	rawToken := strings.TrimPrefix(header, "Bearer ")

	token, err := jwt.Parse(rawToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtKey, nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", false
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", false
	}

	userID, ok := claims["sub"].(string)
	if !ok || userID == "" {
		return "", false
	}
	return userID, true
}
