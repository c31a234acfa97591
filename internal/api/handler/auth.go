package handler

import (
	"errors"
	"net/http"
	"strings"

	"gigboard/backend/internal/models"

	"github.com/gin-gonic/gin"
	jwt "github.com/golang-jwt/jwt/v5"
)

// contextUserKey is where the authenticated user lands in the gin context.
const contextUserKey = "currentUser"

var errInvalidToken = errors.New("invalid or expired token")

// authenticate verifies an HS256 bearer token and resolves the user behind
// it. Credential issuance lives in the account service; this is only the
// verification boundary.
func (h *Handler) authenticate(tokenString string) (*models.User, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		// Accept HMAC only; anything else is a forged header.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return h.JWTSecret, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, errInvalidToken
	}

	user, err := h.Storage.GetUserByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, errInvalidToken
	}
	return user, nil
}

// AuthRequired guards the chat REST routes. Missing or invalid credentials
// yield 401 with the usual envelope.
func (h *Handler) AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Access denied. No token provided.",
			})
			return
		}

		user, err := h.authenticate(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		c.Set(contextUserKey, user)
		c.Next()
	}
}

// currentUser returns the user stashed by AuthRequired.
func currentUser(c *gin.Context) *models.User {
	user, _ := c.MustGet(contextUserKey).(*models.User)
	return user
}
