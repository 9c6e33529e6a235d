package auth

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const userIDKey = "user_id"

func bearer(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Middleware rejects requests without a valid bearer token and stores the user id on
// the context.
func Middleware(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearer(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}
		userID, err := tm.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		c.Set(userIDKey, userID)
		c.Next()
	}
}

// UserID is the id Middleware stored, or "" outside authenticated routes.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

type sessionResponse struct {
	UserID    string    `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AnonymousHandler signs a visitor in. A still valid token keeps its user id and gets
// a fresh expiry; anything else starts a new identity.
func AnonymousHandler(tm *TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := ""
		if token := bearer(c); token != "" {
			userID, _ = tm.Verify(token)
		}
		if userID == "" {
			userID = uuid.NewString()
			log.Info().Str("user", userID).Msg("anonymous sign-in")
		}
		now := time.Now().UTC()
		token, err := tm.Generate(userID, now)
		if err != nil {
			log.Error().Err(err).Msg("sign token")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, sessionResponse{UserID: userID, Token: token, ExpiresAt: now.Add(tm.ttl)})
	}
}
