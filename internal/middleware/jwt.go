package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stemsi/coursehub-backend/internal/model"
	"github.com/stemsi/coursehub-backend/internal/response"
)

const (
	// ContextKeyPrincipal is the Gin context key for the authenticated principal.
	ContextKeyPrincipal = "principal"
)

// Authenticator resolves a bearer token into the principal it currently
// stands for, re-checking the account status behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (model.Principal, error)
}

// RequireAuth validates the bearer token from the Authorization header and
// attaches the resolved principal. Suspended or unapproved accounts are
// rejected even when their token has not expired.
func RequireAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		authenticate(c, auth, tokenStr)
	}
}

// RequireWSAuth reads the token from ?token=... for WebSocket upgrades,
// where browsers cannot set headers.
func RequireWSAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := c.Query("token")
		if tokenStr == "" {
			tokenStr = bearerToken(c)
		}
		if tokenStr == "" {
			response.AbortFail(c, http.StatusUnauthorized, response.ErrTokenRequired)
			return
		}
		authenticate(c, auth, tokenStr)
	}
}

// GetPrincipal retrieves the authenticated principal from the Gin context.
func GetPrincipal(c *gin.Context) (model.Principal, bool) {
	val, exists := c.Get(ContextKeyPrincipal)
	if !exists {
		return model.Principal{}, false
	}
	p, ok := val.(model.Principal)
	return p, ok
}

func authenticate(c *gin.Context, auth Authenticator, tokenStr string) {
	p, err := auth.Authenticate(c.Request.Context(), tokenStr)
	if err != nil {
		response.AbortError(c, err)
		return
	}

	// Later log lines of this request carry the caller.
	reqLog := zerolog.Ctx(c.Request.Context()).With().
		Str("user_id", p.UserID.String()).
		Str("role", string(p.Role)).
		Logger()
	c.Request = c.Request.WithContext(reqLog.WithContext(c.Request.Context()))

	c.Set(ContextKeyPrincipal, p)
	c.Next()
}

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return ""
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
