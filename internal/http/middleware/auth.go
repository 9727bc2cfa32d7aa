package middleware

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/backoffice/domain"
)

// Context keys set by the JWT middleware.
const (
	CtxUserID    = "user_id"
	CtxUserRole  = "user_role"
	CtxSessionID = "session_id"
)

// AuthMW wraps the token service and login session repository for middleware
type AuthMW struct {
	tokenSvc domain.TokenService
	sessions domain.LoginSessionRepository
	now      func() time.Time
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessions domain.LoginSessionRepository) *AuthMW {
	return &AuthMW{
		tokenSvc: tokenSvc,
		sessions: sessions,
		now:      time.Now,
	}
}

// WithJWT returns the JWT middleware function. Besides a valid signature the
// login session named in the token must still be active, so revoking sessions
// logs the user out on the next request.
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			abortUnauthorized(c, "Authorization header required")
			return
		}

		claims, err := mw.tokenSvc.ValidateAccessToken(token)
		if err != nil {
			var de *domain.Error
			if errors.As(err, &de) {
				abortUnauthorized(c, de.Message())
				return
			}
			abortUnauthorized(c, "Token validation failed")
			return
		}

		session, err := mw.sessions.FindByID(c.Request.Context(), claims.SessionID)
		if err != nil {
			if errors.Is(err, domain.ErrLoginSessionInvalid) {
				abortUnauthorized(c, domain.ErrLoginSessionInvalid.Message())
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Session lookup failed"})
			return
		}
		if !session.Active(mw.now()) || session.UserID != claims.UserID {
			abortUnauthorized(c, domain.ErrLoginSessionInvalid.Message())
			return
		}

		c.Set(CtxUserID, claims.UserID)
		c.Set(CtxUserRole, claims.Role)
		c.Set(CtxSessionID, claims.SessionID)
		c.Next()
	}
}

// bearerToken reads the Authorization header. Browsers cannot set headers on
// a websocket handshake, so the access_token query parameter is accepted too.
func bearerToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if q := c.Query("access_token"); q != "" {
		return q, true
	}
	return "", false
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}

// UserID returns the authenticated user id set by WithJWT.
func UserID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
