package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/backoffice/domain"
	"go.uber.org/zap"
)

// CasbinMiddleware defines the interface for Casbin authorization middleware
type CasbinMiddleware interface {
	Enforce() gin.HandlerFunc
}

// CasbinMW authorizes a request by the caller's role, the route pattern and
// the HTTP method.
type CasbinMW struct {
	policy domain.PolicyService
	logger *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper
func NewCasbinMW(policy domain.PolicyService, logger *zap.Logger) *CasbinMW {
	return &CasbinMW{policy: policy, logger: logger}
}

// Enforce returns the casbin authorization middleware
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := c.Get(CtxUserRole)
		if !ok {
			abortUnauthorized(c, "User role not found in token")
			return
		}

		// Use parameterized path for Casbin matching
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		allowed, err := mw.policy.CheckPermission(casbinRole(role.(string)), path, c.Request.Method)
		if err != nil {
			mw.logger.Error("authorization check failed", zap.String("path", path), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied"})
			return
		}

		c.Next()
	}
}

// casbinRole converts a token role to Casbin format (prefix with "role_").
func casbinRole(role string) string {
	if strings.HasPrefix(role, "role_") {
		return role
	}
	return "role_" + role
}
