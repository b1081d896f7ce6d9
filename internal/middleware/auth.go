package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/programadoraburrido/gestion-flota/internal/model"
)

// Context keys set by Auth
const (
	ContextUserID    = "userID"
	ContextPrincipal = "principal"
)

// TokenParser validates a bearer token
type TokenParser interface {
	ParseToken(token string) (*model.Principal, error)
}

// Auth 认证中间件
//
// The token comes from the Authorization header, or from the "token" query
// parameter for browser WebSocket clients that cannot set headers.
func Auth(parser TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		p, err := parser.ParseToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(ContextUserID, p.UserID)
		c.Set(ContextPrincipal, p)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return c.Query("token")
}

// PrincipalFrom returns the authenticated caller, nil when Auth did not run
func PrincipalFrom(c *gin.Context) *model.Principal {
	v, ok := c.Get(ContextPrincipal)
	if !ok {
		return nil
	}
	p, _ := v.(*model.Principal)
	return p
}
