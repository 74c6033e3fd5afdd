package handlers

import (
	"net/http"
	"strings"

	"weather_station/internal/models"
	"weather_station/internal/service"

	"github.com/gin-gonic/gin"
)

// ctxOperator is the gin context key holding the service.Principal of the
// authenticated operator.
const ctxOperator = "operator"

func (h *Handler) operatorMiddleware(c *gin.Context) {
	header := c.GetHeader("Authorization")
	if header == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "missing Authorization header",
		})
		return
	}

	scheme, token, ok := strings.Cut(header, " ")
	token = strings.TrimSpace(token)
	if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid Authorization header format",
		})
		return
	}

	p, err := h.services.ParseToken(token)
	if err != nil {
		if h.log != nil {
			h.log.Debugw("auth_token_rejected", "err", err)
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "invalid or expired token",
		})
		return
	}

	c.Set(ctxOperator, p)
	c.Next()
}

// requireRole lets the request through only for operators whose role
// covers need. It must run after operatorMiddleware.
func (h *Handler) requireRole(need models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := operatorFrom(c)
		if !ok || !p.Role.Allows(need) {
			if h.log != nil {
				h.log.Infow("auth_role_denied", "operator_id", p.OperatorID, "role", p.Role, "need", need, "path", c.FullPath())
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "operator role " + string(need) + " required",
			})
			return
		}
		c.Next()
	}
}

func operatorFrom(c *gin.Context) (service.Principal, bool) {
	v, ok := c.Get(ctxOperator)
	if !ok {
		return service.Principal{}, false
	}
	p, ok := v.(service.Principal)
	return p, ok
}
