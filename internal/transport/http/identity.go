package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"classroom-quiz-service/internal/domain"
)

// Identity headers set by the upstream gateway.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderUserName = "X-User-Name"
)

const actorKey = "actor"

// identity resolves the caller from the gateway headers and rejects requests
// without a usable identity.
func identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(HeaderUserID))
		role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if id == "" || (role != domain.RoleTeacher && role != domain.RoleStudent) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "missing or invalid identity headers",
				Code:    "unauthenticated",
			})
			return
		}
		c.Set(actorKey, domain.Actor{
			ID:   id,
			Role: role,
			Name: strings.TrimSpace(c.GetHeader(HeaderUserName)),
		})
		c.Next()
	}
}

func actorFrom(c *gin.Context) domain.Actor {
	v, _ := c.Get(actorKey)
	actor, _ := v.(domain.Actor)
	return actor
}
