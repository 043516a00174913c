package server

import (
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/subtrack/internal/observability/context"
)

const userIDHeader = "X-User-Id"

const userIDKey = "user_id"

// UserRequired resolves the calling user from the X-User-Id header.
// Upstream authentication terminates before this service; the header
// carries the already-verified identity.
func (s *Server) UserRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(userIDHeader)
		if raw == "" {
			AbortWithError(c, ErrUnauthorized)
			return
		}
		if _, err := snowflake.ParseString(raw); err != nil {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		c.Set(userIDKey, raw)
		c.Request = c.Request.WithContext(obscontext.WithUserID(c.Request.Context(), raw))
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}
