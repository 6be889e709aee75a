package middleware

import "github.com/gin-gonic/gin"

// Authentication is handled upstream; the trusted proxy forwards the
// authenticated subject in X-User-ID.
const (
	ActorHeader = "X-User-ID"

	actorKey = "actor_id"
)

// Actor lifts the authenticated user id from the request header into the gin
// context.
func Actor() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := c.GetHeader(ActorHeader); id != "" {
			c.Set(actorKey, id)
		}
		c.Next()
	}
}

// ActorFrom returns the acting user id, or "" when the request is anonymous.
func ActorFrom(c *gin.Context) string {
	return c.GetString(actorKey)
}
