package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studysync-backend/internal/platform/ctxutil"
)

// HeaderSocketID names the caller's own realtime socket. Broadcasts caused by
// the request skip that socket.
const HeaderSocketID = "X-Socket-Id"

func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		rd := &ctxutil.RequestData{SocketID: strings.TrimSpace(c.GetHeader(HeaderSocketID))}
		ctx = ctxutil.WithRequestData(ctx, rd)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
