package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/application/services"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/middleware"
)

// sessionContext describes the visitor behind the current request.
func sessionContext(c *gin.Context) services.SessionContext {
	return services.SessionContext{
		VisitorID: middleware.GetVisitorID(c),
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		PageURL:   c.GetHeader("Referer"),
	}
}
