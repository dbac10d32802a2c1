// Package middleware provides the gin middleware shared by all routes.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/security"
)

const (
	// VisitorCookie holds the visitor's ULID.
	VisitorCookie = "visitor_id"
	visitorKey    = "visitorId"
	visitorMaxAge = 365 * 24 * 60 * 60
)

// VisitorMiddleware makes sure every request carries a visitor id, issuing a
// new visitor_id cookie when the request has none or an invalid one.
func VisitorMiddleware(secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		visitorID, err := c.Cookie(VisitorCookie)
		if err != nil || !security.IsULID(visitorID) {
			visitorID = security.GenerateULID()
			c.SetSameSite(http.SameSiteLaxMode)
			c.SetCookie(VisitorCookie, visitorID, visitorMaxAge, "/", "", secure, true)
		}
		c.Set(visitorKey, visitorID)
		c.Next()
	}
}

// GetVisitorID returns the visitor id set by VisitorMiddleware.
func GetVisitorID(c *gin.Context) string {
	return c.GetString(visitorKey)
}
