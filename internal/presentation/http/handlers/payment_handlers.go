package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mayanov/tarotsite-go/internal/infrastructure/observability/logging"
	"github.com/mayanov/tarotsite-go/internal/presentation/http/middleware"
)

// Reading packages that have a thank-you page.
var thankYouPages = map[string]string{
	"3card": "/thankyou-page-3card.html",
	"5card": "/thankyou-page-5card.html",
}

// PaymentHandlers forwards returning buyers to their thank-you page
type PaymentHandlers struct {
	logger *logging.ChanneledLogger
}

// NewPaymentHandlers creates payment handlers
func NewPaymentHandlers(logger *logging.ChanneledLogger) *PaymentHandlers {
	return &PaymentHandlers{logger: logger}
}

// GetPaymentRedirect handles GET /api/v1/payment/redirect?payment_success=
func (h *PaymentHandlers) GetPaymentRedirect(c *gin.Context) {
	pkg := c.Query("payment_success")
	target, ok := thankYouPages[pkg]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown payment_success value"})
		return
	}

	h.logger.WithVisitor(logging.ChannelAnalytics, middleware.GetVisitorID(c)).Info("Payment completed", "package", pkg)
	c.Redirect(http.StatusFound, target)
}
