package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	paymentsdomain "github.com/edukita/kertas/internal/payments/domain"
)

func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	provider := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err = s.paymentsSvc.ProcessEvent(c.Request.Context(), provider, payload, c.Request.Header)
	if err != nil {
		// Replays and non-terminal notifications are acknowledged so the
		// gateway stops retrying.
		if errors.Is(err, paymentsdomain.ErrEventAlreadyProcessed) ||
			errors.Is(err, paymentsdomain.ErrEventIgnored) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
			return
		}
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
