package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	providerdomain "github.com/agiletools/billingsync/internal/provider/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleBillingWebhook verifies and applies one provider event. Signature
// failures get a 400 with no state change; processing failures get a 500 so
// the provider's delivery system retries.
func (s *Server) HandleBillingWebhook(c *gin.Context) {
	providerName := strings.TrimSpace(c.Param("provider"))
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	adapter, err := s.providers.Adapter(providerName)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	ctx := c.Request.Context()
	if err := adapter.Verify(ctx, payload, c.Request.Header); err != nil {
		s.metrics.RecordWebhookEvent("unknown", "rejected")
		s.log.Warn("webhook signature rejected",
			zap.String("provider", providerName),
			zap.Error(err),
		)
		AbortWithError(c, err)
		return
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, providerdomain.ErrEventIgnored) {
			s.metrics.RecordWebhookEvent("ignored", "ok")
			c.JSON(http.StatusOK, gin.H{"received": true})
			return
		}
		s.metrics.RecordWebhookEvent("unknown", "invalid")
		AbortWithError(c, err)
		return
	}

	if err := s.reconcilerSvc.ApplyEvent(ctx, event); err != nil {
		s.metrics.RecordWebhookEvent(string(event.Kind), "error")
		s.log.Error("webhook processing failed",
			zap.String("provider", providerName),
			zap.String("event_id", event.ID),
			zap.String("kind", string(event.Kind)),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	s.metrics.RecordWebhookEvent(string(event.Kind), "ok")
	c.JSON(http.StatusOK, gin.H{"received": true})
}
