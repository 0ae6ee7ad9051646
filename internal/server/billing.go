package server

import (
	"net/http"
	"strings"

	entitlementdomain "github.com/agiletools/billingsync/internal/entitlement/domain"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type portalSessionRequest struct {
	ReturnURL string `json:"returnUrl"`
}

// CreatePortalSession opens a hosted billing portal session for the caller.
func (s *Server) CreatePortalSession(c *gin.Context) {
	if !s.cfg.BillingConfigured() {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	claims, ok := callerClaims(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req portalSessionRequest
	// The body is optional; a missing or empty one falls back to the
	// configured return URL.
	_ = c.ShouldBindJSON(&req)

	ctx := c.Request.Context()
	customerID, err := s.identity.ResolveCustomerID(ctx, claims.UserID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if customerID == "" {
		AbortWithError(c, ErrNotFound)
		return
	}

	returnURL := strings.TrimSpace(req.ReturnURL)
	if returnURL == "" {
		returnURL = s.cfg.PortalReturnURL
	}

	url, err := s.billing.CreatePortalSession(ctx, customerID, returnURL)
	if err != nil {
		s.log.Error("portal session creation failed",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": url})
}

// SyncSubscription re-derives the caller's subscription state straight from
// the provider.
func (s *Server) SyncSubscription(c *gin.Context) {
	if !s.cfg.BillingConfigured() {
		AbortWithError(c, ErrServiceUnavailable)
		return
	}

	claims, ok := callerClaims(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	result, err := s.reconcilerSvc.SyncUser(c.Request.Context(), claims.UserID)
	if err != nil {
		s.log.Error("subscription sync failed",
			zap.String("user_id", claims.UserID),
			zap.Error(err),
		)
		AbortWithError(c, ErrInternal)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"plan":    result.Tier,
	})
}

type validateCreationRequest struct {
	EntityType string `json:"entityType"`
}

// ValidateCreation runs the advisory quota check for the caller.
func (s *Server) ValidateCreation(c *gin.Context) {
	claims, ok := callerClaims(c)
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}

	var req validateCreationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	decision, err := s.entitlementSvc.CheckCreationAllowed(c.Request.Context(), entitlementdomain.CheckRequest{
		UserID:     claims.UserID,
		Email:      claims.Email,
		EntityType: req.EntityType,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, decision)
}
