package controllers

import (
	"net/http"

	"storefront-backend/cart"
	"storefront-backend/middleware"
	"storefront-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AttributionCookie is the client cookie carrying an affiliate referral
// code, set when the customer follows a referral link.
const AttributionCookie = "ref"

// CheckoutController handles checkout session creation.
type CheckoutController struct {
	checkout *services.CheckoutService
	carts    *cart.Store
	logger   *zap.Logger
}

// NewCheckoutController creates a new CheckoutController. carts is
// optional; without it the request must carry explicit items.
func NewCheckoutController(checkout *services.CheckoutService, carts *cart.Store, logger *zap.Logger) *CheckoutController {
	return &CheckoutController{checkout: checkout, carts: carts, logger: logger}
}

// CreateCheckout handles POST /checkout. Identity comes from the auth
// middleware and the affiliate attribution from the "ref" cookie; both
// are passed into the service explicitly.
func (cc *CheckoutController) CreateCheckout(c *gin.Context) {
	userIDStr, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
		return
	}

	var req services.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	// Fall back to the stored server-side cart when the client sent
	// none along.
	if len(req.Items) == 0 && cc.carts != nil {
		stored, cartErr := cc.carts.Get(c.Request.Context(), userIDStr)
		if cartErr != nil {
			cc.logger.Warn("Failed to load stored cart", zap.String("user_id", userIDStr), zap.Error(cartErr))
		} else if stored != nil {
			req.Items = stored.Items
		}
	}

	affiliateCode, _ := c.Cookie(AttributionCookie)

	resp, svcErr := cc.checkout.Checkout(c.Request.Context(), userID, middleware.GetUserEmail(c), &req, affiliateCode)
	if svcErr != nil {
		c.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message})
		return
	}

	if cc.carts != nil {
		if err := cc.carts.Clear(c.Request.Context(), userIDStr); err != nil {
			cc.logger.Warn("Failed to clear cart after checkout", zap.String("user_id", userIDStr), zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, resp)
}
