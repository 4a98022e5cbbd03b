package controllers

import (
	"net/http"

	"storefront-backend/cart"
	"storefront-backend/middleware"
	"storefront-backend/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// CartController manages the server-side cart.
type CartController struct {
	carts  *cart.Store
	logger *zap.Logger
}

// NewCartController creates a new CartController.
func NewCartController(carts *cart.Store, logger *zap.Logger) *CartController {
	return &CartController{carts: carts, logger: logger}
}

// GetCart handles GET /cart.
func (cc *CartController) GetCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	stored, getErr := cc.carts.Get(c.Request.Context(), userID)
	if getErr != nil {
		cc.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(getErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load cart"})
		return
	}
	if stored == nil {
		stored = &models.Cart{UserID: userID}
	}

	c.JSON(http.StatusOK, gin.H{"cart": stored})
}

// AddItem handles POST /cart/items.
func (cc *CartController) AddItem(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var item models.CartItem
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid item", "details": err.Error()})
		return
	}

	updated, addErr := cc.carts.AddItem(c.Request.Context(), userID, item)
	if addErr != nil {
		cc.logger.Error("Failed to add cart item", zap.String("user_id", userID), zap.Error(addErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart": updated})
}

// ClearCart handles DELETE /cart.
func (cc *CartController) ClearCart(c *gin.Context) {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if clearErr := cc.carts.Clear(c.Request.Context(), userID); clearErr != nil {
		cc.logger.Error("Failed to clear cart", zap.String("user_id", userID), zap.Error(clearErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to clear cart"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}
