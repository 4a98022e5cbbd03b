package controllers

import (
	"net/http"
	"time"

	"storefront-backend/models"
	"storefront-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CouponController serves the storefront promo coupon and the admin
// coupon management endpoint.
type CouponController struct {
	coupons repository.CouponRepository
	logger  *zap.Logger
}

// NewCouponController creates a new CouponController.
func NewCouponController(coupons repository.CouponRepository, logger *zap.Logger) *CouponController {
	return &CouponController{coupons: coupons, logger: logger}
}

// GetFeatured handles GET /coupons/featured: at most one active,
// featured coupon for the top-level promo popup.
func (cc *CouponController) GetFeatured(c *gin.Context) {
	coupon, err := cc.coupons.FindFeatured(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No featured coupon"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":        coupon.Code,
		"value":       coupon.Value,
		"type":        coupon.Type,
		"title":       coupon.Title,
		"description": coupon.Description,
	})
}

type createCouponRequest struct {
	Code        string     `json:"code" binding:"required,min=3,max=32"`
	Type        string     `json:"type" binding:"required,oneof=percentage flat"`
	Value       int        `json:"value" binding:"required,min=1"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	IsFeatured  bool       `json:"is_featured"`
	UsageLimit  int        `json:"usage_limit"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

// Create handles POST /admin/coupons (admin only).
func (cc *CouponController) Create(c *gin.Context) {
	var req createCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	coupon := &models.Coupon{
		ID:          uuid.New(),
		Code:        req.Code,
		Type:        models.CouponType(req.Type),
		Value:       req.Value,
		Title:       req.Title,
		Description: req.Description,
		IsFeatured:  req.IsFeatured,
		IsActive:    true,
		UsageLimit:  req.UsageLimit,
		ExpiresAt:   req.ExpiresAt,
	}

	if err := cc.coupons.Create(c.Request.Context(), coupon); err != nil {
		cc.logger.Error("Failed to create coupon", zap.String("code", req.Code), zap.Error(err))
		c.JSON(http.StatusConflict, gin.H{"error": "Coupon code already exists"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"coupon": coupon})
}
