package controllers

import (
	"net/http"
	"strconv"

	"storefront-backend/middleware"
	"storefront-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderController handles order queries and delivery confirmation for
// the authenticated customer.
type OrderController struct {
	orders repository.OrderRepository
	logger *zap.Logger
}

// NewOrderController creates a new OrderController.
func NewOrderController(orders repository.OrderRepository, logger *zap.Logger) *OrderController {
	return &OrderController{orders: orders, logger: logger}
}

// ListMyOrders handles GET /orders with pagination.
func (oc *OrderController) ListMyOrders(c *gin.Context) {
	userID, err := currentUserUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	page, limit := parsePaginationParams(c)

	orders, total, repoErr := oc.orders.FindByUserID(c.Request.Context(), userID, page, limit)
	if repoErr != nil {
		oc.logger.Error("Failed to fetch orders", zap.String("user_id", userID.String()), zap.Error(repoErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch orders"})
		return
	}

	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"meta": gin.H{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"total_pages": totalPages,
			"has_more":    total > int64(page*limit),
		},
	})
}

// ConfirmDelivery handles POST /orders/:id/delivered. Only the owning
// user can confirm, and only on a paid order.
func (oc *OrderController) ConfirmDelivery(c *gin.Context) {
	userID, err := currentUserUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	applied, repoErr := oc.orders.MarkDelivered(c.Request.Context(), orderID, userID)
	if repoErr != nil {
		oc.logger.Error("Failed to confirm delivery", zap.String("order_id", orderID.String()), zap.Error(repoErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to confirm delivery"})
		return
	}
	if !applied {
		c.JSON(http.StatusNotFound, gin.H{"error": "Order not found or not paid"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "delivered"})
}

func currentUserUUID(c *gin.Context) (uuid.UUID, error) {
	userIDStr, err := middleware.GetUserID(c)
	if err != nil {
		return uuid.Nil, err
	}
	return uuid.Parse(userIDStr)
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(c *gin.Context) (int, int) {
	const MaxLimit = 100
	const DefaultPage = 1
	const DefaultLimit = 10

	pageInt := DefaultPage
	limitInt := DefaultLimit

	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil && p > 0 {
		pageInt = p
	}
	if l, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil && l > 0 {
		limitInt = l
		if limitInt > MaxLimit {
			limitInt = MaxLimit
		}
	}

	return pageInt, limitInt
}
