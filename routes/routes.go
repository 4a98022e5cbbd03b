package routes

import (
	"storefront-backend/controllers"
	"storefront-backend/middleware"

	"github.com/gin-gonic/gin"
)

// Register sets up all storefront routes. Webhooks stay outside the
// auth group: they are called by the payment providers, not by users.
func Register(
	r *gin.Engine,
	checkout *controllers.CheckoutController,
	webhooks *controllers.WebhookController,
	orders *controllers.OrderController,
	affiliates *controllers.AffiliateController,
	coupons *controllers.CouponController,
	carts *controllers.CartController,
) {
	r.POST("/webhooks/infinitepay", webhooks.HandleInfinitePay)
	r.POST("/webhooks/stripe", webhooks.HandleStripe)

	r.GET("/coupons/featured", coupons.GetFeatured)

	authed := r.Group("")
	authed.Use(middleware.AuthMiddleware())

	authed.POST("/checkout", checkout.CreateCheckout)

	authed.GET("/orders", orders.ListMyOrders)
	authed.POST("/orders/:id/delivered", orders.ConfirmDelivery)

	authed.POST("/affiliates", affiliates.Enroll)
	authed.GET("/affiliates/me", affiliates.Me)

	if carts != nil {
		authed.GET("/cart", carts.GetCart)
		authed.POST("/cart/items", carts.AddItem)
		authed.DELETE("/cart", carts.ClearCart)
	}

	admin := authed.Group("/admin", middleware.AdminOnly())
	admin.POST("/coupons", coupons.Create)
}
