package controllers

import (
	"net/http"
	"strings"

	"storefront-backend/models"
	"storefront-backend/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AffiliateController handles affiliate program self-service.
type AffiliateController struct {
	affiliates repository.AffiliateRepository
	logger     *zap.Logger
}

// NewAffiliateController creates a new AffiliateController.
func NewAffiliateController(affiliates repository.AffiliateRepository, logger *zap.Logger) *AffiliateController {
	return &AffiliateController{affiliates: affiliates, logger: logger}
}

// Enroll handles POST /affiliates. Idempotent: re-enrolling returns
// the existing affiliate identity instead of creating a second one.
func (ac *AffiliateController) Enroll(c *gin.Context) {
	userID, err := currentUserUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	if existing, findErr := ac.affiliates.FindByUserID(c.Request.Context(), userID); findErr == nil {
		c.JSON(http.StatusOK, gin.H{"affiliate": existing})
		return
	}

	affiliate := &models.Affiliate{
		ID:     uuid.New(),
		UserID: userID,
		Code:   newReferralCode(),
		Status: models.AffiliateStatusActive,
	}

	if createErr := ac.affiliates.Create(c.Request.Context(), affiliate); createErr != nil {
		// The unique user_id index catches a concurrent enrollment.
		if existing, findErr := ac.affiliates.FindByUserID(c.Request.Context(), userID); findErr == nil {
			c.JSON(http.StatusOK, gin.H{"affiliate": existing})
			return
		}
		ac.logger.Error("Failed to enroll affiliate", zap.String("user_id", userID.String()), zap.Error(createErr))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll affiliate"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"affiliate": affiliate})
}

// Me handles GET /affiliates/me.
func (ac *AffiliateController) Me(c *gin.Context) {
	userID, err := currentUserUUID(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	affiliate, findErr := ac.affiliates.FindByUserID(c.Request.Context(), userID)
	if findErr != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not enrolled in the affiliate program"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"affiliate": affiliate})
}

func newReferralCode() string {
	return "AF-" + strings.ToUpper(uuid.New().String()[:8])
}
