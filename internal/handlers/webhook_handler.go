package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/middleware"
	"github.com/farandiarsa/hematku/internal/services"
)

// XenditCallback is the subset of the invoice callback payload the receiver
// acts on; everything else is kept in the payment's metadata bag.
type XenditCallback struct {
	ID             string `json:"id"`
	ExternalID     string `json:"external_id" binding:"required"`
	Status         string `json:"status" binding:"required"`
	PaidAmount     int    `json:"paid_amount"`
	PaymentMethod  string `json:"payment_method"`
	PaymentChannel string `json:"payment_channel"`
	PaidAt         string `json:"paid_at"`
}

// XenditWebhook routes gateway callbacks into the same settlement handlers
// the synchronous zero-total path uses. Token authentication happens in
// middleware before this runs; the settlement handlers are idempotent, so
// duplicate and out-of-order deliveries are harmless.
func XenditWebhook(c *gin.Context) {
	log := middleware.GetLogger(c)

	var callback XenditCallback
	if err := c.ShouldBindJSON(&callback); err != nil {
		log.Warnw("malformed webhook payload", "error", err)
		helpers.RespondWithError(c, http.StatusBadRequest, "Malformed webhook payload.")
		return
	}

	paymentID, err := helpers.ExtractPaymentID(callback.ExternalID)
	if err != nil {
		log.Warnw("webhook with unrecognized external id", "external_id", callback.ExternalID)
		helpers.RespondWithError(c, http.StatusBadRequest, "Unrecognized external ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	paymentService := services.NewPaymentService(gormDB, middleware.GetGateway(c), log)

	meta := map[string]interface{}{
		"gateway_status":  callback.Status,
		"payment_method":  callback.PaymentMethod,
		"payment_channel": callback.PaymentChannel,
	}
	if callback.PaidAt != "" {
		meta["gateway_paid_at"] = callback.PaidAt
	}

	switch callback.Status {
	case "PAID", "SETTLED":
		err = paymentService.HandleSucceeded(c.Request.Context(), paymentID, meta)
	case "EXPIRED", "FAILED":
		err = paymentService.HandleFailed(c.Request.Context(), paymentID, meta)
	default:
		log.Warnw("webhook with unknown status", "status", callback.Status, "external_id", callback.ExternalID)
		helpers.RespondWithError(c, http.StatusBadRequest, "Unknown payment status.")
		return
	}

	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		log.Errorw("webhook settlement failed", "payment_id", paymentID, "error", err)
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to process webhook.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
