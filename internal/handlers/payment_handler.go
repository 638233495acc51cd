package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/middleware"
	"github.com/farandiarsa/hematku/internal/models"
	"github.com/farandiarsa/hematku/internal/services"
)

type PaymentRequest struct {
	SubscriptionID uuid.UUID `json:"subscription_id" binding:"required"`
	PaymentMethod  string    `json:"payment_method" binding:"required,oneof=invoice virtual_account ewallet"`
	BankCode       string    `json:"bank_code"`
	EwalletType    string    `json:"ewallet_type"`
	VoucherCode    string    `json:"voucher_code"`
}

func CreatePayment(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household to pay for a subscription.")
		return
	}
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	gw := middleware.GetGateway(c)
	if gw == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment gateway not configured.")
		return
	}

	var user models.User
	if err := gormDB.First(&user, "id = ?", userID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}

	paymentService := services.NewPaymentService(gormDB, gw, middleware.GetLogger(c))
	payment, err := paymentService.Create(c.Request.Context(), services.CreatePaymentInput{
		SubscriptionID: req.SubscriptionID,
		HouseholdID:    householdID.(uuid.UUID),
		Method:         models.PaymentMethod(req.PaymentMethod),
		BankCode:       req.BankCode,
		EwalletType:    req.EwalletType,
		VoucherCode:    req.VoucherCode,
		PayerEmail:     user.Email,
	})
	if err != nil {
		if errors.Is(err, services.ErrSubscriptionNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Subscription not found.")
			return
		}
		if vErr, ok := services.AsVoucherError(err); ok {
			if vErr.Code == services.VoucherLimitReached {
				helpers.RespondWithError(c, http.StatusConflict, vErr.Message)
				return
			}
			helpers.RespondWithError(c, http.StatusBadRequest, vErr.Message)
			return
		}
		if errors.Is(err, services.ErrGateway) {
			helpers.RespondWithError(c, http.StatusBadGateway, "Failed to create payment with the gateway. Please try again.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create payment.")
		return
	}

	// Zero-total payments settle synchronously, nothing left for the caller
	// to do.
	if payment.Status == models.PaymentPaid {
		c.JSON(http.StatusOK, gin.H{
			"message": "Payment completed. Subscription is now active.",
			"payment": payment,
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"payment": payment,
		"payment_details": gin.H{
			"payment_url": payment.PaymentURL,
			"external_id": payment.ExternalID,
			"expires_at":  payment.Metadata["gateway_expiry"],
		},
	})
}

func GetPayment(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	paymentService := services.NewPaymentService(gormDB, middleware.GetGateway(c), middleware.GetLogger(c))
	payment, err := paymentService.Get(c.Request.Context(), paymentID, householdID.(uuid.UUID))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving payment.")
		return
	}

	c.JSON(http.StatusOK, payment)
}

func CancelPayment(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	gw := middleware.GetGateway(c)
	if gw == nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Payment gateway not configured.")
		return
	}

	paymentService := services.NewPaymentService(gormDB, gw, middleware.GetLogger(c))
	payment, err := paymentService.Cancel(c.Request.Context(), paymentID, householdID.(uuid.UUID))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		if errors.Is(err, services.ErrPaymentNotPending) {
			helpers.RespondWithError(c, http.StatusBadRequest, "Only pending payments can be canceled.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to cancel payment.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Payment canceled.",
		"payment": payment,
	})
}

// GetPaymentQR renders the checkout URL of a pending payment as a QR code so
// the payer can finish on another device.
func GetPaymentQR(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid payment ID.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	paymentService := services.NewPaymentService(gormDB, middleware.GetGateway(c), middleware.GetLogger(c))
	payment, err := paymentService.Get(c.Request.Context(), paymentID, householdID.(uuid.UUID))
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			helpers.RespondWithError(c, http.StatusNotFound, "Payment not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving payment.")
		return
	}

	if payment.Status != models.PaymentPending || payment.PaymentURL == "" {
		helpers.RespondWithError(c, http.StatusBadRequest, "Payment has no pending checkout to encode.")
		return
	}

	qrImage, err := qrcode.Encode(payment.PaymentURL, qrcode.Medium, 256)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate QR code.")
		return
	}

	c.Data(http.StatusOK, "image/png", qrImage)
}
