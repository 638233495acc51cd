package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
	"github.com/farandiarsa/hematku/internal/services"
)

type VoucherRequest struct {
	Code                string      `json:"code" binding:"required"`
	Name                string      `json:"name" binding:"required"`
	DiscountType        string      `json:"discount_type" binding:"required,oneof=percentage fixed"`
	Value               int         `json:"value" binding:"required,min=1"`
	MaxDiscountAmount   *int        `json:"max_discount_amount"`
	MinPurchaseAmount   int         `json:"min_purchase_amount"`
	MaxUses             *int        `json:"max_uses"`
	MaxUsesPerHousehold *int        `json:"max_uses_per_household"`
	ApplicablePlans     []uuid.UUID `json:"applicable_plans"`
	ValidFrom           time.Time   `json:"valid_from" binding:"required"`
	ValidUntil          *time.Time  `json:"valid_until"`
	IsActive            *bool       `json:"is_active"`
}

type ValidateVoucherRequest struct {
	Code         string    `json:"code" binding:"required"`
	PlanID       uuid.UUID `json:"plan_id" binding:"required"`
	BillingCycle string    `json:"billing_cycle"`
}

func CreateVoucher(c *gin.Context) {
	var req VoucherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid input. Please check your fields.")
		return
	}

	if req.DiscountType == string(models.DiscountPercentage) && req.Value > 100 {
		helpers.RespondWithError(c, http.StatusBadRequest, "Percentage value cannot exceed 100.")
		return
	}

	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	voucher := models.Voucher{
		ID:                uuid.New(),
		Code:              req.Code,
		Name:              req.Name,
		DiscountType:      models.DiscountType(req.DiscountType),
		Value:             req.Value,
		MaxDiscountAmount: req.MaxDiscountAmount,
		MinPurchaseAmount: req.MinPurchaseAmount,
		MaxUses:           req.MaxUses,
		ApplicablePlans:   datatypes.JSONSlice[uuid.UUID](req.ApplicablePlans),
		ValidFrom:         req.ValidFrom,
		ValidUntil:        req.ValidUntil,
		IsActive:          true,
		CreatedByID:       userID.(uuid.UUID),
	}
	voucher.MaxUsesPerHousehold = 1
	if req.MaxUsesPerHousehold != nil {
		voucher.MaxUsesPerHousehold = *req.MaxUsesPerHousehold
	}
	if req.IsActive != nil {
		voucher.IsActive = *req.IsActive
	}

	if err := gormDB.Create(&voucher).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create voucher.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":    "Voucher created successfully.",
		"voucher_id": voucher.ID,
	})
}

func ListVouchers(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "10")

	pageNum, err := helpers.StringToInt(page)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid page number.")
		return
	}

	limitNum, err := helpers.StringToInt(limit)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Invalid limit.")
		return
	}
	if pageNum < 1 {
		pageNum = 1
	}
	if limitNum < 1 {
		limitNum = 1
	}

	query := gormDB.Model(&models.Voucher{})
	var totalCount int64
	query.Count(&totalCount)

	var vouchers []models.Voucher
	offset := (pageNum - 1) * limitNum
	err = query.Offset(offset).Limit(limitNum).Order("created_at DESC").Find(&vouchers).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving vouchers.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"vouchers":    vouchers,
		"total":       totalCount,
		"page":        pageNum,
		"limit":       limitNum,
		"total_pages": (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func GetVoucher(c *gin.Context) {
	voucherID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var voucher models.Voucher
	if err := gormDB.Where("id = ?", voucherID).First(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Voucher not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving voucher.")
		return
	}

	c.JSON(http.StatusOK, voucher)
}

func UpdateVoucher(c *gin.Context) {
	voucherID := c.Param("id")

	var req VoucherRequest
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

	var voucher models.Voucher
	if err := gormDB.Where("id = ?", voucherID).First(&voucher).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Voucher not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding voucher.")
		return
	}

	voucher.Code = req.Code
	voucher.Name = req.Name
	voucher.DiscountType = models.DiscountType(req.DiscountType)
	voucher.Value = req.Value
	voucher.MaxDiscountAmount = req.MaxDiscountAmount
	voucher.MinPurchaseAmount = req.MinPurchaseAmount
	voucher.MaxUses = req.MaxUses
	voucher.ApplicablePlans = datatypes.JSONSlice[uuid.UUID](req.ApplicablePlans)
	voucher.ValidFrom = req.ValidFrom
	voucher.ValidUntil = req.ValidUntil
	if req.MaxUsesPerHousehold != nil {
		voucher.MaxUsesPerHousehold = *req.MaxUsesPerHousehold
	}
	if req.IsActive != nil {
		voucher.IsActive = *req.IsActive
	}

	if err := gormDB.Save(&voucher).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update voucher.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Voucher updated successfully.",
		"voucher": voucher,
	})
}

func DeleteVoucher(c *gin.Context) {
	voucherID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	result := gormDB.Where("id = ?", voucherID).Delete(&models.Voucher{})
	if result.Error != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete voucher.")
		return
	}

	if result.RowsAffected == 0 {
		helpers.RespondWithError(c, http.StatusNotFound, "Voucher not found.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Voucher deleted successfully.",
	})
}

// ValidateVoucher previews the discount a voucher would give against a plan
// purchase. Advisory only: the authoritative limit check happens when the
// payment is created.
func ValidateVoucher(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household to use vouchers.")
		return
	}

	var req ValidateVoucherRequest
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

	var plan models.Plan
	if err := gormDB.Where("id = ? AND is_active = ?", req.PlanID, true).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Plan not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving plan.")
		return
	}

	cycle := models.CycleMonthly
	if req.BillingCycle != "" {
		cycle = models.BillingCycle(req.BillingCycle)
	}
	baseAmount, err := plan.PriceFor(cycle)
	if err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Plan is not offered on that billing cycle.")
		return
	}

	voucherService := services.NewVoucherService(gormDB)
	voucher, err := voucherService.Validate(req.Code, householdID.(uuid.UUID), plan.ID, baseAmount)
	if err != nil {
		if vErr, ok := services.AsVoucherError(err); ok {
			helpers.RespondInvalidVoucher(c, http.StatusUnprocessableEntity, vErr.Message)
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error validating voucher.")
		return
	}

	discount := services.CalculateDiscount(voucher, baseAmount)
	c.JSON(http.StatusOK, gin.H{
		"valid":           true,
		"discount_amount": discount,
		"final_amount":    baseAmount - discount,
	})
}
