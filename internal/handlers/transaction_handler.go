package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
	"github.com/farandiarsa/hematku/internal/services"
)

type TransactionRequest struct {
	AccountID  uuid.UUID `json:"account_id" binding:"required"`
	Type       string    `json:"type" binding:"required,oneof=income expense"`
	Amount     int       `json:"amount" binding:"required,min=1"`
	Category   string    `json:"category" binding:"required"`
	Note       string    `json:"note"`
	OccurredAt time.Time `json:"occurred_at" binding:"required"`
}

func CreateTransaction(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	var req TransactionRequest
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

	var account models.Account
	if err := gormDB.Where("id = ? AND household_id = ?", req.AccountID, householdID).First(&account).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Account not found.")
		return
	}

	transaction := models.Transaction{
		ID:          uuid.New(),
		HouseholdID: householdID.(uuid.UUID),
		AccountID:   account.ID,
		Type:        models.TransactionType(req.Type),
		Amount:      req.Amount,
		Category:    req.Category,
		Note:        req.Note,
		OccurredAt:  req.OccurredAt,
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}
		return services.RecomputeAccountBalance(tx, account.ID)
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create transaction.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":     "Transaction recorded successfully.",
		"transaction": transaction,
	})
}

func ListTransactions(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	page := c.DefaultQuery("page", "1")
	limit := c.DefaultQuery("limit", "20")

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

	query := gormDB.Model(&models.Transaction{}).Where("household_id = ?", householdID)
	if accountID := c.Query("account_id"); accountID != "" {
		query = query.Where("account_id = ?", accountID)
	}

	var totalCount int64
	query.Count(&totalCount)

	var transactions []models.Transaction
	offset := (pageNum - 1) * limitNum
	err = query.Offset(offset).Limit(limitNum).Order("occurred_at DESC").Find(&transactions).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving transactions.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"total":        totalCount,
		"page":         pageNum,
		"limit":        limitNum,
		"total_pages":  (totalCount + int64(limitNum) - 1) / int64(limitNum),
	})
}

func UpdateTransaction(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	transactionID := c.Param("id")

	var req TransactionRequest
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

	var transaction models.Transaction
	err := gormDB.Where("id = ? AND household_id = ?", transactionID, householdID).First(&transaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Transaction not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding transaction.")
		return
	}

	var account models.Account
	if err := gormDB.Where("id = ? AND household_id = ?", req.AccountID, householdID).First(&account).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "Account not found.")
		return
	}

	previousAccountID := transaction.AccountID
	transaction.AccountID = account.ID
	transaction.Type = models.TransactionType(req.Type)
	transaction.Amount = req.Amount
	transaction.Category = req.Category
	transaction.Note = req.Note
	transaction.OccurredAt = req.OccurredAt

	err = gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&transaction).Error; err != nil {
			return err
		}
		if err := services.RecomputeAccountBalance(tx, transaction.AccountID); err != nil {
			return err
		}
		// Moving a transaction between accounts dirties both balances.
		if previousAccountID != transaction.AccountID {
			return services.RecomputeAccountBalance(tx, previousAccountID)
		}
		return nil
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to update transaction.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "Transaction updated successfully.",
		"transaction": transaction,
	})
}

func DeleteTransaction(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	transactionID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var transaction models.Transaction
	err := gormDB.Where("id = ? AND household_id = ?", transactionID, householdID).First(&transaction).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Transaction not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error finding transaction.")
		return
	}

	err = gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&transaction).Error; err != nil {
			return err
		}
		return services.RecomputeAccountBalance(tx, transaction.AccountID)
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to delete transaction.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Transaction deleted successfully.",
	})
}
