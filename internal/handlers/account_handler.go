package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
)

type AccountRequest struct {
	Name string `json:"name" binding:"required"`
	Type string `json:"type" binding:"required,oneof=cash bank ewallet other"`
}

func CreateAccount(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	var req AccountRequest
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

	account := models.Account{
		ID:          uuid.New(),
		HouseholdID: householdID.(uuid.UUID),
		Name:        req.Name,
		Type:        models.AccountType(req.Type),
	}

	if err := gormDB.Create(&account).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create account.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Account created successfully.",
		"account": account,
	})
}

func ListAccounts(c *gin.Context) {
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

	var accounts []models.Account
	err := gormDB.Where("household_id = ?", householdID).Order("created_at ASC").Find(&accounts).Error
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving accounts.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"accounts": accounts})
}

func GetAccount(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household.")
		return
	}

	accountID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var account models.Account
	err := gormDB.Where("id = ? AND household_id = ?", accountID, householdID).First(&account).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Account not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving account.")
		return
	}

	c.JSON(http.StatusOK, account)
}
