package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
)

type HouseholdRequest struct {
	Name string `json:"name" binding:"required"`
}

func CreateHousehold(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusUnauthorized, "User not authenticated.")
		return
	}
	userUUID := userID.(uuid.UUID)

	var req HouseholdRequest
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

	var user models.User
	if err := gormDB.Preload("Role").First(&user, "id = ?", userUUID).Error; err != nil {
		helpers.RespondWithError(c, http.StatusNotFound, "User not found.")
		return
	}
	if user.HouseholdID != nil {
		helpers.RespondWithError(c, http.StatusConflict, "You already belong to a household.")
		return
	}

	household := models.Household{
		ID:      uuid.New(),
		Name:    req.Name,
		OwnerID: userUUID,
	}

	err := gormDB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&household).Error; err != nil {
			return err
		}
		return tx.Model(&user).Update("household_id", household.ID).Error
	})
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create household.")
		return
	}

	// The caller's token predates the membership, so re-issue it with the
	// household_id claim. Without this every household-scoped endpoint
	// rejects the creator until they log in again.
	user.HouseholdID = &household.ID
	tokenString, err := signUserToken(&user)
	if err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Household created successfully.",
		"household": household,
		"token":     tokenString,
	})
}

func GetMyHousehold(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusNotFound, "You don't belong to a household yet.")
		return
	}

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var household models.Household
	err := gormDB.Preload("Members").Preload("CurrentSubscription.Plan").
		First(&household, "id = ?", householdID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Household not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving household.")
		return
	}

	c.JSON(http.StatusOK, household)
}
