package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
)

type SubscriptionRequest struct {
	PlanID       uuid.UUID `json:"plan_id" binding:"required"`
	BillingCycle string    `json:"billing_cycle" binding:"required,oneof=monthly yearly lifetime"`
}

func CreateSubscription(c *gin.Context) {
	householdID, exists := c.Get("household_id")
	if !exists {
		helpers.RespondWithError(c, http.StatusBadRequest, "You must belong to a household to subscribe.")
		return
	}

	var req SubscriptionRequest
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

	cycle := models.BillingCycle(req.BillingCycle)
	if _, err := plan.PriceFor(cycle); err != nil {
		helpers.RespondWithError(c, http.StatusBadRequest, "Plan is not offered on that billing cycle.")
		return
	}

	subscription := models.Subscription{
		ID:           uuid.New(),
		HouseholdID:  householdID.(uuid.UUID),
		PlanID:       plan.ID,
		BillingCycle: cycle,
		Status:       models.SubStatusPending,
	}

	if err := gormDB.Create(&subscription).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Failed to create subscription.")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":      "Subscription created. Complete payment to activate it.",
		"subscription": subscription,
	})
}

func GetCurrentSubscription(c *gin.Context) {
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

	var household models.Household
	err := gormDB.Preload("CurrentSubscription.Plan").First(&household, "id = ?", householdID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Household not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving subscription.")
		return
	}

	if household.CurrentSubscription == nil {
		helpers.RespondWithError(c, http.StatusNotFound, "No active subscription.")
		return
	}

	c.JSON(http.StatusOK, household.CurrentSubscription)
}
