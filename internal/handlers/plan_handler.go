package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/models"
)

func ListPlans(c *gin.Context) {
	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var plans []models.Plan
	if err := gormDB.Where("is_active = ?", true).Order("price_monthly ASC").Find(&plans).Error; err != nil {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving plans.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"plans": plans})
}

func GetPlan(c *gin.Context) {
	planID := c.Param("id")

	db, exists := c.Get("db")
	if !exists {
		helpers.RespondWithError(c, http.StatusInternalServerError, "Database connection not found.")
		return
	}
	gormDB := db.(*gorm.DB)

	var plan models.Plan
	if err := gormDB.Where("id = ?", planID).First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			helpers.RespondWithError(c, http.StatusNotFound, "Plan not found.")
			return
		}
		helpers.RespondWithError(c, http.StatusInternalServerError, "Error retrieving plan.")
		return
	}

	c.JSON(http.StatusOK, plan)
}
