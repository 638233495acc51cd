package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/middleware"
	"github.com/farandiarsa/hematku/internal/models"
)

// authAs stands in for the JWT middleware so handler tests can pin the
// caller's identity directly.
func authAs(userID uuid.UUID, householdID *uuid.UUID) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", userID)
		if householdID != nil {
			c.Set("household_id", *householdID)
		}
		c.Next()
	}
}

func newHandlerTestDB(t *testing.T) *gorm.DB {
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	err = db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Household{}, &models.Plan{},
		&models.Subscription{}, &models.Voucher{}, &models.VoucherUsage{},
		&models.Payment{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return db
}

type SubscriptionHandlerTestSuite struct {
	suite.Suite
	db        *gorm.DB
	router    *gin.Engine
	household *models.Household
	plan      *models.Plan
}

func TestSubscriptionHandler(t *testing.T) {
	suite.Run(t, new(SubscriptionHandlerTestSuite))
}

func (s *SubscriptionHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.db = newHandlerTestDB(s.T())

	s.household = &models.Household{Name: "Keluarga Langganan", OwnerID: uuid.New()}
	s.Require().NoError(s.db.Create(s.household).Error)

	// No lifetime price: the plan is monthly/yearly only.
	s.plan = &models.Plan{Code: "basic", Name: "Basic", PriceMonthly: 49000, PriceYearly: 490000, IsActive: true}
	s.Require().NoError(s.db.Create(s.plan).Error)

	s.router = gin.New()
	s.router.Use(middleware.DatabaseMiddleware(s.db))
	s.router.Use(authAs(uuid.New(), &s.household.ID))
	s.router.POST("/v1/subscriptions", CreateSubscription)
}

func (s *SubscriptionHandlerTestSuite) post(body map[string]interface{}) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/v1/subscriptions", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

func (s *SubscriptionHandlerTestSuite) TestCreatesPendingSubscription() {
	recorder := s.post(map[string]interface{}{
		"plan_id":       s.plan.ID,
		"billing_cycle": "monthly",
	})
	assert.Equal(s.T(), http.StatusCreated, recorder.Code)

	var subscription models.Subscription
	s.Require().NoError(s.db.First(&subscription, "household_id = ?", s.household.ID).Error)
	assert.Equal(s.T(), models.SubStatusPending, subscription.Status)
	assert.Equal(s.T(), models.CycleMonthly, subscription.BillingCycle)
}

func (s *SubscriptionHandlerTestSuite) TestRejectsCycleThePlanDoesNotOffer() {
	recorder := s.post(map[string]interface{}{
		"plan_id":       s.plan.ID,
		"billing_cycle": "lifetime",
	})
	assert.Equal(s.T(), http.StatusBadRequest, recorder.Code)

	var count int64
	s.db.Model(&models.Subscription{}).Count(&count)
	assert.Equal(s.T(), int64(0), count)
}

func (s *SubscriptionHandlerTestSuite) TestRejectsUnknownCycle() {
	recorder := s.post(map[string]interface{}{
		"plan_id":       s.plan.ID,
		"billing_cycle": "weekly",
	})
	assert.Equal(s.T(), http.StatusBadRequest, recorder.Code)
}
