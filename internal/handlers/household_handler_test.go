package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/farandiarsa/hematku/internal/middleware"
	"github.com/farandiarsa/hematku/internal/models"
)

const testJWTSecret = "test-jwt-secret"

type HouseholdHandlerTestSuite struct {
	suite.Suite
	db     *gorm.DB
	router *gin.Engine
	user   *models.User
}

func TestHouseholdHandler(t *testing.T) {
	suite.Run(t, new(HouseholdHandlerTestSuite))
}

func (s *HouseholdHandlerTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.T().Setenv("JWT_SECRET", testJWTSecret)
	s.db = newHandlerTestDB(s.T())

	role := &models.Role{Name: "owner"}
	s.Require().NoError(s.db.Create(role).Error)

	s.user = &models.User{
		Name:     "Budi",
		Email:    "budi@example.com",
		Password: "irrelevant",
		RoleID:   role.ID,
	}
	s.Require().NoError(s.db.Create(s.user).Error)

	s.router = gin.New()
	s.router.Use(middleware.DatabaseMiddleware(s.db))
	protected := s.router.Group("/v1")
	protected.Use(middleware.JWTAuthMiddleware())
	protected.POST("/households", CreateHousehold)
	protected.GET("/households/me", GetMyHousehold)
}

func (s *HouseholdHandlerTestSuite) signToken(role string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": s.user.ID.String(),
		"role":    role,
		"exp":     time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	s.Require().NoError(err)
	return signed
}

func (s *HouseholdHandlerTestSuite) request(method, path, token string, body map[string]interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	recorder := httptest.NewRecorder()
	s.router.ServeHTTP(recorder, req)
	return recorder
}

// Creating a household must hand back a token carrying the new membership,
// otherwise the creator is locked out of household-scoped endpoints until
// they log in again.
func (s *HouseholdHandlerTestSuite) TestCreateReturnsRefreshedToken() {
	token := s.signToken("owner")

	recorder := s.request(http.MethodPost, "/v1/households", token, map[string]interface{}{
		"name": "Keluarga Budi",
	})
	assert.Equal(s.T(), http.StatusCreated, recorder.Code)

	var body struct {
		Token string `json:"token"`
	}
	s.Require().NoError(json.Unmarshal(recorder.Body.Bytes(), &body))
	s.Require().NotEmpty(body.Token)

	parsed, err := jwt.Parse(body.Token, func(t *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	s.Require().NoError(err)
	claims := parsed.Claims.(jwt.MapClaims)

	var household models.Household
	s.Require().NoError(s.db.First(&household, "owner_id = ?", s.user.ID).Error)
	assert.Equal(s.T(), household.ID.String(), claims["household_id"])

	// The stale token has no household claim, so scoped endpoints reject it.
	recorder = s.request(http.MethodGet, "/v1/households/me", token, nil)
	assert.Equal(s.T(), http.StatusNotFound, recorder.Code)

	// The refreshed token works immediately.
	recorder = s.request(http.MethodGet, "/v1/households/me", body.Token, nil)
	assert.Equal(s.T(), http.StatusOK, recorder.Code)
}

func (s *HouseholdHandlerTestSuite) TestCreateRejectsSecondHousehold() {
	token := s.signToken("owner")

	recorder := s.request(http.MethodPost, "/v1/households", token, map[string]interface{}{
		"name": "Keluarga Budi",
	})
	s.Require().Equal(http.StatusCreated, recorder.Code)

	recorder = s.request(http.MethodPost, "/v1/households", token, map[string]interface{}{
		"name": "Keluarga Kedua",
	})
	assert.Equal(s.T(), http.StatusConflict, recorder.Code)
}
