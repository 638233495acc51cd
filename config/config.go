package config

import (
	"fmt"
	"os"

	"github.com/farandiarsa/hematku/internal/models"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

type XenditConfig struct {
	SecretKey     string
	CallbackToken string
}

func LoadXenditConfig() (*XenditConfig, error) {
	return &XenditConfig{
		SecretKey:     os.Getenv("XENDIT_SECRET_KEY"),
		CallbackToken: os.Getenv("XENDIT_CALLBACK_TOKEN"),
	}, nil
}

func InitXenditClient(config *XenditConfig) (*xendit.APIClient, error) {
	client := xendit.NewClient(config.SecretKey)

	return client, nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	// Household and Subscription reference each other, so constraint
	// creation is left out of automigration.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&models.Role{}, &models.User{}, &models.Household{}, &models.Plan{},
		&models.Subscription{}, &models.Voucher{}, &models.VoucherUsage{},
		&models.Payment{}, &models.Account{}, &models.Transaction{},
	)
	if err != nil {
		return nil, err
	}

	seedRoles(db)
	seedPlans(db)

	return db, nil
}

func seedRoles(db *gorm.DB) {
	roles := []models.Role{
		{Name: "owner"},
		{Name: "member"},
		{Name: "admin"},
	}

	for _, role := range roles {
		var existingRole models.Role
		result := db.Where("name = ?", role.Name).First(&existingRole)
		if result.Error != nil {
			db.Create(&role)
		}
	}
}

func seedPlans(db *gorm.DB) {
	premiumLifetime := 1499000
	plans := []models.Plan{
		{
			Code:         "free",
			Name:         "Free",
			PriceMonthly: 0,
			PriceYearly:  0,
			Features: models.PlanFeatures{
				MaxAccounts: 2,
				MaxMembers:  1,
			},
			IsActive: true,
		},
		{
			Code:         "basic",
			Name:         "Basic",
			PriceMonthly: 49000,
			PriceYearly:  490000,
			Features: models.PlanFeatures{
				MaxAccounts:     5,
				MaxMembers:      4,
				AIScansPerMonth: 20,
			},
			IsActive: true,
		},
		{
			Code:          "premium",
			Name:          "Premium",
			PriceMonthly:  99000,
			PriceYearly:   990000,
			PriceLifetime: &premiumLifetime,
			Features: models.PlanFeatures{
				MaxAccounts:     20,
				MaxMembers:      10,
				AIScansPerMonth: 200,
				ReportExport:    true,
			},
			IsActive: true,
		},
	}

	for _, plan := range plans {
		var existingPlan models.Plan
		result := db.Where("code = ?", plan.Code).First(&existingPlan)
		if result.Error != nil {
			db.Create(&plan)
		}
	}
}
