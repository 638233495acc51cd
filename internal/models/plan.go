package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type BillingCycle string

const (
	CycleMonthly  BillingCycle = "monthly"
	CycleYearly   BillingCycle = "yearly"
	CycleLifetime BillingCycle = "lifetime"
)

// PlanFeatures is deliberately a typed struct, not an open key/value map,
// so a missing or misspelled feature key fails at compile time.
type PlanFeatures struct {
	MaxAccounts     int  `json:"max_accounts"`
	MaxMembers      int  `json:"max_members"`
	AIScansPerMonth int  `json:"ai_scans_per_month"`
	ReportExport    bool `json:"report_export"`
}

type Plan struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	Code         string    `gorm:"unique;not null"`
	Name         string    `gorm:"not null"`
	PriceMonthly int       `gorm:"not null"`
	PriceYearly  int       `gorm:"not null"`
	// Nil means the plan is not offered as a one-time lifetime purchase.
	PriceLifetime *int
	Features      PlanFeatures `gorm:"serializer:json"`
	IsActive      bool         `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

func (plan *Plan) BeforeCreate(tx *gorm.DB) (err error) {
	if plan.ID == uuid.Nil {
		plan.ID = uuid.New()
	}
	return
}

// PriceFor resolves the charge amount (IDR minor units) for a billing cycle.
func (plan *Plan) PriceFor(cycle BillingCycle) (int, error) {
	switch cycle {
	case CycleMonthly:
		return plan.PriceMonthly, nil
	case CycleYearly:
		return plan.PriceYearly, nil
	case CycleLifetime:
		if plan.PriceLifetime == nil {
			return 0, fmt.Errorf("plan %s has no lifetime price", plan.Code)
		}
		return *plan.PriceLifetime, nil
	}
	return 0, fmt.Errorf("unknown billing cycle %q", cycle)
}
