package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

type Voucher struct {
	ID           uuid.UUID    `gorm:"type:uuid;primary_key"`
	Code         string       `gorm:"unique;not null"`
	Name         string       `gorm:"not null"`
	DiscountType DiscountType `gorm:"not null"`
	// Percent 0-100 for percentage vouchers, IDR minor units for fixed.
	Value int `gorm:"not null"`
	// Cap on the computed discount, percentage vouchers only.
	MaxDiscountAmount *int
	MinPurchaseAmount int `gorm:"not null;default:0"`
	// Nil means unlimited redemptions.
	MaxUses             *int
	MaxUsesPerHousehold int `gorm:"not null;default:1"`
	UsedCount           int `gorm:"not null;default:0"`
	// Empty means the voucher applies to every plan.
	ApplicablePlans datatypes.JSONSlice[uuid.UUID]
	ValidFrom       time.Time `gorm:"not null"`
	ValidUntil      *time.Time
	IsActive        bool      `gorm:"not null;default:true"`
	CreatedByID     uuid.UUID `gorm:"type:uuid"`
	CreatedBy       *User     `gorm:"foreignKey:CreatedByID"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
	DeletedAt       gorm.DeletedAt `gorm:"index"`
}

func (voucher *Voucher) BeforeCreate(tx *gorm.DB) (err error) {
	if voucher.ID == uuid.Nil {
		voucher.ID = uuid.New()
	}
	return
}

// AppliesToPlan reports whether the voucher is redeemable against a plan.
func (voucher *Voucher) AppliesToPlan(planID uuid.UUID) bool {
	if len(voucher.ApplicablePlans) == 0 {
		return true
	}
	for _, id := range voucher.ApplicablePlans {
		if id == planID {
			return true
		}
	}
	return false
}

// VoucherUsage links one voucher redemption to exactly one payment. The
// discount amount is a snapshot taken at application time and never
// recomputed, even if the voucher definition changes afterwards.
type VoucherUsage struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	VoucherID      uuid.UUID `gorm:"type:uuid;not null;index"`
	Voucher        *Voucher
	HouseholdID    uuid.UUID `gorm:"type:uuid;not null;index"`
	PaymentID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	DiscountAmount int       `gorm:"not null"`
	CreatedAt      time.Time
}

func (usage *VoucherUsage) BeforeCreate(tx *gorm.DB) (err error) {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}
	return
}
