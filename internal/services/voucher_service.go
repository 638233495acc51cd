package services

import (
	"errors"
	"time"

	"github.com/farandiarsa/hematku/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type VoucherErrorCode string

const (
	VoucherNotFound              VoucherErrorCode = "not_found"
	VoucherInvalidOrExpired      VoucherErrorCode = "invalid_or_expired"
	VoucherMinimumNotMet         VoucherErrorCode = "minimum_not_met"
	VoucherPlanNotEligible       VoucherErrorCode = "plan_not_eligible"
	VoucherHouseholdLimitReached VoucherErrorCode = "household_limit_reached"
	VoucherLimitReached          VoucherErrorCode = "limit_reached"
)

// VoucherError is a structural rejection, reported to the caller before any
// mutation and never retried automatically.
type VoucherError struct {
	Code    VoucherErrorCode
	Message string
}

func (e *VoucherError) Error() string {
	return e.Message
}

// AsVoucherError unwraps a VoucherError if err is one.
func AsVoucherError(err error) (*VoucherError, bool) {
	var vErr *VoucherError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

type VoucherService struct {
	db *gorm.DB
}

func NewVoucherService(db *gorm.DB) *VoucherService {
	return &VoucherService{db: db}
}

// Validate runs the structural checks for redeeming a voucher code against a
// plan purchase. The global used_count check here is advisory only; the
// authoritative check happens in Apply, inside the creation transaction.
func (s *VoucherService) Validate(code string, householdID, planID uuid.UUID, baseAmount int) (*models.Voucher, error) {
	var voucher models.Voucher
	if err := s.db.Where("code = ?", code).First(&voucher).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &VoucherError{Code: VoucherNotFound, Message: "Voucher not found."}
		}
		return nil, err
	}

	now := time.Now()
	if !voucher.IsActive || now.Before(voucher.ValidFrom) ||
		(voucher.ValidUntil != nil && now.After(*voucher.ValidUntil)) {
		return nil, &VoucherError{Code: VoucherInvalidOrExpired, Message: "Voucher is invalid or expired."}
	}

	if baseAmount < voucher.MinPurchaseAmount {
		return nil, &VoucherError{Code: VoucherMinimumNotMet, Message: "Purchase amount is below the voucher minimum."}
	}

	if !voucher.AppliesToPlan(planID) {
		return nil, &VoucherError{Code: VoucherPlanNotEligible, Message: "Voucher is not valid for this plan."}
	}

	var householdUses int64
	if err := s.db.Model(&models.VoucherUsage{}).
		Where("voucher_id = ? AND household_id = ?", voucher.ID, householdID).
		Count(&householdUses).Error; err != nil {
		return nil, err
	}
	if householdUses >= int64(voucher.MaxUsesPerHousehold) {
		return nil, &VoucherError{Code: VoucherHouseholdLimitReached, Message: "Voucher usage limit reached for this household."}
	}

	if voucher.MaxUses != nil && voucher.UsedCount >= *voucher.MaxUses {
		return nil, &VoucherError{Code: VoucherLimitReached, Message: "Voucher usage limit reached."}
	}

	return &voucher, nil
}

// CalculateDiscount computes the discount for a voucher against a base amount
// in IDR minor units. Pure: no rounding error accumulates across calls.
func CalculateDiscount(voucher *models.Voucher, baseAmount int) int {
	switch voucher.DiscountType {
	case models.DiscountFixed:
		if voucher.Value > baseAmount {
			return baseAmount
		}
		return voucher.Value
	case models.DiscountPercentage:
		// Round half up on integer arithmetic.
		discount := (baseAmount*voucher.Value + 50) / 100
		if voucher.MaxDiscountAmount != nil && discount > *voucher.MaxDiscountAmount {
			discount = *voucher.MaxDiscountAmount
		}
		if discount > baseAmount {
			discount = baseAmount
		}
		return discount
	}
	return 0
}

// Apply consumes one use of the voucher for a payment. Idempotent per payment.
// The counter increment is a conditional atomic update, so concurrent callers
// racing for the last remaining use cannot push used_count past max_uses; the
// loser gets VoucherLimitReached and the surrounding transaction rolls back.
func (s *VoucherService) Apply(tx *gorm.DB, voucher *models.Voucher, payment *models.Payment) (*models.VoucherUsage, error) {
	var existing models.VoucherUsage
	err := tx.Where("payment_id = ?", payment.ID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	result := tx.Model(&models.Voucher{}).
		Where("id = ? AND is_active = ?", voucher.ID, true).
		Where("max_uses IS NULL OR used_count < max_uses").
		UpdateColumn("used_count", gorm.Expr("used_count + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, &VoucherError{Code: VoucherLimitReached, Message: "Voucher usage limit reached."}
	}

	usage := models.VoucherUsage{
		VoucherID:      voucher.ID,
		HouseholdID:    payment.HouseholdID,
		PaymentID:      payment.ID,
		DiscountAmount: payment.DiscountAmount,
	}
	if err := tx.Create(&usage).Error; err != nil {
		return nil, err
	}
	return &usage, nil
}

// Reverse undoes a voucher application for a payment: decrements used_count
// and deletes the usage row. No-op when the payment never had a voucher or
// was already reversed.
func (s *VoucherService) Reverse(tx *gorm.DB, paymentID uuid.UUID) error {
	var usage models.VoucherUsage
	err := tx.Where("payment_id = ?", paymentID).First(&usage).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if err := tx.Model(&models.Voucher{}).
		Where("id = ? AND used_count > 0", usage.VoucherID).
		UpdateColumn("used_count", gorm.Expr("used_count - 1")).Error; err != nil {
		return err
	}

	return tx.Delete(&usage).Error
}
