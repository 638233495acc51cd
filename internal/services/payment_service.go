package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/farandiarsa/hematku/internal/gateway"
	"github.com/farandiarsa/hematku/internal/helpers"
	"github.com/farandiarsa/hematku/internal/logger"
	"github.com/farandiarsa/hematku/internal/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrSubscriptionNotFound = errors.New("subscription not found")
	ErrPaymentNotPending    = errors.New("payment is not pending")
	// ErrGateway wraps failures from the external payment provider. Creation
	// rolls back entirely when it fires: no partial Payment row survives.
	ErrGateway = errors.New("payment gateway request failed")
)

type PaymentService struct {
	db       *gorm.DB
	gateway  gateway.Gateway
	vouchers *VoucherService
	log      *logger.Logger
}

func NewPaymentService(db *gorm.DB, gw gateway.Gateway, log *logger.Logger) *PaymentService {
	return &PaymentService{
		db:       db,
		gateway:  gw,
		vouchers: NewVoucherService(db),
		log:      log,
	}
}

type CreatePaymentInput struct {
	SubscriptionID uuid.UUID
	HouseholdID    uuid.UUID
	Method         models.PaymentMethod
	BankCode       string
	EwalletType    string
	VoucherCode    string
	PayerEmail     string
}

// Create builds a Payment for a subscription, applies an optional voucher and
// hands the charge to the gateway. Payment insert, voucher application and
// the gateway call share one transaction: if any step fails nothing is
// persisted. A zero total skips the gateway and settles synchronously.
func (s *PaymentService) Create(ctx context.Context, in CreatePaymentInput) (*models.Payment, error) {
	var subscription models.Subscription
	err := s.db.WithContext(ctx).Preload("Plan").
		Where("id = ? AND household_id = ?", in.SubscriptionID, in.HouseholdID).
		First(&subscription).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, err
	}

	if subscription.Plan == nil {
		return nil, fmt.Errorf("subscription %s has no plan", subscription.ID)
	}
	originalAmount, err := subscription.Plan.PriceFor(subscription.BillingCycle)
	if err != nil {
		return nil, err
	}

	var voucher *models.Voucher
	discountAmount := 0
	if in.VoucherCode != "" {
		voucher, err = s.vouchers.Validate(in.VoucherCode, in.HouseholdID, subscription.PlanID, originalAmount)
		if err != nil {
			return nil, err
		}
		discountAmount = CalculateDiscount(voucher, originalAmount)
	}

	total := originalAmount - discountAmount
	if total < 0 {
		total = 0
	}

	payment := models.Payment{
		ID:             uuid.New(),
		HouseholdID:    in.HouseholdID,
		SubscriptionID: subscription.ID,
		OriginalAmount: originalAmount,
		DiscountAmount: discountAmount,
		Amount:         total,
		Method:         in.Method,
		Status:         models.PaymentPending,
		Metadata:       datatypes.JSONMap{},
	}
	payment.ExternalID = helpers.PaymentExternalID(payment.ID)
	if voucher != nil {
		payment.VoucherID = &voucher.ID
	}
	if in.BankCode != "" {
		payment.Metadata["bank_code"] = in.BankCode
	}
	if in.EwalletType != "" {
		payment.Metadata["ewallet_type"] = in.EwalletType
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		if total == 0 {
			payment.Status = models.PaymentPaid
			payment.PaidAt = &now
		}

		if err := tx.Create(&payment).Error; err != nil {
			return err
		}

		if voucher != nil {
			if _, err := s.vouchers.Apply(tx, voucher, &payment); err != nil {
				return err
			}
		}

		if total == 0 {
			return s.activateSubscription(tx, &subscription, now)
		}

		invoice, err := s.gateway.CreateInvoice(ctx, gateway.ChargeRequest{
			ExternalID:  payment.ExternalID,
			Amount:      total,
			Description: fmt.Sprintf("%s subscription (%s)", subscription.Plan.Name, subscription.BillingCycle),
			PayerEmail:  in.PayerEmail,
			Methods:     gatewayMethods(in),
		})
		if err != nil {
			s.log.Errorw("gateway invoice creation failed",
				"payment_id", payment.ID,
				"subscription_id", subscription.ID,
				"error", err,
			)
			return fmt.Errorf("%w: %v", ErrGateway, err)
		}

		payment.GatewayID = invoice.GatewayID
		payment.PaymentURL = invoice.PaymentURL
		if invoice.ExpiresAt != nil {
			payment.Metadata["gateway_expiry"] = invoice.ExpiresAt.Format(time.RFC3339)
		}
		return tx.Model(&models.Payment{}).Where("id = ?", payment.ID).Updates(map[string]interface{}{
			"gateway_id":  payment.GatewayID,
			"payment_url": payment.PaymentURL,
			"metadata":    payment.Metadata,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

// HandleSucceeded settles a payment as paid and activates its subscription.
// Idempotent: a payment already marked paid is left untouched, so duplicate
// or replayed webhook deliveries are safe.
func (s *PaymentService) HandleSucceeded(ctx context.Context, paymentID uuid.UUID, meta map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where("id = ?", paymentID).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.Status == models.PaymentPaid {
			return nil
		}

		now := time.Now()
		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":   models.PaymentPaid,
			"paid_at":  now,
			"metadata": mergeMetadata(payment.Metadata, meta),
		}).Error; err != nil {
			return err
		}

		var subscription models.Subscription
		if err := tx.Where("id = ?", payment.SubscriptionID).First(&subscription).Error; err != nil {
			return err
		}
		return s.activateSubscription(tx, &subscription, now)
	})
}

// HandleFailed marks a pending payment failed and expires its subscription.
// No automatic retry: the user starts a new subscribe flow.
func (s *PaymentService) HandleFailed(ctx context.Context, paymentID uuid.UUID, meta map[string]interface{}) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var payment models.Payment
		if err := tx.Where("id = ?", paymentID).First(&payment).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPaymentNotFound
			}
			return err
		}
		if payment.Status != models.PaymentPending {
			return nil
		}

		if err := tx.Model(&payment).Updates(map[string]interface{}{
			"status":   models.PaymentFailed,
			"metadata": mergeMetadata(payment.Metadata, meta),
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Subscription{}).
			Where("id = ?", payment.SubscriptionID).
			Update("status", models.SubStatusExpired).Error
	})
}

// Cancel is the user-initiated abandonment of a pending payment. It is the
// one path that undoes a voucher application, so vouchers are not consumed
// forever by payment attempts that never complete.
func (s *PaymentService) Cancel(ctx context.Context, paymentID, householdID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).
		Where("id = ? AND household_id = ?", paymentID, householdID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		meta := mergeMetadata(payment.Metadata, map[string]interface{}{
			"cancelled_at": time.Now().Format(time.RFC3339),
			"cancelled_by": "user",
		})
		// Conditional on status so a settlement landing between the read
		// above and this write wins: a paid payment stays paid and keeps
		// its voucher usage.
		result := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentPending).
			Updates(map[string]interface{}{
				"status":   models.PaymentExpired,
				"metadata": meta,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPaymentNotPending
		}
		if err := s.vouchers.Reverse(tx, payment.ID); err != nil {
			return err
		}
		payment.Status = models.PaymentExpired
		payment.Metadata = meta
		return nil
	})
	if err != nil {
		return nil, err
	}

	if payment.GatewayID != "" {
		if err := s.gateway.ExpireInvoice(ctx, payment.GatewayID); err != nil {
			s.log.Warnw("failed to expire gateway invoice after cancellation",
				"payment_id", payment.ID,
				"gateway_id", payment.GatewayID,
				"error", err,
			)
		}
	}

	return &payment, nil
}

func (s *PaymentService) Get(ctx context.Context, paymentID, householdID uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := s.db.WithContext(ctx).Preload("Voucher").Preload("Subscription.Plan").
		Where("id = ? AND household_id = ?", paymentID, householdID).
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &payment, nil
}

// activateSubscription marks the subscription active and repoints the owning
// household's current-subscription reference. This is the single place the
// pointer is written; the update is a last-writer-wins single-row write.
func (s *PaymentService) activateSubscription(tx *gorm.DB, subscription *models.Subscription, now time.Time) error {
	updates := map[string]interface{}{
		"status":     models.SubStatusActive,
		"started_at": now,
		"expires_at": expiryFor(subscription.BillingCycle, now),
	}
	if err := tx.Model(&models.Subscription{}).Where("id = ?", subscription.ID).Updates(updates).Error; err != nil {
		return err
	}
	return tx.Model(&models.Household{}).
		Where("id = ?", subscription.HouseholdID).
		Update("current_subscription_id", subscription.ID).Error
}

func expiryFor(cycle models.BillingCycle, from time.Time) *time.Time {
	switch cycle {
	case models.CycleMonthly:
		expiry := from.AddDate(0, 1, 0)
		return &expiry
	case models.CycleYearly:
		expiry := from.AddDate(1, 0, 0)
		return &expiry
	}
	// Lifetime never expires.
	return nil
}

func mergeMetadata(existing datatypes.JSONMap, extra map[string]interface{}) datatypes.JSONMap {
	merged := datatypes.JSONMap{}
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}

func gatewayMethods(in CreatePaymentInput) []string {
	switch in.Method {
	case models.MethodVirtualAccount:
		if in.BankCode != "" {
			return []string{in.BankCode}
		}
	case models.MethodEwallet:
		if in.EwalletType != "" {
			return []string{in.EwalletType}
		}
	}
	return nil
}
