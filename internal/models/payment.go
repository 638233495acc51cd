package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentExpired  PaymentStatus = "expired"
)

type PaymentMethod string

const (
	MethodInvoice        PaymentMethod = "invoice"
	MethodVirtualAccount PaymentMethod = "virtual_account"
	MethodEwallet        PaymentMethod = "ewallet"
)

type Payment struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key"`
	HouseholdID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Household      *Household
	SubscriptionID uuid.UUID `gorm:"type:uuid;not null"`
	Subscription   *Subscription
	// Pre-discount amount resolved from the plan's billing-cycle price.
	OriginalAmount int `gorm:"not null"`
	DiscountAmount int `gorm:"not null;default:0"`
	// What is actually charged: max(0, original - discount).
	Amount    int           `gorm:"not null"`
	Method    PaymentMethod `gorm:"not null"`
	Status    PaymentStatus `gorm:"not null;default:'pending'"`
	VoucherID *uuid.UUID    `gorm:"type:uuid"`
	Voucher   *Voucher      `gorm:"foreignKey:VoucherID"`
	// Correlation id sent to the gateway, "sub-<payment id>".
	ExternalID string `gorm:"not null;uniqueIndex"`
	// Gateway-assigned invoice id, empty until the gateway call succeeds.
	GatewayID  string `gorm:"index"`
	PaymentURL string
	Metadata   datatypes.JSONMap
	PaidAt     *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  gorm.DeletedAt `gorm:"index"`
}

func (payment *Payment) BeforeCreate(tx *gorm.DB) (err error) {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return
}
