package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type SubscriptionStatus string

const (
	SubStatusTrial    SubscriptionStatus = "trial"
	SubStatusPending  SubscriptionStatus = "pending"
	SubStatusActive   SubscriptionStatus = "active"
	SubStatusCanceled SubscriptionStatus = "canceled"
	SubStatusExpired  SubscriptionStatus = "expired"
	SubStatusPastDue  SubscriptionStatus = "past_due"
)

type Subscription struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	HouseholdID  uuid.UUID `gorm:"type:uuid;not null;index"`
	Household    *Household
	PlanID       uuid.UUID `gorm:"type:uuid;not null"`
	Plan         *Plan
	BillingCycle BillingCycle       `gorm:"not null"`
	Status       SubscriptionStatus `gorm:"not null;default:'pending'"`
	StartedAt    *time.Time
	// Nil for lifetime subscriptions.
	ExpiresAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (subscription *Subscription) BeforeCreate(tx *gorm.DB) (err error) {
	if subscription.ID == uuid.Nil {
		subscription.ID = uuid.New()
	}
	return
}
