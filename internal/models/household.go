package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Household struct {
	ID      uuid.UUID `gorm:"type:uuid;primary_key"`
	Name    string    `gorm:"not null"`
	OwnerID uuid.UUID `gorm:"type:uuid;not null"`
	Owner   *User     `gorm:"foreignKey:OwnerID"`

	// Weak pointer to the subscription currently in force. Reassigned only
	// by subscription activation, last writer wins.
	CurrentSubscriptionID *uuid.UUID    `gorm:"type:uuid"`
	CurrentSubscription   *Subscription `gorm:"foreignKey:CurrentSubscriptionID"`

	Members   []User `gorm:"foreignKey:HouseholdID"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (household *Household) BeforeCreate(tx *gorm.DB) (err error) {
	if household.ID == uuid.Nil {
		household.ID = uuid.New()
	}
	return
}
