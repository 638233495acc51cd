package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AccountType string

const (
	AccountCash    AccountType = "cash"
	AccountBank    AccountType = "bank"
	AccountEwallet AccountType = "ewallet"
	AccountOther   AccountType = "other"
)

type Account struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	HouseholdID uuid.UUID `gorm:"type:uuid;not null;index"`
	Household   *Household
	Name        string      `gorm:"not null"`
	Type        AccountType `gorm:"not null;default:'cash'"`
	// Derived from transactions; recomputed explicitly by the transaction
	// write paths, never by persistence hooks.
	Balance   int `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

func (account *Account) BeforeCreate(tx *gorm.DB) (err error) {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	return
}
