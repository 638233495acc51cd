package services

import (
	"github.com/farandiarsa/hematku/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RecomputeAccountBalance derives an account's balance from its transaction
// rows. Called explicitly by every transaction write path rather than being
// hidden behind persistence hooks.
func RecomputeAccountBalance(tx *gorm.DB, accountID uuid.UUID) error {
	var balance int64
	err := tx.Model(&models.Transaction{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(SUM(CASE WHEN type = 'income' THEN amount ELSE -amount END), 0)").
		Scan(&balance).Error
	if err != nil {
		return err
	}
	return tx.Model(&models.Account{}).
		Where("id = ?", accountID).
		Update("balance", balance).Error
}
