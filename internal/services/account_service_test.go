package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farandiarsa/hematku/internal/models"
)

func TestRecomputeAccountBalance(t *testing.T) {
	db := newTestDB(t)

	householdID := uuid.New()
	account := models.Account{HouseholdID: householdID, Name: "Dompet", Type: models.AccountCash}
	require.NoError(t, db.Create(&account).Error)

	rows := []models.Transaction{
		{HouseholdID: householdID, AccountID: account.ID, Type: models.TransactionIncome, Amount: 500000, Category: "salary", OccurredAt: time.Now()},
		{HouseholdID: householdID, AccountID: account.ID, Type: models.TransactionExpense, Amount: 120000, Category: "groceries", OccurredAt: time.Now()},
		{HouseholdID: householdID, AccountID: account.ID, Type: models.TransactionExpense, Amount: 30000, Category: "transport", OccurredAt: time.Now()},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	require.NoError(t, RecomputeAccountBalance(db, account.ID))

	var reloaded models.Account
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	assert.Equal(t, 350000, reloaded.Balance)

	// Deleting a row and recomputing reflects the change exactly.
	require.NoError(t, db.Delete(&rows[1]).Error)
	require.NoError(t, RecomputeAccountBalance(db, account.ID))
	require.NoError(t, db.First(&reloaded, "id = ?", account.ID).Error)
	assert.Equal(t, 470000, reloaded.Balance)
}
