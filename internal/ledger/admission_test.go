package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
)

func TestCheckAdmission(t *testing.T) {
	member := &models.User{Username: "dwight", Dept: "sales"}
	manager := &models.User{Username: "michael", Dept: "management"}

	// Non-positive amounts are rejected for everyone
	assert.ErrorIs(t, CheckAdmission(member, 100, 0), ErrNonPositiveAmount)
	assert.ErrorIs(t, CheckAdmission(member, 100, -1), ErrNonPositiveAmount)
	assert.ErrorIs(t, CheckAdmission(manager, 100, 0), ErrNonPositiveAmount)

	// Members may spend up to their balance, not past it
	assert.NoError(t, CheckAdmission(member, 100, 100))
	assert.NoError(t, CheckAdmission(member, 100, 1))
	assert.ErrorIs(t, CheckAdmission(member, 100, 101), ErrInsufficientBalance)
	assert.ErrorIs(t, CheckAdmission(member, 0, 1), ErrInsufficientBalance)

	// Managers are an unlimited source and may go negative
	assert.NoError(t, CheckAdmission(manager, 0, 1))
	assert.NoError(t, CheckAdmission(manager, -5000, 1000))
}

func TestSuperuserPredicate(t *testing.T) {
	assert.True(t, (&models.User{Dept: "management"}).IsSuperuser())
	assert.False(t, (&models.User{Dept: "Management"}).IsSuperuser())
	assert.False(t, (&models.User{Dept: "sales"}).IsSuperuser())
}
