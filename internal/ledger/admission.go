package ledger

import "github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"

// CheckAdmission applies the pre-commit validation gating a transfer:
// the amount must be positive and, unless the sender is a superuser,
// the sender's current balance must cover it. Superusers are an
// unlimited source of points (the seeding admin) and may go negative.
//
// The balance passed in must come from the same unit of work that will
// append the transaction, so the check holds at commit time.
func CheckAdmission(sender *models.User, senderBalance, amount int64) error {
	if amount <= 0 {
		return ErrNonPositiveAmount
	}
	if !sender.IsSuperuser() && senderBalance < amount {
		return ErrInsufficientBalance
	}
	return nil
}
