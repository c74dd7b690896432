package models

import (
	"strings"
	"time"
)

// SuperuserDept is the reserved department whose members are treated
// as administrators. Kept as a plain string comparison for
// compatibility with existing data.
const SuperuserDept = "management"

// User represents an account in the rewards system
type User struct {
	ID        string    `db:"id" json:"id"`
	Username  string    `db:"username" json:"username"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Dept      string    `db:"dept" json:"dept"`
	Currency  string    `db:"currency" json:"currency"`
	Avatar    *string   `db:"avatar" json:"avatar,omitempty"`
	Bio       *string   `db:"bio" json:"bio,omitempty"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// IsSuperuser reports whether the user belongs to the management
// department. Superusers bypass the overdraft check and may manage
// other accounts.
func (u *User) IsSuperuser() bool {
	return u.Dept == SuperuserDept
}

// GenerateUsername builds a username slug from a display name.
// "Michael Scott" -> "michael-scott". Punctuation is dropped and
// runs of separators collapse to a single hyphen.
func GenerateUsername(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphens
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Transaction represents a points transfer between two accounts.
// Records are append-only; no update or delete path exists.
type Transaction struct {
	ID          string    `db:"id" json:"id"`
	RecipientID string    `db:"recipient_id" json:"recipientId"`
	SenderID    string    `db:"sender_id" json:"senderId"`
	Amount      int64     `db:"amount" json:"amount"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
}

// TransactionRecord is a transaction joined with both parties'
// usernames, as returned by listing queries.
type TransactionRecord struct {
	ID                string    `db:"id" json:"id"`
	RecipientUsername string    `db:"recipient_username" json:"recipient"`
	SenderUsername    string    `db:"sender_username" json:"sender"`
	Amount            int64     `db:"amount" json:"amount"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// Balance is the materialized point balance of one account. It is a
// cache over the transaction log; a missing row is equivalent to a
// zero balance.
type Balance struct {
	AccountID string    `db:"account_id" json:"accountId"`
	Value     int64     `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}
