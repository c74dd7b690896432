package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/ledger"
	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
)

// TransactionFilter narrows a transaction listing. InvolvingUserID is
// set by the service layer to scope non-superusers to their own rows.
type TransactionFilter struct {
	RecipientUsername string
	SenderUsername    string
	InvolvingUserID   string
	OrderBy           string
	Limit             int
	Offset            int
}

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateProfile(ctx context.Context, userID string, avatar, bio *string) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Ledger operations
	Transfer(ctx context.Context, recipient, sender *models.User, amount int64) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter TransactionFilter) ([]models.TransactionRecord, int64, error)
	GetBalance(ctx context.Context, accountID string) (int64, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, email, name, dept, currency, avatar, bio, password, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.Name, user.Dept, user.Currency,
		user.Avatar, user.Bio, user.Password, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT * FROM users WHERE username = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) ListUsers(ctx context.Context) ([]models.User, error) {
	query := `SELECT * FROM users ORDER BY username ASC`

	var users []models.User
	err := r.db.SelectContext(ctx, &users, query)
	if err != nil {
		return nil, err
	}

	return users, nil
}

// UpdateProfile mutates the profile fields only. Identity fields
// (id, username, email) are immutable after creation.
func (r *PostgresRepository) UpdateProfile(ctx context.Context, userID string, avatar, bio *string) error {
	query := `
		UPDATE users
		SET avatar = COALESCE($2, avatar),
		    bio = COALESCE($3, bio),
		    updated_at = $4
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, userID, avatar, bio, time.Now().UTC())
	return err
}

func (r *PostgresRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	query := `UPDATE users SET password = $2, updated_at = $3 WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, userID, passwordHash, time.Now().UTC())
	return err
}

// Ledger repository methods

// Transfer executes a points transfer as a single atomic unit of work:
// both balance rows are locked, the overdraft rule is re-validated
// under the lock, the transaction is appended to the log and both
// balances are rematerialized from it. Either everything commits or
// nothing does.
func (r *PostgresRepository) Transfer(
	ctx context.Context,
	recipient *models.User,
	sender *models.User,
	amount int64,
) (*models.Transaction, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Balance rows are materialized lazily; make sure both exist so
	// they can be row-locked.
	holders := lockOrder(recipient.ID, sender.ID)
	now := time.Now().UTC()
	for _, id := range holders {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO balances (account_id, value, updated_at)
			VALUES ($1, 0, $2)
			ON CONFLICT (account_id) DO NOTHING`,
			id, now)
		if err != nil {
			return nil, err
		}
	}

	// Lock both rows in ascending id order so two concurrent
	// transfers touching the same pair cannot deadlock.
	balances := make(map[string]int64, len(holders))
	for _, id := range holders {
		var value int64
		err = tx.QueryRowContext(ctx,
			`SELECT value FROM balances WHERE account_id = $1 FOR UPDATE`,
			id).Scan(&value)
		if err != nil {
			return nil, err
		}
		balances[id] = value
	}

	// Admission check against the locked snapshot, not the value read
	// before the transaction started.
	if err = ledger.CheckAdmission(sender, balances[sender.ID], amount); err != nil {
		return nil, err
	}

	// Append to the transaction log
	transaction := &models.Transaction{
		ID:          uuid.New().String(),
		RecipientID: recipient.ID,
		SenderID:    sender.ID,
		Amount:      amount,
		CreatedAt:   now,
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, recipient_id, sender_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		transaction.ID, transaction.RecipientID, transaction.SenderID,
		transaction.Amount, transaction.CreatedAt)
	if err != nil {
		return nil, err
	}

	// Rematerialize both parties' balances from the log
	for _, id := range holders {
		if err = recomputeBalanceTx(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}

	return transaction, nil
}

// recomputeBalanceTx performs a full recomputation of one account's
// balance from the transaction log, inside the owning transfer's
// transaction. The log is the source of truth; the balances row is a
// cache that must always reconcile against it.
func recomputeBalanceTx(ctx context.Context, tx *sqlx.Tx, accountID string) error {
	var value int64
	err := tx.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT SUM(amount) FROM transactions WHERE recipient_id = $1), 0) -
			COALESCE((SELECT SUM(amount) FROM transactions WHERE sender_id = $1), 0)
	`, accountID).Scan(&value)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE balances SET value = $2, updated_at = $3 WHERE account_id = $1`,
		accountID, value, time.Now().UTC())
	return err
}

// lockOrder returns the distinct account ids in ascending order.
// Self-transfers collapse to a single row.
func lockOrder(a, b string) []string {
	if a == b {
		return []string{a}
	}
	if a < b {
		return []string{a, b}
	}
	return []string{b, a}
}

// orderByColumns whitelists the sortable columns for listings.
var orderByColumns = map[string]string{
	"":            "t.created_at DESC",
	"created_at":  "t.created_at ASC",
	"-created_at": "t.created_at DESC",
	"amount":      "t.amount ASC",
	"-amount":     "t.amount DESC",
}

func (r *PostgresRepository) ListTransactions(
	ctx context.Context,
	filter TransactionFilter,
) ([]models.TransactionRecord, int64, error) {
	orderBy, ok := orderByColumns[filter.OrderBy]
	if !ok {
		return nil, 0, fmt.Errorf("invalid order_by value: %q", filter.OrderBy)
	}

	where := ` WHERE 1=1`
	args := []interface{}{}

	if filter.RecipientUsername != "" {
		args = append(args, filter.RecipientUsername)
		where += fmt.Sprintf(" AND ru.username = $%d", len(args))
	}
	if filter.SenderUsername != "" {
		args = append(args, filter.SenderUsername)
		where += fmt.Sprintf(" AND su.username = $%d", len(args))
	}
	if filter.InvolvingUserID != "" {
		args = append(args, filter.InvolvingUserID)
		where += fmt.Sprintf(" AND (t.recipient_id = $%d OR t.sender_id = $%d)", len(args), len(args))
	}

	base := `
		FROM transactions t
		JOIN users ru ON ru.id = t.recipient_id
		JOIN users su ON su.id = t.sender_id
	` + where

	var total int64
	err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) `+base, args...)
	if err != nil {
		return nil, 0, err
	}

	query := `
		SELECT t.id, ru.username AS recipient_username, su.username AS sender_username,
		       t.amount, t.created_at
	` + base + ` ORDER BY ` + orderBy

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	var records []models.TransactionRecord
	err = r.db.SelectContext(ctx, &records, query, args...)
	if err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// GetBalance returns the materialized balance of an account. A missing
// row means the account never took part in a transfer and holds 0.
func (r *PostgresRepository) GetBalance(ctx context.Context, accountID string) (int64, error) {
	query := `SELECT value FROM balances WHERE account_id = $1`

	var value int64
	err := r.db.GetContext(ctx, &value, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil // No transfers yet
		}
		return 0, err
	}

	return value, nil
}
