package config

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"golang.org/x/crypto/bcrypt"

	"github.com/GiovanniPad/linuxtips-dundie-rewards-api/internal/models"
)

// SetupDatabase initializes the database connection
func SetupDatabase(cfg *Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	// Create tables if they don't exist
	if err := createTables(db); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	// Make sure the seeding admin account exists
	if err := ensureAdminUser(db); err != nil {
		return nil, fmt.Errorf("failed to ensure admin user: %w", err)
	}

	return db, nil
}

// createTables creates the necessary tables in the database
func createTables(db *sqlx.DB) error {
	// Create users table
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(36) PRIMARY KEY,
			username VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			name VARCHAR(255) NOT NULL,
			dept VARCHAR(255) NOT NULL,
			currency VARCHAR(3) NOT NULL,
			avatar TEXT,
			bio TEXT,
			password VARCHAR(255) NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create transactions table (append-only log)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id VARCHAR(36) PRIMARY KEY,
			recipient_id VARCHAR(36) NOT NULL REFERENCES users(id),
			sender_id VARCHAR(36) NOT NULL REFERENCES users(id),
			amount BIGINT NOT NULL CHECK (amount > 0),
			created_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create balances table (one materialized row per account)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS balances (
			account_id VARCHAR(36) PRIMARY KEY REFERENCES users(id),
			value BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)
	`)
	if err != nil {
		return err
	}

	// Create indexes for better performance
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_recipient ON transactions(recipient_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_sender ON transactions(sender_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at)",
	}

	for _, idx := range indexes {
		_, err = db.Exec(idx)
		if err != nil {
			log.Printf("Warning: Failed to create index: %v", err)
			// Don't return error here, indexes are not critical
		}
	}

	return nil
}

// ensureAdminUser seeds the management account that sources points
// for everyone else. Idempotent across restarts.
func ensureAdminUser(db *sqlx.DB) error {
	var exists bool
	err := db.Get(&exists, `SELECT EXISTS(SELECT 1 FROM users WHERE username = 'admin')`)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte("admin"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = db.Exec(`
		INSERT INTO users (id, username, email, name, dept, currency, password, created_at, updated_at)
		VALUES ($1, 'admin', 'admin@dm.com', 'Admin', $2, 'USD', $3, $4, $4)
		ON CONFLICT (username) DO NOTHING
	`, uuid.New().String(), models.SuperuserDept, string(hashed), now)

	return err
}
