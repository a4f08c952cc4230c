package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
)

// AccountRepository handles account database operations
type AccountRepository struct {
	db *DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{
		db: db,
	}
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	query := `
		SELECT id, email, credits, created_at, updated_at
		FROM accounts
		WHERE id = $1
	`

	err := r.db.conn.GetContext(ctx, &account, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	return &account, nil
}

// GetCredits retrieves the current balance of an account.
func (r *AccountRepository) GetCredits(ctx context.Context, id uuid.UUID) (int, error) {
	var credits int
	query := `SELECT credits FROM accounts WHERE id = $1`

	err := r.db.conn.GetContext(ctx, &credits, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}

	return credits, nil
}

// Create creates a new account. Used by the out-of-scope registration
// path and by tests; the gateway core itself never creates accounts.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (id, email, credits)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at
	`

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}

	err := r.db.conn.QueryRowContext(
		ctx, query,
		account.ID, account.Email, account.Credits,
	).Scan(&account.CreatedAt, &account.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	return nil
}
