package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
)

// LedgerRepository owns the metering transaction against the store:
// an atomic conditional decrement of an account balance plus the audit
// record for the charge, committed as one unit. If the audit insert
// fails the debit rolls back with it; there is no state where credit is
// consumed without a record, or a record claims a charge that was not
// applied.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{
		db: db,
	}
}

// DebitAndLog decrements the account balance by cost and inserts the
// success audit entry in the same transaction, returning the post-debit
// balance. The balance check and decrement are a single conditional
// UPDATE guarded by credits >= cost, so two concurrent charges can
// never both succeed on one charge's worth of balance.
//
// Returns ErrInsufficientCredits, with nothing mutated, when the guard
// fails.
func (r *LedgerRepository) DebitAndLog(ctx context.Context, accountID uuid.UUID, cost int, entry *models.RequestLog) (int, error) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var remaining int
	err = tx.QueryRowContext(ctx, `
		UPDATE accounts
		SET credits = credits - $2, updated_at = NOW()
		WHERE id = $1 AND credits >= $2
		RETURNING credits
	`, accountID, cost).Scan(&remaining)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientCredits
		}
		return 0, fmt.Errorf("failed to debit account: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO request_logs (id, account_id, model, prompt_length, cost, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, entry.ID, entry.AccountID, entry.Model, entry.PromptLength, entry.Cost, entry.Status).
		Scan(&entry.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("failed to insert audit entry for debit: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit debit: %w", err)
	}

	return remaining, nil
}

// GetCredits reads the current balance. Used to report the available
// amount on an insufficient-credit rejection.
func (r *LedgerRepository) GetCredits(ctx context.Context, accountID uuid.UUID) (int, error) {
	var credits int
	err := r.db.conn.GetContext(ctx, &credits,
		`SELECT credits FROM accounts WHERE id = $1`, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAccountNotFound
		}
		return 0, fmt.Errorf("failed to get credits: %w", err)
	}
	return credits, nil
}
