package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
)

// APIKeyRepository handles API key database operations. It owns the
// "one active credential per account" relationship: issuance always
// goes through Replace, which swaps the old credential for the new one
// inside a single transaction.
type APIKeyRepository struct {
	db *DB
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{
		db: db,
	}
}

// Replace atomically removes any existing credential for the key's
// account and inserts the new one. Concurrent readers see either the
// old credential or the new one, never both and never neither-plus-half.
// Under concurrent regeneration the last writer wins.
func (r *APIKeyRepository) Replace(ctx context.Context, key *models.APIKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	tx, err := r.db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM api_keys WHERE account_id = $1`, key.AccountID); err != nil {
		return fmt.Errorf("failed to delete existing API key: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO api_keys (id, account_id, key_hash, key_prefix, key_suffix)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, key.ID, key.AccountID, key.KeyHash, key.KeyPrefix, key.KeySuffix).Scan(&key.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert API key: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit API key replacement: %w", err)
	}

	return nil
}

// GetByAccountID retrieves the account's current credential, if any.
func (r *APIKeyRepository) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*models.APIKey, error) {
	var key models.APIKey
	query := `
		SELECT id, account_id, key_hash, key_prefix, key_suffix, created_at
		FROM api_keys
		WHERE account_id = $1
	`

	err := r.db.conn.GetContext(ctx, &key, query, accountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, fmt.Errorf("failed to get API key: %w", err)
	}

	return &key, nil
}

// ListByPrefix retrieves all credentials whose stored non-secret prefix
// matches. The prefix only shards the candidate set for verification;
// the actual match is always the one-way hash comparison.
func (r *APIKeyRepository) ListByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	var keys []*models.APIKey
	query := `
		SELECT id, account_id, key_hash, key_prefix, key_suffix, created_at
		FROM api_keys
		WHERE key_prefix = $1
	`

	err := r.db.conn.SelectContext(ctx, &keys, query, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys by prefix: %w", err)
	}

	return keys, nil
}

// DeleteByAccountID removes the account's credential if present. Idempotent.
func (r *APIKeyRepository) DeleteByAccountID(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.db.conn.ExecContext(ctx,
		`DELETE FROM api_keys WHERE account_id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("failed to delete API key: %w", err)
	}
	return nil
}
