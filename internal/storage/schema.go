package storage

import (
	"context"
	"fmt"
)

// schemaStatements are idempotent and run at startup. The UNIQUE
// constraint on api_keys.account_id is what enforces "at most one live
// credential per account" at the storage level; the CHECK on credits
// backs the non-negative balance invariant behind the conditional debit.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		credits INTEGER NOT NULL DEFAULT 0 CHECK (credits >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id UUID PRIMARY KEY,
		account_id UUID NOT NULL UNIQUE REFERENCES accounts(id) ON DELETE CASCADE,
		key_hash TEXT NOT NULL,
		key_prefix TEXT NOT NULL,
		key_suffix TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_api_keys_key_prefix ON api_keys (key_prefix)`,
	`CREATE TABLE IF NOT EXISTS request_logs (
		id UUID PRIMARY KEY,
		account_id TEXT NOT NULL,
		model TEXT NOT NULL,
		prompt_length INTEGER NOT NULL,
		cost INTEGER NOT NULL,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_request_logs_account_created
		ON request_logs (account_id, created_at DESC)`,
}

// Migrate ensures the gateway schema exists.
func (db *DB) Migrate(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
