package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents the stored form of an account's bearer credential.
// Only the bcrypt hash and the two short display fragments exist once
// issuance completes; the plaintext is never persisted.
type APIKey struct {
	ID        uuid.UUID `db:"id"`
	AccountID uuid.UUID `db:"account_id"`
	KeyHash   string    `db:"key_hash"`
	KeyPrefix string    `db:"key_prefix"`
	KeySuffix string    `db:"key_suffix"`
	CreatedAt time.Time `db:"created_at"`
}

// Masked returns the non-secret display form shown in place of the key.
func (k *APIKey) Masked() string {
	return k.KeyPrefix + "..." + k.KeySuffix
}
