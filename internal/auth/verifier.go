package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"ai_gateway/internal/models"
)

// ErrKeyNotFound is returned when a presented key matches no stored credential.
var ErrKeyNotFound = errors.New("API key not found")

// AccountRecord is the view of an account needed at request time.
type AccountRecord struct {
	ID      uuid.UUID
	Email   string
	Credits int
}

// APIKeyStore resolves plaintext API keys into the owning account.
type APIKeyStore interface {
	Lookup(ctx context.Context, plaintextKey string) (*AccountRecord, error)
}

// KeySource lists stored credentials sharing a non-secret routing prefix.
type KeySource interface {
	ListByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
}

// AccountSource loads accounts by id.
type AccountSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Verifier resolves presented bearer secrets against the stored
// credential set. Keys are stored only as one-way hashes, so there is
// no indexable cleartext to fetch by: the verifier narrows candidates
// with the stored non-secret prefix, then runs the hash scheme's verify
// routine against each candidate until a match or exhaustion.
type Verifier struct {
	keys     KeySource
	accounts AccountSource
}

// NewVerifier creates a verifier over a credential source and an account source.
func NewVerifier(keys KeySource, accounts AccountSource) *Verifier {
	return &Verifier{
		keys:     keys,
		accounts: accounts,
	}
}

// Lookup implements APIKeyStore. A value that is not even key-shaped is
// rejected before any store access.
func (v *Verifier) Lookup(ctx context.Context, plaintextKey string) (*AccountRecord, error) {
	if !ValidKeyFormat(plaintextKey) {
		return nil, ErrKeyNotFound
	}

	candidates, err := v.keys.ListByPrefix(ctx, KeyPrefix(plaintextKey))
	if err != nil {
		return nil, fmt.Errorf("failed to list candidate keys: %w", err)
	}

	for _, key := range candidates {
		if !CompareAPIKey(plaintextKey, key.KeyHash) {
			continue
		}

		account, err := v.accounts.GetByID(ctx, key.AccountID)
		if err != nil {
			// The credential may have been rotated or its account
			// removed mid-scan; treat as no match rather than an error.
			continue
		}

		return &AccountRecord{
			ID:      account.ID,
			Email:   account.Email,
			Credits: account.Credits,
		}, nil
	}

	return nil, ErrKeyNotFound
}
