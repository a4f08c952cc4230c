package models

import (
	"time"

	"github.com/google/uuid"
)

// Request log statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// UnknownAccountID is recorded when a request carried a credential that
// resolved to no account. The attempt is still audited, just never
// attributed to a guessed account.
const UnknownAccountID = "unknown"

// RequestLog is an immutable audit record of one gateway attempt.
// AccountID is text rather than a UUID so rejected attempts can carry
// the "unknown" sentinel.
type RequestLog struct {
	ID           uuid.UUID `db:"id"`
	AccountID    string    `db:"account_id"`
	Model        string    `db:"model"`
	PromptLength int       `db:"prompt_length"`
	Cost         int       `db:"cost"`
	Status       string    `db:"status"`
	CreatedAt    time.Time `db:"created_at"`
}
