package models

import (
	"time"

	"github.com/google/uuid"
)

// Account represents a prepaid gateway account.
type Account struct {
	ID        uuid.UUID `db:"id"`
	Email     string    `db:"email"`
	Credits   int       `db:"credits"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// CanAfford checks whether the account balance covers a charge.
func (a *Account) CanAfford(cost int) bool {
	return a.Credits >= cost
}
