package storage

import "errors"

var (
	// ErrAccountNotFound is returned when an account is not found
	ErrAccountNotFound = errors.New("account not found")

	// ErrAPIKeyNotFound is returned when an API key is not found
	ErrAPIKeyNotFound = errors.New("API key not found")

	// ErrInsufficientCredits is returned when a conditional debit finds
	// the balance below the requested cost. Nothing is mutated.
	ErrInsufficientCredits = errors.New("insufficient credits")
)
