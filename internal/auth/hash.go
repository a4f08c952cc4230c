package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost is deliberately slow to keep brute forcing stored hashes
// impractical at gateway request rates.
const bcryptCost = 10

// HashAPIKey produces the salted one-way storage representation of a key.
func HashAPIKey(key string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CompareAPIKey checks a plaintext key against a stored hash using the
// scheme's own verify routine, never a raw equality check.
func CompareAPIKey(key, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
