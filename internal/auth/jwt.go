package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"ai_gateway/internal/config"
)

// sessionTokenTTL bounds how long a dashboard session stays valid.
const sessionTokenTTL = 24 * time.Hour

// GenerateSessionToken creates a signed session token with the account
// ID embedded. Tokens are minted by the out-of-scope login service; the
// helper lives here so that service and the tests share one format.
func GenerateSessionToken(accountID string, cfg *config.Config) (string, int64, error) {
	expirationTime := time.Now().Add(sessionTokenTTL).Unix()
	claims := jwt.MapClaims{
		"sub": accountID,
		"exp": expirationTime,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(cfg.JWTSecret)
	if err != nil {
		return "", 0, err
	}
	return signedToken, expirationTime, nil
}

// ValidateSessionToken verifies a session token and extracts the account ID.
func ValidateSessionToken(tokenString string, cfg *config.Config) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return cfg.JWTSecret, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}

	accountID, ok := claims["sub"].(string)
	if !ok || accountID == "" {
		return "", errors.New("token missing account id")
	}
	return accountID, nil
}
