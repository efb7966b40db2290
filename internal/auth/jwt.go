// Package auth issues and validates the bearer tokens the chat API runs
// on, and hashes account passwords.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"makwenta.app/finance-assistant/internal/config"
)

func tokenTTL() time.Duration {
	if config.AppConfig.JWTTTLHours == 0 {
		return 24 * time.Hour
	}
	return time.Duration(config.AppConfig.JWTTTLHours) * time.Hour
}

// GenerateJWT issues a bearer token for one ledger user. The subject is
// the external user id, which is also the key the session registry and
// every store query scope on.
func GenerateJWT(externalUserID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": externalUserID,
		"iat": now.Unix(),
		"exp": now.Add(tokenTTL()).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.JWTSecret))
}

// ValidateJWT checks the token signature and expiry and returns the
// external user id it was issued for.
func ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.AppConfig.JWTSecret), nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token has no subject")
	}
	return sub, nil
}
