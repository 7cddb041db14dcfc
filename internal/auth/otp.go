package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 10 balances security and verification latency for
// short-lived 5-digit codes.
const bcryptCost = 10

// GenerateOTPCode returns a random 5-digit code as a string.
func GenerateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(90000))
	if err != nil {
		return "", fmt.Errorf("generate otp code: %w", err)
	}
	return fmt.Sprintf("%05d", n.Int64()+10000), nil
}

// HashOTPCode generates a bcrypt hash of the code. Codes are stored hashed so
// a database leak does not expose live login codes.
func HashOTPCode(code string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash otp code: %w", err)
	}
	return string(hash), nil
}

// CompareOTPCode compares a stored hash with a submitted code.
func CompareOTPCode(hash, code string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(code))
}
