package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

func HashPassword(s string) ([]byte, error) {
	if err := ValidatePasswordStrength(s); err != nil {
		return nil, err
	}
	return bcrypt.GenerateFromPassword([]byte(s), bcrypt.DefaultCost)
}

func ComparePassword(hashed string, normal string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(normal))
}

func ValidatePasswordStrength(s string) error {
	if len(s) < minPasswordLength {
		return errors.New("password must be at least 8 characters")
	}
	return nil
}
