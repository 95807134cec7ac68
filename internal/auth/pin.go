package auth

import (
	"golang.org/x/crypto/bcrypt"

	"restaurant-pos/internal/utils"
)

// PINLength is the exact number of digits a PIN must have.
const PINLength = 4

// ValidatePIN accepts exactly four ASCII digits.
func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return utils.Validation("PIN must be exactly %d digits", PINLength)
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return utils.Validation("PIN must be exactly %d digits", PINLength)
		}
	}
	return nil
}

// HashPIN validates and hashes a PIN for storage.
func HashPIN(pin string) (string, error) {
	if err := ValidatePIN(pin); err != nil {
		return "", err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", utils.Internal("failed to hash PIN", err)
	}
	return string(hash), nil
}

func comparePIN(hash, pin string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
