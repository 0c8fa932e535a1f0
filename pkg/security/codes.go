package security

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// GenerateNumericCode returns a uniformly random code of exactly digits
// digits with no leading zero. Used for email OTPs and pickup codes.
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", fmt.Errorf("invalid digit count %d", digits)
	}
	low := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	span := new(big.Int).Mul(low, big.NewInt(9))
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return "", fmt.Errorf("draw code: %w", err)
	}
	return n.Add(n, low).String(), nil
}

// ConstantTimeEqual compares secrets such as OTPs and pickup codes.
func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
