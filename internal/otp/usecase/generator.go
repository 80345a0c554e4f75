package usecase

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

var ten = big.NewInt(10)

// generateCode draws length decimal digits, each uniformly from s.random.
func (s *Usecase) generateCode(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("otp: invalid code length %d", length)
	}

	code := make([]byte, length)
	for i := range code {
		n, err := rand.Int(s.random, ten)
		if err != nil {
			return "", fmt.Errorf("otp: generate code: %w", err)
		}
		code[i] = byte('0' + n.Int64())
	}

	return string(code), nil
}
