package token

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size - байт случайности в одном токене
const Size = 32

// New - случайный токен в base58 (без неоднозначных символов, удобно копировать из письма или чата)
func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base58.Encode(b), nil
}
