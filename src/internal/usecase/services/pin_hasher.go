package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

type BcryptPinHasher struct {
	cost int
}

func NewBcryptPinHasher(cost int) BcryptPinHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return BcryptPinHasher{cost: cost}
}

func (h BcryptPinHasher) Hash(pin string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(pin), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash pin: %w", err)
	}

	return string(hashed), nil
}

func (h BcryptPinHasher) Matches(hash, pin string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pin)) == nil
}
