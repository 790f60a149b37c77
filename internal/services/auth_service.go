package services

import (
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// AuthService hashes and checks account passwords. It never touches the
// store; callers persist upgraded hashes themselves.
type AuthService interface {
	HashPassword(plain string) (string, error)
	// Matches reports whether plain is the password behind stored. needsUpgrade
	// is true when stored is a legacy plaintext value that matched.
	Matches(plain, stored string) (ok bool, needsUpgrade bool)
	IsHashed(value string) bool
}

type authService struct {
	cost int
}

func NewAuthService() AuthService {
	return &authService{cost: bcrypt.DefaultCost}
}

// NewAuthServiceWithCost is used by tests to keep bcrypt fast.
func NewAuthServiceWithCost(cost int) AuthService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &authService{cost: cost}
}

func (s *authService) HashPassword(plain string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(h), nil
}

func (s *authService) Matches(plain, stored string) (bool, bool) {
	if plain == "" || stored == "" {
		return false, false
	}
	if s.IsHashed(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) == nil, false
	}
	if subtle.ConstantTimeCompare([]byte(plain), []byte(stored)) == 1 {
		return true, true
	}
	return false, false
}

// IsHashed is a format check only: bcrypt output starts with "$2".
func (s *authService) IsHashed(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "$2")
}
