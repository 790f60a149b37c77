package services

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"repurposer/internal/models"
	"repurposer/internal/repositories"
)

const (
	otpMin = 100000
	otpMax = 999999
)

// OTPService is an in-memory registry of pending one-time codes keyed by
// canonical email. The process keeps two of them, one for signup and one for
// password reset, so a code from one flow never validates the other.
type OTPService interface {
	// Issue stores a fresh code for email, replacing any pending one.
	Issue(email string) (string, error)
	// Verify compares candidate with the pending code. An expired entry is
	// evicted. A matching code is left in place; callers Evict once the
	// dependent action completes.
	Verify(email, candidate string) bool
	Evict(email string)
}

type otpService struct {
	name string
	ttl  time.Duration
	now  Clock

	mu        sync.Mutex
	entries   map[string]models.OTPEntry
	lastSweep time.Time
}

func NewOTPService(name string, ttl time.Duration, now Clock) OTPService {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &otpService{
		name:    name,
		ttl:     ttl,
		now:     now.orDefault(),
		entries: make(map[string]models.OTPEntry),
	}
}

func (s *otpService) Issue(email string) (string, error) {
	key := repositories.NormalizeEmail(email)
	if key == "" {
		return "", invalid("email", "Email required")
	}
	code, err := generateCode()
	if err != nil {
		return "", fmt.Errorf("%s otp: %w", s.name, err)
	}

	now := s.now()
	s.mu.Lock()
	s.sweepLocked(now)
	s.entries[key] = models.OTPEntry{Code: code, IssuedAt: now}
	s.mu.Unlock()
	return code, nil
}

// sweepLocked drops expired entries, at most once per ttl.
func (s *otpService) sweepLocked(now time.Time) {
	if now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for key, entry := range s.entries {
		if now.After(entry.ExpiresAt(s.ttl)) {
			delete(s.entries, key)
		}
	}
}

func (s *otpService) Verify(email, candidate string) bool {
	key := repositories.NormalizeEmail(email)
	candidate = strings.TrimSpace(candidate)
	if key == "" || candidate == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.entries[key]
	if !ok {
		return false
	}
	if s.now().After(entry.ExpiresAt(s.ttl)) {
		delete(s.entries, key)
		return false
	}
	return subtle.ConstantTimeCompare([]byte(entry.Code), []byte(candidate)) == 1
}

func (s *otpService) Evict(email string) {
	key := repositories.NormalizeEmail(email)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// generateCode returns a uniformly random six digit code.
func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(otpMax-otpMin+1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d", n.Int64()+otpMin), nil
}
