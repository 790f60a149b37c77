package services

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"repurposer/internal/metrics"
	"repurposer/internal/repositories"
)

const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderAdminKey  = "X-Admin-Key"
)

// AccountRef is the identity a token resolved to.
type AccountRef struct {
	Email string
	Plan  string
}

// IdentityVerifier turns a bearer token into an account. It returns
// (nil, nil) when the token names no account.
type IdentityVerifier interface {
	VerifyIdentity(token string) (*AccountRef, error)
}

// EmailTokenVerifier treats the token as the account's canonical email.
type EmailTokenVerifier struct {
	repo repositories.AccountRepository
}

func NewEmailTokenVerifier(repo repositories.AccountRepository) *EmailTokenVerifier {
	return &EmailTokenVerifier{repo: repo}
}

func (v *EmailTokenVerifier) VerifyIdentity(token string) (*AccountRef, error) {
	a, err := v.repo.GetByEmail(token)
	if errors.Is(err, repositories.ErrAccountNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(err)
	}
	return &AccountRef{Email: repositories.NormalizeEmail(a.Email), Plan: NormalizePlan(a.Plan)}, nil
}

// ExtractToken reads X-Auth-Token, falling back to a bearer Authorization
// header. The result is trimmed and lower-cased; "" means no token.
func ExtractToken(h http.Header) string {
	if v := strings.TrimSpace(h.Get(HeaderAuthToken)); v != "" {
		return strings.ToLower(v)
	}
	auth := h.Get("Authorization")
	if len(auth) > 7 && strings.EqualFold(auth[:7], "bearer ") {
		return strings.ToLower(strings.TrimSpace(auth[7:]))
	}
	return ""
}

// ClientIP returns the first X-Forwarded-For entry, then remoteAddr, then
// "unknown".
func ClientIP(h http.Header, remoteAddr string) string {
	if fwd := h.Get("X-Forwarded-For"); strings.TrimSpace(fwd) != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	if remoteAddr = strings.TrimSpace(remoteAddr); remoteAddr != "" {
		return remoteAddr
	}
	return "unknown"
}

// AccessGateway answers whether a caller may act on an account right now.
type AccessGateway struct {
	verifier IdentityVerifier
	quota    QuotaService
	adminKey string
	log      *logrus.Entry
}

// NewAccessGateway takes the configured admin key. An empty key disables
// every admin operation.
func NewAccessGateway(verifier IdentityVerifier, quota QuotaService, adminKey string) *AccessGateway {
	return &AccessGateway{
		verifier: verifier,
		quota:    quota,
		adminKey: strings.TrimSpace(adminKey),
		log:      logrus.WithField("component", "gateway"),
	}
}

// MatchToken checks the token is present and names requestedEmail, without
// consulting the store.
func (g *AccessGateway) MatchToken(token, requestedEmail string) error {
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		metrics.RecordAuthFailure("missing_token")
		return ErrUnauthorized
	}
	if token != repositories.NormalizeEmail(requestedEmail) {
		metrics.RecordAuthFailure("token_mismatch")
		return ErrForbidden
	}
	return nil
}

// Authorize binds token to requestedEmail and resolves the account.
func (g *AccessGateway) Authorize(token, requestedEmail string) (*AccountRef, error) {
	if err := g.MatchToken(token, requestedEmail); err != nil {
		return nil, err
	}
	return g.resolve(token)
}

// Guard is the check applied to every protected route: a token is required,
// an email parameter (when given) must match it, and it must name an account.
func (g *AccessGateway) Guard(token, requestedEmail string) (*AccountRef, error) {
	if strings.TrimSpace(requestedEmail) != "" {
		return g.Authorize(token, requestedEmail)
	}
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		metrics.RecordAuthFailure("missing_token")
		return nil, ErrUnauthorized
	}
	return g.resolve(token)
}

func (g *AccessGateway) resolve(token string) (*AccountRef, error) {
	ref, err := g.verifier.VerifyIdentity(strings.ToLower(strings.TrimSpace(token)))
	if err != nil {
		return nil, err
	}
	if ref == nil {
		metrics.RecordAuthFailure("unknown_account")
		return nil, ErrUnauthorized
	}
	return ref, nil
}

// CheckAdminKey compares the supplied key with the configured one after
// trimming. With no key configured it always fails.
func (g *AccessGateway) CheckAdminKey(provided string) error {
	provided = strings.TrimSpace(provided)
	if g.adminKey == "" || provided == "" ||
		subtle.ConstantTimeCompare([]byte(g.adminKey), []byte(provided)) != 1 {
		metrics.RecordAuthFailure("admin_key")
		return ErrForbidden
	}
	return nil
}

// CheckGenerationQuota authorizes the caller and, for free accounts, spends
// one unit of clientIP's quota. Paid plans are never counted.
func (g *AccessGateway) CheckGenerationQuota(token, email, clientIP string) (*AccountRef, error) {
	ref, err := g.Authorize(token, email)
	if err != nil {
		return nil, err
	}
	if ref.Plan != PlanFree {
		return ref, nil
	}
	if !g.quota.Allow(clientIP) {
		g.log.WithFields(logrus.Fields{"email": ref.Email, "client_ip": clientIP}).
			Info("[gateway][quota] free limit reached")
		return nil, ErrQuotaExceeded
	}
	return ref, nil
}
