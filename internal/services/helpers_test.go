package services

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"repurposer/internal/models"
	"repurposer/internal/repositories"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type sentCode struct {
	kind  string
	email string
	code  string
}

type fakeMailer struct {
	mu         sync.Mutex
	configured bool
	err        error
	sent       []sentCode
}

func (m *fakeMailer) Configured() bool { return m.configured }

func (m *fakeMailer) SendSignupOTP(_ context.Context, email, code string) error {
	return m.record("signup", email, code)
}

func (m *fakeMailer) SendPasswordResetOTP(_ context.Context, email, code string) error {
	return m.record("reset", email, code)
}

func (m *fakeMailer) record(kind, email, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentCode{kind: kind, email: email, code: code})
	return nil
}

func (m *fakeMailer) last(t *testing.T) sentCode {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.sent, "no mail sent")
	return m.sent[len(m.sent)-1]
}

type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	prompts []string
}

func (g *fakeGenerator) Complete(_ context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	return g.reply, g.err
}

func (g *fakeGenerator) Close() error { return nil }

func (g *fakeGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

const testAdminKey = "s3cret-admin"

// harness wires the real services over a temp users file.
type harness struct {
	clock    *fakeClock
	repo     repositories.AccountRepository
	auth     AuthService
	otps     OTPRegistries
	mailer   *fakeMailer
	policy   *PlanPolicy
	quota    QuotaService
	gateway  *AccessGateway
	accounts AccountService
	gen      *fakeGenerator
	repurp   RepurposeService
	path     string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:  newFakeClock(),
		mailer: &fakeMailer{configured: true},
		gen:    &fakeGenerator{reply: "Video 1\n\nVideo 2"},
		path:   filepath.Join(t.TempDir(), "users.json"),
	}
	repo, err := repositories.NewFileAccountRepository(h.path, "")
	require.NoError(t, err)
	h.repo = repo
	h.auth = NewAuthServiceWithCost(bcrypt.MinCost)
	h.otps = OTPRegistries{
		Signup: NewOTPService("signup", 10*time.Minute, h.clock.Now),
		Reset:  NewOTPService("reset", 10*time.Minute, h.clock.Now),
	}
	h.policy = NewPlanPolicy(h.clock.Now)
	h.quota = NewQuotaService(3, 24*time.Hour, h.clock.Now)
	h.gateway = NewAccessGateway(NewEmailTokenVerifier(repo), h.quota, testAdminKey)
	h.accounts = NewAccountService(repo, h.auth, h.otps, NewOTPThrottle(0, 1, h.clock.Now), h.mailer, h.policy, h.gateway)
	h.repurp = NewRepurposeService(h.gateway, h.gen)
	return h
}

func signupRequest(email, password string) models.SignupRequest {
	age := 30
	return models.SignupRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Age:       &age,
		Gender:    "female",
		Email:     email,
		Password:  password,
	}
}

// signup runs the full OTP-gated signup flow.
func (h *harness) signup(t *testing.T, email, password string) error {
	t.Helper()
	ctx := context.Background()
	if err := h.accounts.RequestSignupOTP(ctx, email); err != nil {
		return err
	}
	req := signupRequest(email, password)
	req.OTP = h.mailer.last(t).code
	return h.accounts.Signup(ctx, req)
}

func (h *harness) seed(t *testing.T, accounts ...*models.Account) {
	t.Helper()
	require.NoError(t, h.repo.SaveAll(accounts))
}
