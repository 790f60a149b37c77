package services

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"repurposer/internal/models"
	"repurposer/internal/repositories"
)

// AccountService implements every account and plan operation. Mutations go
// through AccountRepository.Mutate, so each one is a single serialized
// load-change-save cycle.
type AccountService interface {
	Signup(ctx context.Context, req models.SignupRequest) error
	RequestSignupOTP(ctx context.Context, email string) error
	// Login returns the session token, which is the canonical email.
	Login(ctx context.Context, email, password string) (string, error)
	UserExists(ctx context.Context, email string) (bool, error)

	RequestPasswordOTP(ctx context.Context, email string) error
	VerifyPasswordOTP(ctx context.Context, email, otp string) error
	ResetPassword(ctx context.Context, req models.PasswordResetRequest) error

	GetPlan(ctx context.Context, email string) (models.PlanInfo, error)
	GetAccount(ctx context.Context, email string) (models.AccountView, error)
	Upgrade(ctx context.Context, email, plan, cycle, adminKey string) error
	AdminListUsers(ctx context.Context, adminKey string) ([]models.PlanInfo, error)
	AdminSetPlan(ctx context.Context, req models.SetPlanRequest, adminKey string) error

	UpdateAccount(ctx context.Context, token string, req models.UpdateAccountRequest) error
	// DeleteAccount reports whether a record was removed.
	DeleteAccount(ctx context.Context, token, email string) (bool, error)
	Logout(ctx context.Context, token, email string) error
}

// OTPRegistries holds the two independent code registries.
type OTPRegistries struct {
	Signup OTPService
	Reset  OTPService
}

type accountService struct {
	repo     repositories.AccountRepository
	auth     AuthService
	otps     OTPRegistries
	throttle *OTPThrottle
	emails   EmailService
	policy   *PlanPolicy
	gateway  *AccessGateway
	log      *logrus.Entry
}

func NewAccountService(
	repo repositories.AccountRepository,
	auth AuthService,
	otps OTPRegistries,
	throttle *OTPThrottle,
	emails EmailService,
	policy *PlanPolicy,
	gateway *AccessGateway,
) AccountService {
	return &accountService{
		repo:     repo,
		auth:     auth,
		otps:     otps,
		throttle: throttle,
		emails:   emails,
		policy:   policy,
		gateway:  gateway,
		log:      logrus.WithField("component", "accounts"),
	}
}

func (s *accountService) Signup(ctx context.Context, req models.SignupRequest) error {
	email := repositories.NormalizeEmail(req.Email)
	log := s.log.WithField("email", email)

	if err := validateRequest(req); err != nil {
		log.WithError(err).Info("[auth][signup] rejected")
		return err
	}

	hash, err := s.auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	age := *req.Age
	account := &models.Account{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Age:          &age,
		Gender:       strings.ToLower(strings.TrimSpace(req.Gender)),
		Email:        email,
		Password:     hash,
		Plan:         PlanFree,
		BillingCycle: CycleNone,
	}

	// An existing account is reported before the code is checked: callers
	// racing on one email see Conflict after the winner consumes the code.
	err = s.repo.Mutate(func(set *repositories.AccountSet) error {
		if set.Has(email) {
			return repositories.ErrDuplicateEmail
		}
		if !s.otps.Signup.Verify(email, req.OTP) {
			return ErrInvalidOTP
		}
		return set.Add(account)
	})
	if err != nil {
		err = classify(err)
		log.WithError(err).Info("[auth][signup] failed")
		return err
	}

	s.otps.Signup.Evict(email)
	log.Info("[auth][signup] account created")
	return nil
}

func (s *accountService) RequestSignupOTP(ctx context.Context, email string) error {
	email = repositories.NormalizeEmail(email)
	if err := validateEmail(email); err != nil {
		return err
	}
	exists, err := s.repo.Exists(email)
	if err != nil {
		return classify(err)
	}
	if exists {
		return ErrConflict
	}
	return s.sendOTP(ctx, email, s.otps.Signup, s.emails.SendSignupOTP)
}

func (s *accountService) RequestPasswordOTP(ctx context.Context, email string) error {
	email = repositories.NormalizeEmail(email)
	exists, err := s.repo.Exists(email)
	if err != nil {
		return classify(err)
	}
	if !exists {
		return ErrNotFound
	}
	return s.sendOTP(ctx, email, s.otps.Reset, s.emails.SendPasswordResetOTP)
}

func (s *accountService) sendOTP(
	ctx context.Context,
	email string,
	registry OTPService,
	send func(ctx context.Context, email, code string) error,
) error {
	if !s.emails.Configured() {
		return ErrMailNotConfigured
	}
	if err := s.throttle.Allow(email); err != nil {
		s.log.WithField("email", email).Info("[auth][otp] resend throttled")
		return err
	}
	code, err := registry.Issue(email)
	if err != nil {
		return err
	}
	if err := send(ctx, email, code); err != nil {
		s.log.WithError(err).WithField("email", email).Warn("[auth][otp] send failed")
		return classify(err)
	}
	s.log.WithField("email", email).Info("[auth][otp] code sent")
	return nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (string, error) {
	email = repositories.NormalizeEmail(email)
	if email == "" || password == "" {
		return "", ErrUnauthorized
	}
	log := s.log.WithField("email", email)

	err := s.repo.Mutate(func(set *repositories.AccountSet) error {
		a := set.Get(email)
		if a == nil {
			return ErrUnauthorized
		}
		ok, needsUpgrade := s.auth.Matches(password, a.Password)
		if !ok {
			return ErrUnauthorized
		}
		if needsUpgrade {
			hash, err := s.auth.HashPassword(password)
			if err != nil {
				return err
			}
			a.Password = hash
			set.Touch()
			log.Info("[auth][login] legacy password upgraded to bcrypt")
		}
		if s.policy.Normalize(a) {
			set.Touch()
		}
		return nil
	})
	if err != nil {
		err = classify(err)
		log.WithError(err).Info("[auth][login] failed")
		return "", err
	}
	log.Info("[auth][login] success")
	return email, nil
}

func (s *accountService) UserExists(ctx context.Context, email string) (bool, error) {
	ok, err := s.repo.Exists(email)
	return ok, classify(err)
}

func (s *accountService) VerifyPasswordOTP(ctx context.Context, email, otp string) error {
	if !s.otps.Reset.Verify(email, otp) {
		return ErrInvalidOTP
	}
	return nil
}

func (s *accountService) ResetPassword(ctx context.Context, req models.PasswordResetRequest) error {
	email := repositories.NormalizeEmail(req.Email)
	if !s.otps.Reset.Verify(email, req.OTP) {
		return ErrInvalidOTP
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	hash, err := s.auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}

	err = s.repo.Mutate(func(set *repositories.AccountSet) error {
		a := set.Get(email)
		if a == nil {
			return ErrNotFound
		}
		a.Password = hash
		set.Touch()
		return nil
	})
	if err != nil {
		return classify(err)
	}
	s.otps.Reset.Evict(email)
	s.log.WithField("email", email).Info("[auth][password-reset] password changed")
	return nil
}

// GetPlan reports the free plan for unknown emails.
func (s *accountService) GetPlan(ctx context.Context, email string) (models.PlanInfo, error) {
	email = repositories.NormalizeEmail(email)
	a, err := s.repo.GetByEmail(email)
	switch {
	case err == nil:
		return s.policy.Info(a), nil
	case errors.Is(err, repositories.ErrAccountNotFound):
		return models.PlanInfo{Email: email, Plan: PlanFree, Cycle: CycleNone}, nil
	default:
		return models.PlanInfo{}, classify(err)
	}
}

func (s *accountService) GetAccount(ctx context.Context, email string) (models.AccountView, error) {
	info, err := s.GetPlan(ctx, email)
	if err != nil {
		return models.AccountView{}, err
	}
	return models.AccountView{Email: info.Email, Plan: info.Plan}, nil
}

func (s *accountService) Upgrade(ctx context.Context, email, plan, cycle, adminKey string) error {
	if err := s.gateway.CheckAdminKey(adminKey); err != nil {
		return err
	}
	return s.setPlan(email, plan, cycle)
}

func (s *accountService) AdminSetPlan(ctx context.Context, req models.SetPlanRequest, adminKey string) error {
	if err := s.gateway.CheckAdminKey(adminKey); err != nil {
		return err
	}
	if err := validateRequest(req); err != nil {
		return err
	}
	return s.setPlan(req.Email, req.Plan, req.Cycle)
}

func (s *accountService) setPlan(email, plan, cycle string) error {
	email = repositories.NormalizeEmail(email)
	err := s.repo.Mutate(func(set *repositories.AccountSet) error {
		a := set.Get(email)
		if a == nil {
			return ErrNotFound
		}
		s.policy.ApplyPlan(a, plan, cycle)
		set.Touch()
		return nil
	})
	if err != nil {
		return classify(err)
	}
	s.log.WithFields(logrus.Fields{"email": email, "plan": NormalizePlan(plan)}).Info("[admin][plan] updated")
	return nil
}

func (s *accountService) AdminListUsers(ctx context.Context, adminKey string) ([]models.PlanInfo, error) {
	if err := s.gateway.CheckAdminKey(adminKey); err != nil {
		return nil, err
	}
	accounts, err := s.repo.LoadAll()
	if err != nil {
		return nil, classify(err)
	}
	out := make([]models.PlanInfo, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, s.policy.Info(a))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

func (s *accountService) UpdateAccount(ctx context.Context, token string, req models.UpdateAccountRequest) error {
	email := repositories.NormalizeEmail(req.Email)
	if err := s.gateway.MatchToken(token, email); err != nil {
		return err
	}

	if err := validateRequest(req); err != nil {
		return err
	}

	newEmail := email
	if req.NewEmail != nil {
		newEmail = repositories.NormalizeEmail(*req.NewEmail)
		if newEmail == "" {
			return invalid("newEmail", "Email cannot be empty")
		}
		if newEmail != email {
			if err := validateEmail(newEmail); err != nil {
				return err
			}
		}
	}

	var hash string
	if strings.TrimSpace(req.Password) != "" {
		h, err := s.auth.HashPassword(req.Password)
		if err != nil {
			return err
		}
		hash = h
	}

	err := s.repo.Mutate(func(set *repositories.AccountSet) error {
		a := set.Get(email)
		if a == nil {
			return ErrNotFound
		}
		if err := set.Rename(email, newEmail); err != nil {
			return err
		}
		if hash != "" {
			a.Password = hash
		}
		s.policy.Normalize(a)
		set.Touch()
		return nil
	})
	if err != nil {
		return classify(err)
	}
	s.log.WithFields(logrus.Fields{"email": email, "new_email": newEmail}).Info("[account][update] saved")
	return nil
}

func (s *accountService) DeleteAccount(ctx context.Context, token, email string) (bool, error) {
	email = repositories.NormalizeEmail(email)
	if err := s.gateway.MatchToken(token, email); err != nil {
		return false, err
	}
	removed := false
	err := s.repo.Mutate(func(set *repositories.AccountSet) error {
		removed = set.Remove(email)
		return nil
	})
	if err != nil {
		return false, classify(err)
	}
	if removed {
		s.log.WithField("email", email).Info("[account][delete] removed")
	}
	return removed, nil
}

// Logout only checks the token; sessions are stateless.
func (s *accountService) Logout(ctx context.Context, token, email string) error {
	if strings.TrimSpace(email) != "" {
		return s.gateway.MatchToken(token, email)
	}
	if strings.TrimSpace(token) == "" {
		return ErrUnauthorized
	}
	return nil
}
