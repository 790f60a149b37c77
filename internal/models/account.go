package models

// Account is one persisted user record. Email is the canonical (trimmed,
// lower-cased) address and doubles as the bearer token.
type Account struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Age       *int   `json:"age"`
	Gender    string `json:"gender"`
	Email     string `json:"email"`
	Password  string `json:"password"` // bcrypt hash, or plaintext on legacy records
	Plan      string `json:"plan"`
	// BillingCycle is one of none, monthly, yearly.
	BillingCycle string `json:"billingCycle"`
	// PlanExpiresAtEpochDay counts days since 1970-01-01 UTC; nil on the free plan.
	PlanExpiresAtEpochDay *int64 `json:"planExpiresAtEpochDay"`
}

// SignupRequest is checked against its binding tags by gin on bind and by
// the account service; "dotcom", "gender" and "notblank" are registered in
// services.
type SignupRequest struct {
	FirstName string `json:"firstName" binding:"required,notblank"`
	LastName  string `json:"lastName" binding:"max=100"`
	Age       *int   `json:"age" binding:"required,gte=13,lte=120"`
	Gender    string `json:"gender" binding:"required,gender"`
	Email     string `json:"email" binding:"required,dotcom"`
	Password  string `json:"password" binding:"required,notblank,max=72"`
	OTP       string `json:"otp"`
}

// LoginRequest carries no required tags: missing credentials are an
// authentication failure, not a malformed request.
type LoginRequest struct {
	Email    string `json:"email" binding:"max=254"`
	Password string `json:"password" binding:"max=1024"`
}

// UpdateAccountRequest leaves the email unchanged when NewEmail is absent;
// a present but blank NewEmail is rejected.
type UpdateAccountRequest struct {
	Email    string  `json:"email"`
	NewEmail *string `json:"newEmail"`
	Password string  `json:"password" binding:"max=72"`
}

type PasswordResetRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword" binding:"required,notblank,max=72"`
}

type SetPlanRequest struct {
	Email string `json:"email" binding:"required,notblank"`
	Plan  string `json:"plan" binding:"max=32"`
	Cycle string `json:"cycle" binding:"max=32"`
}

// AccountView is what GET /account returns.
type AccountView struct {
	Email string `json:"email"`
	Plan  string `json:"plan"`
}

// PlanInfo is the caller-facing view of an account's entitlement.
type PlanInfo struct {
	Email         string `json:"email"`
	Plan          string `json:"plan"`
	Cycle         string `json:"cycle"`
	RemainingDays int64  `json:"remainingDays"`
}
