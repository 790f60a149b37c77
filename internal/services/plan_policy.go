package services

import (
	"strings"
	"time"

	"repurposer/internal/models"
	"repurposer/internal/repositories"
)

const (
	PlanFree     = "free"
	PlanPro      = "pro"
	PlanAdvanced = "advanced"

	CycleNone    = "none"
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"

	secondsPerDay = 24 * 60 * 60
)

// NormalizePlan folds free-form plan names into free, pro or advanced.
func NormalizePlan(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pro", "premium":
		return PlanPro
	case "advanced", "agency":
		return PlanAdvanced
	default:
		return PlanFree
	}
}

// NormalizeCycle folds free-form cycle names into none, monthly or yearly.
func NormalizeCycle(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "yearly":
		return CycleYearly
	case "none":
		return CycleNone
	default:
		return CycleMonthly
	}
}

// PlanPolicy computes plan expiry in whole UTC days.
type PlanPolicy struct {
	now Clock
}

func NewPlanPolicy(now Clock) *PlanPolicy {
	return &PlanPolicy{now: now.orDefault()}
}

// Today is the current day counted from 1970-01-01 UTC.
func (p *PlanPolicy) Today() int64 {
	return epochDay(p.now())
}

// ComputeExpiry expects normalized inputs. Free plans never expire.
func (p *PlanPolicy) ComputeExpiry(plan, cycle string) *int64 {
	if plan == PlanFree {
		return nil
	}
	days := int64(30)
	if cycle == CycleYearly {
		days = 365
	}
	day := p.Today() + days
	return &day
}

func (p *PlanPolicy) RemainingDays(expiry *int64) int64 {
	if expiry == nil {
		return 0
	}
	return max(0, *expiry-p.Today())
}

// ApplyPlan sets plan, cycle and expiry together. A free plan always
// carries cycle none and no expiry.
func (p *PlanPolicy) ApplyPlan(a *models.Account, rawPlan, rawCycle string) {
	plan := NormalizePlan(rawPlan)
	cycle := NormalizeCycle(rawCycle)
	a.Plan = plan
	a.PlanExpiresAtEpochDay = p.ComputeExpiry(plan, cycle)
	if plan == PlanFree {
		a.BillingCycle = CycleNone
		return
	}
	a.BillingCycle = cycle
}

// Normalize rewrites a stored record into canonical form and reports whether
// anything changed. Expiry is left alone on paid plans.
func (p *PlanPolicy) Normalize(a *models.Account) bool {
	changed := false
	if email := repositories.NormalizeEmail(a.Email); email != a.Email {
		a.Email = email
		changed = true
	}
	if plan := NormalizePlan(a.Plan); plan != a.Plan {
		a.Plan = plan
		changed = true
	}
	cycle := NormalizeCycle(a.BillingCycle)
	if a.Plan == PlanFree {
		cycle = CycleNone
		if a.PlanExpiresAtEpochDay != nil {
			a.PlanExpiresAtEpochDay = nil
			changed = true
		}
	}
	if cycle != a.BillingCycle {
		a.BillingCycle = cycle
		changed = true
	}
	return changed
}

// Info is the caller-facing view of a's entitlement.
func (p *PlanPolicy) Info(a *models.Account) models.PlanInfo {
	plan := NormalizePlan(a.Plan)
	cycle := CycleNone
	if plan != PlanFree {
		cycle = NormalizeCycle(a.BillingCycle)
	}
	return models.PlanInfo{
		Email:         repositories.NormalizeEmail(a.Email),
		Plan:          plan,
		Cycle:         cycle,
		RemainingDays: p.RemainingDays(a.PlanExpiresAtEpochDay),
	}
}

func epochDay(t time.Time) int64 {
	sec := t.UTC().Unix()
	day := sec / secondsPerDay
	if sec < 0 && sec%secondsPerDay != 0 {
		day--
	}
	return day
}
