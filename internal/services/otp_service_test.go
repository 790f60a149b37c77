package services

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOTPService_IssueThenVerify(t *testing.T) {
	clock := newFakeClock()
	s := NewOTPService("signup", 10*time.Minute, clock.Now)

	code, err := s.Issue(" A@X.com ")
	require.NoError(t, err)
	assert.Len(t, code, 6)

	assert.True(t, s.Verify("a@x.com", code))
	assert.True(t, s.Verify("A@x.COM", " "+code+" "), "email and code are normalized")
	assert.False(t, s.Verify("a@x.com", "000000"))
	assert.False(t, s.Verify("b@x.com", code))
	assert.False(t, s.Verify("a@x.com", ""))
}

// A verified code stays valid until the caller evicts it or it expires.
func TestOTPService_VerifiedCodeIsReusableWithinWindow(t *testing.T) {
	clock := newFakeClock()
	s := NewOTPService("reset", 10*time.Minute, clock.Now)

	code, err := s.Issue("a@x.com")
	require.NoError(t, err)

	assert.True(t, s.Verify("a@x.com", code))
	clock.Advance(5 * time.Minute)
	assert.True(t, s.Verify("a@x.com", code))

	s.Evict("a@x.com")
	assert.False(t, s.Verify("a@x.com", code))
}

func TestOTPService_ExpiryEvicts(t *testing.T) {
	clock := newFakeClock()
	s := NewOTPService("reset", 10*time.Minute, clock.Now)

	code, err := s.Issue("a@x.com")
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	assert.True(t, s.Verify("a@x.com", code), "the last instant of the window still counts")

	clock.Advance(time.Millisecond)
	assert.False(t, s.Verify("a@x.com", code))

	clock.Advance(-time.Hour)
	assert.False(t, s.Verify("a@x.com", code), "expired entry was evicted")
}

func TestOTPService_ReissueReplacesCode(t *testing.T) {
	s := NewOTPService("signup", time.Minute, nil)

	var first, second string
	for first == second {
		var err error
		first, err = s.Issue("a@x.com")
		require.NoError(t, err)
		second, err = s.Issue("a@x.com")
		require.NoError(t, err)
	}
	assert.False(t, s.Verify("a@x.com", first))
	assert.True(t, s.Verify("a@x.com", second))
}

func TestOTPService_RegistriesAreIndependent(t *testing.T) {
	signup := NewOTPService("signup", time.Minute, nil)
	reset := NewOTPService("reset", time.Minute, nil)

	code, err := signup.Issue("a@x.com")
	require.NoError(t, err)
	assert.False(t, reset.Verify("a@x.com", code))
}

func TestOTPService_CodeRange(t *testing.T) {
	s := NewOTPService("signup", time.Minute, nil)
	for i := 0; i < 200; i++ {
		code, err := s.Issue("a@x.com")
		require.NoError(t, err)
		n, err := strconv.Atoi(code)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 100000)
		assert.LessOrEqual(t, n, 999999)
	}
}

func TestOTPService_IssueRejectsBlankEmail(t *testing.T) {
	s := NewOTPService("signup", time.Minute, nil)
	_, err := s.Issue("  ")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestOTPService_Concurrent(t *testing.T) {
	s := NewOTPService("signup", time.Minute, nil)
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			email := strconv.Itoa(i%4) + "@x.com"
			code, err := s.Issue(email)
			assert.NoError(t, err)
			s.Verify(email, code)
			if i%3 == 0 {
				s.Evict(email)
			}
		}(i)
	}
	wg.Wait()
}

func TestOTPThrottle(t *testing.T) {
	clock := newFakeClock()
	th := NewOTPThrottle(1, 2, clock.Now)

	assert.NoError(t, th.Allow("a@x.com"))
	assert.NoError(t, th.Allow("A@X.com"))
	assert.ErrorIs(t, th.Allow("a@x.com"), ErrOTPThrottled)
	assert.NoError(t, th.Allow("b@x.com"), "limits are per email")

	clock.Advance(time.Minute)
	assert.NoError(t, th.Allow("a@x.com"))
	assert.ErrorIs(t, th.Allow("a@x.com"), ErrOTPThrottled)
}

func TestOTPThrottle_Disabled(t *testing.T) {
	th := NewOTPThrottle(0, 1, nil)
	for i := 0; i < 10; i++ {
		assert.NoError(t, th.Allow("a@x.com"))
	}
}

func TestOTPService_IssueSweepsExpiredEntries(t *testing.T) {
	clock := newFakeClock()
	s := NewOTPService("signup", 10*time.Minute, clock.Now).(*otpService)

	for _, email := range []string{"a@x.com", "b@x.com", "c@x.com"} {
		_, err := s.Issue(email)
		require.NoError(t, err)
	}
	assert.Len(t, s.entries, 3)

	clock.Advance(11 * time.Minute)
	code, err := s.Issue("d@x.com")
	require.NoError(t, err)
	assert.Len(t, s.entries, 1, "expired codes are dropped when a new one is issued")
	assert.True(t, s.Verify("d@x.com", code))
}

func TestOTPThrottle_ForgetsRefilledLimiters(t *testing.T) {
	clock := newFakeClock()
	th := NewOTPThrottle(1, 2, clock.Now)

	require.NoError(t, th.Allow("a@x.com"))
	require.NoError(t, th.Allow("b@x.com"))
	require.NoError(t, th.Allow("b@x.com"))
	assert.Len(t, th.limiters, 2)

	clock.Advance(throttleSweepEvery)
	require.NoError(t, th.Allow("c@x.com"))
	assert.Len(t, th.limiters, 1, "only the new sender is tracked")

	require.NoError(t, th.Allow("c@x.com"))
	assert.ErrorIs(t, th.Allow("c@x.com"), ErrOTPThrottled, "live limiters survive the sweep")
}
