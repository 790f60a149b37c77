package services

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"repurposer/internal/metrics"
)

// QuotaService counts free-tier generation calls per client key. All counters
// are cleared together once the window has passed since the last global
// reset; the window is shared by every client.
type QuotaService interface {
	// Allow records one call for clientKey and reports whether it fits under
	// the limit. Denied calls are not counted.
	Allow(clientKey string) bool
	Used(clientKey string) int
	Limit() int
}

type quotaService struct {
	limit  int
	window time.Duration
	now    Clock
	log    *logrus.Entry

	lastReset atomic.Int64 // unix nanos

	mu     sync.Mutex
	counts map[string]int
}

func NewQuotaService(limit int, window time.Duration, now Clock) QuotaService {
	if limit <= 0 {
		limit = 3
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	s := &quotaService{
		limit:  limit,
		window: window,
		now:    now.orDefault(),
		log:    logrus.WithField("component", "quota"),
		counts: make(map[string]int),
	}
	s.lastReset.Store(s.now().UnixNano())
	return s
}

func (s *quotaService) Allow(clientKey string) bool {
	s.maybeReset()

	s.mu.Lock()
	count := s.counts[clientKey]
	allowed := count < s.limit
	if allowed {
		s.counts[clientKey] = count + 1
	}
	s.mu.Unlock()

	metrics.RecordQuotaDecision(allowed)
	return allowed
}

func (s *quotaService) Used(clientKey string) int {
	s.maybeReset()

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[clientKey]
}

func (s *quotaService) Limit() int { return s.limit }

// maybeReset clears every counter once the window has elapsed. Only the
// caller that wins the swap of the reset marker performs the clear; the swap
// and the clear happen under mu so no increment lands in between.
func (s *quotaService) maybeReset() {
	now := s.now().UnixNano()
	prev := s.lastReset.Load()
	if now-prev <= int64(s.window) {
		return
	}

	s.mu.Lock()
	if !s.lastReset.CompareAndSwap(prev, now) {
		s.mu.Unlock()
		return
	}
	cleared := len(s.counts)
	clear(s.counts)
	s.mu.Unlock()

	metrics.RecordQuotaReset()
	s.log.WithField("clients", cleared).Info("[quota][reset] window elapsed, counters cleared")
}
