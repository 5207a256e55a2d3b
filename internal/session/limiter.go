package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/muturi/chatbridge/internal/engine"
	"github.com/muturi/chatbridge/internal/observability"
	"github.com/muturi/chatbridge/model"
)

// statusReader reads a session's durable state.
type statusReader interface {
	Status(ctx context.Context, sessionID string) (model.ChatSessionState, error)
}

// Limiter enforces the guest daily message entitlement. The durable
// per-session message count is authoritative; a process-local counter is
// consulted only when the engine cannot be reached, so an engine outage
// degrades enforcement instead of either blocking all guests or opening
// the limit entirely. Authenticated users are unlimited, as is everyone
// when the configured limit is zero.
type Limiter struct {
	sessions statusReader
	limit    int
	logger   *zap.Logger
	metrics  *observability.Metrics
	now      func() time.Time

	mu     sync.Mutex
	day    string
	counts map[string]int
}

// NewLimiter creates a Limiter with the given daily guest limit.
func NewLimiter(sessions statusReader, limit int, logger *zap.Logger, metrics *observability.Metrics) *Limiter {
	return &Limiter{
		sessions: sessions,
		limit:    limit,
		logger:   logger,
		metrics:  metrics,
		now:      time.Now,
		counts:   make(map[string]int),
	}
}

// Check decides whether the next message for the session may proceed.
// Limited results are hard stops: the caller rejects the message and does
// not retry.
func (l *Limiter) Check(ctx context.Context, sessionID, userType string) model.RateLimitResult {
	if userType != model.UserTypeGuest || l.limit <= 0 {
		return model.RateLimitResult{Limit: l.limit}
	}

	current, ok := l.durableCount(ctx, sessionID)
	if !ok {
		current = l.localCount(sessionID)
		l.metrics.RateLimitFallbackReads.Inc()
	}

	res := model.RateLimitResult{
		Limited: current >= l.limit,
		Limit:   l.limit,
		Current: current,
	}
	if res.Limited {
		l.metrics.RateLimitRejections.Inc()
		l.logger.Warn("guest message rejected, daily limit reached",
			zap.String("session_id", sessionID),
			zap.Int("limit", res.Limit),
			zap.Int("current", res.Current),
		)
	}
	return res
}

// Record notes an accepted message in the local counter so the fallback
// stays roughly aligned with the durable count.
func (l *Limiter) Record(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
	l.counts[sessionID]++
}

// durableCount reads the authoritative count from the session workflow.
// A session the engine does not know yet counts as zero; only reachability
// failures report not-ok.
func (l *Limiter) durableCount(ctx context.Context, sessionID string) (int, bool) {
	state, err := l.sessions.Status(ctx, sessionID)
	switch {
	case err == nil:
		l.syncLocal(sessionID, state.MessageCount)
		return state.MessageCount, true
	case engine.IsNotFound(err):
		return 0, true
	default:
		l.logger.Debug("durable count unavailable, using local fallback",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return 0, false
	}
}

func (l *Limiter) localCount(sessionID string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
	return l.counts[sessionID]
}

// syncLocal pulls the local counter up to the durable value so a later
// fallback read does not under-count.
func (l *Limiter) syncLocal(sessionID string, durable int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollDayLocked()
	if durable > l.counts[sessionID] {
		l.counts[sessionID] = durable
	}
}

// rollDayLocked resets the counters when the UTC day changes. Callers hold
// l.mu.
func (l *Limiter) rollDayLocked() {
	today := l.now().UTC().Format("2006-01-02")
	if l.day != today {
		l.day = today
		l.counts = make(map[string]int)
	}
}
