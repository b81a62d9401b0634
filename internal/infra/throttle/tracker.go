package throttle

import (
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/cache"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/logger"
)

const (
	kindEmail = "email"
	kindIP    = "ip"

	defaultThreshold = 5
	defaultBaseDelay = time.Second
	defaultMaxDelay  = time.Minute
	defaultWindow    = 15 * time.Minute
)

// Config tunes the escalation curve. Attempts below Threshold never delay;
// from Threshold on, the imposed delay doubles per additional failure,
// capped at MaxDelay. A tracking key with no failed attempt for Window
// resets naturally through TTL expiry.
type Config struct {
	Threshold int
	BaseDelay time.Duration
	MaxDelay  time.Duration
	Window    time.Duration
}

func (c Config) withDefaults() Config {
	if c.Threshold <= 0 {
		c.Threshold = defaultThreshold
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = defaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = defaultMaxDelay
	}
	if c.Window <= 0 {
		c.Window = defaultWindow
	}
	return c
}

// AttemptRecord tracks failed authentication attempts for one tracking key.
// BlockedUntil stays zero until Count crosses the threshold and never moves
// backwards afterwards, until the record is reset or expires.
type AttemptRecord struct {
	Count        int
	WindowStart  time.Time
	BlockedUntil time.Time
}

// Tracker throttles repeated failed logins with two independent tracking
// keys per attempt: the account email (catches credential stuffing against
// one account from many addresses) and the client address (catches password
// spraying across accounts from one address). A successful login clears only
// the pair involved.
type Tracker struct {
	store  *cache.ExpiringCache[AttemptRecord]
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewTracker constructs a tracker with the provided configuration.
func NewTracker(cfg Config, log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{
		store:  cache.New[AttemptRecord](),
		cfg:    cfg.withDefaults(),
		logger: log,
		now:    time.Now,
	}
}

// WithClock overrides the internal clock, used in tests.
func (t *Tracker) WithClock(now func() time.Time) *Tracker {
	if now != nil {
		t.now = now
		t.store.WithClock(now)
	}
	return t
}

// WithSweepInterval starts the underlying store's background sweeper.
func (t *Tracker) WithSweepInterval(interval time.Duration) *Tracker {
	t.store.WithSweepInterval(interval)
	return t
}

// Close stops the background sweeper, if one was started.
func (t *Tracker) Close() {
	t.store.Close()
}

// CheckDelay reports whether the login attempt identified by email and
// ipAddress is currently blocked. When both tracking keys block, the
// returned key carries the larger remaining delay so the caller reports the
// binding constraint. Pure query; never fails.
func (t *Tracker) CheckDelay(email, ipAddress string) port.DelayStatus {
	now := t.now()

	var status port.DelayStatus
	for _, key := range trackingKeys(email, ipAddress) {
		rec, ok := t.store.Get(key)
		if !ok || rec.BlockedUntil.IsZero() {
			continue
		}
		remaining := rec.BlockedUntil.Sub(now)
		if remaining <= 0 {
			continue
		}
		if !status.IsDelayed || remaining > status.RemainingDelay {
			status = port.DelayStatus{
				IsDelayed:      true,
				Key:            key,
				RemainingDelay: remaining,
			}
		}
	}
	return status
}

// IncrementAttempts records a failed attempt against both tracking keys.
// Each increment runs as one critical section per key, so concurrent
// failures never lose updates and the threshold crossing happens at the
// exact attempt count.
func (t *Tracker) IncrementAttempts(email, ipAddress string) {
	now := t.now()
	for _, key := range trackingKeys(email, ipAddress) {
		t.bump(key, now)
	}
}

// ResetAllAttempts clears both tracking keys unconditionally. Called only
// after a fully successful authentication.
func (t *Tracker) ResetAllAttempts(email, ipAddress string) {
	for _, key := range trackingKeys(email, ipAddress) {
		t.store.Delete(key)
	}
}

func (t *Tracker) bump(key string, now time.Time) {
	rec := t.store.Update(key, func(current AttemptRecord, ok bool) (AttemptRecord, time.Duration) {
		if !ok {
			current = AttemptRecord{WindowStart: now}
		}
		current.Count++

		ttl := t.cfg.Window
		if current.Count >= t.cfg.Threshold {
			until := now.Add(t.delayFor(current.Count))
			if until.After(current.BlockedUntil) {
				current.BlockedUntil = until
			}
			// Keep the record alive at least until the block lifts.
			if blockTTL := current.BlockedUntil.Sub(now); blockTTL > ttl {
				ttl = blockTTL
			}
		}
		return current, ttl
	})

	if rec.Count == t.cfg.Threshold {
		t.logger.Warn("login attempts blocked",
			zap.String("tracking_key", MaskTrackingKey(key)),
			zap.Int("count", rec.Count),
			zap.Time("blocked_until", rec.BlockedUntil),
		)
	}
}

// delayFor computes the escalating delay once count has reached the
// threshold: baseDelay * 2^(count-threshold), capped at maxDelay.
func (t *Tracker) delayFor(count int) time.Duration {
	exp := count - t.cfg.Threshold
	if exp >= 30 {
		return t.cfg.MaxDelay
	}
	delay := t.cfg.BaseDelay << uint(exp)
	if delay <= 0 || delay > t.cfg.MaxDelay {
		return t.cfg.MaxDelay
	}
	return delay
}

func trackingKeys(email, ipAddress string) [2]string {
	return [2]string{emailKey(email), ipKey(ipAddress)}
}

func emailKey(email string) string {
	return kindEmail + ":" + strings.ToLower(strings.TrimSpace(email))
}

func ipKey(ipAddress string) string {
	return kindIP + ":" + strings.TrimSpace(ipAddress)
}

// MaskTrackingKey masks the identifier portion of a tracking key for logs
// and outbound events.
func MaskTrackingKey(key string) string {
	kind, raw, ok := strings.Cut(key, ":")
	if !ok {
		return logger.MaskString(key)
	}
	switch kind {
	case kindEmail:
		return kind + ":" + logger.MaskEmail(raw)
	case kindIP:
		return kind + ":" + logger.MaskIP(raw)
	default:
		return kind + ":" + logger.MaskString(raw)
	}
}

var _ port.LoginAttemptTracker = (*Tracker)(nil)
