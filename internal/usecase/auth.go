package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/aleksandersousa/personal-finance-management-api/internal/core/domain"
	"github.com/aleksandersousa/personal-finance-management-api/internal/core/port"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/config"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/logger"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/security"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/telemetry"
	"github.com/aleksandersousa/personal-finance-management-api/internal/infra/throttle"
	"github.com/aleksandersousa/personal-finance-management-api/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided email or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInactiveAccount indicates the account is disabled or pending verification.
	ErrInactiveAccount = errors.New("account is not active")
	// ErrTooManyAttempts indicates the attempt tracker is delaying logins for
	// the given email or client address.
	ErrTooManyAttempts = errors.New("too many login attempts")
	// ErrInvalidAccessToken indicates the provided access token is malformed or signature validation failed.
	ErrInvalidAccessToken = errors.New("invalid access token")
	// ErrExpiredAccessToken indicates the provided access token has expired.
	ErrExpiredAccessToken = errors.New("access token expired")
)

// TooManyAttemptsError carries the throttle details alongside
// ErrTooManyAttempts so handlers can populate Retry-After.
type TooManyAttemptsError struct {
	Key        string
	RetryAfter time.Duration
}

func (e *TooManyAttemptsError) Error() string {
	return fmt.Sprintf("too many login attempts: retry after %s", e.RetryAfter)
}

// Is reports ErrTooManyAttempts so errors.Is matching works on the sentinel.
func (e *TooManyAttemptsError) Is(target error) bool {
	return target == ErrTooManyAttempts
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	AccessToken string
	ExpiresAt   time.Time
	User        domain.User
}

// AuthService coordinates authentication: attempt throttling, credential
// verification, and access token issuance.
type AuthService struct {
	cfg     *config.AppConfig
	users   port.UserRepository
	tracker port.LoginAttemptTracker
	events  port.EventPublisher
	metrics *telemetry.Metrics
	log     *zap.Logger
	now     func() time.Time
}

// NewAuthService constructs an AuthService instance. events and metrics may
// be nil when the corresponding infrastructure is not configured.
func NewAuthService(
	cfg *config.AppConfig,
	users port.UserRepository,
	tracker port.LoginAttemptTracker,
	events port.EventPublisher,
	metrics *telemetry.Metrics,
	log *zap.Logger,
) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{
		cfg:     cfg,
		users:   users,
		tracker: tracker,
		events:  events,
		metrics: metrics,
		log:     log,
		now:     time.Now,
	}
}

// WithClock overrides the service clock. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	if now != nil {
		s.now = now
	}
	return s
}

// Login authenticates a user. The attempt tracker is consulted before
// touching the database: a delayed email or client address is rejected with
// *TooManyAttemptsError without revealing whether the account exists. Failed
// credential checks increment the tracker; a success resets it.
func (s *AuthService) Login(ctx context.Context, email, password, clientIP string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	if status := s.tracker.CheckDelay(email, clientIP); status.IsDelayed {
		s.countBlocked()
		s.publishLoginBlocked(ctx, status)
		return nil, &TooManyAttemptsError{Key: status.Key, RetryAfter: status.RemainingDelay}
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.recordFailure(email, clientIP)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.recordFailure(email, clientIP)
		return nil, ErrInvalidCredentials
	}

	if !user.IsActive || user.Status != domain.UserStatusActive {
		return nil, ErrInactiveAccount
	}

	s.tracker.ResetAllAttempts(email, clientIP)

	now := s.now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.log.Warn("update last login failed",
			zap.String("user_id", user.ID),
			zap.Error(err))
	}

	token, expiresAt, err := s.issueAccessToken(user.ID, now)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.LoginsSucceeded.Inc()
	}
	s.publishUserLoggedIn(ctx, user, clientIP, now)

	sanitized := *user
	sanitized.PasswordHash = ""

	return &LoginResult{
		AccessToken: token,
		ExpiresAt:   expiresAt,
		User:        sanitized,
	}, nil
}

// ParseAccessToken validates a JWT access token and returns its subject
// (the user id).
func (s *AuthService) ParseAccessToken(tokenString string) (string, error) {
	if tokenString == "" {
		return "", ErrInvalidAccessToken
	}

	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.cfg.JWT.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrExpiredAccessToken
		}
		return "", ErrInvalidAccessToken
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidAccessToken
	}

	return claims.Subject, nil
}

func (s *AuthService) issueAccessToken(userID string, now time.Time) (string, time.Time, error) {
	if s.cfg.JWT.Secret == "" {
		return "", time.Time{}, fmt.Errorf("jwt secret is not configured")
	}

	ttl := s.cfg.JWT.AccessTokenTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	expiresAt := now.Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    s.cfg.App.Name,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}

	return signed, expiresAt, nil
}

func (s *AuthService) recordFailure(email, clientIP string) {
	s.tracker.IncrementAttempts(email, clientIP)
	if s.metrics != nil {
		s.metrics.LoginsFailed.Inc()
	}
	s.log.Info("login attempt failed",
		zap.String("email", logger.MaskEmail(email)),
		zap.String("client_ip", logger.MaskIP(clientIP)))
}

func (s *AuthService) countBlocked() {
	if s.metrics != nil {
		s.metrics.LoginsBlocked.Inc()
	}
}

func (s *AuthService) publishLoginBlocked(ctx context.Context, status port.DelayStatus) {
	if s.events == nil {
		return
	}
	event := domain.LoginBlockedEvent{
		TrackingKey:  throttle.MaskTrackingKey(status.Key),
		RemainingFor: status.RemainingDelay,
		BlockedAt:    s.now().UTC(),
	}
	if err := s.events.PublishLoginBlocked(ctx, event); err != nil {
		s.log.Warn("publish login blocked event failed", zap.Error(err))
	}
}

func (s *AuthService) publishUserLoggedIn(ctx context.Context, user *domain.User, clientIP string, at time.Time) {
	if s.events == nil {
		return
	}
	event := domain.UserLoggedInEvent{
		UserID:    user.ID,
		Email:     user.Email,
		IPAddress: clientIP,
		LoggedAt:  at,
	}
	if err := s.events.PublishUserLoggedIn(ctx, event); err != nil {
		s.log.Warn("publish user logged in event failed", zap.Error(err))
	}
}
