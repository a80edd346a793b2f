// Package auth implements email/password accounts, sessions and the wallet
// verification flows (pincode, secret codes, two-factor) that Portal checks
// before signing transactions.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"asset-tokenization-kit/internal/domain"
	"asset-tokenization-kit/internal/logging"
	"asset-tokenization-kit/internal/observability"
	"asset-tokenization-kit/internal/portal"
	"asset-tokenization-kit/internal/storage"
)

var tracer = otel.Tracer("auth")

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrSessionExpired     = errors.New("session expired")
	ErrUserBanned         = errors.New("user is banned")
	ErrAlreadyEnabled     = errors.New("verification already enabled")
	ErrNotEnabled         = errors.New("verification not enabled")
	ErrInvalidCode        = errors.New("invalid verification code")
	ErrCodesNotStored     = errors.New("secret codes must be stored before confirming")
)

const (
	DefaultSessionTTL       = 7 * 24 * time.Hour
	DefaultSessionUpdateAge = 24 * time.Hour
)

// Wallets is the part of Portal that account flows use.
type Wallets interface {
	CreateWallet(ctx context.Context, name string) (string, error)
	CreateWalletVerification(ctx context.Context, wallet string, spec portal.VerificationSpec) (*portal.WalletVerification, error)
	DeleteWalletVerification(ctx context.Context, wallet, verificationID string) error
	CreateVerificationChallenges(ctx context.Context, wallet string) ([]portal.VerificationChallenge, error)
	VerifyWalletVerificationChallenge(ctx context.Context, wallet, verificationID, response string) (bool, error)
}

// Service implements the account and verification flows.
type Service struct {
	users      storage.UserStore
	sessions   storage.SessionStore
	wallets    Wallets
	tokens     *Tokens
	sessionTTL time.Duration
	updateAge  time.Duration
	issuer     string
	now        func() time.Time
	log        *logrus.Entry
}

// Options contains configuration for creating a Service.
type Options struct {
	Users            storage.UserStore
	Sessions         storage.SessionStore
	Wallets          Wallets
	Secret           []byte        // HS256 signing key
	Issuer           string        // token issuer and OTP issuer label
	SessionTTL       time.Duration // Default: 7 days
	SessionUpdateAge time.Duration // Default: 1 day
	Logger           logrus.FieldLogger
	Now              func() time.Time
}

// NewService creates an auth Service.
func NewService(opts Options) *Service {
	ttl := opts.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	updateAge := opts.SessionUpdateAge
	if updateAge <= 0 {
		updateAge = DefaultSessionUpdateAge
	}
	issuer := opts.Issuer
	if issuer == "" {
		issuer = "asset-tokenization-kit"
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		users:      opts.Users,
		sessions:   opts.Sessions,
		wallets:    opts.Wallets,
		tokens:     NewTokens(opts.Secret, issuer),
		sessionTTL: ttl,
		updateAge:  updateAge,
		issuer:     issuer,
		now:        func() time.Time { return now().UTC() },
		log:        logging.Component(opts.Logger, "auth"),
	}
}

// ClientInfo describes where a session was opened from.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// SignUpInput is the sign-up request body.
type SignUpInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// SignInInput is the sign-in request body.
type SignInInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SessionResult is returned by sign-up and sign-in.
type SessionResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Principal is the authenticated caller of a request.
type Principal struct {
	User    *domain.User
	Session *domain.Session
}

// SignUp registers a user, creates their Portal wallet and opens a session.
// The first account on an empty platform becomes admin.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, client ClientInfo) (res *SessionResult, err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.SignUp")
	defer span.End()
	defer func() { s.recordEvent("sign_up", err) }()

	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	role := domain.UserRoleUser
	existing, err := s.users.List(ctx, 1, 0)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if len(existing) == 0 {
		role = domain.UserRoleAdmin
	}

	wallet, err := s.wallets.CreateWallet(ctx, in.Name)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("create wallet: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Wallet:       wallet,
		Currency:     domain.DefaultCurrency,
		LastLoginAt:  &now,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	span.SetAttributes(attribute.String("user.id", user.ID))

	s.log.WithFields(logrus.Fields{"user_id": user.ID, "wallet": wallet, "role": role}).Info("user signed up")
	return s.openSession(ctx, user, client)
}

// SignIn checks credentials and opens a session.
func (s *Service) SignIn(ctx context.Context, in SignInInput, client ClientInfo) (res *SessionResult, err error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.SignIn")
	defer span.End()
	defer func() { s.recordEvent("sign_in", err) }()

	user, err := s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	if err := s.checkPassword(user, in.Password); err != nil {
		return nil, err
	}
	if user.Banned {
		return nil, ErrUserBanned
	}

	now := s.now()
	user.LastLoginAt = &now
	user.UpdatedAt = now
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	return s.openSession(ctx, user, client)
}

// SignOut deletes the caller's session.
func (s *Service) SignOut(ctx context.Context, p *Principal) error {
	if err := s.sessions.Delete(ctx, p.Session.Token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token into the calling user. Sessions
// older than the update age get their expiry pushed out.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Authenticate")
	defer span.End()

	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, claims.SessionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if sess.UserID != claims.Subject {
		return nil, ErrInvalidToken
	}

	now := s.now()
	if sess.Expired(now) {
		if err := s.sessions.Delete(ctx, sess.Token); err != nil {
			s.log.WithError(err).Warn("delete expired session")
		}
		return nil, ErrSessionExpired
	}
	if now.Sub(sess.UpdatedAt) >= s.updateAge {
		sess.ExpiresAt = now.Add(s.sessionTTL)
		sess.UpdatedAt = now
		if err := s.sessions.Refresh(ctx, sess.Token, sess.ExpiresAt, now); err != nil {
			return nil, fmt.Errorf("refresh session: %w", err)
		}
	}

	user, err := s.users.GetByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.Banned {
		return nil, ErrUserBanned
	}
	span.SetAttributes(attribute.String("user.id", user.ID))
	return &Principal{User: user, Session: sess}, nil
}

// PurgeExpiredSessions removes sessions past their expiry.
func (s *Service) PurgeExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.DeleteExpired(ctx, s.now())
}

// UpdateProfileInput is the profile update body.
type UpdateProfileInput struct {
	Name     *string          `json:"name,omitempty" validate:"omitempty,max=100"`
	Currency *domain.Currency `json:"currency,omitempty" validate:"omitempty,currency"`
}

// UpdateProfile changes the caller's display name or currency.
func (s *Service) UpdateProfile(ctx context.Context, user *domain.User, in UpdateProfileInput) (*domain.User, error) {
	if in.Name != nil {
		user.Name = strings.TrimSpace(*in.Name)
	}
	if in.Currency != nil {
		user.Currency = *in.Currency
	}
	if err := s.save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) openSession(ctx context.Context, user *domain.User, client ClientInfo) (*SessionResult, error) {
	now := s.now()
	sess := &domain.Session{
		Token:     uuid.NewString(),
		UserID:    user.ID,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
		ExpiresAt: now.Add(s.sessionTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	token, err := s.tokens.Issue(sess.Token, user.ID, now)
	if err != nil {
		return nil, err
	}
	return &SessionResult{Token: token, ExpiresAt: sess.ExpiresAt, User: user}, nil
}

func (s *Service) checkPassword(user *domain.User, password string) error {
	ok, err := VerifyPassword(user.PasswordHash, password)
	if err != nil {
		if errors.Is(err, errMalformedHash) {
			return ErrInvalidCredentials
		}
		return err
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) save(ctx context.Context, user *domain.User) error {
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (s *Service) recordEvent(event string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	observability.RecordAuthEvent(event, outcome)
}
