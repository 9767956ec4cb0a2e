// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/holomush/authcore/pkg/errutil"
)

// Operation names reported to an Observer and used as span names.
const (
	OpRegister         = "register"
	OpAuthenticate     = "authenticate"
	OpTerminateSession = "terminate_session"
	OpVerifySession    = "verify_session"
)

// ResultSuccess is the result reported to an Observer for a successful operation.
const ResultSuccess = "success"

// Observer receives the outcome of each operation.
type Observer interface {
	ObserveAuthOperation(operation, result string)
}

// RegisterInput is a shape-checked registration request.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Session is the outcome of a successful registration or sign-in.
type Session struct {
	Account   SanitizedAccount
	Token     string
	ExpiresAt time.Time
	Cookie    *http.Cookie
}

// Service composes the directory, hasher, token issuer and cookie policy into
// the registration, sign-in and sign-out operations. Each call is independent;
// the service holds no per-call state.
type Service struct {
	accounts *Directory
	hasher   PasswordHasher
	tokens   *TokenIssuer
	cookies  *CookiePolicy
	logger   *slog.Logger
	observer Observer
	tracer   trace.Tracer

	// timingHash is verified when the email is unknown, so a sign-in for a
	// missing account costs as much as one for an existing account. It comes
	// from the configured hasher and matches no password a caller can know.
	timingHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the logger used for failed operations.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithObserver sets the observer notified of every operation outcome.
func WithObserver(observer Observer) ServiceOption {
	return func(s *Service) {
		s.observer = observer
	}
}

// NewService creates a Service. All four collaborators are required.
func NewService(accounts *Directory, hasher PasswordHasher, tokens *TokenIssuer, cookies *CookiePolicy, opts ...ServiceOption) (*Service, error) {
	if accounts == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("account directory is required")
	}
	if hasher == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("token issuer is required")
	}
	if cookies == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("cookie policy is required")
	}

	s := &Service{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		cookies:  cookies,
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/holomush/authcore/internal/auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		return nil, oops.Code(CodeConfigurationError).Errorf("logger cannot be nil")
	}

	timingHash, err := hasher.Hash(rand.Text())
	if err != nil {
		return nil, oops.Code(CodeConfigurationError).Wrapf(err, "derive timing hash")
	}
	s.timingHash = timingHash
	return s, nil
}

// EmailFingerprint returns a short, stable digest of email for logs, so
// repeated attempts can be correlated without recording the address.
func EmailFingerprint(email string) string {
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:8])
}

// Register creates an account and signs it in.
//
// The email pre-check is an optimization; the store's unique constraint
// decides races between concurrent registrations. The password is hashed
// before anything is written, so a failed registration leaves no partial
// account behind.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth."+OpRegister)
	defer span.End()

	role, err := ParseRole(in.Role)
	if err != nil {
		return nil, s.fail(ctx, span, OpRegister, err)
	}

	_, exists, err := s.accounts.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.fail(ctx, span, OpRegister, err)
	}
	if exists {
		return nil, s.fail(ctx, span, OpRegister, oops.Code(CodeDuplicateEmail).
			With("email_fingerprint", EmailFingerprint(in.Email)).
			Errorf("an account with this email already exists"))
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.fail(ctx, span, OpRegister, err)
	}

	account, err := s.accounts.Insert(ctx, in.Name, in.Email, hash, role)
	if err != nil {
		return nil, s.fail(ctx, span, OpRegister, err)
	}
	span.SetAttributes(attribute.Int64("account.id", account.ID))

	session, err := s.issue(account)
	if err != nil {
		return nil, s.fail(ctx, span, OpRegister, err)
	}

	s.succeed(ctx, OpRegister, account)
	return session, nil
}

// Authenticate verifies email and password and signs the account in.
// USER_NOT_FOUND and INVALID_PASSWORD are distinct here; PublicFailure
// merges them for callers.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "auth."+OpAuthenticate)
	defer span.End()

	account, found, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		return nil, s.fail(ctx, span, OpAuthenticate, err)
	}

	if !found {
		// Result is ignored; the verification only equalizes timing.
		_, _ = s.hasher.Verify(password, s.timingHash) //nolint:errcheck // timing only
		return nil, s.fail(ctx, span, OpAuthenticate, oops.Code(CodeUserNotFound).
			With("email_fingerprint", EmailFingerprint(email)).
			Errorf("no account for email"))
	}

	valid, err := s.hasher.Verify(password, account.PasswordHash)
	if err != nil {
		return nil, s.fail(ctx, span, OpAuthenticate, oops.With("account_id", account.ID).Wrap(err))
	}
	if !valid {
		return nil, s.fail(ctx, span, OpAuthenticate, oops.Code(CodeInvalidPassword).
			With("account_id", account.ID).
			Errorf("password does not match"))
	}
	span.SetAttributes(attribute.Int64("account.id", account.ID))

	session, err := s.issue(account)
	if err != nil {
		return nil, s.fail(ctx, span, OpAuthenticate, err)
	}

	s.succeed(ctx, OpAuthenticate, account)
	return session, nil
}

// TerminateSession returns the cookie that clears the client's session.
// It always succeeds and is idempotent. Already issued tokens stay valid
// until they expire.
func (s *Service) TerminateSession() *http.Cookie {
	s.observe(OpTerminateSession, ResultSuccess)
	return s.cookies.Clear()
}

// VerifySession checks a presented session token.
func (s *Service) VerifySession(ctx context.Context, token string) (*Claims, error) {
	_, span := s.tracer.Start(ctx, "auth."+OpVerifySession)
	defer span.End()

	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.observe(OpVerifySession, Code(err))
		span.SetStatus(codes.Error, Code(err))
		return nil, err
	}
	s.observe(OpVerifySession, ResultSuccess)
	return claims, nil
}

// CurrentAccount returns the account a session token was issued to. A token
// for an account that no longer exists is TOKEN_INVALID.
func (s *Service) CurrentAccount(ctx context.Context, token string) (SanitizedAccount, error) {
	claims, err := s.VerifySession(ctx, token)
	if err != nil {
		return SanitizedAccount{}, err
	}

	account, found, err := s.accounts.FindBySubject(ctx, claims.SubjectID)
	if err != nil {
		return SanitizedAccount{}, err
	}
	if !found {
		return SanitizedAccount{}, oops.Code(CodeTokenInvalid).
			With("subject", claims.SubjectID).
			Errorf("token subject does not exist")
	}
	return account.Sanitize(), nil
}

func (s *Service) issue(account *Account) (*Session, error) {
	token, claims, err := s.tokens.Issue(strconv.FormatInt(account.ID, 10), account.Role)
	if err != nil {
		return nil, err
	}
	return &Session{
		Account:   account.Sanitize(),
		Token:     token,
		ExpiresAt: claims.ExpiresAt,
		Cookie:    s.cookies.Attach(token, claims.ExpiresAt),
	}, nil
}

func (s *Service) succeed(ctx context.Context, operation string, account *Account) {
	s.observe(operation, ResultSuccess)
	s.logger.InfoContext(ctx, operation+" succeeded",
		"operation", operation,
		"account_id", account.ID,
		"role", string(account.Role),
	)
}

// fail records err for operation and returns it unchanged.
func (s *Service) fail(ctx context.Context, span trace.Span, operation string, err error) error {
	code := Code(err)
	if code == "" {
		code = CodeInternal
	}
	s.observe(operation, code)
	span.SetStatus(codes.Error, code)
	span.RecordError(err)

	level := slog.LevelWarn
	switch KindOf(err) {
	case KindHashingFailure, KindStorageUnavailable, KindConfigurationError, KindUnknown:
		level = slog.LevelError
	}
	errutil.LogErrorLevel(ctx, s.logger, level, operation+" failed", err)
	return err
}

func (s *Service) observe(operation, result string) {
	if s.observer != nil {
		s.observer.ObserveAuthOperation(operation, result)
	}
}
