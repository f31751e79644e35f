// Package auth registers accounts, checks passwords and issues the signed
// session tokens that scope every transaction request to one owner.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidToken covers malformed, expired and foreign-signed tokens.
	ErrInvalidToken = errors.New("invalid session token")
)

// Session identifies the signed-in user.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

type claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Service implements register, login and token handling.
type Service struct {
	users  store.UserStore
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *applog.Logger
}

// NewService creates an auth service signing tokens with secret.
func NewService(users store.UserStore, secret string, ttl time.Duration, logger *applog.Logger) *Service {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Service{
		users:  users,
		secret: []byte(secret),
		ttl:    ttl,
		cost:   bcrypt.DefaultCost,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentAuth),
	}
}

// WithCost overrides the bcrypt cost; tests use bcrypt.MinCost.
func (s *Service) WithCost(cost int) *Service {
	s.cost = cost
	return s
}

// WithClock overrides the time source used for issuing and checking expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register creates an account. The email is normalised before it is stored.
func (s *Service) Register(ctx context.Context, email, password, confirm string) (core.User, error) {
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	if len(password) < core.MinPasswordLength {
		return core.User{}, &core.ValidationError{Field: "password", Err: core.ErrPasswordTooShort}
	}
	if len(password) > core.MaxPasswordLength {
		return core.User{}, &core.ValidationError{Field: "password", Err: core.ErrPasswordTooLong}
	}
	if password != confirm {
		return core.User{}, &core.ValidationError{Field: "confirm_password", Err: core.ErrPasswordMismatch}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return core.User{}, fmt.Errorf("hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, email, hash)
	if err != nil {
		if errors.Is(err, core.ErrEmailTaken) {
			return core.User{}, &core.ValidationError{Field: "email", Err: core.ErrEmailTaken}
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	s.logger.InfoContext(ctx, "User registered",
		applog.FieldOperation, applog.OpRegister,
		applog.FieldOwnerID, u.ID)
	return u, nil
}

// Login checks the password and returns the account.
func (s *Service) Login(ctx context.Context, email, password string) (core.User, error) {
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return core.User{}, ErrInvalidCredentials
	}
	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return core.User{}, fmt.Errorf("load user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		s.logger.WarnContext(ctx, "Login rejected",
			applog.FieldOperation, applog.OpLogin,
			applog.FieldOwnerID, u.ID)
		return core.User{}, ErrInvalidCredentials
	}
	s.logger.InfoContext(ctx, "User logged in",
		applog.FieldOperation, applog.OpLogin,
		applog.FieldOwnerID, u.ID)
	return u, nil
}

// Issue signs a session token for u.
func (s *Service) Issue(u core.User) (string, time.Time, error) {
	now := s.now()
	exp := now.Add(s.ttl)
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse validates a token and returns the session it carries.
func (s *Service) Parse(token string) (Session, error) {
	var c claims
	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return Session{}, ErrInvalidToken
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return Session{}, ErrInvalidToken
	}
	return Session{UserID: c.Subject, Email: c.Email, ExpiresAt: c.ExpiresAt.Time}, nil
}
