package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

var (
	ErrEmailTaken         = errors.New("email is already registered")
	ErrUsernameTaken      = errors.New("username is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailNotVerified   = errors.New("email is not verified")
)

// ValidationError marks a request-shape problem the caller can fix.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

const (
	minUsernameLen = 3
	maxUsernameLen = 30
	minPasswordLen = 8
	maxPasswordLen = 72
)

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

type AuthService struct {
	users  repository.UserRepository
	tokens *security.SessionTokenManager
}

func NewAuthService(users repository.UserRepository, tokens *security.SessionTokenManager) *AuthService {
	return &AuthService{users: users, tokens: tokens}
}

// Register creates an unverified account. Uniqueness is checked up front for
// friendly messages; the unique indexes on email and username remain the
// real guard against races.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.UserSummary, error) {
	username := strings.TrimSpace(in.Username)
	email := strings.TrimSpace(strings.ToLower(in.Email))

	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		observability.RecordAuthEvent(ctx, "register", "email_taken")
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.users.FindByUsername(ctx, username); err == nil {
		observability.RecordAuthEvent(ctx, "register", "username_taken")
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := security.HashSecret(in.Password)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
	}
	if err := s.users.Create(ctx, user); err != nil {
		observability.RecordAuthEvent(ctx, "register", "error")
		return nil, err
	}

	observability.RecordAuthEvent(ctx, "register", "success")
	summary := user.Summary()
	return &summary, nil
}

// Login authenticates and signs a session token. Unverified accounts are
// rejected before the password check so the caller learns verification is
// the blocker, matching the error the verify flow resolves.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.UserSummary, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordAuthEvent(ctx, "login", "not_found")
			return nil, "", repository.ErrUserNotFound
		}
		return nil, "", err
	}
	if !user.Verified {
		observability.RecordAuthEvent(ctx, "login", "unverified")
		return nil, "", ErrEmailNotVerified
	}

	match, err := security.VerifySecret(user.PasswordHash, password)
	if err != nil {
		return nil, "", err
	}
	if !match {
		observability.RecordAuthEvent(ctx, "login", "bad_password")
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Sign(user.ID.Hex())
	if err != nil {
		observability.RecordAuthEvent(ctx, "login", "error")
		return nil, "", err
	}
	observability.RecordAuthEvent(ctx, "login", "success")
	summary := user.Summary()
	return &summary, token, nil
}

func validateUsername(username string) error {
	if l := len(username); l < minUsernameLen || l > maxUsernameLen {
		return NewValidationError("username must be between %d and %d characters", minUsernameLen, maxUsernameLen)
	}
	return nil
}

func validateEmail(email string) error {
	if email == "" {
		return NewValidationError("email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return NewValidationError("email is not a valid address")
	}
	return nil
}

func validatePassword(password string) error {
	if l := len(password); l < minPasswordLen || l > maxPasswordLen {
		return NewValidationError("password must be between %d and %d characters", minPasswordLen, maxPasswordLen)
	}
	return nil
}
