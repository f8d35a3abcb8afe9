package service

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

var ErrWrongPassword = errors.New("current password is incorrect")

// ProfileUpdate carries the optional fields of a profile patch. A nil field
// means "leave unchanged"; the zero value is a legal new value.
type ProfileUpdate struct {
	Username *string
	Email    *string
}

func (p ProfileUpdate) empty() bool { return p.Username == nil && p.Email == nil }

type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

func (s *UserService) GetProfile(ctx context.Context, id bson.ObjectID) (*domain.UserSummary, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	summary := user.Summary()
	return &summary, nil
}

// UpdateProfile applies a partial update. Changing the email does not reset
// the verified flag; the account was verified by a person who controls it
// and re-verification is a product decision left to the verify endpoint.
func (s *UserService) UpdateProfile(ctx context.Context, id bson.ObjectID, patch ProfileUpdate) (*domain.UserSummary, error) {
	if patch.empty() {
		return nil, NewValidationError("no fields to update")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Username != nil {
		username := strings.TrimSpace(*patch.Username)
		if err := validateUsername(username); err != nil {
			return nil, err
		}
		if username != user.Username {
			if other, err := s.users.FindByUsername(ctx, username); err == nil && other.ID != user.ID {
				return nil, ErrUsernameTaken
			} else if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return nil, err
			}
			user.Username = username
		}
	}
	if patch.Email != nil {
		email := strings.TrimSpace(strings.ToLower(*patch.Email))
		if err := validateEmail(email); err != nil {
			return nil, err
		}
		if email != user.Email {
			if other, err := s.users.FindByEmail(ctx, email); err == nil && other.ID != user.ID {
				return nil, ErrEmailTaken
			} else if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
				return nil, err
			}
			user.Email = email
		}
	}

	if err := s.users.Update(ctx, user); err != nil {
		observability.RecordAuthEvent(ctx, "profile_update", "error")
		return nil, err
	}
	observability.RecordAuthEvent(ctx, "profile_update", "success")
	summary := user.Summary()
	return &summary, nil
}

// ResetPassword replaces the password after re-proving the current one.
// The session cookie stays valid; tokens are not tied to password versions.
func (s *UserService) ResetPassword(ctx context.Context, id bson.ObjectID, currentPassword, newPassword string) error {
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}

	match, err := security.VerifySecret(user.PasswordHash, currentPassword)
	if err != nil {
		return err
	}
	if !match {
		observability.RecordAuthEvent(ctx, "password_reset", "bad_password")
		return ErrWrongPassword
	}

	hash, err := security.HashSecret(newPassword)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePassword(ctx, id, hash); err != nil {
		observability.RecordAuthEvent(ctx, "password_reset", "error")
		return err
	}
	observability.RecordAuthEvent(ctx, "password_reset", "success")
	return nil
}
