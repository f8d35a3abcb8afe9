package service

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/repository"
)

//go:generate mockgen -source=interfaces.go -destination=gomock/services.go -package=gomock

// Authenticator is the handler-facing surface of AuthService.
type Authenticator interface {
	Register(ctx context.Context, in RegisterInput) (*domain.UserSummary, error)
	Login(ctx context.Context, email, password string) (*domain.UserSummary, string, error)
}

// Verifier is the handler-facing surface of OTPService.
type Verifier interface {
	Send(ctx context.Context, email string) error
	Verify(ctx context.Context, email, code string) (*domain.UserSummary, error)
}

// ProfileManager is the handler-facing surface of UserService.
type ProfileManager interface {
	GetProfile(ctx context.Context, id bson.ObjectID) (*domain.UserSummary, error)
	UpdateProfile(ctx context.Context, id bson.ObjectID, patch ProfileUpdate) (*domain.UserSummary, error)
	ResetPassword(ctx context.Context, id bson.ObjectID, currentPassword, newPassword string) error
}

// Ledger is the handler-facing surface of LedgerService.
type Ledger interface {
	Kind() domain.EntryKind
	Create(ctx context.Context, userID bson.ObjectID, in EntryInput) (*domain.Entry, error)
	ListPaged(ctx context.Context, userID bson.ObjectID, req repository.PageRequest) (repository.PageResult[domain.Entry], error)
	ListAll(ctx context.Context, userID bson.ObjectID) ([]domain.Entry, float64, error)
	Update(ctx context.Context, userID, id bson.ObjectID, patch EntryPatch) (*domain.Entry, error)
	Delete(ctx context.Context, userID, id bson.ObjectID) error
}

var (
	_ Authenticator  = (*AuthService)(nil)
	_ Verifier       = (*OTPService)(nil)
	_ ProfileManager = (*UserService)(nil)
	_ Ledger         = (*LedgerService)(nil)
)
