package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
)

const otpCodeDigits = 6

var (
	ErrEmailNotRegistered = errors.New("email is not registered")
	ErrOTPCooldown        = errors.New("please wait before requesting another code")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrNoCodeFound        = errors.New("no valid code found, request a new one")
	ErrCodeExpired        = errors.New("code has expired")
	ErrInvalidCode        = errors.New("invalid code")
)

// OTPService owns the one-time-code lifecycle: issue, throttle, deliver,
// verify. Per user the code moves NoCodeIssued -> CodeIssued -> one of
// {Verified, Expired, SupersededByResend}.
type OTPService struct {
	userRepo repository.UserRepository
	codeRepo repository.CodeRepository
	cooldown ResendCooldownStore
	notifier OTPNotifier
	clock    Clock

	codeTTL        time.Duration
	resendCooldown time.Duration
}

func NewOTPService(
	userRepo repository.UserRepository,
	codeRepo repository.CodeRepository,
	cooldown ResendCooldownStore,
	notifier OTPNotifier,
	clock Clock,
	codeTTL, resendCooldown time.Duration,
) *OTPService {
	return &OTPService{
		userRepo:       userRepo,
		codeRepo:       codeRepo,
		cooldown:       cooldown,
		notifier:       notifier,
		clock:          clock,
		codeTTL:        codeTTL,
		resendCooldown: resendCooldown,
	}
}

// Send issues a fresh code for the user behind email. Any previously stored
// codes are deleted first, so at most one live code exists. The cooldown is
// keyed by user id, not email, so address-case games cannot bypass it.
//
// The last-send timestamp is recorded only after the notifier accepts the
// message: a failed delivery leaves the user free to retry immediately.
func (s *OTPService) Send(ctx context.Context, email string) error {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordOTPEvent(ctx, "send", "not_found")
			return ErrEmailNotRegistered
		}
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}

	now := s.clock.Now()
	userID := user.ID.Hex()
	last, ok, err := s.cooldown.LastSend(ctx, userID)
	if err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}
	if ok && now.Sub(last) < s.resendCooldown {
		wait := s.resendCooldown - now.Sub(last)
		observability.RecordOTPEvent(ctx, "send", "rate_limited")
		observability.RecordOTPCooldownWait(ctx, wait)
		return ErrOTPCooldown
	}

	if err := s.codeRepo.DeleteByUser(ctx, user.ID); err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}

	code, err := generateNumericCode(otpCodeDigits)
	if err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}
	hash, err := security.HashSecret(code)
	if err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}
	expiresAt := now.Add(s.codeTTL)
	if err := s.codeRepo.Create(ctx, &domain.OneTimeCode{
		UserID:    user.ID,
		CodeHash:  hash,
		ExpiresAt: expiresAt,
	}); err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}

	if err := s.notifier.SendOTPEmail(ctx, OTPNotification{Email: email, Code: code, ExpiresAt: expiresAt}); err != nil {
		observability.RecordOTPEvent(ctx, "send", "delivery_error")
		return err
	}
	if err := s.cooldown.MarkSend(ctx, userID, now); err != nil {
		observability.RecordOTPEvent(ctx, "send", "error")
		return err
	}
	observability.RecordOTPEvent(ctx, "send", "success")
	return nil
}

// Verify consumes the live code for the user behind email. An expired code
// is deleted on detection, so the next attempt reports ErrNoCodeFound
// rather than resurrecting stale state.
func (s *OTPService) Verify(ctx context.Context, email, code string) (*domain.UserSummary, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			observability.RecordOTPEvent(ctx, "verify", "not_found")
			return nil, ErrEmailNotRegistered
		}
		observability.RecordOTPEvent(ctx, "verify", "error")
		return nil, err
	}
	if user.Verified {
		observability.RecordOTPEvent(ctx, "verify", "already_verified")
		return nil, ErrAlreadyVerified
	}

	record, err := s.codeRepo.FindLatestByUser(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrCodeNotFound) {
			observability.RecordOTPEvent(ctx, "verify", "no_code")
			return nil, ErrNoCodeFound
		}
		observability.RecordOTPEvent(ctx, "verify", "error")
		return nil, err
	}
	if record.Expired(s.clock.Now()) {
		if err := s.codeRepo.DeleteByUser(ctx, user.ID); err != nil {
			observability.RecordOTPEvent(ctx, "verify", "error")
			return nil, err
		}
		observability.RecordOTPEvent(ctx, "verify", "expired")
		return nil, ErrCodeExpired
	}

	match, err := security.VerifySecret(record.CodeHash, code)
	if err != nil {
		observability.RecordOTPEvent(ctx, "verify", "error")
		return nil, err
	}
	if !match {
		observability.RecordOTPEvent(ctx, "verify", "invalid_code")
		return nil, ErrInvalidCode
	}

	if err := s.userRepo.MarkVerified(ctx, user.ID); err != nil {
		observability.RecordOTPEvent(ctx, "verify", "error")
		return nil, err
	}
	if err := s.codeRepo.DeleteByUser(ctx, user.ID); err != nil {
		observability.RecordOTPEvent(ctx, "verify", "error")
		return nil, err
	}

	summary := user.Summary()
	summary.Verified = true
	observability.RecordOTPEvent(ctx, "verify", "success")
	return &summary, nil
}

func generateNumericCode(digits int) (string, error) {
	max := big.NewInt(1)
	for i := 0; i < digits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
