package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mrz1836/postmark"

	"github.com/myfinance/backend/internal/observability"
)

type OTPNotification struct {
	Email     string
	Code      string
	ExpiresAt time.Time
}

// OTPNotifier delivers a verification code out of band. The raw code exists
// only in the notification; it is never echoed to the HTTP caller.
type OTPNotifier interface {
	SendOTPEmail(ctx context.Context, n OTPNotification) error
}

// DevOTPNotifier logs the code instead of sending mail. Development only.
type DevOTPNotifier struct {
	logger *slog.Logger
}

func NewDevOTPNotifier(logger *slog.Logger) *DevOTPNotifier {
	return &DevOTPNotifier{logger: logger}
}

func (n *DevOTPNotifier) SendOTPEmail(ctx context.Context, notification OTPNotification) error {
	n.logger.InfoContext(ctx, "verification code issued",
		"email", notification.Email,
		"code", notification.Code,
		"expires_at", notification.ExpiresAt,
	)
	observability.RecordEmailDelivery(ctx, "dev", "success")
	return nil
}

type PostmarkOTPNotifier struct {
	client *postmark.Client
	sender string
}

func NewPostmarkOTPNotifier(serverToken, accountToken, sender string) *PostmarkOTPNotifier {
	return &PostmarkOTPNotifier{client: postmark.NewClient(serverToken, accountToken), sender: sender}
}

func (n *PostmarkOTPNotifier) SendOTPEmail(ctx context.Context, notification OTPNotification) error {
	minutes := int(time.Until(notification.ExpiresAt).Round(time.Minute).Minutes())
	if minutes < 1 {
		minutes = 1
	}
	resp, err := n.client.SendEmail(ctx, postmark.Email{
		From:    n.sender,
		To:      notification.Email,
		Subject: "Your verification code",
		Tag:     "email-verification",
		HTMLBody: fmt.Sprintf(
			"<p>Your verification code is <strong>%s</strong>.</p><p>It expires in %d minutes.</p>",
			notification.Code, minutes,
		),
	})
	if err != nil {
		observability.RecordEmailDelivery(ctx, "postmark", "error")
		return fmt.Errorf("send verification email: %w", err)
	}
	if resp.ErrorCode > 0 {
		observability.RecordEmailDelivery(ctx, "postmark", "error")
		return fmt.Errorf("send verification email: postmark error %d: %s", resp.ErrorCode, resp.Message)
	}
	observability.RecordEmailDelivery(ctx, "postmark", "success")
	return nil
}
