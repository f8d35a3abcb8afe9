package service

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestDevOTPNotifierLogsCode(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	notifier := NewDevOTPNotifier(logger)

	err := notifier.SendOTPEmail(context.Background(), OTPNotification{
		Email:     "alice@example.com",
		Code:      "123456",
		ExpiresAt: time.Now().Add(10 * time.Minute),
	})
	if err != nil {
		t.Fatalf("dev notifier: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "123456") {
		t.Fatalf("expected code in log output, got %q", out)
	}
	if !strings.Contains(out, "alice@example.com") {
		t.Fatalf("expected recipient in log output, got %q", out)
	}
}
