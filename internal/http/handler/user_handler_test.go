package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/mock/gomock"

	"github.com/myfinance/backend/internal/domain"
	"github.com/myfinance/backend/internal/http/middleware"
	"github.com/myfinance/backend/internal/security"
	"github.com/myfinance/backend/internal/service"
	servicemock "github.com/myfinance/backend/internal/service/gomock"
)

type userHandlerFixture struct {
	handler *UserHandler
	auth    *servicemock.MockAuthenticator
	users   *servicemock.MockProfileManager
	otp     *servicemock.MockVerifier
}

func newUserHandlerFixture(t *testing.T) *userHandlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	auth := servicemock.NewMockAuthenticator(ctrl)
	users := servicemock.NewMockProfileManager(ctrl)
	otp := servicemock.NewMockVerifier(ctrl)
	cookieMgr := security.NewCookieManager("", false, "lax")
	tokens := security.NewSessionTokenManager("finance-tracker", "finance-tracker-api", "0123456789abcdef0123456789abcdef", time.Hour)
	return &userHandlerFixture{
		handler: NewUserHandler(auth, users, otp, cookieMgr, tokens),
		auth:    auth,
		users:   users,
		otp:     otp,
	}
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body
}

func jsonRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func authedRequest(method, target, body string, user *domain.User) *http.Request {
	req := jsonRequest(method, target, body)
	return req.WithContext(middleware.ContextWithUser(req.Context(), user))
}

func sessionCookie(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == security.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestUserHandlerRegister(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		summary := &domain.UserSummary{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com"}
		fx.auth.EXPECT().
			Register(gomock.Any(), service.RegisterInput{Username: "alice", Email: "alice@example.com", Password: "super-secret"}).
			Return(summary, nil)

		rr := httptest.NewRecorder()
		fx.handler.Register(rr, jsonRequest(http.MethodPost, "/api/v1/users",
			`{"username":"alice","email":"alice@example.com","password":"super-secret"}`))

		if rr.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		if body["message"] != "User registered successfully, please verify your email" {
			t.Fatalf("unexpected message %v", body["message"])
		}
		user, ok := body["user"].(map[string]any)
		if !ok {
			t.Fatalf("expected user object, got %v", body["user"])
		}
		if user["username"] != "alice" {
			t.Fatalf("unexpected username %v", user["username"])
		}
	})

	t.Run("invalid body", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		rr := httptest.NewRecorder()
		fx.handler.Register(rr, jsonRequest(http.MethodPost, "/api/v1/users", `{not json`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("validation error", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.auth.EXPECT().
			Register(gomock.Any(), gomock.Any()).
			Return(nil, service.NewValidationError("password must be at least 8 characters"))

		rr := httptest.NewRecorder()
		fx.handler.Register(rr, jsonRequest(http.MethodPost, "/api/v1/users",
			`{"username":"alice","email":"alice@example.com","password":"pw"}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "password must be at least 8 characters" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})

	t.Run("duplicate email", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.auth.EXPECT().Register(gomock.Any(), gomock.Any()).Return(nil, service.ErrEmailTaken)

		rr := httptest.NewRecorder()
		fx.handler.Register(rr, jsonRequest(http.MethodPost, "/api/v1/users",
			`{"username":"alice","email":"alice@example.com","password":"super-secret"}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "Email is already registered!" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})
}

func TestUserHandlerLogin(t *testing.T) {
	t.Run("success sets session cookie", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		summary := &domain.UserSummary{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com", Verified: true}
		fx.auth.EXPECT().
			Login(gomock.Any(), "alice@example.com", "super-secret").
			Return(summary, "signed-token", nil)

		rr := httptest.NewRecorder()
		fx.handler.Login(rr, jsonRequest(http.MethodPost, "/api/v1/users/login",
			`{"email":"alice@example.com","password":"super-secret"}`))

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		cookie := sessionCookie(t, rr)
		if cookie == nil {
			t.Fatal("expected session cookie to be set")
		}
		if cookie.Value != "signed-token" {
			t.Fatalf("unexpected cookie value %q", cookie.Value)
		}
		if !cookie.HttpOnly {
			t.Fatal("session cookie must be http-only")
		}
	})

	t.Run("wrong credentials", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, "", service.ErrInvalidCredentials)

		rr := httptest.NewRecorder()
		fx.handler.Login(rr, jsonRequest(http.MethodPost, "/api/v1/users/login",
			`{"email":"alice@example.com","password":"nope"}`))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if sessionCookie(t, rr) != nil {
			t.Fatal("no cookie should be set on failed login")
		}
		if body := decodeBody(t, rr); body["error"] != "Invalid email or password" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})

	t.Run("unverified account", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.auth.EXPECT().Login(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, "", service.ErrEmailNotVerified)

		rr := httptest.NewRecorder()
		fx.handler.Login(rr, jsonRequest(http.MethodPost, "/api/v1/users/login",
			`{"email":"alice@example.com","password":"super-secret"}`))
		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
	})
}

func TestUserHandlerLogout(t *testing.T) {
	fx := newUserHandlerFixture(t)
	rr := httptest.NewRecorder()
	fx.handler.Logout(rr, httptest.NewRequest(http.MethodDelete, "/api/v1/users/logout", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	cookie := sessionCookie(t, rr)
	if cookie == nil {
		t.Fatal("expected clearing cookie")
	}
	if cookie.MaxAge != -1 {
		t.Fatalf("expected MaxAge -1, got %d", cookie.MaxAge)
	}
	if cookie.Value != "" {
		t.Fatalf("expected empty cookie value, got %q", cookie.Value)
	}
}

func TestUserHandlerSendVerificationCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.otp.EXPECT().Send(gomock.Any(), "alice@example.com").Return(nil)

		rr := httptest.NewRecorder()
		fx.handler.SendVerificationCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/send-otp",
			`{"email":"alice@example.com"}`))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("missing email", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		rr := httptest.NewRecorder()
		fx.handler.SendVerificationCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/send-otp", `{}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("unknown email", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.otp.EXPECT().Send(gomock.Any(), gomock.Any()).Return(service.ErrEmailNotRegistered)

		rr := httptest.NewRecorder()
		fx.handler.SendVerificationCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/send-otp",
			`{"email":"ghost@example.com"}`))
		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
	})

	t.Run("cooldown active", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.otp.EXPECT().Send(gomock.Any(), gomock.Any()).Return(service.ErrOTPCooldown)

		rr := httptest.NewRecorder()
		fx.handler.SendVerificationCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/send-otp",
			`{"email":"alice@example.com"}`))
		if rr.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "Please wait before requesting another code" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})
}

func TestUserHandlerVerifyCode(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		summary := &domain.UserSummary{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com", Verified: true}
		fx.otp.EXPECT().Verify(gomock.Any(), "alice@example.com", "123456").Return(summary, nil)

		rr := httptest.NewRecorder()
		fx.handler.VerifyCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/verify-otp",
			`{"email":"alice@example.com","code":"123456"}`))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		user, _ := body["user"].(map[string]any)
		if user == nil || user["verified"] != true {
			t.Fatalf("expected verified user in response, got %v", body["user"])
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		rr := httptest.NewRecorder()
		fx.handler.VerifyCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/verify-otp",
			`{"email":"alice@example.com"}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.otp.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, service.ErrInvalidCode)

		rr := httptest.NewRecorder()
		fx.handler.VerifyCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/verify-otp",
			`{"email":"alice@example.com","code":"000000"}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "Invalid verification code" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})

	t.Run("expired code", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.otp.EXPECT().Verify(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, service.ErrCodeExpired)

		rr := httptest.NewRecorder()
		fx.handler.VerifyCode(rr, jsonRequest(http.MethodPost, "/api/v1/users/verify-otp",
			`{"email":"alice@example.com","code":"123456"}`))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
	})
}

func TestUserHandlerProfile(t *testing.T) {
	user := &domain.User{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com", Verified: true}

	t.Run("get requires session", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		rr := httptest.NewRecorder()
		fx.handler.GetProfile(rr, httptest.NewRequest(http.MethodGet, "/api/v1/users", nil))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})

	t.Run("get success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		summary := user.Summary()
		fx.users.EXPECT().GetProfile(gomock.Any(), user.ID).Return(&summary, nil)

		rr := httptest.NewRecorder()
		fx.handler.GetProfile(rr, authedRequest(http.MethodGet, "/api/v1/users", "", user))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		body := decodeBody(t, rr)
		got, _ := body["user"].(map[string]any)
		if got == nil || got["email"] != "alice@example.com" {
			t.Fatalf("unexpected user payload %v", body["user"])
		}
	})

	t.Run("update success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		newName := "alice2"
		updated := user.Summary()
		updated.Username = newName
		fx.users.EXPECT().
			UpdateProfile(gomock.Any(), user.ID, service.ProfileUpdate{Username: &newName}).
			Return(&updated, nil)

		rr := httptest.NewRecorder()
		fx.handler.UpdateProfile(rr, authedRequest(http.MethodPut, "/api/v1/users", `{"username":"alice2"}`, user))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
	})

	t.Run("update conflict", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.users.EXPECT().UpdateProfile(gomock.Any(), user.ID, gomock.Any()).Return(nil, service.ErrUsernameTaken)

		rr := httptest.NewRecorder()
		fx.handler.UpdateProfile(rr, authedRequest(http.MethodPut, "/api/v1/users", `{"username":"bob"}`, user))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "Username is already taken!" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})
}

func TestUserHandlerResetPassword(t *testing.T) {
	user := &domain.User{ID: bson.NewObjectID(), Username: "alice", Email: "alice@example.com", Verified: true}

	t.Run("success", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.users.EXPECT().ResetPassword(gomock.Any(), user.ID, "old-password", "new-password").Return(nil)

		rr := httptest.NewRecorder()
		fx.handler.ResetPassword(rr, authedRequest(http.MethodPut, "/api/v1/users/reset-password",
			`{"current_password":"old-password","new_password":"new-password"}`, user))
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if body := decodeBody(t, rr); body["message"] != "Password updated successfully" {
			t.Fatalf("unexpected message %v", body["message"])
		}
	})

	t.Run("wrong current password", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		fx.users.EXPECT().ResetPassword(gomock.Any(), user.ID, gomock.Any(), gomock.Any()).Return(service.ErrWrongPassword)

		rr := httptest.NewRecorder()
		fx.handler.ResetPassword(rr, authedRequest(http.MethodPut, "/api/v1/users/reset-password",
			`{"current_password":"nope","new_password":"new-password"}`, user))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if body := decodeBody(t, rr); body["error"] != "Current password is incorrect" {
			t.Fatalf("unexpected error %v", body["error"])
		}
	})

	t.Run("requires session", func(t *testing.T) {
		fx := newUserHandlerFixture(t)
		rr := httptest.NewRecorder()
		fx.handler.ResetPassword(rr, jsonRequest(http.MethodPut, "/api/v1/users/reset-password",
			`{"current_password":"a","new_password":"b"}`))
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
	})
}
