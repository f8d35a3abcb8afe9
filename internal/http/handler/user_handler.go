package handler

import (
	"errors"
	"net/http"

	"github.com/myfinance/backend/internal/http/middleware"
	"github.com/myfinance/backend/internal/http/response"
	"github.com/myfinance/backend/internal/observability"
	"github.com/myfinance/backend/internal/repository"
	"github.com/myfinance/backend/internal/security"
	"github.com/myfinance/backend/internal/service"
)

// UserHandler serves registration, login, verification and profile routes.
type UserHandler struct {
	auth      service.Authenticator
	users     service.ProfileManager
	otp       service.Verifier
	cookieMgr *security.CookieManager
	tokens    *security.SessionTokenManager
}

func NewUserHandler(
	auth service.Authenticator,
	users service.ProfileManager,
	otp service.Verifier,
	cookieMgr *security.CookieManager,
	tokens *security.SessionTokenManager,
) *UserHandler {
	return &UserHandler{auth: auth, users: users, otp: otp, cookieMgr: cookieMgr, tokens: tokens}
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, err := h.auth.Register(r.Context(), service.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeAccountError(w, r, err)
		return
	}
	observability.Audit(r, "user.registered", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"message": "User registered successfully, please verify your email",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	user, token, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeAccountError(w, r, err)
		return
	}
	h.cookieMgr.SetSessionCookie(w, token, h.tokens.TTL())
	observability.Audit(r, "user.login", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Logged in successfully",
		"user":    user,
	})
}

// Logout clears the cookie unconditionally. It is reachable without a valid
// session so a client stuck with an expired token can always reset.
func (h *UserHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.cookieMgr.ClearSessionCookie(w)
	observability.Audit(r, "user.logout")
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

type sendOTPRequest struct {
	Email string `json:"email"`
}

func (h *UserHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req sendOTPRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" {
		response.Error(w, r, http.StatusBadRequest, "Email is required")
		return
	}
	if err := h.otp.Send(r.Context(), req.Email); err != nil {
		writeAccountError(w, r, err)
		return
	}
	observability.Audit(r, "otp.sent")
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Verification code sent"})
}

type verifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

func (h *UserHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req verifyOTPRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Email == "" || req.Code == "" {
		response.Error(w, r, http.StatusBadRequest, "Email and code are required")
		return
	}
	user, err := h.otp.Verify(r.Context(), req.Email, req.Code)
	if err != nil {
		writeAccountError(w, r, err)
		return
	}
	observability.Audit(r, "otp.verified", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Email verified successfully",
		"user":    user,
	})
}

func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	profile, err := h.users.GetProfile(r.Context(), user.ID)
	if err != nil {
		writeAccountError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Profile fetched successfully",
		"user":    profile,
	})
}

type updateProfileRequest struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req updateProfileRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	profile, err := h.users.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		writeAccountError(w, r, err)
		return
	}
	observability.Audit(r, "user.profile_updated", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    profile,
	})
}

type resetPasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *UserHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}
	var req resetPasswordRequest
	if err := response.DecodeBody(r, &req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.users.ResetPassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		writeAccountError(w, r, err)
		return
	}
	observability.Audit(r, "user.password_reset", "user_id", user.ID.Hex())
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "Password updated successfully"})
}

// writeAccountError maps service errors onto the HTTP status taxonomy.
func writeAccountError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrEmailTaken):
		response.Error(w, r, http.StatusBadRequest, "Email is already registered!")
	case errors.Is(err, service.ErrUsernameTaken):
		response.Error(w, r, http.StatusBadRequest, "Username is already taken!")
	case errors.Is(err, service.ErrAlreadyVerified):
		response.Error(w, r, http.StatusBadRequest, "Email is already verified")
	case errors.Is(err, service.ErrNoCodeFound):
		response.Error(w, r, http.StatusBadRequest, "No valid code found, please request a new one")
	case errors.Is(err, service.ErrCodeExpired):
		response.Error(w, r, http.StatusBadRequest, "Code has expired, please request a new one")
	case errors.Is(err, service.ErrInvalidCode):
		response.Error(w, r, http.StatusBadRequest, "Invalid verification code")
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, service.ErrWrongPassword):
		response.Error(w, r, http.StatusUnauthorized, "Current password is incorrect")
	case errors.Is(err, service.ErrEmailNotVerified):
		response.Error(w, r, http.StatusForbidden, "Email is not verified")
	case errors.Is(err, service.ErrEmailNotRegistered), errors.Is(err, repository.ErrUserNotFound):
		response.Error(w, r, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrOTPCooldown):
		response.Error(w, r, http.StatusTooManyRequests, "Please wait before requesting another code")
	default:
		response.Error(w, r, http.StatusInternalServerError, "Something went wrong")
	}
}
