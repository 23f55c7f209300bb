package api

import (
	"net/http"
	"strings"

	"github.com/dukerupert/marbelle/internal/cookie"
	"github.com/dukerupert/marbelle/internal/domain"
	"github.com/dukerupert/marbelle/internal/handler"
	"github.com/dukerupert/marbelle/internal/middleware"
	"github.com/dukerupert/marbelle/internal/service"
	"github.com/google/uuid"
)

// AuthHandler serves registration, sign-in and the account dashboard
// under /api/auth/.
type AuthHandler struct {
	accounts service.AccountService
	cookies  *cookie.Config
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(accounts service.AccountService, cookies *cookie.Config) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookies: cookies}
}

type userResponse struct {
	ID                 uuid.UUID `json:"id"`
	Email              string    `json:"email"`
	FirstName          string    `json:"first_name"`
	LastName           string    `json:"last_name"`
	CompanyName        string    `json:"company_name"`
	Phone              string    `json:"phone"`
	IsBusinessCustomer bool      `json:"is_business_customer"`
}

func newUserResponse(u *domain.User) userResponse {
	return userResponse{
		ID:                 u.ID,
		Email:              u.Email,
		FirstName:          u.FirstName,
		LastName:           u.LastName,
		CompanyName:        u.CompanyName,
		Phone:              u.Phone,
		IsBusinessCustomer: u.IsBusinessCustomer(),
	}
}

type registerRequest struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
	CompanyName     string `json:"company_name" validate:"max=100"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"password_confirm" validate:"required,eqfield=Password"`
}

// Register handles POST /api/auth/register/
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	const failed = "Registration failed."

	var req registerRequest
	if err := handler.DecodeJSON(r, "account.register", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}

	user, err := h.accounts.Register(r.Context(), service.RegisterParams{
		Email:       req.Email,
		Password:    req.Password,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		CompanyName: req.CompanyName,
		Phone:       req.Phone,
	})
	if err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}

	handler.Created(w, "Registration successful. Please check your email for verification instructions.",
		map[string]uuid.UUID{"user_id": user.ID})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Access  string       `json:"access"`
	Refresh string       `json:"refresh"`
	User    userResponse `json:"user"`
}

// Login handles POST /api/auth/login/
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := handler.DecodeJSON(r, "account.login", &req); err != nil {
		handler.FailedResponse(w, r, "Login failed.", err)
		return
	}

	result, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	handler.Success(w, "Login successful.", loginResponse{
		Access:  result.Tokens.Access,
		Refresh: result.Tokens.Refresh,
		User:    newUserResponse(result.User),
	})
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

// Logout handles POST /api/auth/logout/. The refresh token is revoked and
// the guest cart cookie is cleared so the next guest session starts fresh.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req refreshRequest
	if r.ContentLength != 0 {
		if err := handler.DecodeJSON(r, "account.logout", &req); err != nil {
			handler.ErrorResponse(w, r, err)
			return
		}
	}

	if err := h.accounts.Logout(r.Context(), user.ID, req.Refresh); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	h.cookies.ClearSession(w)
	handler.Success(w, "Logout successful.", nil)
}

// RefreshToken handles POST /api/auth/refresh-token/
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Refresh string `json:"refresh" validate:"required"`
	}
	if err := handler.DecodeJSON(r, "account.refresh", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}

	access, err := h.accounts.RefreshToken(r.Context(), req.Refresh)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Token refreshed successfully.", map[string]string{"access": access})
}

type tokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// VerifyEmail handles POST /api/auth/verify-email/
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	const failed = "Email verification failed."

	var req tokenRequest
	if err := handler.DecodeJSON(r, "account.verify_email", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	if err := h.accounts.VerifyEmail(r.Context(), req.Token); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Email verification successful. Your account is now active.", nil)
}

type emailRequest struct {
	Email string `json:"email"`
}

// ResendVerification handles POST /api/auth/resend-verification/. Unknown
// addresses get the same success response as registered ones.
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := handler.DecodeJSON(r, "account.resend_verification", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		handler.BadRequestResponse(w, r, "Email is required.")
		return
	}

	sent, err := h.accounts.ResendVerification(r.Context(), req.Email)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if !sent {
		handler.Success(w, "If this email is registered, a verification email has been sent.", nil)
		return
	}
	handler.Success(w, "Verification email sent.", nil)
}

// RequestPasswordReset handles POST /api/auth/password-reset/. The reply
// is the same whether or not the address is registered.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := handler.DecodeJSON(r, "account.request_password_reset", &req); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "If this email is registered, you will receive password reset instructions.", nil)
}

type passwordResetConfirmRequest struct {
	Token              string `json:"token" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

// ConfirmPasswordReset handles POST /api/auth/password-reset-confirm/
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	const failed = "Password reset failed."

	var req passwordResetConfirmRequest
	if err := handler.DecodeJSON(r, "account.confirm_password_reset", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	if err := h.accounts.ConfirmPasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Password reset successful. You can now login with your new password.", nil)
}

// VerifyToken handles GET /api/auth/verify-token/
func (h *AuthHandler) VerifyToken(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}
	handler.Success(w, "Token is valid.", newUserResponse(user))
}

type emailChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewEmail        string `json:"new_email" validate:"required,email,max=254"`
}

// RequestEmailChange handles POST /api/auth/request-email-change/
func (h *AuthHandler) RequestEmailChange(w http.ResponseWriter, r *http.Request) {
	const failed = "Email change request failed. Invalid password or email already in use."

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req emailChangeRequest
	if err := handler.DecodeJSON(r, "account.request_email_change", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	if err := h.accounts.RequestEmailChange(r.Context(), user.ID, req.CurrentPassword, req.NewEmail); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Email change verification sent. Please check your new email to confirm the change.", nil)
}

// ConfirmEmailChange handles POST /api/auth/confirm-email-change/
func (h *AuthHandler) ConfirmEmailChange(w http.ResponseWriter, r *http.Request) {
	const failed = "Email change confirmation failed. Token invalid or expired."

	var req tokenRequest
	if err := handler.DecodeJSON(r, "account.confirm_email_change", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	user, err := h.accounts.ConfirmEmailChange(r.Context(), req.Token)
	if err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Email address changed successfully. You can now use your new email to login.", newUserResponse(user))
}

// Profile handles GET /api/auth/user/
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	profile, err := h.accounts.Profile(r.Context(), user.ID)
	if err != nil {
		handler.ErrorResponse(w, r, err)
		return
	}
	handler.Success(w, "Profile retrieved successfully.", newUserResponse(profile))
}

type profileRequest struct {
	Email       *string `json:"email" validate:"omitempty,email,max=254"`
	FirstName   *string `json:"first_name" validate:"omitempty,max=150"`
	LastName    *string `json:"last_name" validate:"omitempty,max=150"`
	Phone       *string `json:"phone" validate:"omitempty,phone"`
	CompanyName *string `json:"company_name" validate:"omitempty,max=100"`
}

// UpdateProfile handles PUT and PATCH /api/auth/user/. Omitted fields are
// left unchanged.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	const failed = "Profile update failed."

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req profileRequest
	if err := handler.DecodeJSON(r, "account.update_profile", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}

	profile, err := h.accounts.UpdateProfile(r.Context(), user.ID, service.ProfileUpdate{
		Email:       req.Email,
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Phone:       req.Phone,
		CompanyName: req.CompanyName,
	})
	if err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Profile updated successfully.", newUserResponse(profile))
}

type changePasswordRequest struct {
	CurrentPassword    string `json:"current_password" validate:"required"`
	NewPassword        string `json:"new_password" validate:"required"`
	NewPasswordConfirm string `json:"new_password_confirm" validate:"required,eqfield=NewPassword"`
}

// ChangePassword handles POST /api/auth/change-password/
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	const failed = "Password change failed."

	user := middleware.GetUserFromContext(r.Context())
	if user == nil {
		handler.UnauthorizedResponse(w, r)
		return
	}

	var req changePasswordRequest
	if err := handler.DecodeJSON(r, "account.change_password", &req); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	if err := h.accounts.ChangePassword(r.Context(), user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		handler.FailedResponse(w, r, failed, err)
		return
	}
	handler.Success(w, "Password changed successfully.", nil)
}
