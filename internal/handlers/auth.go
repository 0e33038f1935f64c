package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/campusconfessions/backend/internal/auth"
	"github.com/campusconfessions/backend/internal/logger"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/notify"
	"github.com/campusconfessions/backend/internal/util"
)

// Register creates a new account scoped to a college
// POST /api/v1/auth/register
func (h *Handlers) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Register(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrEmailExists):
			util.RespondConflict(c, "email")
		case errors.Is(err, auth.ErrUsernameExists):
			util.RespondConflict(c, "username")
		case errors.Is(err, auth.ErrUsernameBlocked):
			util.RespondValidationError(c, "username", "Username contains prohibited language")
		default:
			logger.ErrorWithFields("Registration failed", err)
			util.RespondInternalError(c, "Failed to create account")
		}
		return
	}

	if h.notifier != nil {
		if _, err := h.notifier.Create(c.Request.Context(), notify.Input{
			RecipientID: resp.User.ID,
			Type:        models.NotificationSystem,
			Template:    notify.Welcome(resp.User.Username, resp.User.CollegeName),
		}); err != nil {
			logger.WarnWithFields("Failed to send welcome notification", err)
		}
	}

	c.JSON(http.StatusCreated, resp)
}

// Login authenticates with email and password, plus a TOTP code when the
// account has two-factor enabled
// POST /api/v1/auth/login
func (h *Handlers) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	resp, err := h.auth.Login(req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrTwoFactorRequired):
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":               "two-factor code required",
				"two_factor_required": true,
			})
		case errors.Is(err, auth.ErrTwoFactorInvalid):
			util.RespondUnauthorized(c, "Invalid two-factor code")
		case errors.Is(err, auth.ErrAccountBlocked):
			util.RespondForbidden(c, "Account is blocked")
		case errors.Is(err, auth.ErrInvalidCredentials):
			util.RespondUnauthorized(c, "Invalid email or password")
		default:
			logger.ErrorWithFields("Login failed", err)
			util.RespondInternalError(c, "Login failed")
		}
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetCurrentUser returns the authenticated user's account
// GET /api/v1/auth/me
func (h *Handlers) GetCurrentUser(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RefreshToken issues a fresh token for a still-valid session, resetting
// the expiry window
// POST /api/v1/auth/refresh
func (h *Handlers) RefreshToken(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	resp, err := h.auth.GenerateTokenForUser(user)
	if err != nil {
		logger.Error("Token refresh failed", zap.Error(err), logger.WithUserID(user.ID))
		util.RespondInternalError(c, "Failed to refresh token")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChangePassword updates the authenticated user's password
// POST /api/v1/auth/password
func (h *Handlers) ChangePassword(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		CurrentPassword string `json:"current_password" binding:"required"`
		NewPassword     string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ChangePassword(user.ID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			util.RespondUnauthorized(c, "Current password is incorrect")
			return
		}
		logger.Error("Password change failed", zap.Error(err), logger.WithUserID(user.ID))
		util.RespondInternalError(c, "Failed to change password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password updated"})
}

// ForgotPassword issues a password reset token and emails it. The response
// is identical whether or not the email exists.
// POST /api/v1/auth/forgot-password
func (h *Handlers) ForgotPassword(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	user, token, err := h.auth.RequestPasswordReset(req.Email)
	if err != nil {
		logger.ErrorWithFields("Password reset request failed", err)
		util.RespondInternalError(c, "Failed to process reset request")
		return
	}

	if user != nil && h.mailer != nil {
		if err := h.mailer.SendPasswordResetEmail(c.Request.Context(), user.Email, token); err != nil {
			logger.Error("Failed to send reset email", zap.Error(err), logger.WithUserID(user.ID))
		}
	}

	c.JSON(http.StatusOK, gin.H{"message": "if the email exists, a reset link has been sent"})
}

// ResetPassword consumes a reset token and sets a new password
// POST /api/v1/auth/reset-password
func (h *Handlers) ResetPassword(c *gin.Context) {
	var req struct {
		Token       string `json:"token" binding:"required"`
		NewPassword string `json:"new_password" binding:"required,min=8"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.ResetPassword(req.Token, req.NewPassword); err != nil {
		if errors.Is(err, auth.ErrInvalidResetToken) {
			util.RespondBadRequest(c, "Invalid or expired reset token")
			return
		}
		logger.ErrorWithFields("Password reset failed", err)
		util.RespondInternalError(c, "Failed to reset password")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "password reset"})
}

// SetupTwoFactor generates a TOTP secret for the authenticated user.
// The secret is not enforced until EnableTwoFactor confirms a valid code.
// POST /api/v1/auth/2fa/setup
func (h *Handlers) SetupTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	setup, err := h.auth.SetupTwoFactor(user)
	if err != nil {
		logger.Error("2FA setup failed", zap.Error(err), logger.WithUserID(user.ID))
		util.RespondInternalError(c, "Failed to set up two-factor auth")
		return
	}

	c.JSON(http.StatusOK, setup)
}

// EnableTwoFactor turns on 2FA enforcement after verifying a first code
// POST /api/v1/auth/2fa/enable
func (h *Handlers) EnableTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.EnableTwoFactor(user, req.Code); err != nil {
		if errors.Is(err, auth.ErrTwoFactorInvalid) {
			util.RespondUnauthorized(c, "Invalid two-factor code")
			return
		}
		logger.Error("2FA enable failed", zap.Error(err), logger.WithUserID(user.ID))
		util.RespondInternalError(c, "Failed to enable two-factor auth")
		return
	}

	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": true})
}

// DisableTwoFactor turns off 2FA after verifying a current code
// POST /api/v1/auth/2fa/disable
func (h *Handlers) DisableTwoFactor(c *gin.Context) {
	user, ok := util.GetUserFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, err.Error())
		return
	}

	if err := h.auth.DisableTwoFactor(user, req.Code); err != nil {
		if errors.Is(err, auth.ErrTwoFactorInvalid) {
			util.RespondUnauthorized(c, "Invalid two-factor code")
			return
		}
		logger.Error("2FA disable failed", zap.Error(err), logger.WithUserID(user.ID))
		util.RespondInternalError(c, "Failed to disable two-factor auth")
		return
	}

	c.JSON(http.StatusOK, gin.H{"two_factor_enabled": false})
}
