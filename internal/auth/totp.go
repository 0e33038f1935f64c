package auth

import (
	"errors"
	"fmt"

	"github.com/pquerna/otp/totp"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
)

// otpIssuer is shown in authenticator apps next to the account name
const otpIssuer = "Campus Confessions"

// TwoFactorSetup contains the secret and provisioning URL for enrolling
// an authenticator app
type TwoFactorSetup struct {
	Secret    string `json:"secret"`
	QRCodeURL string `json:"qr_code_url"`
}

// SetupTwoFactor generates a TOTP secret for the user and stores it
// pending verification. 2FA is not enforced until EnableTwoFactor
// confirms the user can produce a valid code.
func (s *Service) SetupTwoFactor(user *models.User) (*TwoFactorSetup, error) {
	if user.TwoFactorEnabled {
		return nil, errors.New("two-factor authentication is already enabled")
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: user.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate TOTP key: %w", err)
	}

	secret := key.Secret()
	user.TwoFactorSecret = &secret
	if err := database.DB.Save(user).Error; err != nil {
		return nil, fmt.Errorf("failed to store TOTP secret: %w", err)
	}

	return &TwoFactorSetup{
		Secret:    secret,
		QRCodeURL: key.URL(),
	}, nil
}

// EnableTwoFactor verifies the first code against the pending secret and
// turns enforcement on
func (s *Service) EnableTwoFactor(user *models.User, code string) error {
	if user.TwoFactorSecret == nil {
		return errors.New("two-factor setup has not been started")
	}
	if !totp.Validate(code, *user.TwoFactorSecret) {
		return ErrTwoFactorInvalid
	}

	user.TwoFactorEnabled = true
	user.LogActivity("enable_2fa", nil)
	if err := database.DB.Save(user).Error; err != nil {
		return fmt.Errorf("failed to enable two-factor: %w", err)
	}
	return nil
}

// DisableTwoFactor turns enforcement off after verifying a current code
func (s *Service) DisableTwoFactor(user *models.User, code string) error {
	if !user.TwoFactorEnabled {
		return errors.New("two-factor authentication is not enabled")
	}
	if !s.VerifyTOTP(user, code) {
		return ErrTwoFactorInvalid
	}

	user.TwoFactorEnabled = false
	user.TwoFactorSecret = nil
	user.LogActivity("disable_2fa", nil)
	if err := database.DB.Save(user).Error; err != nil {
		return fmt.Errorf("failed to disable two-factor: %w", err)
	}
	return nil
}

// VerifyTOTP checks a time-based code against the user's secret
func (s *Service) VerifyTOTP(user *models.User, code string) bool {
	if user.TwoFactorSecret == nil {
		return false
	}
	return totp.Validate(code, *user.TwoFactorSecret)
}
