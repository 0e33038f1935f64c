package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
)

// AuthServiceTestSuite contains auth service tests
type AuthServiceTestSuite struct {
	suite.Suite
	db          *gorm.DB
	authService *Service
}

// SetupSuite initializes test database and auth service
func (suite *AuthServiceTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(suite.T(), err)

	// Set global DB for database package
	database.DB = db

	err = db.AutoMigrate(&models.User{})
	require.NoError(suite.T(), err)

	suite.db = db
	suite.authService = NewService([]byte("test_jwt_secret_key"), 24*time.Hour, nil)
}

// TearDownSuite cleans up after tests
func (suite *AuthServiceTestSuite) TearDownSuite() {
	sqlDB, _ := suite.db.DB()
	sqlDB.Close()
}

// SetupTest cleans database before each test
func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db.Exec("DELETE FROM users")
}

func (suite *AuthServiceTestSuite) register(email, username string) *AuthResponse {
	resp, err := suite.authService.Register(RegisterRequest{
		Email:       email,
		Username:    username,
		Password:    "password123",
		CollegeName: "Stanford",
	})
	require.NoError(suite.T(), err)
	return resp
}

// TestRegister tests user registration
func (suite *AuthServiceTestSuite) TestRegister() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "alice", resp.User.Username)
	assert.Equal(t, "Stanford", resp.User.CollegeName)
	assert.Equal(t, models.RoleUser, resp.User.Role)
	assert.NotEmpty(t, resp.User.ConfessionLink)
	assert.Equal(t, models.TierBasic, resp.User.Subscription.Tier)

	// Password is stored hashed
	assert.NotEqual(t, "password123", resp.User.PasswordHash)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	t := suite.T()

	suite.register("alice@stanford.edu", "alice")

	_, err := suite.authService.Register(RegisterRequest{
		Email:       "ALICE@stanford.edu", // case-insensitive match
		Username:    "alice2",
		Password:    "password123",
		CollegeName: "Stanford",
	})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateUsername() {
	t := suite.T()

	suite.register("alice@stanford.edu", "alice")

	_, err := suite.authService.Register(RegisterRequest{
		Email:       "other@stanford.edu",
		Username:    "Alice",
		Password:    "password123",
		CollegeName: "Stanford",
	})
	assert.ErrorIs(t, err, ErrUsernameExists)
}

func (suite *AuthServiceTestSuite) TestRegisterProfaneUsername() {
	t := suite.T()

	_, err := suite.authService.Register(RegisterRequest{
		Email:       "rude@stanford.edu",
		Username:    "shit",
		Password:    "password123",
		CollegeName: "Stanford",
	})
	assert.ErrorIs(t, err, ErrUsernameBlocked)
}

// TestLogin tests email/password login
func (suite *AuthServiceTestSuite) TestLogin() {
	t := suite.T()

	suite.register("alice@stanford.edu", "alice")

	resp, err := suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.NotNil(t, resp.User.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	t := suite.T()

	suite.register("alice@stanford.edu", "alice")

	_, err := suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "wrongpassword",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginUnknownEmail() {
	t := suite.T()

	// Unknown email reports invalid credentials, not "user not found"
	_, err := suite.authService.Login(LoginRequest{
		Email:    "nobody@stanford.edu",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func (suite *AuthServiceTestSuite) TestLoginBlockedAccount() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")
	suite.db.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_blocked", true)

	_, err := suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

// TestValidateToken tests JWT validation round-trip
func (suite *AuthServiceTestSuite) TestValidateToken() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	user, err := suite.authService.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, user.ID)
	assert.Equal(t, "Stanford", user.CollegeName)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsGarbage() {
	t := suite.T()

	_, err := suite.authService.ValidateToken("not.a.token")
	assert.Error(t, err)
}

func (suite *AuthServiceTestSuite) TestValidateTokenRejectsWrongSecret() {
	t := suite.T()

	other := NewService([]byte("different_secret"), 24*time.Hour, nil)
	resp := suite.register("alice@stanford.edu", "alice")

	_, err := other.ValidateToken(resp.Token)
	assert.Error(t, err)
}

func (suite *AuthServiceTestSuite) TestValidateTokenBlockedUser() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")
	suite.db.Model(&models.User{}).Where("id = ?", resp.User.ID).Update("is_blocked", true)

	_, err := suite.authService.ValidateToken(resp.Token)
	assert.ErrorIs(t, err, ErrAccountBlocked)
}

// TestChangePassword tests the change-password flow
func (suite *AuthServiceTestSuite) TestChangePassword() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	err := suite.authService.ChangePassword(resp.User.ID, "password123", "newpassword456")
	require.NoError(t, err)

	// Old password no longer works
	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// New password does
	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "newpassword456",
	})
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestChangePasswordWrongCurrent() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	err := suite.authService.ChangePassword(resp.User.ID, "wrong", "newpassword456")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestPasswordReset tests the full reset flow
func (suite *AuthServiceTestSuite) TestPasswordReset() {
	t := suite.T()

	suite.register("alice@stanford.edu", "alice")

	user, token, err := suite.authService.RequestPasswordReset("alice@stanford.edu")
	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotEmpty(t, token)

	err = suite.authService.ResetPassword(token, "resetpassword789")
	require.NoError(t, err)

	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "resetpassword789",
	})
	assert.NoError(t, err)

	// Token is single-use
	err = suite.authService.ResetPassword(token, "anotherpassword")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func (suite *AuthServiceTestSuite) TestPasswordResetUnknownEmail() {
	t := suite.T()

	// Unknown email does not error, to avoid leaking account existence
	user, token, err := suite.authService.RequestPasswordReset("nobody@stanford.edu")
	assert.NoError(t, err)
	assert.Nil(t, user)
	assert.Empty(t, token)
}

func (suite *AuthServiceTestSuite) TestPasswordResetExpiredToken() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	_, token, err := suite.authService.RequestPasswordReset("alice@stanford.edu")
	require.NoError(t, err)

	expired := time.Now().Add(-2 * time.Hour)
	suite.db.Model(&models.User{}).Where("id = ?", resp.User.ID).
		Update("reset_password_expires", expired)

	err = suite.authService.ResetPassword(token, "newpassword")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

// TestTwoFactor tests TOTP setup and enforcement
func (suite *AuthServiceTestSuite) TestTwoFactorSetupAndLogin() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	var user models.User
	require.NoError(t, suite.db.First(&user, "id = ?", resp.User.ID).Error)

	setup, err := suite.authService.SetupTwoFactor(&user)
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.QRCodeURL, "otpauth://")

	// Setup alone does not enforce 2FA
	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	assert.NoError(t, err)

	// Enabling requires a valid code
	err = suite.authService.EnableTwoFactor(&user, "000000")
	assert.ErrorIs(t, err, ErrTwoFactorInvalid)

	code := currentTOTPCode(t, setup.Secret)
	require.NoError(t, suite.authService.EnableTwoFactor(&user, code))

	// Login without a code is now challenged
	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	assert.ErrorIs(t, err, ErrTwoFactorRequired)

	// Login with a valid code succeeds
	_, err = suite.authService.Login(LoginRequest{
		Email:         "alice@stanford.edu",
		Password:      "password123",
		TwoFactorCode: currentTOTPCode(t, setup.Secret),
	})
	assert.NoError(t, err)
}

func (suite *AuthServiceTestSuite) TestDisableTwoFactor() {
	t := suite.T()

	resp := suite.register("alice@stanford.edu", "alice")

	var user models.User
	require.NoError(t, suite.db.First(&user, "id = ?", resp.User.ID).Error)

	setup, err := suite.authService.SetupTwoFactor(&user)
	require.NoError(t, err)
	require.NoError(t, suite.authService.EnableTwoFactor(&user, currentTOTPCode(t, setup.Secret)))

	err = suite.authService.DisableTwoFactor(&user, currentTOTPCode(t, setup.Secret))
	require.NoError(t, err)

	_, err = suite.authService.Login(LoginRequest{
		Email:    "alice@stanford.edu",
		Password: "password123",
	})
	assert.NoError(t, err)
}

func TestAuthServiceTestSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
