package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campusconfessions/backend/internal/database"
	"github.com/campusconfessions/backend/internal/models"
	"github.com/campusconfessions/backend/internal/moderation"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email already registered")
	ErrUsernameExists     = errors.New("username already taken")
	ErrUsernameBlocked    = errors.New("username contains prohibited language")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBlocked     = errors.New("account is blocked")
	ErrTwoFactorRequired  = errors.New("two-factor code required")
	ErrTwoFactorInvalid   = errors.New("invalid two-factor code")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
)

// Service handles all authentication operations
type Service struct {
	jwtSecret     []byte
	tokenLifetime time.Duration
	filter        *moderation.Filter
}

// NewService creates a new authentication service
func NewService(jwtSecret []byte, tokenLifetime time.Duration, filter *moderation.Filter) *Service {
	if tokenLifetime <= 0 {
		tokenLifetime = 24 * time.Hour
	}
	if filter == nil {
		filter = moderation.NewFilter()
	}
	return &Service{
		jwtSecret:     jwtSecret,
		tokenLifetime: tokenLifetime,
		filter:        filter,
	}
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string      `json:"token"`
	User      models.User `json:"user"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Username    string `json:"username" binding:"required,min=3,max=30"`
	Password    string `json:"password" binding:"required,min=8"`
	CollegeName string `json:"college_name" binding:"required,min=2,max=100"`
}

// LoginRequest represents login request.
// TwoFactorCode is required only for accounts with 2FA enabled.
type LoginRequest struct {
	Email         string `json:"email" binding:"required,email"`
	Password      string `json:"password" binding:"required"`
	TwoFactorCode string `json:"two_factor_code"`
}

// Register creates a new user with email/password scoped to a college
func (s *Service) Register(req RegisterRequest) (*AuthResponse, error) {
	if !s.filter.IsClean(req.Username) {
		return nil, ErrUsernameBlocked
	}

	// Check if email is taken (case-insensitive)
	var existing models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&existing).Error
	if err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	// Check if username is taken
	err = database.DB.Where("LOWER(username) = LOWER(?)", req.Username).First(&existing).Error
	if err == nil {
		return nil, ErrUsernameExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("database error: %w", err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Email:        strings.ToLower(req.Email),
		Username:     req.Username,
		CollegeName:  req.CollegeName,
		PasswordHash: string(hashedPassword),
	}
	user.LogActivity("register", nil)

	if err := database.DB.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return s.generateAuthResponse(&user)
}

// Login authenticates with email/password, enforcing block status and 2FA
func (s *Service) Login(req LoginRequest) (*AuthResponse, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", req.Email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	if user.TwoFactorEnabled {
		if req.TwoFactorCode == "" {
			return nil, ErrTwoFactorRequired
		}
		if !s.VerifyTOTP(&user, req.TwoFactorCode) {
			return nil, ErrTwoFactorInvalid
		}
	}

	now := time.Now()
	user.LastLoginAt = &now
	user.LogActivity("login", nil)
	database.DB.Save(&user)

	return s.generateAuthResponse(&user)
}

// FindUserByEmail finds user by email (case-insensitive)
func (s *Service) FindUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &user, nil
}

// GenerateTokenForUser creates JWT token and auth response for a user.
// Used by the token refresh endpoint and the 2FA flow.
func (s *Service) GenerateTokenForUser(user *models.User) (*AuthResponse, error) {
	return s.generateAuthResponse(user)
}

// generateAuthResponse creates JWT token and auth response
func (s *Service) generateAuthResponse(user *models.User) (*AuthResponse, error) {
	expiresAt := time.Now().Add(s.tokenLifetime)

	claims := jwt.MapClaims{
		"user_id":  user.ID,
		"email":    user.Email,
		"username": user.Username,
		"college":  user.CollegeName,
		"is_admin": user.IsAdmin,
		"role":     string(user.Role),
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &AuthResponse{
		Token:     tokenString,
		User:      *user,
		ExpiresAt: expiresAt,
	}, nil
}

// ValidateToken validates a JWT token and returns fresh user data
func (s *Service) ValidateToken(tokenString string) (*models.User, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return nil, errors.New("invalid user_id in token")
	}

	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return nil, fmt.Errorf("user not found: %w", err)
	}

	if user.IsBlocked {
		return nil, ErrAccountBlocked
	}

	return &user, nil
}

// ChangePassword verifies the current password and stores a new one
func (s *Service) ChangePassword(userID, currentPassword, newPassword string) error {
	var user models.User
	if err := database.DB.Where("id = ?", userID).First(&user).Error; err != nil {
		return ErrUserNotFound
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	user.LogActivity("change_password", nil)
	if err := database.DB.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

// RequestPasswordReset stores a reset token on the user and returns it.
// Returns nil without error when the email is unknown, so callers never
// reveal account existence.
func (s *Service) RequestPasswordReset(email string) (*models.User, string, error) {
	var user models.User
	err := database.DB.Where("LOWER(email) = LOWER(?)", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", nil
		}
		return nil, "", fmt.Errorf("database error: %w", err)
	}

	token := uuid.New().String() + uuid.New().String()
	expires := time.Now().Add(1 * time.Hour)

	user.ResetPasswordToken = &token
	user.ResetPasswordExpires = &expires
	if err := database.DB.Save(&user).Error; err != nil {
		return nil, "", fmt.Errorf("failed to store reset token: %w", err)
	}

	return &user, token, nil
}

// ResetPassword validates the reset token and updates the user's password
func (s *Service) ResetPassword(token, newPassword string) error {
	var user models.User
	err := database.DB.
		Where("reset_password_token = ? AND reset_password_expires > ?", token, time.Now()).
		First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("database error: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hashed)
	user.ResetPasswordToken = nil
	user.ResetPasswordExpires = nil
	user.LogActivity("reset_password", nil)
	if err := database.DB.Save(&user).Error; err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
