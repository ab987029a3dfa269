// internal/services/auth_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type AuthService struct {
	db                  *gorm.DB
	jwtConfig           config.JWTConfig
	notificationService *NotificationService
}

type RegisterRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,strong_password"`
	FirstName string `json:"first_name" validate:"required,max=100"`
	LastName  string `json:"last_name" validate:"required,max=100"`
	Phone     string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role      string `json:"role,omitempty" validate:"omitempty,oneof=buyer seller"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // seconds
}

type AuthResult struct {
	User   *models.User `json:"user"`
	Tokens AuthTokens   `json:"tokens"`
}

func NewAuthService(db *gorm.DB, jwtConfig config.JWTConfig, notificationService *NotificationService) *AuthService {
	return &AuthService{
		db:                  db,
		jwtConfig:           jwtConfig,
		notificationService: notificationService,
	}
}

// Register creates a buyer or seller account. Admin accounts are only
// provisioned through seeding or the admin API.
func (s *AuthService) Register(req *RegisterRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid registration request: %v", err)
	}

	role := models.UserRoleBuyer
	if req.Role == string(models.UserRoleSeller) {
		role = models.UserRoleSeller
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", req.Email).Count(&count).Error; err != nil {
		return nil, errs.Internal("failed to check email", err)
	}
	if count > 0 {
		return nil, errs.Conflict("email is already registered")
	}

	verificationCode, err := utils.GenerateVerificationCode()
	if err != nil {
		return nil, errs.Internal("failed to generate verification code", err)
	}
	user := &models.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      role,
		Status:    models.UserStatusActive,
		ProfileData: models.JSONB{
			"email_verification_code": verificationCode,
		},
	}
	if err := user.SetPassword(req.Password); err != nil {
		return nil, errs.Internal("failed to hash password", err)
	}

	if err := s.db.Create(user).Error; err != nil {
		return nil, errs.Internal("failed to create user", err)
	}

	if s.notificationService != nil {
		go s.notificationService.SendWelcomeEmail(user, verificationCode)
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *AuthService) Login(req *LoginRequest) (*AuthResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid login request: %v", err)
	}

	var user models.User
	if err := s.db.First(&user, "email = ?", req.Email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Forbidden("invalid email or password")
		}
		return nil, errs.Internal("failed to load user", err)
	}

	if err := user.CheckPassword(req.Password); err != nil {
		return nil, errs.Forbidden("invalid email or password")
	}
	if user.Status != models.UserStatusActive {
		return nil, errs.Forbidden("account is suspended")
	}

	now := time.Now()
	s.db.Model(&user).UpdateColumn("last_login_at", &now)
	user.LastLoginAt = &now

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// RefreshToken exchanges a valid refresh token for a fresh token pair.
func (s *AuthService) RefreshToken(refreshToken string) (*AuthResult, error) {
	subject, err := utils.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, errs.Forbidden("invalid refresh token")
	}

	userID, err := uuid.Parse(subject)
	if err != nil {
		return nil, errs.Forbidden("invalid refresh token")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to load user", err)
	}
	if user.Status != models.UserStatusActive {
		return nil, errs.Forbidden("account is suspended")
	}

	tokens, err := s.issueTokens(&user)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: &user, Tokens: tokens}, nil
}

// ForgotPassword issues a reset token. It succeeds silently for unknown
// emails so the endpoint does not leak which addresses exist.
func (s *AuthService) ForgotPassword(email string) error {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errs.Internal("failed to load user", err)
	}

	token, err := utils.GenerateRandomString(32)
	if err != nil {
		return errs.Internal("failed to generate reset token", err)
	}

	if user.ProfileData == nil {
		user.ProfileData = models.JSONB{}
	}
	user.ProfileData["password_reset_token"] = utils.HashString(token)
	user.ProfileData["password_reset_expires"] = time.Now().Add(time.Hour).Format(time.RFC3339)

	if err := s.db.Model(&user).UpdateColumn("profile_data", user.ProfileData).Error; err != nil {
		return errs.Internal("failed to store reset token", err)
	}

	if s.notificationService != nil {
		go s.notificationService.SendPasswordResetEmail(&user, token)
	}
	return nil
}

func (s *AuthService) ResetPassword(email, token, newPassword string) error {
	if err := utils.ValidatePassword(newPassword); err != nil {
		return errs.Validation("%v", err)
	}

	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("user not found")
		}
		return errs.Internal("failed to load user", err)
	}

	stored, _ := user.ProfileData["password_reset_token"].(string)
	expires, _ := user.ProfileData["password_reset_expires"].(string)
	if stored == "" || stored != utils.HashString(token) {
		return errs.PreconditionFailed("invalid or expired reset token")
	}
	if expiresAt, err := time.Parse(time.RFC3339, expires); err != nil || time.Now().After(expiresAt) {
		return errs.PreconditionFailed("invalid or expired reset token")
	}

	if err := user.SetPassword(newPassword); err != nil {
		return errs.Internal("failed to hash password", err)
	}
	delete(user.ProfileData, "password_reset_token")
	delete(user.ProfileData, "password_reset_expires")

	if err := s.db.Model(&user).
		Select("password_hash", "profile_data").Updates(&user).Error; err != nil {
		return errs.Internal("failed to update password", err)
	}
	return nil
}

func (s *AuthService) VerifyEmail(email, code string) error {
	var user models.User
	if err := s.db.First(&user, "email = ?", email).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("user not found")
		}
		return errs.Internal("failed to load user", err)
	}

	if user.EmailVerifiedAt != nil {
		return nil
	}

	stored, _ := user.ProfileData["email_verification_code"].(string)
	if stored == "" || stored != code {
		return errs.PreconditionFailed("invalid verification code")
	}

	now := time.Now()
	user.EmailVerifiedAt = &now
	delete(user.ProfileData, "email_verification_code")

	if err := s.db.Model(&user).
		Select("email_verified_at", "profile_data").Updates(&user).Error; err != nil {
		return errs.Internal("failed to verify email", err)
	}
	return nil
}

func (s *AuthService) GetUserByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to load user", err)
	}
	return &user, nil
}

func (s *AuthService) issueTokens(user *models.User) (AuthTokens, error) {
	access, err := utils.GenerateJWT(user.ID, user.Email, string(user.Role), s.jwtConfig.AccessTokenTTL)
	if err != nil {
		return AuthTokens{}, errs.Internal("failed to sign access token", err)
	}
	refresh, err := utils.GenerateRefreshToken(user.ID, s.jwtConfig.RefreshTokenTTL)
	if err != nil {
		return AuthTokens{}, errs.Internal("failed to sign refresh token", err)
	}
	return AuthTokens{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    s.jwtConfig.AccessTokenTTL * 3600,
	}, nil
}
