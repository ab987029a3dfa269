// internal/services/auth_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

type AuthServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *AuthService
}

func (suite *AuthServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewAuthService(suite.db, config.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenTTL:  1,
		RefreshTokenTTL: 24,
	}, nil)
}

func (suite *AuthServiceTestSuite) register(email string) *AuthResult {
	result, err := suite.service.Register(&RegisterRequest{
		Email:     email,
		Password:  "TestPass123!",
		FirstName: "Ava",
		LastName:  "Martin",
	})
	suite.Require().NoError(err)
	return result
}

func (suite *AuthServiceTestSuite) TestRegister() {
	result := suite.register("ava@example.com")

	suite.Equal(models.UserRoleBuyer, result.User.Role)
	suite.Equal(models.UserStatusActive, result.User.Status)
	suite.NotEmpty(result.Tokens.AccessToken)
	suite.NotEmpty(result.Tokens.RefreshToken)
	suite.Equal(3600, result.Tokens.ExpiresIn)
}

func (suite *AuthServiceTestSuite) TestRegisterSellerRole() {
	result, err := suite.service.Register(&RegisterRequest{
		Email:     "shop@example.com",
		Password:  "TestPass123!",
		FirstName: "Sam",
		LastName:  "Field",
		Role:      "seller",
	})
	suite.Require().NoError(err)
	suite.Equal(models.UserRoleSeller, result.User.Role)
}

func (suite *AuthServiceTestSuite) TestRegisterCannotClaimAdmin() {
	_, err := suite.service.Register(&RegisterRequest{
		Email:     "root@example.com",
		Password:  "TestPass123!",
		FirstName: "Root",
		LastName:  "User",
		Role:      "admin",
	})
	suite.True(errs.IsKind(err, errs.KindValidation))
}

func (suite *AuthServiceTestSuite) TestRegisterDuplicateEmail() {
	suite.register("ava@example.com")

	_, err := suite.service.Register(&RegisterRequest{
		Email:     "ava@example.com",
		Password:  "TestPass123!",
		FirstName: "Ava",
		LastName:  "Martin",
	})
	suite.True(errs.IsKind(err, errs.KindConflict))
}

func (suite *AuthServiceTestSuite) TestRegisterWeakPassword() {
	_, err := suite.service.Register(&RegisterRequest{
		Email:     "weak@example.com",
		Password:  "password",
		FirstName: "Ava",
		LastName:  "Martin",
	})
	suite.True(errs.IsKind(err, errs.KindValidation))
}

func (suite *AuthServiceTestSuite) TestLogin() {
	suite.register("ava@example.com")

	result, err := suite.service.Login(&LoginRequest{
		Email:    "ava@example.com",
		Password: "TestPass123!",
	})
	suite.Require().NoError(err)
	suite.NotEmpty(result.Tokens.AccessToken)
	suite.NotNil(result.User.LastLoginAt)
}

func (suite *AuthServiceTestSuite) TestLoginWrongPassword() {
	suite.register("ava@example.com")

	_, err := suite.service.Login(&LoginRequest{
		Email:    "ava@example.com",
		Password: "WrongPass123!",
	})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestLoginUnknownEmail() {
	_, err := suite.service.Login(&LoginRequest{
		Email:    "nobody@example.com",
		Password: "TestPass123!",
	})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestLoginSuspendedAccount() {
	result := suite.register("ava@example.com")
	suite.db.Model(&models.User{}).Where("id = ?", result.User.ID).
		UpdateColumn("status", models.UserStatusSuspended)

	_, err := suite.service.Login(&LoginRequest{
		Email:    "ava@example.com",
		Password: "TestPass123!",
	})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestRefreshToken() {
	result := suite.register("ava@example.com")

	refreshed, err := suite.service.RefreshToken(result.Tokens.RefreshToken)
	suite.Require().NoError(err)
	suite.NotEmpty(refreshed.Tokens.AccessToken)

	_, err = suite.service.RefreshToken("not-a-token")
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *AuthServiceTestSuite) TestVerifyEmail() {
	result := suite.register("ava@example.com")

	var user models.User
	suite.Require().NoError(suite.db.First(&user, "id = ?", result.User.ID).Error)
	code, _ := user.ProfileData["email_verification_code"].(string)
	suite.Require().NotEmpty(code)

	suite.Require().NoError(suite.service.VerifyEmail("ava@example.com", code))

	suite.Require().NoError(suite.db.First(&user, "id = ?", result.User.ID).Error)
	suite.NotNil(user.EmailVerifiedAt)

	// Verifying again is a no-op.
	suite.NoError(suite.service.VerifyEmail("ava@example.com", "whatever"))
}

func (suite *AuthServiceTestSuite) TestVerifyEmailWrongCode() {
	suite.register("ava@example.com")

	err := suite.service.VerifyEmail("ava@example.com", "bogus")
	suite.True(errs.IsKind(err, errs.KindPreconditionFailed))
}

func (suite *AuthServiceTestSuite) TestForgotPasswordUnknownEmailIsSilent() {
	suite.NoError(suite.service.ForgotPassword("nobody@example.com"))
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceTestSuite))
}
