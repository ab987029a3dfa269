// internal/services/user_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type UserService struct {
	db     *gorm.DB
	policy *Policy
}

type UpdateProfileRequest struct {
	FirstName   *string                `json:"first_name,omitempty" validate:"omitempty,max=100"`
	LastName    *string                `json:"last_name,omitempty" validate:"omitempty,max=100"`
	Phone       *string                `json:"phone,omitempty" validate:"omitempty,max=32"`
	ProfileData map[string]interface{} `json:"profile_data,omitempty"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,strong_password"`
}

type ListUsersFilter struct {
	Role   string `form:"role"`
	Status string `form:"status"`
	Search string `form:"search"`
}

func NewUserService(db *gorm.DB, policy *Policy) *UserService {
	return &UserService{db: db, policy: policy}
}

func (s *UserService) GetProfile(userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to load user", err)
	}
	return &user, nil
}

func (s *UserService) UpdateProfile(userID uuid.UUID, req *UpdateProfileRequest) (*models.User, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid profile request: %v", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to load user", err)
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.ProfileData != nil {
		if user.ProfileData == nil {
			user.ProfileData = models.JSONB{}
		}
		for k, v := range req.ProfileData {
			user.ProfileData[k] = v
		}
	}

	if err := s.db.Save(&user).Error; err != nil {
		return nil, errs.Internal("failed to update profile", err)
	}
	return &user, nil
}

func (s *UserService) ChangePassword(userID uuid.UUID, req *ChangePasswordRequest) error {
	if err := utils.ValidateStruct(req); err != nil {
		return errs.Validation("invalid password request: %v", err)
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("user not found")
		}
		return errs.Internal("failed to load user", err)
	}

	if err := user.CheckPassword(req.CurrentPassword); err != nil {
		return errs.Forbidden("current password is incorrect")
	}
	if err := user.SetPassword(req.NewPassword); err != nil {
		return errs.Internal("failed to hash password", err)
	}
	if err := s.db.Model(&user).UpdateColumn("password_hash", user.PasswordHash).Error; err != nil {
		return errs.Internal("failed to update password", err)
	}
	return nil
}

// ListUsers is the admin directory with optional role/status filters
// and a name/email search.
func (s *UserService) ListUsers(filter ListUsersFilter, params utils.PaginationParams, actor Actor) ([]models.User, int64, error) {
	if err := s.policy.Authorize(actor, ActionUserAdminister, nil); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?",
			pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count users", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "email", "last_login_at"})
	query = utils.ApplyPagination(query, params)

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch users", err)
	}
	return users, total, nil
}

// UpdateStatus suspends or reactivates an account. Admins cannot
// suspend themselves, which keeps at least one active administrator.
func (s *UserService) UpdateStatus(userID uuid.UUID, status models.UserStatus, actor Actor) (*models.User, error) {
	if err := s.policy.Authorize(actor, ActionUserAdminister, nil); err != nil {
		return nil, err
	}
	if status != models.UserStatusActive && status != models.UserStatusSuspended {
		return nil, errs.Validation("unknown user status %q", status)
	}
	if userID == actor.ID && status == models.UserStatusSuspended {
		return nil, errs.PreconditionFailed("cannot suspend your own account")
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("user not found")
		}
		return nil, errs.Internal("failed to load user", err)
	}

	user.Status = status
	if err := s.db.Model(&user).UpdateColumn("status", status).Error; err != nil {
		return nil, errs.Internal("failed to update user status", err)
	}
	return &user, nil
}
