// internal/services/category_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type CategoryService struct {
	db     *gorm.DB
	policy *Policy
}

type CreateCategoryRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Slug        string     `json:"slug" validate:"required,slug,max=255"`
	Description string     `json:"description,omitempty" validate:"max=2000"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL    string     `json:"image_url,omitempty" validate:"omitempty,url"`
	IsFeatured  bool       `json:"is_featured,omitempty"`
	SortOrder   int        `json:"sort_order,omitempty"`
}

type UpdateCategoryRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Slug        *string    `json:"slug,omitempty" validate:"omitempty,slug,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=2000"`
	ParentID    *uuid.UUID `json:"parent_id,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty" validate:"omitempty,url"`
	IsFeatured  *bool      `json:"is_featured,omitempty"`
	IsActive    *bool      `json:"is_active,omitempty"`
	SortOrder   *int       `json:"sort_order,omitempty"`
}

func NewCategoryService(db *gorm.DB, policy *Policy) *CategoryService {
	return &CategoryService{db: db, policy: policy}
}

// Tree returns active root categories with their children, ordered by
// sort_order then name at both levels. The hierarchy is two levels
// deep, so one preload covers it.
func (s *CategoryService) Tree() ([]models.Category, error) {
	var roots []models.Category
	err := s.db.
		Where("parent_id IS NULL AND is_active = ?", true).
		Order("sort_order ASC, name ASC").
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
		}).
		Find(&roots).Error
	if err != nil {
		return nil, errs.Internal("failed to load category tree", err)
	}
	return roots, nil
}

func (s *CategoryService) GetBySlug(slug string) (*models.Category, error) {
	var category models.Category
	err := s.db.
		Preload("Children", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("sort_order ASC, name ASC")
		}).
		First(&category, "slug = ? AND is_active = ?", slug, true).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("category not found")
		}
		return nil, errs.Internal("failed to load category", err)
	}
	return &category, nil
}

func (s *CategoryService) Get(id uuid.UUID) (*models.Category, error) {
	var category models.Category
	if err := s.db.Preload("Children").First(&category, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("category not found")
		}
		return nil, errs.Internal("failed to load category", err)
	}
	return &category, nil
}

// Create inserts a category. Its level is derived from the parent, and
// the tree is capped at MaxCategoryDepth levels.
func (s *CategoryService) Create(req *CreateCategoryRequest, actor Actor) (*models.Category, error) {
	if err := s.policy.Authorize(actor, ActionCategoryManage, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid category request: %v", err)
	}

	var category *models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		level, err := s.levelFor(tx, req.ParentID, nil)
		if err != nil {
			return err
		}

		if err := s.ensureSlugFree(tx, req.Slug, nil); err != nil {
			return err
		}

		category = &models.Category{
			Name:        req.Name,
			Slug:        req.Slug,
			Description: req.Description,
			ParentID:    req.ParentID,
			Level:       level,
			ImageURL:    req.ImageURL,
			IsFeatured:  req.IsFeatured,
			IsActive:    true,
			SortOrder:   req.SortOrder,
		}
		if err := tx.Create(category).Error; err != nil {
			return errs.Internal("failed to create category", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return category, nil
}

// Update applies partial changes. Re-parenting re-derives the level and
// rejects moves that would exceed the depth cap or create a cycle.
func (s *CategoryService) Update(id uuid.UUID, req *UpdateCategoryRequest, actor Actor) (*models.Category, error) {
	if err := s.policy.Authorize(actor, ActionCategoryManage, nil); err != nil {
		return nil, err
	}
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid category request: %v", err)
	}

	var category models.Category
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category not found")
			}
			return errs.Internal("failed to load category", err)
		}

		if req.Name != nil {
			category.Name = *req.Name
		}
		if req.Slug != nil && *req.Slug != category.Slug {
			if err := s.ensureSlugFree(tx, *req.Slug, &id); err != nil {
				return err
			}
			category.Slug = *req.Slug
		}
		if req.Description != nil {
			category.Description = *req.Description
		}
		if req.ImageURL != nil {
			category.ImageURL = *req.ImageURL
		}
		if req.IsFeatured != nil {
			category.IsFeatured = *req.IsFeatured
		}
		if req.IsActive != nil {
			category.IsActive = *req.IsActive
		}
		if req.SortOrder != nil {
			category.SortOrder = *req.SortOrder
		}

		if req.ParentID != nil {
			level, err := s.levelFor(tx, req.ParentID, &id)
			if err != nil {
				return err
			}
			var childCount int64
			if err := tx.Model(&models.Category{}).
				Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
				return errs.Internal("failed to count children", err)
			}
			if childCount > 0 && level+1 > models.MaxCategoryDepth {
				return errs.Validation("moving this category would exceed the maximum depth")
			}
			category.ParentID = req.ParentID
			category.Level = level
		}

		if err := tx.Save(&category).Error; err != nil {
			return errs.Internal("failed to update category", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &category, nil
}

// Delete soft-deletes a category. Categories with children or attached
// products are kept to avoid orphaning either.
func (s *CategoryService) Delete(id uuid.UUID, actor Actor) error {
	if err := s.policy.Authorize(actor, ActionCategoryManage, nil); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var category models.Category
		if err := tx.First(&category, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("category not found")
			}
			return errs.Internal("failed to load category", err)
		}

		var childCount int64
		if err := tx.Model(&models.Category{}).
			Where("parent_id = ?", id).Count(&childCount).Error; err != nil {
			return errs.Internal("failed to count children", err)
		}
		if childCount > 0 {
			return errs.PreconditionFailed("category has subcategories")
		}

		var productCount int64
		if err := tx.Model(&models.Product{}).
			Where("category_id = ?", id).Count(&productCount).Error; err != nil {
			return errs.Internal("failed to count products", err)
		}
		if productCount > 0 {
			return errs.PreconditionFailed("category has products")
		}

		if err := tx.Delete(&category).Error; err != nil {
			return errs.Internal("failed to delete category", err)
		}
		return nil
	})
}

// levelFor resolves the level a node gets under the requested parent:
// 1 for roots, parent.Level+1 otherwise. It rejects depths beyond
// MaxCategoryDepth and, when selfID is set, walks the ancestry to
// reject cycles.
func (s *CategoryService) levelFor(tx *gorm.DB, parentID *uuid.UUID, selfID *uuid.UUID) (int, error) {
	if parentID == nil {
		return 1, nil
	}

	if selfID != nil && *parentID == *selfID {
		return 0, errs.Validation("category cannot be its own parent")
	}

	var parent models.Category
	if err := tx.First(&parent, "id = ?", *parentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errs.NotFound("parent category not found")
		}
		return 0, errs.Internal("failed to load parent category", err)
	}

	if parent.Level >= models.MaxCategoryDepth {
		return 0, errs.Validation("categories may be at most %d levels deep", models.MaxCategoryDepth)
	}

	if selfID != nil {
		cursor := parent
		for cursor.ParentID != nil {
			if *cursor.ParentID == *selfID {
				return 0, errs.Validation("category cannot be moved under its own descendant")
			}
			var next models.Category
			if err := tx.First(&next, "id = ?", *cursor.ParentID).Error; err != nil {
				return 0, errs.Internal("failed to walk category ancestry", err)
			}
			cursor = next
		}
	}

	return parent.Level + 1, nil
}

func (s *CategoryService) ensureSlugFree(tx *gorm.DB, slug string, excludeID *uuid.UUID) error {
	query := tx.Model(&models.Category{}).Where("slug = ?", slug)
	if excludeID != nil {
		query = query.Where("id != ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return errs.Internal("failed to check slug", err)
	}
	if count > 0 {
		return errs.Conflict("slug %q is already in use", slug)
	}
	return nil
}
