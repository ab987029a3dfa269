// internal/services/product_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type ProductService struct {
	db     *gorm.DB
	policy *Policy
}

type CreateProductRequest struct {
	Name        string     `json:"name" validate:"required,max=255"`
	Description string     `json:"description,omitempty" validate:"max=10000"`
	Price       float64    `json:"price" validate:"required,gt=0"`
	Stock       int        `json:"stock" validate:"min=0"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Images      []string   `json:"images,omitempty" validate:"max=10,dive,url"`
	Tags        []string   `json:"tags,omitempty" validate:"max=20,dive,max=50"`
}

type UpdateProductRequest struct {
	Name        *string    `json:"name,omitempty" validate:"omitempty,max=255"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=10000"`
	Price       *float64   `json:"price,omitempty" validate:"omitempty,gt=0"`
	Stock       *int       `json:"stock,omitempty" validate:"omitempty,min=0"`
	CategoryID  *uuid.UUID `json:"category_id,omitempty"`
	Images      []string   `json:"images,omitempty" validate:"omitempty,max=10,dive,url"`
	Tags        []string   `json:"tags,omitempty" validate:"omitempty,max=20,dive,max=50"`
	Status      *string    `json:"status,omitempty" validate:"omitempty,oneof=draft active"`
}

type SearchProductsFilter struct {
	Query        string   `form:"q"`
	CategorySlug string   `form:"category"`
	MinPrice     *float64 `form:"min_price"`
	MaxPrice     *float64 `form:"max_price"`
	InStock      bool     `form:"in_stock"`
	Tag          string   `form:"tag"`
	SellerID     string   `form:"seller_id"`
}

func NewProductService(db *gorm.DB, policy *Policy) *ProductService {
	return &ProductService{db: db, policy: policy}
}

func (s *ProductService) Create(sellerID uuid.UUID, req *CreateProductRequest) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid product request: %v", err)
	}

	var seller models.User
	if err := s.db.First(&seller, "id = ?", sellerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("seller not found")
		}
		return nil, errs.Internal("failed to load seller", err)
	}
	if seller.Role != models.UserRoleSeller && seller.Role != models.UserRoleAdmin {
		return nil, errs.Forbidden("seller account required")
	}
	if seller.Status != models.UserStatusActive {
		return nil, errs.PreconditionFailed("account is not active")
	}

	if req.CategoryID != nil {
		if err := s.ensureCategoryExists(*req.CategoryID); err != nil {
			return nil, err
		}
	}

	product := &models.Product{
		SellerID:    sellerID,
		CategoryID:  req.CategoryID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Images:      pq.StringArray(req.Images),
		Tags:        pq.StringArray(req.Tags),
		Status:      models.ProductStatusDraft,
	}
	if err := s.db.Create(product).Error; err != nil {
		return nil, errs.Internal("failed to create product", err)
	}
	return product, nil
}

// Get loads a product and bumps its view counter out of band.
func (s *ProductService) Get(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.Preload("Seller").Preload("Category").
		First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("product not found")
		}
		return nil, errs.Internal("failed to load product", err)
	}

	go func() {
		s.db.Model(&models.Product{}).Where("id = ?", id).
			UpdateColumn("view_count", gorm.Expr("view_count + 1"))
	}()

	return &product, nil
}

func (s *ProductService) Update(id uuid.UUID, req *UpdateProductRequest, actor Actor) (*models.Product, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid product request: %v", err)
	}

	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("product not found")
		}
		return nil, errs.Internal("failed to load product", err)
	}

	if product.SellerID != actor.ID && actor.Role != models.UserRoleAdmin {
		return nil, errs.Forbidden("product does not belong to seller")
	}
	if product.Status == models.ProductStatusSuspended && actor.Role != models.UserRoleAdmin {
		return nil, errs.PreconditionFailed("suspended products can only be edited by an administrator")
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = *req.Description
	}
	if req.Price != nil {
		product.Price = *req.Price
	}
	if req.Stock != nil {
		product.Stock = *req.Stock
	}
	if req.CategoryID != nil {
		if err := s.ensureCategoryExists(*req.CategoryID); err != nil {
			return nil, err
		}
		product.CategoryID = req.CategoryID
	}
	if req.Images != nil {
		product.Images = pq.StringArray(req.Images)
	}
	if req.Tags != nil {
		product.Tags = pq.StringArray(req.Tags)
	}
	if req.Status != nil {
		product.Status = models.ProductStatus(*req.Status)
	}

	if err := s.db.Save(&product).Error; err != nil {
		return nil, errs.Internal("failed to update product", err)
	}
	return &product, nil
}

func (s *ProductService) Delete(id uuid.UUID, actor Actor) error {
	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errs.NotFound("product not found")
		}
		return errs.Internal("failed to load product", err)
	}

	if product.SellerID != actor.ID && actor.Role != models.UserRoleAdmin {
		return errs.Forbidden("product does not belong to seller")
	}

	if err := s.db.Delete(&product).Error; err != nil {
		return errs.Internal("failed to delete product", err)
	}
	return nil
}

// Search lists active products with optional text, category, price
// range, tag, and stock filters.
func (s *ProductService) Search(filter SearchProductsFilter, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Where("status = ?", models.ProductStatusActive)

	if filter.CategorySlug != "" {
		var category models.Category
		if err := s.db.First(&category, "slug = ?", filter.CategorySlug).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, errs.NotFound("category not found")
			}
			return nil, 0, errs.Internal("failed to load category", err)
		}
		// A root category matches its own products and its children's.
		if category.Level == 1 {
			query = query.Where(
				"category_id = ? OR category_id IN (SELECT id FROM categories WHERE parent_id = ?)",
				category.ID, category.ID)
		} else {
			query = query.Where("category_id = ?", category.ID)
		}
	}

	if filter.Query != "" {
		pattern := "%" + filter.Query + "%"
		query = query.Where("name ILIKE ? OR description ILIKE ?", pattern, pattern)
	}
	if filter.MinPrice != nil {
		query = query.Where("price >= ?", *filter.MinPrice)
	}
	if filter.MaxPrice != nil {
		query = query.Where("price <= ?", *filter.MaxPrice)
	}
	if filter.InStock {
		query = query.Where("stock > 0")
	}
	if filter.Tag != "" {
		query = query.Where("? = ANY(tags)", filter.Tag)
	}
	if filter.SellerID != "" {
		if sellerID, err := uuid.Parse(filter.SellerID); err == nil {
			query = query.Where("seller_id = ?", sellerID)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count products", err)
	}

	allowedSortFields := []string{"created_at", "price", "rating", "sales_count", "view_count", "name"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Preload("Category").Find(&products).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch products", err)
	}
	return products, total, nil
}

func (s *ProductService) Featured(limit int) ([]models.Product, error) {
	if limit <= 0 || limit > 50 {
		limit = 12
	}
	var products []models.Product
	err := s.db.
		Where("status = ? AND is_featured = ?", models.ProductStatusActive, true).
		Order("sales_count DESC").
		Limit(limit).
		Preload("Category").
		Find(&products).Error
	if err != nil {
		return nil, errs.Internal("failed to fetch featured products", err)
	}
	return products, nil
}

func (s *ProductService) ListForSeller(sellerID uuid.UUID, params utils.PaginationParams) ([]models.Product, int64, error) {
	query := s.db.Model(&models.Product{}).Where("seller_id = ?", sellerID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count products", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "price", "stock", "status"})
	query = utils.ApplyPagination(query, params)

	var products []models.Product
	if err := query.Find(&products).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch products", err)
	}
	return products, total, nil
}

// SetStatus is the admin lever for suspending or restoring a listing.
func (s *ProductService) SetStatus(id uuid.UUID, status models.ProductStatus, actor Actor) (*models.Product, error) {
	if err := s.policy.Authorize(actor, ActionUserAdminister, nil); err != nil {
		return nil, err
	}
	if status != models.ProductStatusActive && status != models.ProductStatusSuspended && status != models.ProductStatusDraft {
		return nil, errs.Validation("unknown product status %q", status)
	}

	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("product not found")
		}
		return nil, errs.Internal("failed to load product", err)
	}

	product.Status = status
	if err := s.db.Model(&product).UpdateColumn("status", status).Error; err != nil {
		return nil, errs.Internal("failed to update product status", err)
	}
	return &product, nil
}

func (s *ProductService) ensureCategoryExists(id uuid.UUID) error {
	var count int64
	if err := s.db.Model(&models.Category{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return errs.Internal("failed to check category", err)
	}
	if count == 0 {
		return errs.NotFound("category not found")
	}
	return nil
}
