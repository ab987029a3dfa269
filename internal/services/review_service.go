// internal/services/review_service.go
package services

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type ReviewService struct {
	db                  *gorm.DB
	policy              *Policy
	notificationService *NotificationService
}

type SubmitReviewRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	OrderID   uuid.UUID `json:"order_id" validate:"required"`
	Rating    int       `json:"rating"`
	Title     string    `json:"title" validate:"required,max=255"`
	Content   string    `json:"content" validate:"max=5000"`
}

type ModerateReviewRequest struct {
	Status models.ModerationStatus `json:"status" validate:"required"`
	Notes  string                  `json:"notes,omitempty" validate:"max=2000"`
}

func NewReviewService(db *gorm.DB, policy *Policy, notificationService *NotificationService) *ReviewService {
	return &ReviewService{
		db:                  db,
		policy:              policy,
		notificationService: notificationService,
	}
}

// SubmitReview is the eligibility gate. Preconditions run in order and
// short-circuit on the first failure: order exists, order belongs to
// the submitter, the product is among its line items, the order is
// delivered, the rating is in [1,5], and no review exists yet for this
// (user, order, product).
func (s *ReviewService) SubmitReview(userID uuid.UUID, req *SubmitReviewRequest) (*models.Review, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid review request: %v", err)
	}

	var review *models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, "id = ?", req.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("order not found")
			}
			return errs.Internal("failed to load order", err)
		}

		if order.UserID != userID {
			return errs.Forbidden("order does not belong to user")
		}

		if !order.ContainsProduct(req.ProductID) {
			return errs.NotFound("product not in order")
		}

		if order.Status != models.OrderStatusDelivered {
			return errs.PreconditionFailed("order must be delivered before review")
		}

		if req.Rating < 1 || req.Rating > 5 {
			return errs.Validation("rating must be an integer between 1 and 5")
		}

		var existing int64
		if err := tx.Model(&models.Review{}).
			Where("user_id = ? AND order_id = ? AND product_id = ?", userID, req.OrderID, req.ProductID).
			Count(&existing).Error; err != nil {
			return errs.Internal("failed to check existing review", err)
		}
		if existing > 0 {
			return errs.PreconditionFailed("review already submitted for this purchase")
		}

		review = &models.Review{
			ProductID:  req.ProductID,
			UserID:     userID,
			OrderID:    req.OrderID,
			Rating:     req.Rating,
			Title:      req.Title,
			Content:    req.Content,
			Status:     models.ModerationStatusPending,
			IsVerified: true, // purchase-backed
		}
		if err := tx.Create(review).Error; err != nil {
			return errs.Internal("failed to create review", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return review, nil
}

// Moderate transitions a review among pending/approved/rejected.
// Moderation is corrective, not a progress machine: any-to-any moves
// are allowed.
func (s *ReviewService) Moderate(reviewID uuid.UUID, req *ModerateReviewRequest, actor Actor) (*models.Review, error) {
	if err := s.policy.Authorize(actor, ActionReviewModerate, nil); err != nil {
		return nil, err
	}

	if !req.Status.Valid() {
		return nil, errs.Validation("unknown moderation status %q", req.Status)
	}

	var review models.Review
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("User").First(&review, "id = ?", reviewID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("review not found")
			}
			return errs.Internal("failed to load review", err)
		}

		review.Status = req.Status
		review.ModeratorNotes = req.Notes
		if err := tx.Model(&review).
			Select("status", "moderator_notes").Updates(&review).Error; err != nil {
			return errs.Internal("failed to update review", err)
		}

		return s.refreshProductAggregate(tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		go s.notificationService.SendReviewModeratedEmail(&review)
	}

	return &review, nil
}

// MarkHelpful bumps one of the two counters by a single atomic update.
// Votes are not deduplicated per user; repeated calls keep counting.
func (s *ReviewService) MarkHelpful(reviewID uuid.UUID, isHelpful bool, actor Actor) error {
	column := "not_helpful_count"
	if isHelpful {
		column = "helpful_count"
	}

	result := s.db.Model(&models.Review{}).Where("id = ?", reviewID).
		UpdateColumn(column, gorm.Expr(column+" + 1"))
	if result.Error != nil {
		return errs.Internal("failed to record vote", result.Error)
	}
	if result.RowsAffected == 0 {
		return errs.NotFound("review not found")
	}
	return nil
}

// Statistics aggregates approved reviews for a product: count, mean
// rating (0 when there are none), and a 1-5 star histogram.
func (s *ReviewService) Statistics(productID uuid.UUID) (*models.ReviewStatistics, error) {
	stats := &models.ReviewStatistics{
		ProductID:    productID,
		Distribution: map[int]int64{1: 0, 2: 0, 3: 0, 4: 0, 5: 0},
	}

	var summary struct {
		Count int64
		Avg   float64
	}
	if err := s.db.Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, models.ModerationStatusApproved).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
		Scan(&summary).Error; err != nil {
		return nil, errs.Internal("failed to aggregate reviews", err)
	}

	stats.ApprovedCount = summary.Count
	if summary.Count > 0 {
		stats.AverageRating = summary.Avg
	}

	var buckets []struct {
		Rating int
		Count  int64
	}
	if err := s.db.Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, models.ModerationStatusApproved).
		Select("rating, COUNT(*) AS count").
		Group("rating").
		Scan(&buckets).Error; err != nil {
		return nil, errs.Internal("failed to build rating histogram", err)
	}
	for _, b := range buckets {
		if b.Rating >= 1 && b.Rating <= 5 {
			stats.Distribution[b.Rating] = b.Count
		}
	}

	return stats, nil
}

func (s *ReviewService) GetReview(id uuid.UUID) (*models.Review, error) {
	var review models.Review
	if err := s.db.Preload("User").First(&review, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("review not found")
		}
		return nil, errs.Internal("failed to load review", err)
	}
	return &review, nil
}

// ListForProduct returns approved reviews only; pending and rejected
// reviews are visible to moderators through ListPending.
func (s *ReviewService) ListForProduct(productID uuid.UUID, params utils.PaginationParams) ([]models.Review, int64, error) {
	query := s.db.Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, models.ModerationStatusApproved)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count reviews", err)
	}

	allowedSortFields := []string{"created_at", "rating", "helpful_count"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var reviews []models.Review
	if err := query.Preload("User").Find(&reviews).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch reviews", err)
	}

	return reviews, total, nil
}

func (s *ReviewService) ListPending(params utils.PaginationParams, actor Actor) ([]models.Review, int64, error) {
	if err := s.policy.Authorize(actor, ActionReviewModerate, nil); err != nil {
		return nil, 0, err
	}

	query := s.db.Model(&models.Review{}).Where("status = ?", models.ModerationStatusPending)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count pending reviews", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at"})
	query = utils.ApplyPagination(query, params)

	var reviews []models.Review
	if err := query.Preload("User").Preload("Product").Find(&reviews).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch pending reviews", err)
	}

	return reviews, total, nil
}

// refreshProductAggregate keeps the denormalized product rating in sync
// with its approved reviews.
func (s *ReviewService) refreshProductAggregate(tx *gorm.DB, productID uuid.UUID) error {
	var summary struct {
		Count int64
		Avg   float64
	}
	if err := tx.Model(&models.Review{}).
		Where("product_id = ? AND status = ?", productID, models.ModerationStatusApproved).
		Select("COUNT(*) AS count, COALESCE(AVG(rating), 0) AS avg").
		Scan(&summary).Error; err != nil {
		return errs.Internal("failed to aggregate reviews", err)
	}

	if err := tx.Model(&models.Product{}).Where("id = ?", productID).
		UpdateColumns(map[string]interface{}{
			"rating":       summary.Avg,
			"review_count": summary.Count,
		}).Error; err != nil {
		return errs.Internal("failed to refresh product rating", err)
	}
	return nil
}
