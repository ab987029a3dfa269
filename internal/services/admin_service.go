// internal/services/admin_service.go
package services

import (
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

type AdminService struct {
	db     *gorm.DB
	policy *Policy
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalUsers     int64            `json:"total_users"`
	TotalProducts  int64            `json:"total_products"`
	TotalOrders    int64            `json:"total_orders"`
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	PendingReviews int64            `json:"pending_reviews"`
	Revenue        float64          `json:"revenue"`
}

func NewAdminService(db *gorm.DB, policy *Policy) *AdminService {
	return &AdminService{db: db, policy: policy}
}

func (s *AdminService) GetDashboardStats(actor Actor) (*DashboardStats, error) {
	if err := s.policy.Authorize(actor, ActionUserAdminister, nil); err != nil {
		return nil, err
	}

	stats := &DashboardStats{OrdersByStatus: make(map[string]int64)}

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, errs.Internal("failed to count users", err)
	}
	if err := s.db.Model(&models.Product{}).Count(&stats.TotalProducts).Error; err != nil {
		return nil, errs.Internal("failed to count products", err)
	}
	if err := s.db.Model(&models.Order{}).Count(&stats.TotalOrders).Error; err != nil {
		return nil, errs.Internal("failed to count orders", err)
	}
	if err := s.db.Model(&models.Review{}).
		Where("status = ?", models.ModerationStatusPending).
		Count(&stats.PendingReviews).Error; err != nil {
		return nil, errs.Internal("failed to count pending reviews", err)
	}

	var byStatus []struct {
		Status string
		Count  int64
	}
	if err := s.db.Model(&models.Order{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&byStatus).Error; err != nil {
		return nil, errs.Internal("failed to group orders", err)
	}
	for _, row := range byStatus {
		stats.OrdersByStatus[row.Status] = row.Count
	}

	// Revenue counts completed business only.
	var revenue struct {
		Total float64
	}
	if err := s.db.Model(&models.Order{}).
		Where("status = ?", models.OrderStatusDelivered).
		Select("COALESCE(SUM(total_amount), 0) AS total").
		Scan(&revenue).Error; err != nil {
		return nil, errs.Internal("failed to sum revenue", err)
	}
	stats.Revenue = revenue.Total

	return stats, nil
}
