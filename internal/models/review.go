// internal/models/review.go
package models

import (
	"github.com/google/uuid"
)

type Review struct {
	BaseModel
	ProductID uuid.UUID `json:"product_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_user_order_product"`
	UserID    uuid.UUID `json:"user_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_user_order_product"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_reviews_user_order_product"`

	Rating  int    `json:"rating" gorm:"not null"`
	Title   string `json:"title" gorm:"size:255;not null"`
	Content string `json:"content" gorm:"type:text"`

	Status         ModerationStatus `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	ModeratorNotes string           `json:"moderator_notes,omitempty" gorm:"type:text"`

	// Purchase-backed reviews are flagged verified at creation.
	IsVerified      bool  `json:"is_verified" gorm:"default:false"`
	HelpfulCount    int64 `json:"helpful_count" gorm:"default:0"`
	NotHelpfulCount int64 `json:"not_helpful_count" gorm:"default:0"`

	// Relationships
	Product Product `json:"product,omitempty" gorm:"foreignKey:ProductID"`
	User    User    `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Order   Order   `json:"order,omitempty" gorm:"foreignKey:OrderID"`
}

// ReviewStatistics is the aggregate over approved reviews of a product.
type ReviewStatistics struct {
	ProductID     uuid.UUID     `json:"product_id"`
	ApprovedCount int64         `json:"approved_count"`
	AverageRating float64       `json:"average_rating"`
	Distribution  map[int]int64 `json:"distribution"`
}
