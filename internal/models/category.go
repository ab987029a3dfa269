// internal/models/category.go
package models

import (
	"github.com/google/uuid"
)

// MaxCategoryDepth bounds the tree: roots at level 1, subcategories at
// level 2. The store itself does not guarantee tree shape, so writes
// enforce it explicitly.
const MaxCategoryDepth = 2

type Category struct {
	BaseModel
	Name        string     `json:"name" gorm:"size:100;not null"`
	Slug        string     `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	Description string     `json:"description,omitempty" gorm:"type:text"`
	ParentID    *uuid.UUID `json:"parent_id" gorm:"type:uuid;index"`
	Level       int        `json:"level" gorm:"default:1"`
	ImageURL    string     `json:"image_url,omitempty" gorm:"size:500"`
	IsFeatured  bool       `json:"is_featured" gorm:"default:false"`
	IsActive    bool       `json:"is_active" gorm:"default:true"`
	SortOrder   int        `json:"sort_order" gorm:"default:0"`

	// Relationships
	Parent   *Category  `json:"parent,omitempty" gorm:"foreignKey:ParentID"`
	Children []Category `json:"children,omitempty" gorm:"foreignKey:ParentID"`
	Products []Product  `json:"products,omitempty" gorm:"foreignKey:CategoryID"`
}
