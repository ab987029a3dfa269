// internal/services/testhelpers_test.go
package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/ecobazar/marketplace-backend/internal/config"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.Order{},
		&models.OrderItem{},
		&models.Review{},
	)
	require.NoError(t, err)

	return db
}

func testPolicy() *Policy {
	return NewPolicy(config.PolicyConfig{
		OrderOperatorRoles: []string{"admin", "seller"},
		ModeratorRoles:     []string{"admin"},
	})
}

func createTestUser(t *testing.T, db *gorm.DB, role models.UserRole) *models.User {
	user := &models.User{
		Email:     uuid.New().String() + "@example.com",
		FirstName: "Test",
		LastName:  "User",
		Role:      role,
		Status:    models.UserStatusActive,
	}
	require.NoError(t, user.SetPassword("TestPass123!"))
	require.NoError(t, db.Create(user).Error)
	return user
}

func createTestProduct(t *testing.T, db *gorm.DB, sellerID uuid.UUID, price float64, stock int) *models.Product {
	product := &models.Product{
		SellerID: sellerID,
		Name:     "Organic Apples",
		Price:    price,
		Stock:    stock,
		Status:   models.ProductStatusActive,
	}
	require.NoError(t, db.Create(product).Error)
	return product
}

// createTestOrder inserts an order with one line item per product, all
// items in the given status.
func createTestOrder(t *testing.T, db *gorm.DB, userID uuid.UUID, status models.OrderStatus, productIDs ...uuid.UUID) *models.Order {
	order := &models.Order{
		UserID: userID,
		Status: status,
	}
	for _, pid := range productIDs {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: pid,
			Quantity:  1,
			UnitPrice: 9.99,
			Status:    status,
		})
		order.TotalAmount += 9.99
	}
	require.NoError(t, db.Create(order).Error)
	return order
}
