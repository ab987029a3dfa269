// internal/services/order_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
)

type OrderServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *OrderService

	buyer    *models.User
	seller   *models.User
	admin    *models.User
	product  *models.Product
	buyerAct Actor
	adminAct Actor
}

func (suite *OrderServiceTestSuite) SetupTest() {
	suite.db = setupTestDB(suite.T())
	suite.service = NewOrderService(suite.db, testPolicy(), nil)

	suite.buyer = createTestUser(suite.T(), suite.db, models.UserRoleBuyer)
	suite.seller = createTestUser(suite.T(), suite.db, models.UserRoleSeller)
	suite.admin = createTestUser(suite.T(), suite.db, models.UserRoleAdmin)
	suite.product = createTestProduct(suite.T(), suite.db, suite.seller.ID, 12.50, 10)

	suite.buyerAct = Actor{ID: suite.buyer.ID, Role: models.UserRoleBuyer}
	suite.adminAct = Actor{ID: suite.admin.ID, Role: models.UserRoleAdmin}
}

func (suite *OrderServiceTestSuite) TestCreateOrder() {
	order, err := suite.service.CreateOrder(suite.buyer.ID, &CreateOrderRequest{
		Items: []OrderLineRequest{{ProductID: suite.product.ID, Quantity: 3}},
	})
	suite.Require().NoError(err)

	suite.Equal(models.OrderStatusPending, order.Status)
	suite.InDelta(37.50, order.TotalAmount, 0.001)
	suite.Len(order.Items, 1)
	suite.Equal(12.50, order.Items[0].UnitPrice)

	var product models.Product
	suite.Require().NoError(suite.db.First(&product, "id = ?", suite.product.ID).Error)
	suite.Equal(7, product.Stock)
	suite.Equal(int64(3), product.SalesCount)
}

func (suite *OrderServiceTestSuite) TestCreateOrderInsufficientStock() {
	_, err := suite.service.CreateOrder(suite.buyer.ID, &CreateOrderRequest{
		Items: []OrderLineRequest{{ProductID: suite.product.ID, Quantity: 99}},
	})
	suite.True(errs.IsKind(err, errs.KindPreconditionFailed))
}

func (suite *OrderServiceTestSuite) TestCreateOrderInactiveProduct() {
	suite.db.Model(&models.Product{}).Where("id = ?", suite.product.ID).
		UpdateColumn("status", models.ProductStatusDraft)

	_, err := suite.service.CreateOrder(suite.buyer.ID, &CreateOrderRequest{
		Items: []OrderLineRequest{{ProductID: suite.product.ID, Quantity: 1}},
	})
	suite.True(errs.IsKind(err, errs.KindPreconditionFailed))
}

func (suite *OrderServiceTestSuite) TestFullFulfillmentPath() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)

	for _, target := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
	} {
		updated, err := suite.service.Transition(order.ID, target, suite.adminAct)
		suite.Require().NoError(err)
		suite.Equal(target, updated.Status)
	}

	var stored models.Order
	suite.Require().NoError(suite.db.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	suite.Equal(models.OrderStatusDelivered, stored.Status)
	suite.NotNil(stored.DeliveredAt)
	for _, item := range stored.Items {
		suite.Equal(models.OrderStatusDelivered, item.Status)
		suite.NotNil(item.DeliveredAt)
	}
}

func (suite *OrderServiceTestSuite) TestTransitionCannotSkip() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)

	_, err := suite.service.Transition(order.ID, models.OrderStatusShipped, suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindInvalidTransition))

	_, err = suite.service.Transition(order.ID, models.OrderStatusDelivered, suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindInvalidTransition))
}

func (suite *OrderServiceTestSuite) TestTransitionCannotGoBackward() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusShipped, suite.product.ID)

	_, err := suite.service.Transition(order.ID, models.OrderStatusProcessing, suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindInvalidTransition))
}

func (suite *OrderServiceTestSuite) TestBuyerCannotAdvance() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)

	_, err := suite.service.Transition(order.ID, models.OrderStatusProcessing, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *OrderServiceTestSuite) TestBuyerCanCancelOwnOrder() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusShipped, suite.product.ID)

	updated, err := suite.service.Transition(order.ID, models.OrderStatusCancelled, suite.buyerAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusCancelled, updated.Status)
}

func (suite *OrderServiceTestSuite) TestStrangerCannotCancel() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)
	stranger := createTestUser(suite.T(), suite.db, models.UserRoleBuyer)

	_, err := suite.service.Transition(order.ID, models.OrderStatusCancelled,
		Actor{ID: stranger.ID, Role: models.UserRoleBuyer})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func (suite *OrderServiceTestSuite) TestCannotCancelDeliveredOrder() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusDelivered, suite.product.ID)

	_, err := suite.service.Transition(order.ID, models.OrderStatusCancelled, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindInvalidTransition))
}

func (suite *OrderServiceTestSuite) TestTransitionUnknownOrder() {
	_, err := suite.service.Transition(suite.product.ID, models.OrderStatusProcessing, suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindNotFound))
}

func (suite *OrderServiceTestSuite) TestTransitionUnknownStatus() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)

	_, err := suite.service.Transition(order.ID, models.OrderStatus("refunded"), suite.adminAct)
	suite.True(errs.IsKind(err, errs.KindValidation))
}

func (suite *OrderServiceTestSuite) TestPartialFulfillmentDerivesOverallStatus() {
	second := createTestProduct(suite.T(), suite.db, suite.seller.ID, 5.00, 10)
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending,
		suite.product.ID, second.ID)

	// Advance one item to processing; the other stays pending.
	updated, err := suite.service.TransitionItem(order.ID, order.Items[0].ID,
		models.OrderStatusProcessing, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusPending, updated.Status)

	// Once both items are processing the order follows.
	updated, err = suite.service.TransitionItem(order.ID, order.Items[1].ID,
		models.OrderStatusProcessing, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusProcessing, updated.Status)
}

func (suite *OrderServiceTestSuite) TestCancellingOneItemKeepsOrderAlive() {
	second := createTestProduct(suite.T(), suite.db, suite.seller.ID, 5.00, 10)
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusProcessing,
		suite.product.ID, second.ID)

	updated, err := suite.service.TransitionItem(order.ID, order.Items[0].ID,
		models.OrderStatusCancelled, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusProcessing, updated.Status)

	// Cancelling the last live item cancels the order.
	updated, err = suite.service.TransitionItem(order.ID, order.Items[1].ID,
		models.OrderStatusCancelled, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusCancelled, updated.Status)
}

func (suite *OrderServiceTestSuite) TestWholeOrderTransitionKeepsAdvancedItems() {
	second := createTestProduct(suite.T(), suite.db, suite.seller.ID, 5.00, 10)
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending,
		suite.product.ID, second.ID)

	// Push the first item ahead of the rest of the order.
	for _, target := range []models.OrderStatus{
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
	} {
		_, err := suite.service.TransitionItem(order.ID, order.Items[0].ID, target, suite.adminAct)
		suite.Require().NoError(err)
	}

	updated, err := suite.service.Transition(order.ID, models.OrderStatusProcessing, suite.adminAct)
	suite.Require().NoError(err)
	suite.Equal(models.OrderStatusProcessing, updated.Status)

	// The shipped item must not be pulled back to processing.
	var stored models.Order
	suite.Require().NoError(suite.db.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	for _, item := range stored.Items {
		if item.ID == order.Items[0].ID {
			suite.Equal(models.OrderStatusShipped, item.Status)
		} else {
			suite.Equal(models.OrderStatusProcessing, item.Status)
		}
	}
}

func (suite *OrderServiceTestSuite) TestCannotCancelPartiallyDeliveredOrder() {
	second := createTestProduct(suite.T(), suite.db, suite.seller.ID, 5.00, 10)
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusShipped,
		suite.product.ID, second.ID)

	_, err := suite.service.TransitionItem(order.ID, order.Items[0].ID,
		models.OrderStatusDelivered, suite.adminAct)
	suite.Require().NoError(err)

	_, err = suite.service.Transition(order.ID, models.OrderStatusCancelled, suite.buyerAct)
	suite.True(errs.IsKind(err, errs.KindInvalidTransition))

	// Nothing moved: the delivered item stays delivered, the live item
	// stays shipped, and the order never reports delivered or cancelled.
	var stored models.Order
	suite.Require().NoError(suite.db.Preload("Items").First(&stored, "id = ?", order.ID).Error)
	suite.Equal(models.OrderStatusShipped, stored.Status)
	suite.Nil(stored.DeliveredAt)
	for _, item := range stored.Items {
		if item.ID == order.Items[0].ID {
			suite.Equal(models.OrderStatusDelivered, item.Status)
		} else {
			suite.Equal(models.OrderStatusShipped, item.Status)
		}
	}
}

func (suite *OrderServiceTestSuite) TestGetOrderOwnerAndStranger() {
	order := createTestOrder(suite.T(), suite.db, suite.buyer.ID, models.OrderStatusPending, suite.product.ID)

	got, err := suite.service.GetOrder(order.ID, suite.buyerAct)
	suite.Require().NoError(err)
	suite.Equal(order.ID, got.ID)

	stranger := createTestUser(suite.T(), suite.db, models.UserRoleBuyer)
	_, err = suite.service.GetOrder(order.ID, Actor{ID: stranger.ID, Role: models.UserRoleBuyer})
	suite.True(errs.IsKind(err, errs.KindForbidden))
}

func TestOrderServiceSuite(t *testing.T) {
	suite.Run(t, new(OrderServiceTestSuite))
}
