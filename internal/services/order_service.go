// internal/services/order_service.go
package services

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecobazar/marketplace-backend/internal/errs"
	"github.com/ecobazar/marketplace-backend/internal/models"
	"github.com/ecobazar/marketplace-backend/internal/utils"
)

type OrderService struct {
	db                  *gorm.DB
	policy              *Policy
	notificationService *NotificationService
}

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"required,min=1"`
}

type CreateOrderRequest struct {
	Items      []OrderLineRequest     `json:"items" validate:"required,min=1,dive"`
	ShippingTo map[string]interface{} `json:"shipping_to,omitempty"`
}

func NewOrderService(db *gorm.DB, policy *Policy, notificationService *NotificationService) *OrderService {
	return &OrderService{
		db:                  db,
		policy:              policy,
		notificationService: notificationService,
	}
}

// CreateOrder snapshots product prices into line items and reserves
// stock. The order starts pending; payment settlement is outside this
// service.
func (s *OrderService) CreateOrder(userID uuid.UUID, req *CreateOrderRequest) (*models.Order, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, errs.Validation("invalid order request: %v", err)
	}

	var order *models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var buyer models.User
		if err := tx.First(&buyer, "id = ?", userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("user not found")
			}
			return errs.Internal("failed to load user", err)
		}
		if buyer.Status != models.UserStatusActive {
			return errs.PreconditionFailed("account is not active")
		}

		order = &models.Order{
			UserID:     userID,
			Status:     models.OrderStatusPending,
			ShippingTo: models.JSONB(req.ShippingTo),
		}

		var total float64
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			var product models.Product
			if err := tx.First(&product, "id = ?", line.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return errs.NotFound("product %s not found", line.ProductID)
				}
				return errs.Internal("failed to load product", err)
			}
			if product.Status != models.ProductStatusActive {
				return errs.PreconditionFailed("product %s is not available", product.Name)
			}
			if product.Stock < line.Quantity {
				return errs.PreconditionFailed("insufficient stock for %s", product.Name)
			}

			if err := tx.Model(&product).
				UpdateColumn("stock", gorm.Expr("stock - ?", line.Quantity)).Error; err != nil {
				return errs.Internal("failed to reserve stock", err)
			}
			if err := tx.Model(&product).
				UpdateColumn("sales_count", gorm.Expr("sales_count + ?", line.Quantity)).Error; err != nil {
				return errs.Internal("failed to update sales count", err)
			}

			items = append(items, models.OrderItem{
				ProductID: product.ID,
				Quantity:  line.Quantity,
				UnitPrice: product.Price,
				Status:    models.OrderStatusPending,
			})
			total += product.Price * float64(line.Quantity)
		}

		order.TotalAmount = total
		order.Items = items
		if err := tx.Create(order).Error; err != nil {
			return errs.Internal("failed to create order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.db.Preload("Items").Preload("Items.Product").First(order, "id = ?", order.ID)
	return order, nil
}

func (s *OrderService) GetOrder(id uuid.UUID, actor Actor) (*models.Order, error) {
	var order models.Order
	if err := s.db.Preload("Items").Preload("Items.Product").Preload("User").
		First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("order not found")
		}
		return nil, errs.Internal("failed to load order", err)
	}

	if err := s.policy.Authorize(actor, ActionOrderView, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *OrderService) ListOrdersForUser(userID uuid.UUID, params utils.PaginationParams) ([]models.Order, int64, error) {
	query := s.db.Model(&models.Order{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errs.Internal("failed to count orders", err)
	}

	allowedSortFields := []string{"created_at", "updated_at", "status", "total_amount"}
	query = utils.ApplySort(query, params, allowedSortFields)
	query = utils.ApplyPagination(query, params)

	var orders []models.Order
	if err := query.Preload("Items").Find(&orders).Error; err != nil {
		return nil, 0, errs.Internal("failed to fetch orders", err)
	}

	return orders, total, nil
}

// Transition moves the whole order to target. Only the next forward
// status is reachable; cancelled is reachable from any non-terminal
// status. Items individually advanced past the target keep their
// status. On delivered, the delivery timestamp is stamped on the order
// and on every item that moves.
func (s *OrderService) Transition(orderID uuid.UUID, target models.OrderStatus, actor Actor) (*models.Order, error) {
	if !target.Valid() {
		return nil, errs.Validation("unknown order status %q", target)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Preload("User").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("order not found")
			}
			return errs.Internal("failed to load order", err)
		}

		action := ActionOrderAdvance
		if target == models.OrderStatusCancelled {
			action = ActionOrderCancel
		}
		if err := s.policy.Authorize(actor, action, &order); err != nil {
			return err
		}

		if !models.CanTransition(order.Status, target) {
			return errs.InvalidTransition("cannot move order from %s to %s", order.Status, target)
		}

		// Delivered items cannot be undone, so cancelling the whole order
		// is refused once any item has shipped out and arrived; the
		// remaining live items are cancelled individually instead.
		if target == models.OrderStatusCancelled {
			for _, item := range order.Items {
				if item.Status == models.OrderStatusDelivered {
					return errs.InvalidTransition("cannot cancel order with delivered items")
				}
			}
		}

		now := time.Now()
		for i := range order.Items {
			item := &order.Items[i]
			// Skips terminal items and items already at or past target.
			if !models.CanTransition(item.Status, target) {
				continue
			}
			item.Status = target
			if target == models.OrderStatusDelivered {
				item.DeliveredAt = &now
			}
			if err := tx.Model(item).Select("status", "delivered_at").Updates(item).Error; err != nil {
				return errs.Internal("failed to update order item", err)
			}
		}

		order.Status = models.DeriveOrderStatus(order.Items)
		if order.Status == models.OrderStatusDelivered && order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
		if err := tx.Model(&order).Select("status", "delivered_at").Updates(&order).Error; err != nil {
			return errs.Internal("failed to update order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		go s.notificationService.SendOrderStatusEmail(&order)
	}

	return &order, nil
}

// TransitionItem advances a single line item for partial fulfillment.
// The overall order status is recomputed from item statuses, never set
// directly.
func (s *OrderService) TransitionItem(orderID, itemID uuid.UUID, target models.OrderStatus, actor Actor) (*models.Order, error) {
	if !target.Valid() {
		return nil, errs.Validation("unknown order status %q", target)
	}

	var order models.Order
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Preload("Items").Preload("User").First(&order, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errs.NotFound("order not found")
			}
			return errs.Internal("failed to load order", err)
		}

		if err := s.policy.Authorize(actor, ActionOrderAdvance, &order); err != nil {
			return err
		}

		var item *models.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return errs.NotFound("order item not found")
		}

		if !models.CanTransition(item.Status, target) {
			return errs.InvalidTransition("cannot move item from %s to %s", item.Status, target)
		}

		now := time.Now()
		item.Status = target
		if target == models.OrderStatusDelivered {
			item.DeliveredAt = &now
		}
		if err := tx.Model(item).Select("status", "delivered_at").Updates(item).Error; err != nil {
			return errs.Internal("failed to update order item", err)
		}

		order.Status = models.DeriveOrderStatus(order.Items)
		if order.Status == models.OrderStatusDelivered && order.DeliveredAt == nil {
			order.DeliveredAt = &now
		}
		if err := tx.Model(&order).Select("status", "delivered_at").Updates(&order).Error; err != nil {
			return errs.Internal("failed to update order", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.notificationService != nil {
		go s.notificationService.SendOrderStatusEmail(&order)
	}

	return &order, nil
}
